package models

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Configs holds the round window and the oracle allowed to deliver randomness.
// It is replaced as a whole on reset.
type Configs struct {
	Oracle    common.Address `json:"oracle"`
	TimeStart time.Time      `json:"time_start"`
	TimeEnd   time.Time      `json:"time_end"`
}

// Status is a whitelist entry. Being on the whitelist is what allows a
// participant to ask for a lucky number.
type Status struct {
	Attended bool `json:"attended"`
}

// WhitelistEntry pairs a whitelisted address with its status.
type WhitelistEntry struct {
	Address common.Address `json:"address"`
	Status
}

// LuckyNumber is the per-participant seed used when prizes are distributed.
type LuckyNumber [32]byte

func (n LuckyNumber) String() string {
	return hex.EncodeToString(n[:])
}

// MarshalText encodes the number as lowercase hex.
func (n LuckyNumber) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

// UnmarshalText decodes a 64 character hex string.
func (n *LuckyNumber) UnmarshalText(text []byte) error {
	raw, err := hex.DecodeString(string(text))
	if err != nil {
		return fmt.Errorf("decode lucky number: %w", err)
	}
	if len(raw) != len(n) {
		return fmt.Errorf("lucky number must be %d bytes, got %d", len(n), len(raw))
	}
	copy(n[:], raw)
	return nil
}

// Attendee is a registered participant. LuckyNumber stays nil until the
// oracle answers the participant's randomness request.
type Attendee struct {
	Address     common.Address `json:"address"`
	LuckyNumber *LuckyNumber   `json:"lucky_number,omitempty"`
}

// Pending reports whether the attendee is still waiting for randomness.
func (a Attendee) Pending() bool {
	return a.LuckyNumber == nil
}

// Seed returns the lucky number, or the zero seed while it is pending.
func (a Attendee) Seed() [32]byte {
	if a.LuckyNumber == nil {
		return [32]byte{}
	}
	return *a.LuckyNumber
}

// Prizes is the prize pool of the current round.
type Prizes struct {
	Shuffled bool     `json:"shuffle"`
	Prizes   []string `json:"prizes"`
}

// DistributePrize links one attendee to the prize they were given at roll time.
type DistributePrize struct {
	Address common.Address `json:"address"`
	Prize   string         `json:"prize"`
}

// Coin is an amount of funds attached to a call.
type Coin struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

// Call describes who invoked an operation, what they attached and when.
type Call struct {
	Sender common.Address
	Funds  []Coin
	Time   time.Time
}

// Attribute is a key/value pair describing what an operation did.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Response is returned by every successful operation. Requests lists the ids
// of the randomness requests the operation emitted.
type Response struct {
	Attributes []Attribute `json:"attributes"`
	Requests   []string    `json:"requests,omitempty"`
}

// NewResponse starts a response with the given action attribute.
func NewResponse(action string) *Response {
	return (&Response{}).AddAttribute("action", action)
}

// AddAttribute appends an attribute and returns the response for chaining.
func (r *Response) AddAttribute(key, value string) *Response {
	r.Attributes = append(r.Attributes, Attribute{Key: key, Value: value})
	return r
}

// Attribute returns the value stored under key, if any.
func (r *Response) Attribute(key string) (string, bool) {
	for _, attr := range r.Attributes {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return "", false
}

// RoundState is the lifecycle stage derived from the stored flags.
type RoundState string

const (
	StateUninitialized RoundState = "uninitialized"
	StateConfiguring   RoundState = "configuring"
	StateOpen          RoundState = "open"
	StateShuffled      RoundState = "shuffled"
	StateClosed        RoundState = "closed"
)
