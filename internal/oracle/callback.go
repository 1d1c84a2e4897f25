package oracle

import (
	"encoding/hex"
	"errors"
	"strings"
	"time"
)

var (
	ErrInvalidRandomness = errors.New("invalid randomness")
	ErrOutboxFull        = errors.New("outbox full")
)

// Callback is what the oracle delivers for a previously issued job.
type Callback struct {
	JobID      string    `json:"job_id"`
	Published  time.Time `json:"published"`
	Randomness string    `json:"randomness"`
}

// Seed decodes the delivered randomness, which must be exactly 32 bytes of hex.
func (c Callback) Seed() ([32]byte, error) {
	var seed [32]byte
	raw, err := hex.DecodeString(strings.TrimSpace(c.Randomness))
	if err != nil || len(raw) != len(seed) {
		return seed, ErrInvalidRandomness
	}
	copy(seed[:], raw)
	return seed, nil
}
