// Package oracle correlates outgoing randomness requests with the callbacks
// the randomness oracle sends back.
//
// Every request carries a Job. The job's wire id is echoed by the oracle and
// parsed back into a Job exactly once, when the callback arrives.
package oracle

import (
	"luckyroll/internal/address"

	"github.com/ethereum/go-ethereum/common"
)

// PrizeShuffleJobID is the wire id of the prize pool shuffle request.
const PrizeShuffleJobID = "set prizes"

type JobKind int

const (
	// JobUnmatched is a callback id that names no job this engine issues.
	JobUnmatched JobKind = iota
	JobPrizeShuffle
	JobRegistration
)

func (k JobKind) String() string {
	switch k {
	case JobPrizeShuffle:
		return "prize_shuffle"
	case JobRegistration:
		return "registration"
	default:
		return "unmatched"
	}
}

// Job identifies the consumer of a piece of randomness.
type Job struct {
	Kind        JobKind
	Participant common.Address // set for JobRegistration
	Raw         string         // set for JobUnmatched
}

func PrizeShuffle() Job {
	return Job{Kind: JobPrizeShuffle}
}

func Registration(participant common.Address) Job {
	return Job{Kind: JobRegistration, Participant: participant}
}

// ID is the id sent to the oracle.
func (j Job) ID() string {
	switch j.Kind {
	case JobPrizeShuffle:
		return PrizeShuffleJobID
	case JobRegistration:
		return j.Participant.Hex()
	default:
		return j.Raw
	}
}

// ParseJob maps a callback id back to a Job. Ids that are neither the prize
// shuffle id nor a valid address come back as JobUnmatched.
func ParseJob(id string, v address.Validator) Job {
	if id == PrizeShuffleJobID {
		return PrizeShuffle()
	}
	addr, err := v.Validate(id)
	if err != nil {
		return Job{Kind: JobUnmatched, Raw: id}
	}
	return Registration(addr)
}
