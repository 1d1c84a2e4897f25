package oracle

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"luckyroll/internal/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// Request is an outbound randomness request addressed to the oracle.
type Request struct {
	ID       string          `json:"id"`
	Contract common.Address  `json:"contract_addr"`
	JobID    string          `json:"job_id"`
	Msg      json.RawMessage `json:"msg"`
	Funds    []models.Coin   `json:"funds"`
	IssuedAt time.Time       `json:"issued_at"`
}

type getNextRandomness struct {
	GetNextRandomness struct {
		JobID string `json:"job_id"`
	} `json:"get_next_randomness"`
}

// NewRequest builds the message asking oracle for the next randomness
// on behalf of job.
func NewRequest(oracleAddr common.Address, job Job, funds []models.Coin, now time.Time) (Request, error) {
	var payload getNextRandomness
	payload.GetNextRandomness.JobID = job.ID()
	msg, err := json.Marshal(payload)
	if err != nil {
		return Request{}, err
	}
	if funds == nil {
		funds = []models.Coin{}
	}
	return Request{
		ID:       uuid.NewString(),
		Contract: oracleAddr,
		JobID:    job.ID(),
		Msg:      msg,
		Funds:    funds,
		IssuedAt: now,
	}, nil
}

// Outbox is the outbound message channel. Once emitted, a request cannot be
// withdrawn.
type Outbox interface {
	Emit(ctx context.Context, req Request) error
}

// Queue is an in-process Outbox. A relay drains it and forwards the
// requests to the oracle.
type Queue struct {
	mu      sync.Mutex
	pending []Request
	limit   int
}

// NewQueue returns a queue holding at most limit undrained requests;
// limit <= 0 means unbounded.
func NewQueue(limit int) *Queue {
	return &Queue{limit: limit}
}

func (q *Queue) Emit(ctx context.Context, req Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.limit > 0 && len(q.pending) >= q.limit {
		return ErrOutboxFull
	}
	q.pending = append(q.pending, req)
	return nil
}

// Drain removes and returns every pending request in emission order.
func (q *Queue) Drain() []Request {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.pending
	q.pending = nil
	if out == nil {
		out = []Request{}
	}
	return out
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
