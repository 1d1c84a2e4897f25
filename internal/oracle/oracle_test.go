package oracle

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"luckyroll/internal/address"
	"luckyroll/internal/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

var participant = common.HexToAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")

func TestJobIDsRoundTrip(t *testing.T) {
	v := address.HexValidator{}

	job := ParseJob(PrizeShuffle().ID(), v)
	require.Equal(t, JobPrizeShuffle, job.Kind)

	job = ParseJob(Registration(participant).ID(), v)
	require.Equal(t, JobRegistration, job.Kind)
	require.Equal(t, participant, job.Participant)

	job = ParseJob(strings.ToLower(participant.Hex()), v)
	require.Equal(t, JobRegistration, job.Kind)
	require.Equal(t, participant, job.Participant)
}

func TestParseJobUnmatched(t *testing.T) {
	v := address.HexValidator{}
	for _, id := range []string{"", "set prize", "SET PRIZES", "0x1234", "alice"} {
		job := ParseJob(id, v)
		require.Equal(t, JobUnmatched, job.Kind, id)
		require.Equal(t, id, job.ID())
	}
}

func TestNewRequestPayload(t *testing.T) {
	oracleAddr := common.HexToAddress("0x0dd")
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	funds := []models.Coin{{Denom: "unois", Amount: "300"}}

	req, err := NewRequest(oracleAddr, PrizeShuffle(), funds, now)
	require.NoError(t, err)
	require.NotEmpty(t, req.ID)
	require.Equal(t, oracleAddr, req.Contract)
	require.Equal(t, "set prizes", req.JobID)
	require.Equal(t, funds, req.Funds)
	require.JSONEq(t, `{"get_next_randomness":{"job_id":"set prizes"}}`, string(req.Msg))

	other, err := NewRequest(oracleAddr, Registration(participant), nil, now)
	require.NoError(t, err)
	require.NotEqual(t, req.ID, other.ID)
	require.NotNil(t, other.Funds)

	var decoded map[string]map[string]string
	require.NoError(t, json.Unmarshal(other.Msg, &decoded))
	require.Equal(t, participant.Hex(), decoded["get_next_randomness"]["job_id"])
}

func TestQueue(t *testing.T) {
	q := NewQueue(2)
	ctx := context.Background()

	require.NoError(t, q.Emit(ctx, Request{ID: "1"}))
	require.NoError(t, q.Emit(ctx, Request{ID: "2"}))
	require.ErrorIs(t, q.Emit(ctx, Request{ID: "3"}), ErrOutboxFull)
	require.Equal(t, 2, q.Len())

	drained := q.Drain()
	require.Len(t, drained, 2)
	require.Equal(t, "1", drained[0].ID)
	require.Equal(t, "2", drained[1].ID)
	require.Empty(t, q.Drain())

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	require.ErrorIs(t, q.Emit(cancelled, Request{ID: "4"}), context.Canceled)
}

func TestCallbackSeed(t *testing.T) {
	good := strings.Repeat("ab", 32)
	seed, err := Callback{Randomness: good}.Seed()
	require.NoError(t, err)
	require.Equal(t, byte(0xab), seed[0])
	require.Equal(t, byte(0xab), seed[31])

	for _, bad := range []string{"", "zz", strings.Repeat("ab", 31), strings.Repeat("ab", 33), "0x" + strings.Repeat("ab", 32)} {
		_, err := Callback{Randomness: bad}.Seed()
		require.ErrorIs(t, err, ErrInvalidRandomness, bad)
	}
}
