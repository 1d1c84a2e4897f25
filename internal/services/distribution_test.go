package services

import (
	"testing"

	"luckyroll/internal/models"
	"luckyroll/internal/shuffle"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func lucky(b byte) *models.LuckyNumber {
	n := models.LuckyNumber{b, b, b}
	return &n
}

func TestDistributeFollowsTheReshuffleRule(t *testing.T) {
	a := models.Attendee{Address: common.HexToAddress("0x0a"), LuckyNumber: lucky(1)}
	b := models.Attendee{Address: common.HexToAddress("0x0b"), LuckyNumber: lucky(2)}
	prizes := []string{"gold", "silver", "bronze"}

	dist, err := Distribute(prizes, []models.Attendee{b, a}, AscendingAddress)
	require.NoError(t, err)
	require.Len(t, dist, 2)

	pool := shuffle.Shuffle(a.Seed(), prizes)
	wantA := pool[len(pool)-1]
	pool = shuffle.Shuffle(b.Seed(), pool[:len(pool)-1])
	wantB := pool[len(pool)-1]

	require.Equal(t, models.DistributePrize{Address: a.Address, Prize: wantA}, dist[0])
	require.Equal(t, models.DistributePrize{Address: b.Address, Prize: wantB}, dist[1])
}

func TestDistributeNoPrizeTwice(t *testing.T) {
	prizes := make([]string, 20)
	for i := range prizes {
		prizes[i] = string(rune('a' + i))
	}
	attendees := make([]models.Attendee, 15)
	for i := range attendees {
		attendees[i] = models.Attendee{
			Address:     common.BytesToAddress([]byte{byte(i + 1)}),
			LuckyNumber: lucky(byte(i)),
		}
	}

	dist, err := Distribute(prizes, attendees, AscendingAddress)
	require.NoError(t, err)
	require.Len(t, dist, len(attendees))

	seenAddr := map[common.Address]bool{}
	seenPrize := map[string]bool{}
	for _, d := range dist {
		require.False(t, seenAddr[d.Address], "attendee %s twice", d.Address.Hex())
		require.False(t, seenPrize[d.Prize], "prize %s twice", d.Prize)
		seenAddr[d.Address] = true
		seenPrize[d.Prize] = true
	}
}

func TestDistributeInsufficientPrize(t *testing.T) {
	attendees := []models.Attendee{
		{Address: common.HexToAddress("0x01")},
		{Address: common.HexToAddress("0x02")},
	}
	_, err := Distribute([]string{"only"}, attendees, AscendingAddress)
	require.ErrorIs(t, err, ErrInsufficientPrize)
	require.ErrorIs(t, err, ErrDomain)
}

func TestDistributeEmpty(t *testing.T) {
	dist, err := Distribute([]string{"gold"}, nil, nil)
	require.NoError(t, err)
	require.Empty(t, dist)
}

func TestDistributeOrderIsAParameter(t *testing.T) {
	a := models.Attendee{Address: common.HexToAddress("0x0a"), LuckyNumber: lucky(7)}
	b := models.Attendee{Address: common.HexToAddress("0x0b"), LuckyNumber: lucky(9)}
	prizes := []string{"p1", "p2", "p3", "p4", "p5", "p6"}

	descending := func(in []models.Attendee) []models.Attendee {
		out := AscendingAddress(in)
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
		return out
	}

	asc, err := Distribute(prizes, []models.Attendee{a, b}, AscendingAddress)
	require.NoError(t, err)
	desc, err := Distribute(prizes, []models.Attendee{a, b}, descending)
	require.NoError(t, err)

	require.Equal(t, a.Address, asc[0].Address)
	require.Equal(t, b.Address, desc[0].Address)

	// Input order never matters, only the order function does.
	again, err := Distribute(prizes, []models.Attendee{b, a}, AscendingAddress)
	require.NoError(t, err)
	require.Equal(t, asc, again)
}

func TestDistributePendingUsesZeroSeed(t *testing.T) {
	pending := models.Attendee{Address: common.HexToAddress("0x01")}
	prizes := []string{"x", "y", "z"}

	dist, err := Distribute(prizes, []models.Attendee{pending}, AscendingAddress)
	require.NoError(t, err)
	pool := shuffle.Shuffle([32]byte{}, prizes)
	require.Equal(t, pool[len(pool)-1], dist[0].Prize)
}
