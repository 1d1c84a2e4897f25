package services

import (
	"bytes"
	"sort"

	"luckyroll/internal/models"
	"luckyroll/internal/shuffle"
)

// AttendeeOrder decides the order attendees pick prizes in. It must be
// deterministic and must not depend on lucky numbers.
type AttendeeOrder func(attendees []models.Attendee) []models.Attendee

// AscendingAddress orders attendees by their raw address bytes.
func AscendingAddress(attendees []models.Attendee) []models.Attendee {
	out := append([]models.Attendee(nil), attendees...)
	sort.SliceStable(out, func(i, j int) bool {
		return bytes.Compare(out[i].Address.Bytes(), out[j].Address.Bytes()) < 0
	})
	return out
}

// Distribute assigns one prize per attendee. Walking attendees in order,
// the remaining pool is reshuffled with the attendee's lucky number and the
// last prize is popped for them. Pending attendees use the zero seed.
func Distribute(prizes []string, attendees []models.Attendee, order AttendeeOrder) ([]models.DistributePrize, error) {
	if len(attendees) > len(prizes) {
		return nil, ErrInsufficientPrize
	}
	if order == nil {
		order = AscendingAddress
	}

	pool := append([]string(nil), prizes...)
	dist := make([]models.DistributePrize, 0, len(attendees))
	for _, attendee := range order(attendees) {
		pool = shuffle.Shuffle(attendee.Seed(), pool)
		last := len(pool) - 1
		dist = append(dist, models.DistributePrize{
			Address: attendee.Address,
			Prize:   pool[last],
		})
		pool = pool[:last]
	}
	return dist, nil
}
