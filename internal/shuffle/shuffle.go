// Package shuffle implements the seeded permutation used for every shuffle in
// a round: the oracle shuffle of the prize pool and the per-attendee
// reshuffles at roll time.
package shuffle

import "math/rand/v2"

// Shuffle returns a permutation of items determined only by seed and the
// input order. The input slice is left untouched.
func Shuffle[T any](seed [32]byte, items []T) []T {
	out := make([]T, len(items))
	copy(out, items)

	rng := rand.New(rand.NewChaCha8(seed))
	for i := len(out) - 1; i >= 1; i-- {
		j := rng.IntN(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}
