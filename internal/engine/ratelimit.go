package engine

import "golang.org/x/time/rate"

// NewMoveLimiter creates a rate.Limiter that caps aggregate relocations
// per second across all workers. The burst is one so moves stay evenly
// spaced instead of clustering at window edges.
func NewMoveLimiter(movesPerSec float64) *rate.Limiter {
	return rate.NewLimiter(rate.Limit(movesPerSec), 1)
}
