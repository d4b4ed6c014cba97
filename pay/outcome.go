package pay

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Outcome decides whether a simulated gateway call succeeds. It is the only
// source of randomness in the payment flow.
type Outcome func() bool

// DefaultSuccessRate is the share of simulated payments that complete.
const DefaultSuccessRate = 0.95

// RandomOutcome succeeds with probability rate. src may be nil, in which case
// a time-seeded PCG is used.
func RandomOutcome(rate float64, src rand.Source) Outcome {
	if src == nil {
		seed := uint64(time.Now().UnixNano())
		src = rand.NewPCG(seed, seed>>17|1)
	}
	var mu sync.Mutex
	rng := rand.New(src)
	return func() bool {
		mu.Lock()
		defer mu.Unlock()
		return rng.Float64() < rate
	}
}

// Always returns a fixed outcome.
func Always(success bool) Outcome {
	return func() bool { return success }
}
