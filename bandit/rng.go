package bandit

import (
	"hash/fnv"
	"math/rand"
	"time"
)

const (
	// StreamSelector drives the exploit/explore coin and the random picks of
	// SelectArms.
	StreamSelector = "selector"

	// StreamFallback drives the shuffle of SelectRaceProviders.
	StreamFallback = "fallback"
)

// RNG hands out deterministic, isolated random streams derived from one seed.
//
// Each stream is seeded with seed XOR fnv1a64(name), so adding a consumer of
// one stream never perturbs the draws of another. The same name always
// returns the same *rand.Rand.
//
// Thread-safety: NOT thread-safe. Selection runs on the caller's goroutine.
type RNG struct {
	seed    int64
	streams map[string]*rand.Rand
}

// NewRNG creates an RNG from a fixed seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		seed:    seed,
		streams: make(map[string]*rand.Rand),
	}
}

// NewClockRNG creates an RNG seeded from the wall clock, for production use.
func NewClockRNG() *RNG {
	return NewRNG(time.Now().UnixNano())
}

// Stream returns the random source for the named consumer. Never returns nil.
func (r *RNG) Stream(name string) *rand.Rand {
	if rng, ok := r.streams[name]; ok {
		return rng
	}
	rng := rand.New(rand.NewSource(r.seed ^ fnv1a64(name)))
	r.streams[name] = rng
	return rng
}

// Seed returns the seed this RNG was created with.
func (r *RNG) Seed() int64 {
	return r.seed
}

func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
