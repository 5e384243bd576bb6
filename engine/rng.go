package engine

import (
	"math/rand"
	"sync"
)

// RNG wraps math/rand.Rand with deterministic position tracking.
// Position increments with every draw, enabling save/restore.
// It is safe for concurrent use.
type RNG struct {
	mu   sync.Mutex
	seed int64
	src  *rand.Rand
	pos  int64
}

// NewRNG creates a new deterministic RNG from a seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		seed: seed,
		src:  rand.New(rand.NewSource(seed)),
	}
}

// Roll returns a random integer in [1, sides].
func (r *RNG) Roll(sides int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pos++
	return r.src.Intn(sides) + 1
}

// RollDice sums count draws in [1, faces] and adds bonus.
// A zero count yields bonus.
func (r *RNG) RollDice(count, faces, bonus int) int {
	total := bonus
	for i := 0; i < count; i++ {
		total += r.Roll(faces)
	}
	return total
}

// Percentile rolls d100.
func (r *RNG) Percentile() int {
	return r.Roll(100)
}

// Seed returns the seed the RNG was created with.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Position returns the number of draws made since creation.
func (r *RNG) Position() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pos
}

// RestoreRNG creates an RNG and advances it to the given position.
// This reproduces the exact RNG state for save/load.
func RestoreRNG(seed int64, position int64) *RNG {
	rng := NewRNG(seed)
	for i := int64(0); i < position; i++ {
		rng.src.Int63()
	}
	rng.pos = position
	return rng
}
