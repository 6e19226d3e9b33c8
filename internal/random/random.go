// internal/random/random.go
package random

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// Source is a seedable random source shared by everything that draws
// wave content. All methods are safe for concurrent use.
type Source struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Source with the given seed. A zero seed uses the clock.
func New(seed int64) *Source {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Source{rng: rand.New(rand.NewSource(seed))}
}

// Intn returns a value in [0, n). n <= 0 returns 0.
func (s *Source) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

// Range returns a value in the inclusive range [lo, hi]. If hi < lo, lo is returned.
func (s *Source) Range(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + s.Intn(hi-lo+1)
}

// Float64 returns a value in [0.0, 1.0).
func (s *Source) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// InsideCircle returns an offset uniformly distributed over a disc of the
// given radius. A non-positive radius returns a zero offset.
func (s *Source) InsideCircle(radius float64) (dx, dy float64) {
	if radius <= 0 {
		return 0, 0
	}
	s.mu.Lock()
	r := radius * math.Sqrt(s.rng.Float64())
	theta := 2 * math.Pi * s.rng.Float64()
	s.mu.Unlock()
	return r * math.Cos(theta), r * math.Sin(theta)
}

// PickWeighted returns an index into weights chosen proportionally to the
// weights. Non-positive weights are never chosen unless all are, in which
// case the pick is uniform. Empty input returns -1.
func (s *Source) PickWeighted(weights []int) int {
	if len(weights) == 0 {
		return -1
	}

	total := 0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return s.Intn(len(weights))
	}

	r := s.Intn(total)
	upto := 0
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		if upto+w > r {
			return i
		}
		upto += w
	}

	return len(weights) - 1
}
