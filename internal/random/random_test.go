package random

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSource_SameSeedSameSequence(t *testing.T) {
	a := New(42)
	b := New(42)
	for i := 0; i < 50; i++ {
		assert.Equal(t, a.Intn(1000), b.Intn(1000))
	}
}

func TestSource_Range(t *testing.T) {
	s := New(7)
	for i := 0; i < 200; i++ {
		v := s.Range(2, 4)
		assert.GreaterOrEqual(t, v, 2)
		assert.LessOrEqual(t, v, 4)
	}
	assert.Equal(t, 5, s.Range(5, 5))
	assert.Equal(t, 5, s.Range(5, 1))
}

func TestSource_IntnNonPositive(t *testing.T) {
	s := New(1)
	assert.Equal(t, 0, s.Intn(0))
	assert.Equal(t, 0, s.Intn(-3))
}

func TestSource_PickWeighted(t *testing.T) {
	s := New(3)

	assert.Equal(t, -1, s.PickWeighted(nil))

	for i := 0; i < 100; i++ {
		assert.Equal(t, 1, s.PickWeighted([]int{0, 5, -2}))
	}

	seen := map[int]bool{}
	for i := 0; i < 200; i++ {
		seen[s.PickWeighted([]int{0, 0, 0})] = true
	}
	assert.Len(t, seen, 3)
}

func TestSource_InsideCircle(t *testing.T) {
	s := New(5)
	for i := 0; i < 200; i++ {
		dx, dy := s.InsideCircle(2.5)
		assert.LessOrEqual(t, math.Hypot(dx, dy), 2.5)
	}

	dx, dy := s.InsideCircle(0)
	assert.Zero(t, dx)
	assert.Zero(t, dy)
}
