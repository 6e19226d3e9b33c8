package scheduler

import "time"

// Step is one element of a Sequence: wait, then act.
type Step struct {
	Wait time.Duration
	Do   func()
}

// Sequence runs its steps in order on simulation time. Time left over after
// a step carries into the next one, so several steps can run in one frame.
type Sequence struct {
	steps   []Step
	next    int
	elapsed time.Duration
}

func NewSequence(steps ...Step) *Sequence {
	return &Sequence{steps: steps}
}

// Then appends a step and returns the sequence.
func (q *Sequence) Then(wait time.Duration, do func()) *Sequence {
	q.steps = append(q.steps, Step{Wait: wait, Do: do})
	return q
}

// Len returns the number of steps.
func (q *Sequence) Len() int { return len(q.steps) }

func (q *Sequence) Step(f Frame, tok *Token) bool {
	budget := q.elapsed + f.Delta
	for q.next < len(q.steps) {
		if tok.Cancelled() {
			return true
		}
		st := q.steps[q.next]
		wait := max(0, st.Wait)
		if budget < wait {
			q.elapsed = budget
			return false
		}
		budget -= wait
		q.next++
		if st.Do != nil {
			st.Do()
		}
	}
	q.elapsed = 0
	return true
}

// Delay calls fn once d has passed. Scaled selects simulation time.
func Delay(d time.Duration, scaled bool, fn func()) Task {
	var elapsed time.Duration
	return TaskFunc(func(f Frame, tok *Token) bool {
		elapsed += pick(f, scaled)
		if elapsed < d {
			return false
		}
		if !tok.Cancelled() && fn != nil {
			fn()
		}
		return true
	})
}

// Ramp interpolates linearly from From to To over Duration and hands each
// value to Apply. Done runs after the final value is applied.
type Ramp struct {
	From, To float64
	Duration time.Duration
	// Scaled selects simulation time; ramps of the time scale itself use
	// real time.
	Scaled bool
	Apply  func(v float64)
	Done   func()

	elapsed time.Duration
}

func (r *Ramp) Step(f Frame, tok *Token) bool {
	r.elapsed += pick(f, r.Scaled)

	progress := 1.0
	if r.Duration > 0 && r.elapsed < r.Duration {
		progress = float64(r.elapsed) / float64(r.Duration)
	}

	if r.Apply != nil {
		r.Apply(r.From + (r.To-r.From)*progress)
	}
	if progress < 1 {
		return false
	}
	if !tok.Cancelled() && r.Done != nil {
		r.Done()
	}
	return true
}

func pick(f Frame, scaled bool) time.Duration {
	if scaled {
		return f.Delta
	}
	return f.Unscaled
}
