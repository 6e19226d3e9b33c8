// Package scheduler runs the wave subsystem's routines cooperatively on one
// goroutine. Each routine belongs to a category and starting a routine
// cancels the one already running in that category.
package scheduler

import (
	"log/slog"
	"math"
	"time"

	"github.com/cluckworks/wavedirector/internal/queue"
)

// Category groups routines that must not overlap. Routines are stepped in
// the order declared here; Heal runs before Cooldown so a heal spread over a
// cooldown lands in full before the next wave starts.
type Category int

const (
	Spawn Category = iota
	Heal
	Cooldown
	TimeScale

	numCategories
)

func (c Category) String() string {
	switch c {
	case Spawn:
		return "spawn"
	case Heal:
		return "heal"
	case Cooldown:
		return "cooldown"
	case TimeScale:
		return "timescale"
	default:
		return "unknown"
	}
}

// Frame is the time that passed since the previous Advance.
type Frame struct {
	// Delta is simulation time, scaled by TimeScale.
	Delta time.Duration
	// Unscaled is real time.
	Unscaled  time.Duration
	TimeScale float64
}

// Token is cancelled when its routine is replaced or cancelled.
type Token struct {
	cancelled bool
}

// Cancelled reports whether the routine owning t should stop.
func (t *Token) Cancelled() bool {
	return t == nil || t.cancelled
}

// Task is stepped once per frame until it returns true.
type Task interface {
	Step(f Frame, tok *Token) (done bool)
}

// TaskFunc adapts a function to Task.
type TaskFunc func(f Frame, tok *Token) bool

func (fn TaskFunc) Step(f Frame, tok *Token) bool { return fn(f, tok) }

type slot struct {
	task  Task
	token *Token
	born  uint64
}

// Scheduler is not safe for concurrent use except for Post.
type Scheduler struct {
	slots   [numCategories]*slot
	scale   float64
	frame   uint64
	mailbox *queue.Queue[func()]
	logger  *slog.Logger
}

func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		scale:   1,
		mailbox: queue.New[func()](),
		logger:  logger,
	}
}

// Start installs task in cat, cancelling the previous routine of that
// category. A task started by another routine's Step first runs on the next
// Advance.
func (s *Scheduler) Start(cat Category, task Task) *Token {
	if cat < 0 || cat >= numCategories || task == nil {
		return &Token{cancelled: true}
	}
	s.Cancel(cat)
	tok := &Token{}
	s.slots[cat] = &slot{task: task, token: tok, born: s.frame}
	s.logger.Debug("Routine started", "category", cat.String())
	return tok
}

// Cancel stops the routine running in cat, if any.
func (s *Scheduler) Cancel(cat Category) {
	if cat < 0 || cat >= numCategories {
		return
	}
	if sl := s.slots[cat]; sl != nil {
		sl.token.cancelled = true
		s.slots[cat] = nil
		s.logger.Debug("Routine cancelled", "category", cat.String())
	}
}

// CancelAll stops every routine.
func (s *Scheduler) CancelAll() {
	for c := range numCategories {
		s.Cancel(c)
	}
}

// Active reports whether a routine is running in cat.
func (s *Scheduler) Active(cat Category) bool {
	return cat >= 0 && cat < numCategories && s.slots[cat] != nil
}

func (s *Scheduler) TimeScale() float64 {
	return s.scale
}

// SetTimeScale sets the factor applied to simulation time. Negative and NaN
// values are treated as 0.
func (s *Scheduler) SetTimeScale(v float64) {
	if math.IsNaN(v) || v < 0 {
		v = 0
	}
	s.scale = v
}

// Post queues fn to run on the scheduling goroutine at the start of the next
// Advance. Safe for concurrent use.
func (s *Scheduler) Post(fn func()) {
	if fn != nil {
		s.mailbox.Push(fn)
	}
}

// Pending returns the number of posted functions not yet run.
func (s *Scheduler) Pending() int {
	return s.mailbox.Len()
}

// Advance runs posted functions, then steps every routine once in category
// order. Routines started by a posted function first run on the next
// Advance, like routines started during a Step.
func (s *Scheduler) Advance(real time.Duration) Frame {
	if real < 0 {
		real = 0
	}

	s.frame++
	for _, fn := range s.mailbox.Drain() {
		fn()
	}

	f := Frame{
		Delta:     time.Duration(float64(real) * s.scale),
		Unscaled:  real,
		TimeScale: s.scale,
	}

	for c := range numCategories {
		sl := s.slots[c]
		if sl == nil || sl.born == s.frame {
			continue
		}
		if sl.task.Step(f, sl.token) && s.slots[c] == sl {
			s.slots[c] = nil
		}
	}
	return f
}
