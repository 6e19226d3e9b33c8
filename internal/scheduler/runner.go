package scheduler

import (
	"sync"
	"sync/atomic"
	"time"
)

// Runner calls tick with the real time elapsed since the previous call on a
// fixed interval until stopped.
type Runner struct {
	interval time.Duration
	tick     func(real time.Duration)
	now      func() time.Time

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	running  atomic.Bool
	ticks    atomic.Uint64
}

func NewRunner(interval time.Duration, tick func(real time.Duration)) *Runner {
	if interval <= 0 {
		interval = time.Second / 30
	}
	return &Runner{
		interval: interval,
		tick:     tick,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
}

// Start begins the loop. Calling it more than once has no effect.
func (r *Runner) Start() {
	if r.running.CompareAndSwap(false, true) {
		r.wg.Add(1)
		go r.loop()
	}
}

// Stop halts the loop and waits for the current tick to finish.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopChan)
		r.wg.Wait()
		r.running.Store(false)
	})
}

// Ticks returns how many times tick has been called.
func (r *Runner) Ticks() uint64 {
	return r.ticks.Load()
}

func (r *Runner) loop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	last := r.now()
	for {
		select {
		case <-r.stopChan:
			return
		case <-ticker.C:
			now := r.now()
			elapsed := now.Sub(last)
			last = now

			// a stalled host must not fast-forward whole waves in one frame
			if maxStep := r.interval * 4; elapsed > maxStep {
				elapsed = maxStep
			}
			r.tick(elapsed)
			r.ticks.Add(1)
		}
	}
}
