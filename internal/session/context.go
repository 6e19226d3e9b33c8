package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cluckworks/wavedirector/internal/dispatcher"
	"github.com/cluckworks/wavedirector/pkg/core"
)

// Context holds the live session state that is attached to log records and
// telemetry points.
type Context struct {
	mu        sync.RWMutex
	id        string
	profileID string
	mode      core.WaveMode
	started   time.Time
	waveIndex int
	waveName  string
	state     string
}

// NewContext creates a Context with a fresh session id.
func NewContext(profileID string, mode core.WaveMode) *Context {
	return &Context{
		id:        uuid.NewString(),
		profileID: profileID,
		mode:      mode,
		started:   time.Now(),
		waveIndex: -1,
		state:     "idle",
	}
}

// ID returns the session id.
func (c *Context) ID() string {
	return c.id
}

func (c *Context) ProfileID() string {
	return c.profileID
}

func (c *Context) Mode() core.WaveMode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mode
}

func (c *Context) Started() time.Time {
	return c.started
}

// Wave returns the index and name of the wave last started.
func (c *Context) Wave() (int, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.waveIndex, c.waveName
}

func (c *Context) State() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// SetWave records the wave in progress.
func (c *Context) SetWave(index int, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.waveIndex = index
	c.waveName = name
}

func (c *Context) SetState(state string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = state
}

// Attrs is a logging.ContextProvider.
func (c *Context) Attrs() []slog.Attr {
	c.mu.RLock()
	defer c.mu.RUnlock()
	attrs := []slog.Attr{
		slog.String("session", c.id),
		slog.String("mode", string(c.mode)),
		slog.String("state", c.state),
	}
	if c.waveIndex >= 0 {
		attrs = append(attrs, slog.Int("wave", c.waveIndex))
	}
	return attrs
}

// Follow keeps the context in step with orchestrator events.
func (c *Context) Follow(d *dispatcher.Dispatcher) {
	d.Subscribe(core.EventWaveStarted, func(e dispatcher.Event) error {
		if p, ok := e.Payload.(core.WaveStarted); ok {
			c.SetWave(p.Index, p.Name)
		}
		return nil
	}, dispatcher.Named("session.wave"))

	d.Subscribe(core.EventStateChanged, func(e dispatcher.Event) error {
		if p, ok := e.Payload.(core.StateChanged); ok {
			c.SetState(p.To)
		}
		return nil
	}, dispatcher.Named("session.state"))
}
