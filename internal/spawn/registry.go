package spawn

import (
	"log/slog"

	"github.com/cluckworks/wavedirector/internal/random"
	"github.com/cluckworks/wavedirector/pkg/core"
)

// Binding associates a lookup key with a spawn point.
type Binding struct {
	Key   string
	Point *core.SpawnPoint
}

// Target is one resolved spawn location for a wave entry.
type Target struct {
	Point *core.SpawnPoint
	// Key is the requested key, or the point's registered key when the
	// request was empty.
	Key string
	// FallbackIndex is the point's position in the fallback list, or -1.
	FallbackIndex int
}

// Registry resolves spawn keys to points. It is built once and never
// mutated afterwards, so lookups need no locking.
type Registry struct {
	byKey    map[string]*core.SpawnPoint
	keyOf    map[*core.SpawnPoint]string
	fallback []*core.SpawnPoint
	indexOf  map[*core.SpawnPoint]int
	rng      *random.Source
}

// NewRegistry builds the lookup tables from bindings. Nil points are
// skipped. Points with an empty key are fallback-only. On duplicate keys
// the first binding wins.
func NewRegistry(bindings []Binding, rng *random.Source, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if rng == nil {
		rng = random.New(0)
	}

	r := &Registry{
		byKey:   make(map[string]*core.SpawnPoint, len(bindings)),
		keyOf:   make(map[*core.SpawnPoint]string, len(bindings)),
		indexOf: make(map[*core.SpawnPoint]int, len(bindings)),
		rng:     rng,
	}

	for i, b := range bindings {
		if b.Point == nil {
			logger.Warn("Spawn binding has no point, skipping", "index", i, "key", b.Key)
			continue
		}

		if _, seen := r.indexOf[b.Point]; !seen {
			r.indexOf[b.Point] = len(r.fallback)
			r.fallback = append(r.fallback, b.Point)
		}

		if b.Key == "" {
			logger.Warn("Spawn binding has empty key, fallback only", "index", i)
			continue
		}

		if existing, dup := r.byKey[b.Key]; dup {
			if existing != b.Point {
				logger.Warn("Duplicate spawn key, keeping first binding", "key", b.Key, "index", i)
			}
			continue
		}

		r.byKey[b.Key] = b.Point
		if _, named := r.keyOf[b.Point]; !named {
			r.keyOf[b.Point] = b.Key
		}
	}

	return r
}

// Len returns the number of fallback points.
func (r *Registry) Len() int {
	return len(r.fallback)
}

// Points returns a copy of the fallback list.
func (r *Registry) Points() []*core.SpawnPoint {
	out := make([]*core.SpawnPoint, len(r.fallback))
	copy(out, r.fallback)
	return out
}

// Resolve returns the point bound to key, or nil.
func (r *Registry) Resolve(key string) *core.SpawnPoint {
	if key == "" {
		return nil
	}
	return r.byKey[key]
}

// ResolveOrFallback returns the point bound to key, else a random fallback
// point, else nil.
func (r *Registry) ResolveOrFallback(key string) *core.SpawnPoint {
	p, _ := r.ResolveWithFallbackIndex(key)
	return p
}

// ResolveWithFallbackIndex is ResolveOrFallback that also reports which
// fallback slot was drawn. The index is -1 on an exact hit or when nothing
// could be resolved.
func (r *Registry) ResolveWithFallbackIndex(key string) (*core.SpawnPoint, int) {
	if p := r.Resolve(key); p != nil {
		return p, -1
	}
	if len(r.fallback) == 0 {
		return nil, -1
	}
	i := r.rng.Intn(len(r.fallback))
	return r.fallback[i], i
}

// ResolveFromCache replays a cached resolution: exact key first, then the
// cached fallback slot if still valid, then a fresh random fallback.
func (r *Registry) ResolveFromCache(key string, fallbackIndex int) *core.SpawnPoint {
	if p := r.Resolve(key); p != nil {
		return p
	}
	if fallbackIndex >= 0 && fallbackIndex < len(r.fallback) {
		return r.fallback[fallbackIndex]
	}
	return r.ResolveOrFallback("")
}

// KeyFor returns the registered key of p, or "".
func (r *Registry) KeyFor(p *core.SpawnPoint) string {
	if p == nil {
		return ""
	}
	return r.keyOf[p]
}

// FallbackIndexOf returns p's position in the fallback list, or -1.
func (r *Registry) FallbackIndexOf(p *core.SpawnPoint) int {
	if p == nil {
		return -1
	}
	if i, ok := r.indexOf[p]; ok {
		return i
	}
	return -1
}

// BuildTargets expands a spawn request into concrete targets. Broadcast
// yields every registered point; otherwise a single resolved point. An
// empty registry yields no targets.
func (r *Registry) BuildTargets(key string, broadcast bool) []Target {
	if broadcast {
		targets := make([]Target, 0, len(r.fallback))
		for i, p := range r.fallback {
			targets = append(targets, Target{Point: p, Key: r.keyOf[p], FallbackIndex: i})
		}
		return targets
	}

	p, idx := r.ResolveWithFallbackIndex(key)
	if p == nil {
		return nil
	}

	targetKey := key
	if targetKey == "" {
		targetKey = r.keyOf[p]
	}
	if idx < 0 {
		idx = r.FallbackIndexOf(p)
	}

	return []Target{{Point: p, Key: targetKey, FallbackIndex: idx}}
}
