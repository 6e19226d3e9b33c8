package logging

import (
	"context"
	"log/slog"
)

// ContextProvider returns the live session attributes (session id, mode,
// state, wave) to stamp on every record.
type ContextProvider func() []slog.Attr

// ContextHandler stamps live session attributes on each record. An
// attribute the record or the logger already carries under the same key
// wins, so a log line about a specific wave keeps its own "wave" value.
// Empty string values are dropped.
type ContextHandler struct {
	inner    slog.Handler
	provider ContextProvider
	fixed    map[string]struct{}
	grouped  bool
}

func NewContextHandler(inner slog.Handler, provider ContextProvider) *ContextHandler {
	return &ContextHandler{inner: inner, provider: provider}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	// inside a group the keys would not collide with the record's
	if h.provider == nil || h.grouped {
		return h.inner.Handle(ctx, r)
	}

	var seen map[string]struct{}
	if r.NumAttrs() > 0 {
		seen = make(map[string]struct{}, r.NumAttrs())
		r.Attrs(func(a slog.Attr) bool {
			seen[a.Key] = struct{}{}
			return true
		})
	}

	for _, a := range h.provider() {
		if a.Value.Kind() == slog.KindString && a.Value.String() == "" {
			continue
		}
		if _, ok := seen[a.Key]; ok {
			continue
		}
		if _, ok := h.fixed[a.Key]; ok {
			continue
		}
		r.AddAttrs(a)
	}
	return h.inner.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	fixed := h.fixed
	if !h.grouped && len(attrs) > 0 {
		fixed = make(map[string]struct{}, len(h.fixed)+len(attrs))
		for k := range h.fixed {
			fixed[k] = struct{}{}
		}
		for _, a := range attrs {
			fixed[a.Key] = struct{}{}
		}
	}
	return &ContextHandler{
		inner:    h.inner.WithAttrs(attrs),
		provider: h.provider,
		fixed:    fixed,
		grouped:  h.grouped,
	}
}

// WithGroup nests subsequent attributes. Session attributes are not
// stamped on grouped loggers.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &ContextHandler{
		inner:    h.inner.WithGroup(name),
		provider: h.provider,
		fixed:    h.fixed,
		grouped:  true,
	}
}
