// Package stream pushes wave director events to a websocket server as JSON
// envelopes.
package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cluckworks/wavedirector/internal/config"
	"github.com/cluckworks/wavedirector/internal/dispatcher"
	"github.com/cluckworks/wavedirector/internal/session"
	"github.com/cluckworks/wavedirector/pkg/core"
	"github.com/cluckworks/wavedirector/pkg/streaming"
)

// ErrDisabled is returned by Connect when streaming is switched off.
var ErrDisabled = errors.New("event stream disabled")

// Streamer sends session and wave events over a websocket.
type Streamer struct {
	conn *connection
	cfg  config.StreamConfig
}

// New creates a streamer. Nothing is dialled until Connect.
func New(cfg config.StreamConfig, logger *slog.Logger) *Streamer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Streamer{
		conn: newConnection(logger.With("component", "stream")),
		cfg:  cfg,
	}
}

// Connect dials the configured server.
func (s *Streamer) Connect() error {
	if !s.cfg.Enabled {
		return ErrDisabled
	}
	return s.conn.dial(s.cfg.URL, s.cfg.Secret)
}

// Close disconnects from the server.
func (s *Streamer) Close() error {
	return s.conn.close()
}

func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(streaming.Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// Send queues a message without waiting for the server.
func (s *Streamer) Send(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	s.conn.send(data)
	return nil
}

// StartSession announces the session and waits for the server ack. The
// message is replayed whenever the connection is re-established.
func (s *Streamer) StartSession(sess *session.Context) error {
	data, err := marshalEnvelope(streaming.TypeStartSession, streaming.StartSessionPayload{
		SessionID: sess.ID(),
		ProfileID: sess.ProfileID(),
		Mode:      string(sess.Mode()),
		Started:   sess.Started(),
	})
	if err != nil {
		return err
	}

	s.conn.mu.Lock()
	s.conn.sessionMsg = data
	s.conn.mu.Unlock()

	return s.conn.sendAndWait(data, streaming.TypeStartSession, ackTimeout)
}

// EndSession sends end_session and waits for the server ack.
func (s *Streamer) EndSession() error {
	data, err := marshalEnvelope(streaming.TypeEndSession, nil)
	if err != nil {
		return err
	}
	err = s.conn.sendAndWait(data, streaming.TypeEndSession, ackTimeout)

	s.conn.mu.Lock()
	s.conn.sessionMsg = nil
	s.conn.mu.Unlock()
	return err
}

// MessageType maps a dispatcher event type to its stream message type.
func MessageType(eventType string) (string, bool) {
	switch eventType {
	case core.EventWaveStarted:
		return streaming.TypeWaveStarted, true
	case core.EventWaveCompleted:
		return streaming.TypeWaveCompleted, true
	case core.EventWaveCooldownStarted:
		return streaming.TypeWaveCooldown, true
	case core.EventUnitKilled:
		return streaming.TypeUnitKilled, true
	case core.EventCoinsChanged:
		return streaming.TypeCoinsChanged, true
	case core.EventStateChanged:
		return streaming.TypeStateChanged, true
	case core.EventVictoryShown:
		return streaming.TypeVictoryShown, true
	}
	return "", false
}

// Follow forwards every wave event to the stream.
func (s *Streamer) Follow(d *dispatcher.Dispatcher) {
	for _, typ := range []string{
		core.EventWaveStarted,
		core.EventWaveCompleted,
		core.EventWaveCooldownStarted,
		core.EventUnitKilled,
		core.EventCoinsChanged,
		core.EventStateChanged,
		core.EventVictoryShown,
	} {
		msgType, _ := MessageType(typ)
		d.Subscribe(typ, func(e dispatcher.Event) error {
			return s.Send(msgType, e.Payload)
		}, dispatcher.Named("stream."+typ))
	}
}
