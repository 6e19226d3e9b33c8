package streaming

import (
	"encoding/json"
	"time"
)

// Message type constants matching the wave streaming protocol.
const (
	TypeStartSession   = "start_session"
	TypeEndSession     = "end_session"
	TypeWaveStarted    = "wave_started"
	TypeWaveCompleted  = "wave_completed"
	TypeWaveCooldown   = "wave_cooldown"
	TypeUnitKilled     = "unit_killed"
	TypeCoinsChanged   = "coins_changed"
	TypeStateChanged   = "state_changed"
	TypeVictoryShown   = "victory_shown"
	TypeStatusSnapshot = "status_snapshot"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// StartSessionPayload identifies the director session being streamed.
type StartSessionPayload struct {
	SessionID string    `json:"sessionId"`
	ProfileID string    `json:"profileId"`
	Mode      string    `json:"mode"`
	Started   time.Time `json:"started"`
}
