package orchestrator

import (
	"time"

	"github.com/cluckworks/wavedirector/pkg/core"
)

// State is the orchestrator's position in the wave cycle.
type State int

const (
	Idle State = iota
	WaveActive
	WaveCooldown
	CampaignVictoryPending
	CampaignVictoryShown
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case WaveActive:
		return "wave_active"
	case WaveCooldown:
		return "wave_cooldown"
	case CampaignVictoryPending:
		return "victory_pending"
	case CampaignVictoryShown:
		return "victory_shown"
	default:
		return "unknown"
	}
}

// Status is a point-in-time copy of the orchestrator's observable state.
type Status struct {
	State        State
	Mode         core.WaveMode
	WaveIndex    int
	WaveName     string
	TotalWaves   int
	PendingIndex int
	Alive        int
	Processed    int
	TimeScale    float64
	UpdatedAt    time.Time
}
