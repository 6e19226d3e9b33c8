// pkg/core/events.go
package core

import "time"

// Event types published by the wave subsystem.
const (
	EventWaveStarted         = "wave.started"
	EventWaveCompleted       = "wave.completed"
	EventWaveCooldownStarted = "wave.cooldown_started"
	EventCoinsChanged        = "economy.coins_changed"
	EventUnitKilled          = "unit.killed"
	EventStateChanged        = "orchestrator.state_changed"
	EventVictoryShown        = "campaign.victory_shown"
)

// WaveStarted is raised before any unit of the wave is spawned.
type WaveStarted struct {
	Index int             `json:"index"`
	Wave  *WaveDefinition `json:"-"`
	Name  string          `json:"name"`
	Units int             `json:"units"`
}

// WaveCompleted is raised once per wave when its alive count reaches zero.
type WaveCompleted struct {
	Index  int             `json:"index"`
	Wave   *WaveDefinition `json:"-"`
	Name   string          `json:"name"`
	Reward int             `json:"reward"`
}

// WaveCooldownStarted is raised in endless mode between waves.
type WaveCooldownStarted struct {
	Current  int           `json:"current"`
	Next     int           `json:"next"`
	Duration time.Duration `json:"duration"`
}

// CoinsChanged carries the session coin total.
type CoinsChanged struct {
	Total int `json:"total"`
}

// UnitKilled is raised for each counted (non-duplicate) death.
type UnitKilled struct {
	WaveIndex int      `json:"waveIndex"`
	UnitID    string   `json:"unitId"`
	UnitType  UnitType `json:"unitType"`
	Alive     int      `json:"alive"`
	Reward    int      `json:"reward"`
}

// StateChanged is raised on every orchestrator state transition.
type StateChanged struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// VictoryShown is raised when the campaign victory menu is requested.
type VictoryShown struct {
	Index   int `json:"index"`
	Pending int `json:"pending"`
}
