package orchestrator

import "github.com/cluckworks/wavedirector/pkg/core"

// Spawner places a unit of the given type at a spawn point.
type Spawner interface {
	Spawn(unit core.UnitType, point *core.SpawnPoint) (core.Unit, error)
}

// PlayerHealth is the player's health pool.
type PlayerHealth interface {
	Heal(amount float64)
	IsAlive() bool
	CurrentHealth() float64
	MaxHealth() float64
	// Refill revives the player at full health.
	Refill()
}

// ProgressService persists where the campaign resumes.
type ProgressService interface {
	CampaignStartWave() int
	SaveCampaignProgress(completedIndex int)
}

// VictoryUI is asked to show the campaign victory menu.
type VictoryUI interface {
	ShowVictoryMenu()
}

// Economy grants coins. *economy.Ledger implements it.
type Economy interface {
	AwardKill(unit core.UnitType) int
	GrantCampaignReward(amount int)
}
