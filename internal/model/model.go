package model

import (
	"time"

	"gorm.io/datatypes"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&DirectorInfo{},
	&WaveCache{},
	&PlayerProgress{},
	&WaveRun{},
}

// DirectorInfo stores the schema version of this database.
type DirectorInfo struct {
	ID            uint   `gorm:"primaryKey"`
	SchemaVersion string `json:"schemaVersion" gorm:"size:32"`
	CreatedAt     time.Time
}

// WaveCache stores one persisted campaign wave cache file. Payload holds
// the full JSON document; the scalar columns mirror its header for queries.
type WaveCache struct {
	CacheID      string         `json:"cacheId" gorm:"primaryKey;size:127"`
	CacheVersion string         `json:"cacheVersion" gorm:"size:64"`
	WaveCount    int            `json:"waveCount"`
	Payload      datatypes.JSON `json:"payload"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// PlayerProgress is the persistent per-profile state: coin balance, the
// campaign wave to resume at and the last selected mode.
type PlayerProgress struct {
	ProfileID         string    `json:"profileId" gorm:"primaryKey;size:127"`
	Balance           int       `json:"balance"`
	CampaignStartWave int       `json:"campaignStartWave"`
	Mode              string    `json:"mode" gorm:"size:16"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// WaveRun records one completed or abandoned wave for later analysis.
type WaveRun struct {
	ID          uint      `json:"id" gorm:"primarykey;autoIncrement"`
	SessionID   string    `json:"sessionId" gorm:"size:36;index"`
	Mode        string    `json:"mode" gorm:"size:16"`
	WaveIndex   int       `json:"waveIndex"`
	WaveName    string    `json:"waveName" gorm:"size:127"`
	Units       int       `json:"units"`
	RewardCoins int       `json:"rewardCoins"`
	StartedAt   time.Time `json:"startedAt"`
	CompletedAt time.Time `json:"completedAt"`
}

func (*DirectorInfo) TableName() string {
	return "director_infos"
}

func (*WaveCache) TableName() string {
	return "wave_caches"
}

func (*PlayerProgress) TableName() string {
	return "player_progress"
}

func (*WaveRun) TableName() string {
	return "wave_runs"
}
