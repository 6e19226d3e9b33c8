// pkg/core/cachefile.go
package core

import (
	"errors"
	"math"
	"time"
)

// ErrCacheNotFound is returned by cache backends when no file exists for
// the requested id.
var ErrCacheNotFound = errors.New("wave cache not found")

// CampaignWaveCacheFile is the persisted form of a procedurally generated
// campaign. WaveCount must equal len(Waves).
type CampaignWaveCacheFile struct {
	CacheID      string               `json:"cacheId"`
	CacheVersion string               `json:"cacheVersion"`
	WaveCount    int                  `json:"waveCount"`
	Waves        []CampaignWaveRecord `json:"waves"`
}

// CampaignWaveRecord is one cached wave.
type CampaignWaveRecord struct {
	Name               string                    `json:"name"`
	RequiredPlayerWave string                    `json:"requiredPlayerWave"`
	RewardCoins        int                       `json:"rewardCoins"`
	Entries            []CampaignWaveEntryRecord `json:"entries"`
}

// CampaignWaveEntryRecord references a pool entry by index so the cache
// survives renames of the unit types themselves.
type CampaignWaveEntryRecord struct {
	PrefabIndex   int     `json:"prefabIndex"`
	Count         int     `json:"count"`
	SpawnPointKey string  `json:"spawnPointKey"`
	FallbackIndex int     `json:"fallbackIndex"`
	SpawnInterval float64 `json:"spawnInterval"`
}

// Interval converts the cached interval in seconds; negative values keep
// the inherit sentinel.
func (r CampaignWaveEntryRecord) Interval() time.Duration {
	if r.SpawnInterval < 0 {
		return InheritInterval
	}
	return Seconds(r.SpawnInterval)
}

// Seconds converts fractional seconds to a Duration.
func Seconds(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}

// ToSeconds converts a Duration to fractional seconds, keeping the
// inherit sentinel as -1.
func ToSeconds(d time.Duration) float64 {
	if d < 0 {
		return -1
	}
	return d.Seconds()
}
