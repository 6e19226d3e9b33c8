// pkg/core/wave.go
package core

import (
	"fmt"
	"strconv"
	"time"
)

// UnitType identifies a spawnable unit kind. It is opaque to the wave
// subsystem and only ever handed back to the Spawner.
type UnitType string

// UnlockTag is the progression tag a wave requires the player to have.
type UnlockTag int

const (
	UnlockLow UnlockTag = iota
	UnlockMid
	UnlockHigh
)

var unlockNames = [...]string{"Low", "Mid", "High"}

func (t UnlockTag) String() string {
	if t < UnlockLow || t > UnlockHigh {
		return "UnlockTag(" + strconv.Itoa(int(t)) + ")"
	}
	return unlockNames[t]
}

// ParseUnlockTag accepts the tag name ("Low", "Mid", "High") or its ordinal.
func ParseUnlockTag(s string) (UnlockTag, bool) {
	for i, name := range unlockNames {
		if s == name {
			return UnlockTag(i), true
		}
	}
	if n, err := strconv.Atoi(s); err == nil && n >= int(UnlockLow) && n <= int(UnlockHigh) {
		return UnlockTag(n), true
	}
	return UnlockMid, false
}

// MarshalText encodes the tag by name.
func (t UnlockTag) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes a tag name; unknown values are rejected.
func (t *UnlockTag) UnmarshalText(b []byte) error {
	parsed, ok := ParseUnlockTag(string(b))
	if !ok {
		return fmt.Errorf("unknown unlock tag %q", string(b))
	}
	*t = parsed
	return nil
}

// WaveMode selects how wave content is produced.
type WaveMode string

const (
	ModeCampaign WaveMode = "campaign"
	ModeEndless  WaveMode = "endless"
)

// ParseWaveMode returns the mode for s, defaulting to campaign.
func ParseWaveMode(s string) WaveMode {
	if WaveMode(s) == ModeEndless {
		return ModeEndless
	}
	return ModeCampaign
}

// InheritInterval marks a WaveEntry whose units are separated by the
// spawn point's BetweenDelay instead of an explicit interval.
const InheritInterval time.Duration = -1

// WaveEntry is a single spawn instruction inside a wave.
type WaveEntry struct {
	Unit          UnitType
	Count         int
	SpawnPoint    *SpawnPoint
	SpawnPointKey string
	// SpawnInterval separates consecutive units. Negative means inherit.
	SpawnInterval time.Duration
}

// Interval returns the delay between consecutive units of this entry.
func (e WaveEntry) Interval() time.Duration {
	if e.SpawnInterval >= 0 {
		return e.SpawnInterval
	}
	if e.SpawnPoint != nil {
		return e.SpawnPoint.BetweenDelay
	}
	return 0
}

// InitialDelay returns the delay before the first unit of this entry.
func (e WaveEntry) InitialDelay() time.Duration {
	if e.SpawnPoint == nil {
		return 0
	}
	return e.SpawnPoint.InitialDelay
}

// WaveDefinition is an immutable description of one wave.
type WaveDefinition struct {
	Name           string
	RequiredUnlock UnlockTag
	Entries        []WaveEntry
	RewardCoins    int
}

// NewWaveDefinition copies entries so later mutation of the source slice
// cannot reach the definition.
func NewWaveDefinition(name string, tag UnlockTag, reward int, entries []WaveEntry) *WaveDefinition {
	copied := make([]WaveEntry, len(entries))
	copy(copied, entries)
	return &WaveDefinition{
		Name:           name,
		RequiredUnlock: tag,
		Entries:        copied,
		RewardCoins:    reward,
	}
}

// TotalUnits sums the non-negative entry counts.
func (d *WaveDefinition) TotalUnits() int {
	if d == nil {
		return 0
	}
	total := 0
	for _, e := range d.Entries {
		if e.Count > 0 {
			total += e.Count
		}
	}
	return total
}

// PoolEntry is a procedural generation template.
type PoolEntry struct {
	Unit              UnitType
	SpawnPointKey     string
	UseAllSpawnPoints bool
	MinCount          int
	MaxCount          int
	SpawnInterval     time.Duration
	// Weight biases selection; zero or negative counts as 1.
	Weight int
}

// CountRange returns the clamped [min, max] count range.
func (p PoolEntry) CountRange() (int, int) {
	lo := max(1, p.MinCount)
	hi := max(lo, p.MaxCount)
	return lo, hi
}

// SelectionWeight returns the effective weight used by weighted picks.
func (p PoolEntry) SelectionWeight() int {
	if p.Weight <= 0 {
		return 1
	}
	return p.Weight
}

// IntRange is an inclusive [Min, Max] pair as found in content files.
type IntRange struct {
	Min int `json:"min" mapstructure:"min"`
	Max int `json:"max" mapstructure:"max"`
}

// Clamp returns the range with Min >= floor and Max >= Min.
func (r IntRange) Clamp(floor int) IntRange {
	lo := max(floor, r.Min)
	return IntRange{Min: lo, Max: max(lo, r.Max)}
}
