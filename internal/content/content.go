// Package content loads wave content files: spawn point bindings, the
// campaign and endless assets and the coin reward table. Any format viper
// understands (JSON, YAML, TOML) is accepted.
package content

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cluckworks/wavedirector/internal/economy"
	"github.com/cluckworks/wavedirector/internal/generator"
	"github.com/cluckworks/wavedirector/internal/spawn"
	"github.com/cluckworks/wavedirector/pkg/core"
	"github.com/spf13/viper"
)

// Content is a decoded content file ready for wiring.
type Content struct {
	Bindings []spawn.Binding
	// Campaign is nil when the file has no campaign section.
	Campaign *generator.CampaignSettings
	// Endless is nil when the file has no endless section.
	Endless *generator.EndlessSettings
	Rewards economy.RewardTable
}

// Load reads the content file at path.
func Load(path string, logger *slog.Logger) (*Content, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read content %s: %w", path, err)
	}
	return decode(v, logger)
}

// Read decodes content from r in the given format ("json", "yaml", ...).
func Read(r io.Reader, format string, logger *slog.Logger) (*Content, error) {
	v := viper.New()
	v.SetConfigType(format)
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("failed to read content: %w", err)
	}
	return decode(v, logger)
}

func decode(v *viper.Viper, logger *slog.Logger) (*Content, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var raw fileData
	if err := v.Unmarshal(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode content: %w", err)
	}

	c := &Content{
		Bindings: make([]spawn.Binding, 0, len(raw.SpawnPoints)),
		Rewards:  raw.Rewards.table(),
	}

	for _, sp := range raw.SpawnPoints {
		c.Bindings = append(c.Bindings, spawn.Binding{Key: sp.Key, Point: sp.point()})
	}

	if raw.Campaign != nil {
		settings := raw.Campaign.settings(logger)
		c.Campaign = &settings
	}
	if raw.Endless != nil {
		settings := raw.Endless.settings()
		c.Endless = &settings
	}

	logger.Debug("Loaded wave content",
		"spawnPoints", len(c.Bindings),
		"campaign", c.Campaign != nil,
		"endless", c.Endless != nil)
	return c, nil
}

type fileData struct {
	SpawnPoints []spawnPointData `mapstructure:"spawnPoints"`
	Campaign    *campaignData    `mapstructure:"campaign"`
	Endless     *endlessData     `mapstructure:"endless"`
	Rewards     *rewardData      `mapstructure:"rewards"`
}

type spawnPointData struct {
	Key          string        `mapstructure:"key"`
	Position     core.Position `mapstructure:"position"`
	InitialDelay float64       `mapstructure:"initialDelay"`
	BetweenDelay *float64      `mapstructure:"betweenDelay"`
	Radius       float64       `mapstructure:"radius"`
}

func (d spawnPointData) point() *core.SpawnPoint {
	between := core.DefaultBetweenDelay
	if d.BetweenDelay != nil {
		between = core.Seconds(max(0, *d.BetweenDelay))
	}
	return &core.SpawnPoint{
		Key:          d.Key,
		Position:     d.Position,
		InitialDelay: core.Seconds(max(0, d.InitialDelay)),
		BetweenDelay: between,
		Radius:       d.Radius,
	}
}

type entryData struct {
	Unit          string   `mapstructure:"unit"`
	Count         *int     `mapstructure:"count"`
	SpawnPointKey string   `mapstructure:"spawnPointKey"`
	UseAll        *bool    `mapstructure:"useAllSpawnPoints"`
	SpawnInterval *float64 `mapstructure:"spawnInterval"`
}

type waveData struct {
	Name               string      `mapstructure:"name"`
	RequiredPlayerWave string      `mapstructure:"requiredPlayerWave"`
	Entries            []entryData `mapstructure:"entries"`
}

type poolEntryData struct {
	Unit          string   `mapstructure:"unit"`
	SpawnPointKey string   `mapstructure:"spawnPointKey"`
	UseAll        *bool    `mapstructure:"useAllSpawnPoints"`
	MinCount      *int     `mapstructure:"minCount"`
	MaxCount      *int     `mapstructure:"maxCount"`
	SpawnInterval *float64 `mapstructure:"spawnInterval"`
	Weight        int      `mapstructure:"weight"`
}

type campaignData struct {
	Waves                   []waveData      `mapstructure:"waves"`
	UseProceduralGeneration bool            `mapstructure:"useProceduralGeneration"`
	ProceduralWaveCount     int             `mapstructure:"proceduralWaveCount"`
	ProceduralEntries       []poolEntryData `mapstructure:"proceduralEntries"`
	DefaultSpawnInterval    *float64        `mapstructure:"proceduralDefaultSpawnInterval"`
	GroupsPerWave           *core.IntRange  `mapstructure:"proceduralGroupsPerWaveRange"`
	CacheID                 string          `mapstructure:"cacheId"`
	CacheVersion            *string         `mapstructure:"cacheVersion"`
}

type endlessData struct {
	Entries              []poolEntryData `mapstructure:"entries"`
	DefaultSpawnInterval *float64        `mapstructure:"defaultSpawnInterval"`
	GroupsPerWave        *core.IntRange  `mapstructure:"groupsPerWaveRange"`
	MaxGeneratedWaves    int             `mapstructure:"maxGeneratedWaves"`
}

type killRewardData struct {
	Unit         string `mapstructure:"unit"`
	CoinsPerKill *int   `mapstructure:"coinsPerKill"`
}

type campaignRewardData struct {
	WaveName  string `mapstructure:"waveName"`
	WaveIndex *int   `mapstructure:"waveIndex"`
	Coins     *int   `mapstructure:"coins"`
}

type rewardData struct {
	DefaultCampaignWaveCoins   *int                 `mapstructure:"defaultCampaignWaveCoins"`
	ProceduralRewardRange      *core.IntRange       `mapstructure:"proceduralRewardRange"`
	DefaultEndlessCoinsPerKill *int                 `mapstructure:"defaultEndlessCoinsPerKill"`
	EnemyRewards               []killRewardData     `mapstructure:"enemyRewards"`
	CampaignRewards            []campaignRewardData `mapstructure:"campaignRewards"`
}

// useAll resolves the optional broadcast flag. Content written before the
// flag existed broadcasts exactly when no key is given.
func useAll(flag *bool, key string) bool {
	if flag != nil {
		return *flag
	}
	return key == ""
}

// interval converts optional seconds; absent or negative means inherit.
func interval(s *float64) time.Duration {
	if s == nil || *s < 0 {
		return core.InheritInterval
	}
	return core.Seconds(*s)
}

func orInt(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func (d poolEntryData) entry() core.PoolEntry {
	return core.PoolEntry{
		Unit:              core.UnitType(d.Unit),
		SpawnPointKey:     d.SpawnPointKey,
		UseAllSpawnPoints: useAll(d.UseAll, d.SpawnPointKey),
		MinCount:          orInt(d.MinCount, 1),
		MaxCount:          orInt(d.MaxCount, 3),
		SpawnInterval:     interval(d.SpawnInterval),
		Weight:            d.Weight,
	}
}

// pool keeps entries without a unit so cached pool indices stay aligned
// with the file; the generator skips them.
func pool(src []poolEntryData) []core.PoolEntry {
	out := make([]core.PoolEntry, 0, len(src))
	for _, d := range src {
		e := d.entry()
		lo, hi := e.CountRange()
		e.MinCount, e.MaxCount = lo, hi
		out = append(out, e)
	}
	return out
}

func groups(r *core.IntRange) core.IntRange {
	if r == nil {
		return core.IntRange{Min: 1, Max: 3}
	}
	return r.Clamp(1)
}

func (d campaignData) settings(logger *slog.Logger) generator.CampaignSettings {
	version := "1"
	if d.CacheVersion != nil {
		version = *d.CacheVersion
	}
	cacheID := d.CacheID
	if cacheID == "" {
		cacheID = "campaign-default"
	}

	waves := make([]generator.WaveData, 0, len(d.Waves))
	for i, w := range d.Waves {
		tag := core.UnlockMid
		if w.RequiredPlayerWave != "" {
			parsed, ok := core.ParseUnlockTag(w.RequiredPlayerWave)
			if !ok {
				logger.Warn("Unknown unlock tag, using Mid", "wave", i, "value", w.RequiredPlayerWave)
			}
			tag = parsed
		}

		entries := make([]generator.EntryData, 0, len(w.Entries))
		for _, e := range w.Entries {
			entries = append(entries, generator.EntryData{
				Unit:              core.UnitType(e.Unit),
				Count:             max(0, orInt(e.Count, 1)),
				SpawnPointKey:     e.SpawnPointKey,
				UseAllSpawnPoints: useAll(e.UseAll, e.SpawnPointKey),
				SpawnInterval:     interval(e.SpawnInterval),
			})
		}
		waves = append(waves, generator.WaveData{Name: w.Name, RequiredUnlock: tag, Entries: entries})
	}

	return generator.CampaignSettings{
		Waves:                   waves,
		UseProceduralGeneration: d.UseProceduralGeneration,
		ProceduralWaveCount:     max(0, d.ProceduralWaveCount),
		Pool:                    pool(d.ProceduralEntries),
		DefaultSpawnInterval:    interval(d.DefaultSpawnInterval),
		GroupsPerWave:           groups(d.GroupsPerWave),
		CacheID:                 cacheID,
		CacheVersion:            version,
	}
}

func (d endlessData) settings() generator.EndlessSettings {
	return generator.EndlessSettings{
		Pool:                 pool(d.Entries),
		DefaultSpawnInterval: interval(d.DefaultSpawnInterval),
		GroupsPerWave:        groups(d.GroupsPerWave),
		MaxGeneratedWaves:    max(0, d.MaxGeneratedWaves),
	}
}

func (d *rewardData) table() economy.RewardTable {
	t := economy.DefaultRewardTable()
	if d == nil {
		return t
	}

	t.DefaultCampaignWaveCoins = orInt(d.DefaultCampaignWaveCoins, t.DefaultCampaignWaveCoins)
	t.DefaultEndlessCoinsPerKill = orInt(d.DefaultEndlessCoinsPerKill, t.DefaultEndlessCoinsPerKill)
	if d.ProceduralRewardRange != nil {
		t.ProceduralRewardRange = *d.ProceduralRewardRange
	}

	for _, r := range d.EnemyRewards {
		if r.Unit == "" {
			continue
		}
		t.KillRewards = append(t.KillRewards, economy.KillReward{
			Unit:         core.UnitType(r.Unit),
			CoinsPerKill: orInt(r.CoinsPerKill, 1),
		})
	}
	for _, r := range d.CampaignRewards {
		t.CampaignRewards = append(t.CampaignRewards, economy.CampaignReward{
			WaveName:  r.WaveName,
			WaveIndex: orInt(r.WaveIndex, economy.AnyWave),
			Coins:     orInt(r.Coins, 25),
		})
	}
	return t
}
