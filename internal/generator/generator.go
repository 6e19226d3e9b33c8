// Package generator builds wave definitions: hand-authored campaigns,
// procedurally generated campaigns backed by the wave cache, and endless
// waves regenerated on every request.
package generator

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cluckworks/wavedirector/internal/random"
	"github.com/cluckworks/wavedirector/internal/spawn"
	"github.com/cluckworks/wavedirector/internal/storage"
	"github.com/cluckworks/wavedirector/pkg/core"
)

// ErrCacheMismatch is returned by Rebuild when a cache cannot be replayed
// against the current pool and spawn topology.
var ErrCacheMismatch = errors.New("wave cache does not match current content")

// RewardResolver supplies campaign wave rewards. *economy.Ledger
// implements it.
type RewardResolver interface {
	ResolveCampaignReward(index int, name string) int
	ResolveProceduralCampaignReward(index int, name string) int
}

// EntryData is one authored spawn instruction before target resolution.
type EntryData struct {
	Unit              core.UnitType
	Count             int
	SpawnPointKey     string
	UseAllSpawnPoints bool
	SpawnInterval     time.Duration
}

// WaveData is an authored wave. In procedural campaigns only Name and
// RequiredUnlock are used, as per-index metadata.
type WaveData struct {
	Name           string
	RequiredUnlock core.UnlockTag
	Entries        []EntryData
}

// EndlessSettings configures endless generation.
type EndlessSettings struct {
	Pool                 []core.PoolEntry
	DefaultSpawnInterval time.Duration
	GroupsPerWave        core.IntRange
	// MaxGeneratedWaves caps the wave index; 0 means unbounded.
	MaxGeneratedWaves int
}

// CampaignSettings configures a campaign, authored or procedural.
type CampaignSettings struct {
	Waves                   []WaveData
	UseProceduralGeneration bool
	ProceduralWaveCount     int
	Pool                    []core.PoolEntry
	DefaultSpawnInterval    time.Duration
	GroupsPerWave           core.IntRange
	CacheID                 string
	CacheVersion            string
}

// TargetWaveCount returns how many waves a procedural campaign produces.
func (s CampaignSettings) TargetWaveCount() int {
	if len(s.Waves) > 0 {
		return len(s.Waves)
	}
	return max(0, s.ProceduralWaveCount)
}

func (s CampaignSettings) meta(i int) (WaveData, bool) {
	if i >= 0 && i < len(s.Waves) {
		return s.Waves[i], true
	}
	return WaveData{}, false
}

// Dependencies holds all dependencies for the generator
type Dependencies struct {
	Registry *spawn.Registry
	Rewards  RewardResolver
	RNG      *random.Source
	Store    *storage.Store
	Logger   *slog.Logger
}

// Generator produces wave definitions.
type Generator struct {
	registry *spawn.Registry
	rewards  RewardResolver
	rng      *random.Source
	store    *storage.Store
	logger   *slog.Logger
}

// New creates a generator. A nil registry behaves as an empty one.
func New(deps Dependencies) *Generator {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.RNG == nil {
		deps.RNG = random.New(0)
	}
	if deps.Registry == nil {
		deps.Registry = spawn.NewRegistry(nil, deps.RNG, deps.Logger)
	}
	return &Generator{
		registry: deps.Registry,
		rewards:  deps.Rewards,
		rng:      deps.RNG,
		store:    deps.Store,
		logger:   deps.Logger,
	}
}

// Endless generates wave index from the pool. Each call draws fresh
// randomness. Returns nil when nothing could be placed.
func (g *Generator) Endless(index int, s EndlessSettings) *core.WaveDefinition {
	if len(s.Pool) == 0 {
		g.logger.Warn("Endless mode has no spawn entries configured")
		return nil
	}

	groups := s.GroupsPerWave.Clamp(1)
	groupCount := g.rng.Range(groups.Min, groups.Max)

	var entries []core.WaveEntry
	for i := 0; i < groupCount; i++ {
		_, source := g.pick(s.Pool)
		if source.Unit == "" {
			continue
		}

		targets := g.registry.BuildTargets(source.SpawnPointKey, source.UseAllSpawnPoints)
		if len(targets) == 0 {
			g.warnNoTargets(source, index)
			continue
		}

		lo, hi := source.CountRange()
		interval := entryInterval(source.SpawnInterval, s.DefaultSpawnInterval)
		for _, t := range targets {
			entries = append(entries, core.WaveEntry{
				Unit:          source.Unit,
				Count:         g.rng.Range(lo, hi),
				SpawnPoint:    t.Point,
				SpawnPointKey: t.Key,
				SpawnInterval: interval,
			})
		}
	}

	if len(entries) == 0 {
		return nil
	}
	return core.NewWaveDefinition(fmt.Sprintf("Endless Wave #%d", index+1), core.UnlockMid, 0, entries)
}

// BuildAuthored resolves hand-authored waves. Entries without a unit type
// or without any resolvable target are skipped; the wave itself is kept.
func (g *Generator) BuildAuthored(waves []WaveData) []*core.WaveDefinition {
	out := make([]*core.WaveDefinition, 0, len(waves))

	for index, data := range waves {
		var entries []core.WaveEntry
		for _, e := range data.Entries {
			if e.Unit == "" {
				continue
			}

			targets := g.registry.BuildTargets(e.SpawnPointKey, e.UseAllSpawnPoints)
			if len(targets) == 0 {
				if e.UseAllSpawnPoints {
					g.logger.Warn("Wave requested spawn on all points, but no spawn points are registered", "wave", data.Name)
				} else if e.SpawnPointKey != "" {
					g.logger.Warn("No spawn point found for key, entry skipped", "wave", data.Name, "key", e.SpawnPointKey)
				}
				continue
			}

			for _, t := range targets {
				entries = append(entries, core.WaveEntry{
					Unit:          e.Unit,
					Count:         max(0, e.Count),
					SpawnPoint:    t.Point,
					SpawnPointKey: t.Key,
					SpawnInterval: e.SpawnInterval,
				})
			}
		}

		reward := g.campaignReward(index, data.Name)
		out = append(out, core.NewWaveDefinition(data.Name, data.RequiredUnlock, reward, entries))
	}

	return out
}

// Campaign produces the campaign wave list. Authored campaigns are built
// directly. Procedural campaigns replay a valid cache or generate a new
// sequence and persist it.
func (g *Generator) Campaign(s CampaignSettings) []*core.WaveDefinition {
	if !s.UseProceduralGeneration {
		waves := g.BuildAuthored(s.Waves)
		if len(waves) == 0 {
			g.logger.Warn("Campaign has no valid waves")
		}
		return waves
	}

	if len(s.Pool) == 0 {
		g.logger.Warn("Campaign procedural generation requested, but the pool is empty")
		return nil
	}

	target := s.TargetWaveCount()
	if target <= 0 {
		g.logger.Warn("Campaign procedural generation has no waves configured")
		return nil
	}

	cacheID := storage.NormalizeID(s.CacheID)
	if cached := g.store.Load(cacheID); storage.Validate(cached, target, s.CacheVersion) {
		waves, err := g.Rebuild(cached, s)
		if err == nil {
			g.logger.Info("Loaded campaign waves from cache", "cacheId", cacheID, "waves", len(waves))
			return waves
		}
		g.logger.Warn("Campaign wave cache invalid, regenerating", "cacheId", cacheID, "error", err)
	} else if cached != nil {
		g.logger.Info("Campaign wave cache is stale, regenerating",
			"cacheId", cacheID,
			"cachedVersion", cached.CacheVersion,
			"version", s.CacheVersion,
			"cachedCount", cached.WaveCount,
			"count", target)
	}

	waves, file := g.GenerateCampaign(s, target, cacheID)
	g.store.Save(cacheID, file)
	return waves
}

// GenerateCampaign draws count fresh campaign waves and the cache file
// that replays them.
func (g *Generator) GenerateCampaign(s CampaignSettings, count int, cacheID string) ([]*core.WaveDefinition, *core.CampaignWaveCacheFile) {
	groups := s.GroupsPerWave.Clamp(1)
	file := &core.CampaignWaveCacheFile{
		CacheID:      cacheID,
		CacheVersion: s.CacheVersion,
		WaveCount:    count,
		Waves:        make([]core.CampaignWaveRecord, 0, count),
	}
	waves := make([]*core.WaveDefinition, 0, count)

	for i := 0; i < count; i++ {
		name := fmt.Sprintf("Campaign Wave #%d", i+1)
		tag := core.UnlockMid
		metaName := ""
		if meta, ok := s.meta(i); ok {
			metaName, tag = meta.Name, meta.RequiredUnlock
			if meta.Name != "" {
				name = meta.Name
			}
		}
		reward := g.proceduralReward(i, metaName)

		record := core.CampaignWaveRecord{
			Name:               name,
			RequiredPlayerWave: tag.String(),
			RewardCoins:        reward,
			Entries:            []core.CampaignWaveEntryRecord{},
		}
		var entries []core.WaveEntry

		groupCount := g.rng.Range(groups.Min, groups.Max)
		for grp := 0; grp < groupCount; grp++ {
			poolIndex, source := g.pick(s.Pool)
			if source.Unit == "" {
				continue
			}

			targets := g.registry.BuildTargets(source.SpawnPointKey, source.UseAllSpawnPoints)
			if len(targets) == 0 {
				g.warnNoTargets(source, i)
				continue
			}

			lo, hi := source.CountRange()
			interval := entryInterval(source.SpawnInterval, s.DefaultSpawnInterval)
			for _, t := range targets {
				n := g.rng.Range(lo, hi)

				entries = append(entries, core.WaveEntry{
					Unit:          source.Unit,
					Count:         n,
					SpawnPoint:    t.Point,
					SpawnPointKey: t.Key,
					SpawnInterval: interval,
				})
				// fallback-only points carry an empty key and replay by index
				record.Entries = append(record.Entries, core.CampaignWaveEntryRecord{
					PrefabIndex:   poolIndex,
					Count:         n,
					SpawnPointKey: t.Key,
					FallbackIndex: t.FallbackIndex,
					SpawnInterval: core.ToSeconds(interval),
				})
			}
		}

		waves = append(waves, core.NewWaveDefinition(name, tag, reward, entries))
		file.Waves = append(file.Waves, record)
	}

	g.logger.Info("Generated campaign waves", "cacheId", cacheID, "waves", count)
	return waves, file
}

// Rebuild replays cache against the settings' pool. Any record that cannot
// be resolved fails the whole rebuild.
func (g *Generator) Rebuild(cache *core.CampaignWaveCacheFile, s CampaignSettings) ([]*core.WaveDefinition, error) {
	if cache == nil {
		return nil, fmt.Errorf("%w: no cache", ErrCacheMismatch)
	}
	if len(cache.Waves) != cache.WaveCount {
		return nil, fmt.Errorf("%w: header says %d waves, found %d", ErrCacheMismatch, cache.WaveCount, len(cache.Waves))
	}

	waves := make([]*core.WaveDefinition, 0, len(cache.Waves))
	for i, record := range cache.Waves {
		name := record.Name
		if name == "" {
			name = fmt.Sprintf("Campaign Wave #%d", i+1)
		}

		tag, ok := core.ParseUnlockTag(record.RequiredPlayerWave)
		if !ok {
			tag = core.UnlockMid
			if meta, found := s.meta(i); found {
				tag = meta.RequiredUnlock
			}
		}

		reward := max(0, record.RewardCoins)

		entries := make([]core.WaveEntry, 0, len(record.Entries))
		for _, e := range record.Entries {
			if e.PrefabIndex < 0 || e.PrefabIndex >= len(s.Pool) {
				return nil, fmt.Errorf("%w: wave %d references pool index %d of %d", ErrCacheMismatch, i, e.PrefabIndex, len(s.Pool))
			}
			source := s.Pool[e.PrefabIndex]
			if source.Unit == "" {
				return nil, fmt.Errorf("%w: wave %d pool index %d has no unit", ErrCacheMismatch, i, e.PrefabIndex)
			}

			point := g.registry.ResolveFromCache(e.SpawnPointKey, e.FallbackIndex)
			if point == nil {
				return nil, fmt.Errorf("%w: wave %d spawn point %q unresolved", ErrCacheMismatch, i, e.SpawnPointKey)
			}

			entries = append(entries, core.WaveEntry{
				Unit:          source.Unit,
				Count:         max(0, e.Count),
				SpawnPoint:    point,
				SpawnPointKey: e.SpawnPointKey,
				SpawnInterval: e.Interval(),
			})
		}

		waves = append(waves, core.NewWaveDefinition(name, tag, reward, entries))
	}

	return waves, nil
}

func (g *Generator) pick(pool []core.PoolEntry) (int, core.PoolEntry) {
	weights := make([]int, len(pool))
	for i, p := range pool {
		weights[i] = p.SelectionWeight()
	}
	i := g.rng.PickWeighted(weights)
	if i < 0 {
		return -1, core.PoolEntry{}
	}
	return i, pool[i]
}

func (g *Generator) campaignReward(index int, name string) int {
	if g.rewards == nil {
		return 0
	}
	return max(0, g.rewards.ResolveCampaignReward(index, name))
}

func (g *Generator) proceduralReward(index int, name string) int {
	if g.rewards == nil {
		return 0
	}
	return max(0, g.rewards.ResolveProceduralCampaignReward(index, name))
}

func (g *Generator) warnNoTargets(source core.PoolEntry, index int) {
	if source.UseAllSpawnPoints {
		g.logger.Warn("Unable to spawn entry because no spawn points are registered", "unit", source.Unit, "wave", index)
		return
	}
	g.logger.Warn("Unable to resolve spawn point for entry", "unit", source.Unit, "key", source.SpawnPointKey, "wave", index)
}

func entryInterval(own, fallback time.Duration) time.Duration {
	if own >= 0 {
		return own
	}
	if fallback >= 0 {
		return fallback
	}
	return core.InheritInterval
}
