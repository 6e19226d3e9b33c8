package economy

import (
	"github.com/cluckworks/wavedirector/internal/random"
	"github.com/cluckworks/wavedirector/pkg/core"
)

// KillReward overrides the per-kill coins for one unit type.
type KillReward struct {
	Unit         core.UnitType `json:"unit" mapstructure:"unit"`
	CoinsPerKill int           `json:"coinsPerKill" mapstructure:"coinsPerKill"`
}

// AnyWave disables index matching on a CampaignReward.
const AnyWave = -1

// CampaignReward overrides the reward of campaign waves matched by index,
// by name, or both. An entry with neither matches every wave.
type CampaignReward struct {
	WaveName  string `json:"waveName" mapstructure:"waveName"`
	WaveIndex int    `json:"waveIndex" mapstructure:"waveIndex"`
	Coins     int    `json:"coins" mapstructure:"coins"`
}

// RewardTable holds every coin amount the wave subsystem can grant.
type RewardTable struct {
	DefaultCampaignWaveCoins   int              `json:"defaultCampaignWaveCoins" mapstructure:"defaultCampaignWaveCoins"`
	ProceduralRewardRange      core.IntRange    `json:"proceduralRewardRange" mapstructure:"proceduralRewardRange"`
	DefaultEndlessCoinsPerKill int              `json:"defaultEndlessCoinsPerKill" mapstructure:"defaultEndlessCoinsPerKill"`
	KillRewards                []KillReward     `json:"enemyRewards" mapstructure:"enemyRewards"`
	CampaignRewards            []CampaignReward `json:"campaignRewards" mapstructure:"campaignRewards"`
}

// DefaultRewardTable returns the stock reward configuration.
func DefaultRewardTable() RewardTable {
	return RewardTable{
		DefaultCampaignWaveCoins:   25,
		ProceduralRewardRange:      core.IntRange{Min: 15, Max: 30},
		DefaultEndlessCoinsPerKill: 1,
	}
}

// KillReward returns the coins for killing a unit of type u.
func (t RewardTable) KillReward(u core.UnitType) int {
	for _, r := range t.KillRewards {
		if r.Unit != "" && r.Unit == u {
			return max(0, r.CoinsPerKill)
		}
	}
	return max(0, t.DefaultEndlessCoinsPerKill)
}

// CampaignOverride finds the best matching override. Index matches score
// 2, name matches 1; on equal scores the later entry wins.
func (t RewardTable) CampaignOverride(index int, name string) (int, bool) {
	best := -1
	reward := 0
	for _, r := range t.CampaignRewards {
		hasIndex := r.WaveIndex >= 0
		hasName := r.WaveName != ""

		if hasIndex && r.WaveIndex != index {
			continue
		}
		if hasName && r.WaveName != name {
			continue
		}

		score := 0
		if hasIndex {
			score += 2
		}
		if hasName {
			score++
		}

		if score >= best {
			best = score
			reward = max(0, r.Coins)
		}
	}
	return reward, best >= 0
}

// DefaultCampaignReward returns the clamped global campaign default.
func (t RewardTable) DefaultCampaignReward() int {
	return max(0, t.DefaultCampaignWaveCoins)
}

// CampaignReward resolves a hand-authored wave's reward: override, else default.
func (t RewardTable) CampaignReward(index int, name string) int {
	if r, ok := t.CampaignOverride(index, name); ok {
		return r
	}
	return t.DefaultCampaignReward()
}

// ProceduralCampaignReward resolves a generated wave's reward: override,
// else a uniform draw from the procedural range, else default.
func (t RewardTable) ProceduralCampaignReward(index int, name string, rng *random.Source) int {
	if r, ok := t.CampaignOverride(index, name); ok {
		return r
	}
	rr := t.ProceduralRewardRange.Clamp(0)
	if rr.Max > 0 && rng != nil {
		return rng.Range(rr.Min, rr.Max)
	}
	return t.DefaultCampaignReward()
}
