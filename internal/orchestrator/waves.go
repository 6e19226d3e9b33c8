package orchestrator

import (
	"github.com/cluckworks/wavedirector/internal/scheduler"
	"github.com/cluckworks/wavedirector/pkg/core"
)

func (o *Orchestrator) startWave(index int) bool {
	if o.closed {
		return false
	}
	if !o.CanStartWave(index) {
		o.logger.Warn("Invalid wave index", "index", index, "mode", o.settings.Mode)
		return false
	}

	wave := o.buildWave(index)
	if wave == nil {
		o.logger.Warn("Wave definition is empty, not starting", "index", index)
		return false
	}

	o.sched.Cancel(scheduler.Spawn)
	o.sched.Cancel(scheduler.Cooldown)
	o.sched.Cancel(scheduler.Heal)

	o.current = index
	o.currentWave = wave
	if o.settings.Mode == core.ModeCampaign {
		o.restoreHealth()
	}

	total := spawnableUnits(wave)
	o.epoch = o.tracker.Begin(total)
	o.setState(WaveActive)

	o.logger.Info("Wave started", "index", index, "name", wave.Name, "units", total)
	o.publish(core.EventWaveStarted, core.WaveStarted{Index: index, Wave: wave, Name: wave.Name, Units: total})

	if total == 0 {
		o.completeWave()
		return true
	}

	o.sched.Start(scheduler.Spawn, o.spawnSequence(wave))
	return true
}

func (o *Orchestrator) buildWave(index int) *core.WaveDefinition {
	if o.settings.Mode == core.ModeCampaign {
		return o.waves[index]
	}
	return o.deps.Generator.Endless(index, *o.endless)
}

func spawnable(e core.WaveEntry) bool {
	return e.Unit != "" && e.Count > 0 && e.SpawnPoint != nil
}

func spawnableUnits(wave *core.WaveDefinition) int {
	total := 0
	for _, e := range wave.Entries {
		if spawnable(e) {
			total += e.Count
		}
	}
	return total
}

// spawnSequence spawns entries in order. Each entry waits its spawn point's
// initial delay once, then spawns its units separated by the entry interval.
func (o *Orchestrator) spawnSequence(wave *core.WaveDefinition) *scheduler.Sequence {
	seq := scheduler.NewSequence()
	for _, e := range wave.Entries {
		if !spawnable(e) {
			continue
		}
		for i := range e.Count {
			wait := e.Interval()
			if i == 0 {
				wait = e.InitialDelay()
			}
			seq.Then(wait, func() { o.spawnOne(e) })
		}
	}
	return seq
}

func (o *Orchestrator) spawnOne(e core.WaveEntry) {
	u, err := o.deps.Spawner.Spawn(e.Unit, e.SpawnPoint)
	if err != nil || u == nil {
		o.logger.Warn("Spawn failed, unit forfeited", "unit", e.Unit, "spawnPoint", e.SpawnPointKey, "error", err)
		o.tracker.Forfeit()
		return
	}
	o.tracker.Track(u)
}

func (o *Orchestrator) handleKill(u core.Unit, epoch uint64) {
	reward := 0
	if o.settings.Mode == core.ModeEndless && o.deps.Economy != nil {
		reward = o.deps.Economy.AwardKill(u.UnitType())
	}
	wave := o.current
	if epoch != o.epoch {
		wave = -1
	}
	o.publish(core.EventUnitKilled, core.UnitKilled{
		WaveIndex: wave,
		UnitID:    u.UnitID(),
		UnitType:  u.UnitType(),
		Alive:     o.tracker.Alive(),
		Reward:    reward,
	})
}

func (o *Orchestrator) handleCompleted(epoch uint64) {
	if epoch != o.epoch || o.state != WaveActive {
		o.logger.Debug("Ignoring stale wave completion", "epoch", epoch)
		return
	}
	o.completeWave()
}

func (o *Orchestrator) completeWave() {
	wave := o.currentWave
	index := o.current

	o.logger.Info("Wave completed", "index", index, "name", wave.Name)
	o.publish(core.EventWaveCompleted, core.WaveCompleted{Index: index, Wave: wave, Name: wave.Name, Reward: wave.RewardCoins})

	if o.settings.Mode == core.ModeCampaign {
		o.campaignVictory(index, wave)
		return
	}
	o.beginCooldown(index)
}

func (o *Orchestrator) campaignVictory(index int, wave *core.WaveDefinition) {
	if o.deps.Progress != nil {
		o.deps.Progress.SaveCampaignProgress(index)
	}

	o.pending = -1
	if next := index + 1; o.CanStartWave(next) {
		o.pending = next
	}

	if o.deps.Economy != nil {
		o.deps.Economy.GrantCampaignReward(wave.RewardCoins)
	}

	o.setState(CampaignVictoryPending)
	o.sched.Start(scheduler.TimeScale, &scheduler.Ramp{
		From:     o.sched.TimeScale(),
		To:       0,
		Duration: o.settings.VictorySlowDuration,
		Apply:    o.sched.SetTimeScale,
		Done:     func() { o.showVictory(index) },
	})
}

func (o *Orchestrator) showVictory(index int) {
	o.setState(CampaignVictoryShown)
	o.publish(core.EventVictoryShown, core.VictoryShown{Index: index, Pending: o.pending})
	if o.deps.Victory != nil {
		o.deps.Victory.ShowVictoryMenu()
	} else {
		o.logger.Warn("No victory UI attached")
	}
}

func (o *Orchestrator) continueAfterVictory() {
	if o.settings.Mode != core.ModeCampaign {
		o.logger.Warn("Continue after victory ignored outside campaign mode")
		return
	}

	next := o.pending
	if next < 0 || !o.CanStartWave(next) {
		next = -1
		if fallback := o.current + 1; o.CanStartWave(fallback) {
			next = fallback
		}
	}
	o.pending = -1

	o.sched.Start(scheduler.TimeScale, &scheduler.Ramp{
		From:     o.sched.TimeScale(),
		To:       1,
		Duration: o.settings.VictoryResumeDuration,
		Apply:    o.sched.SetTimeScale,
		Done: func() {
			if next >= 0 && o.startWave(next) {
				return
			}
			o.logger.Info("Campaign has no further wave", "current", o.current)
			o.setState(Idle)
		},
	})
}

func (o *Orchestrator) beginCooldown(index int) {
	next := index + 1
	if !o.CanStartWave(next) {
		o.logger.Info("Endless run finished", "last", index)
		o.setState(Idle)
		return
	}

	o.setState(WaveCooldown)
	o.publish(core.EventWaveCooldownStarted, core.WaveCooldownStarted{
		Current:  index,
		Next:     next,
		Duration: o.settings.InterWaveCooldown,
	})

	o.startCooldownHeal()
	o.sched.Start(scheduler.Cooldown, scheduler.Delay(o.settings.InterWaveCooldown, true, func() {
		o.startWave(next)
	}))
}
