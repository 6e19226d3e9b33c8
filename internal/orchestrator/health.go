package orchestrator

import "github.com/cluckworks/wavedirector/internal/scheduler"

// restoreHealth brings the player to full health, reviving if needed.
func (o *Orchestrator) restoreHealth() {
	h := o.deps.Health
	if h == nil {
		return
	}
	if !h.IsAlive() {
		h.Refill()
		return
	}
	if missing := h.MaxHealth() - h.CurrentHealth(); missing > 0 {
		h.Heal(missing)
	}
}

// startCooldownHeal spreads the cooldown heal linearly over the cooldown on
// simulation time.
func (o *Orchestrator) startCooldownHeal() {
	amount := o.settings.CooldownHealAmount
	if o.deps.Health == nil || amount <= 0 {
		return
	}

	cooldown := o.settings.InterWaveCooldown
	if cooldown <= 0 {
		o.heal(amount)
		return
	}

	healed := 0.0
	o.sched.Start(scheduler.Heal, &scheduler.Ramp{
		From:     0,
		To:       amount,
		Duration: cooldown,
		Scaled:   true,
		Apply: func(v float64) {
			if d := v - healed; d > 0 {
				o.heal(d)
				healed = v
			}
		},
	})
}

// heal never pushes health above the maximum.
func (o *Orchestrator) heal(amount float64) {
	h := o.deps.Health
	if !h.IsAlive() {
		return
	}
	room := h.MaxHealth() - h.CurrentHealth()
	if room <= 0 {
		return
	}
	h.Heal(min(amount, room))
}
