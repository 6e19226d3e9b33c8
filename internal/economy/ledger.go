package economy

import (
	"log/slog"
	"sync"

	"github.com/cluckworks/wavedirector/internal/random"
	"github.com/cluckworks/wavedirector/pkg/core"
)

// BalanceService is the persistent source of truth for the player's coins.
type BalanceService interface {
	Balance() int
	AddCoins(amount int)
	// SubscribeBalance registers fn for balance changes and returns a
	// function that removes the subscription.
	SubscribeBalance(fn func(balance int)) (unsubscribe func())
}

// Ledger tracks the coins earned during the current session. When bound to
// a BalanceService the session total is derived from the service balance;
// otherwise the ledger counts on its own.
type Ledger struct {
	mu          sync.Mutex
	table       RewardTable
	rng         *random.Source
	notify      func(total int)
	logger      *slog.Logger
	service     BalanceService
	unsubscribe func()
	baseline    int
	session     int
	lastReward  int
}

// NewLedger creates an unbound ledger. notify receives every new session
// total and may be nil.
func NewLedger(table RewardTable, rng *random.Source, notify func(total int), logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		table:  table,
		rng:    rng,
		notify: notify,
		logger: logger,
	}
}

// Table returns the reward table in use.
func (l *Ledger) Table() RewardTable {
	return l.table
}

// Reset anchors the baseline to the current balance and zeroes the session.
func (l *Ledger) Reset() {
	l.mu.Lock()
	if l.service != nil {
		l.baseline = max(0, l.service.Balance())
	} else {
		l.baseline = 0
	}
	l.session = 0
	l.mu.Unlock()

	l.raise(0)
}

// Bind attaches the ledger to svc. The baseline is chosen so coins already
// counted this session survive the switch.
func (l *Ledger) Bind(svc BalanceService) {
	if svc == nil {
		return
	}

	l.mu.Lock()
	if l.unsubscribe != nil {
		l.unsubscribe()
		l.unsubscribe = nil
	}
	l.service = svc
	balance := svc.Balance()
	l.baseline = max(0, balance-l.session)
	l.mu.Unlock()

	unsub := svc.SubscribeBalance(l.onBalanceChanged)

	l.mu.Lock()
	l.unsubscribe = unsub
	l.mu.Unlock()

	l.onBalanceChanged(balance)
	l.logger.Debug("Ledger bound to balance service", "balance", balance, "baseline", l.Baseline())
}

// Close drops the balance subscription.
func (l *Ledger) Close() {
	l.mu.Lock()
	unsub := l.unsubscribe
	l.unsubscribe = nil
	l.service = nil
	l.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

func (l *Ledger) onBalanceChanged(balance int) {
	l.mu.Lock()
	l.session = max(0, balance-l.baseline)
	total := l.session
	l.mu.Unlock()

	l.raise(total)
}

// Award grants amount coins. Non-positive amounts are ignored.
func (l *Ledger) Award(amount int) {
	if amount <= 0 {
		return
	}

	l.mu.Lock()
	svc := l.service
	if svc == nil {
		l.session += amount
		total := l.session
		l.mu.Unlock()
		l.raise(total)
		return
	}
	l.mu.Unlock()

	// The service notifies back through onBalanceChanged.
	svc.AddCoins(amount)
}

// GrantCampaignReward records and awards a campaign wave reward.
func (l *Ledger) GrantCampaignReward(amount int) {
	amount = max(0, amount)
	l.mu.Lock()
	l.lastReward = amount
	l.mu.Unlock()

	l.Award(amount)
}

// AwardKill grants the per-kill reward for u and returns it.
func (l *Ledger) AwardKill(u core.UnitType) int {
	coins := l.table.KillReward(u)
	l.Award(coins)
	return coins
}

// ResolveKillReward returns the coins for killing a unit of type u.
func (l *Ledger) ResolveKillReward(u core.UnitType) int {
	return l.table.KillReward(u)
}

// ResolveCampaignReward returns the reward for a hand-authored campaign wave.
func (l *Ledger) ResolveCampaignReward(index int, name string) int {
	return l.table.CampaignReward(index, name)
}

// ResolveProceduralCampaignReward returns the reward for a generated wave.
func (l *Ledger) ResolveProceduralCampaignReward(index int, name string) int {
	return l.table.ProceduralCampaignReward(index, name, l.rng)
}

// SessionCoins returns the coins earned this session.
func (l *Ledger) SessionCoins() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.session
}

// Baseline returns the balance the session is measured against.
func (l *Ledger) Baseline() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.baseline
}

// LastCampaignReward returns the most recent campaign reward granted.
func (l *Ledger) LastCampaignReward() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastReward
}

// Bound reports whether a balance service is attached.
func (l *Ledger) Bound() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.service != nil
}

func (l *Ledger) raise(total int) {
	if l.notify != nil {
		l.notify(total)
	}
}
