package api

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// RemoteBalance keeps a local copy of a profile balance held by the progress
// server. It implements economy.BalanceService.
type RemoteBalance struct {
	client    *Client
	profileID string
	timeout   time.Duration
	logger    *slog.Logger

	mu      sync.Mutex
	balance int
	subs    map[int]func(int)
	nextSub int
}

// NewRemoteBalance checks the server and loads the current balance.
func NewRemoteBalance(ctx context.Context, client *Client, profileID string, logger *slog.Logger) (*RemoteBalance, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := client.Healthcheck(ctx); err != nil {
		return nil, err
	}
	balance, err := client.Balance(ctx, profileID)
	if err != nil {
		return nil, err
	}
	return &RemoteBalance{
		client:    client,
		profileID: profileID,
		timeout:   client.httpClient.Timeout,
		logger:    logger,
		balance:   balance,
		subs:      make(map[int]func(int)),
	}, nil
}

func (r *RemoteBalance) Balance() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.balance
}

// AddCoins posts the award. On failure the local balance is left alone.
func (r *RemoteBalance) AddCoins(amount int) {
	if amount <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	balance, err := r.client.AddCoins(ctx, r.profileID, amount)
	if err != nil {
		r.logger.Warn("Failed to add coins on progress server", "profile", r.profileID, "amount", amount, "error", err)
		return
	}
	r.set(balance)
}

// Refresh reloads the balance, notifying subscribers when it changed.
func (r *RemoteBalance) Refresh(ctx context.Context) error {
	balance, err := r.client.Balance(ctx, r.profileID)
	if err != nil {
		return err
	}
	r.set(balance)
	return nil
}

func (r *RemoteBalance) SubscribeBalance(fn func(balance int)) func() {
	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, id)
			r.mu.Unlock()
		})
	}
}

func (r *RemoteBalance) set(balance int) {
	r.mu.Lock()
	if balance == r.balance {
		r.mu.Unlock()
		return
	}
	r.balance = balance
	subs := make([]func(int), 0, len(r.subs))
	for _, fn := range r.subs {
		subs = append(subs, fn)
	}
	r.mu.Unlock()

	for _, fn := range subs {
		fn(balance)
	}
}
