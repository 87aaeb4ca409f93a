package game

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"

	"github.com/platinumchess/backend/internal/accounts"
	"github.com/platinumchess/backend/internal/models"
)

// ErrInsufficientFunds is returned by Debit when the account balance does
// not cover the requested amount.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Escrow moves stake money between account balances and the pot. Every
// transfer on a given account runs under that account's own lock, so a
// debit can never interleave with a payout for the same profile.
type Escrow struct {
	store accounts.Store

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewEscrow(store accounts.Store) *Escrow {
	return &Escrow{
		store: store,
		locks: make(map[string]*sync.Mutex),
	}
}

func (e *Escrow) accountLock(accountID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	l, exists := e.locks[accountID]
	if !exists {
		l = &sync.Mutex{}
		e.locks[accountID] = l
	}
	return l
}

// Debit withdraws amount from the account into escrow. The balance is
// checked and written under the account lock; the ledger row is best-effort.
func (e *Escrow) Debit(ctx context.Context, accountID string, amount float64, roomID string) error {
	amount = round2(amount)
	if amount <= 0 {
		return fmt.Errorf("invalid debit amount %.2f", amount)
	}

	l := e.accountLock(accountID)
	l.Lock()
	defer l.Unlock()

	balance, err := e.store.GetBalanceUSD(ctx, accountID)
	if err != nil {
		return fmt.Errorf("fetch balance: %w", err)
	}
	if balance < amount {
		return ErrInsufficientFunds
	}

	next := round2(balance - amount)
	if next < 0 {
		next = 0
	}
	if err := e.store.SetBalanceUSD(ctx, accountID, next); err != nil {
		return fmt.Errorf("update balance: %w", err)
	}

	if err := e.store.InsertTransaction(ctx, models.TxStakeDebit, accountID, amount, roomID); err != nil {
		log.Printf("[ESCROW] Failed to record stake debit for %s: %v", accountID, err)
	}
	return nil
}

// Refund returns a player's own stake to their balance.
func (e *Escrow) Refund(ctx context.Context, accountID string, amount float64, roomID string) error {
	return e.credit(ctx, accountID, amount, roomID, models.TxStakeRefund)
}

// Payout credits the whole pot to the winner's balance.
func (e *Escrow) Payout(ctx context.Context, accountID string, amount float64, roomID string) error {
	return e.credit(ctx, accountID, amount, roomID, models.TxStakePayout)
}

func (e *Escrow) credit(ctx context.Context, accountID string, amount float64, roomID, txType string) error {
	amount = round2(amount)
	if amount <= 0 {
		return fmt.Errorf("invalid credit amount %.2f", amount)
	}

	l := e.accountLock(accountID)
	l.Lock()
	defer l.Unlock()

	balance, err := e.store.GetBalanceUSD(ctx, accountID)
	if err != nil {
		return fmt.Errorf("fetch balance: %w", err)
	}
	if err := e.store.SetBalanceUSD(ctx, accountID, round2(balance+amount)); err != nil {
		return fmt.Errorf("update balance: %w", err)
	}

	if err := e.store.InsertTransaction(ctx, txType, accountID, amount, roomID); err != nil {
		log.Printf("[ESCROW] Failed to record %s for %s: %v", txType, accountID, err)
	}
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
