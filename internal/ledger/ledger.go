// Package ledger owns every mutation of an account's credits.
//
// All balance-affecting operations are expressed as adjustments
// (kind, signed amount, reason) applied inside a single database
// transaction guarded by the account's optimistic-lock version. Each
// adjustment appends exactly one credit entry, so the reconciliation
// invariant credits == SUM(entries.amount) holds at every committed state.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"stake-ledger/internal/model"
	"stake-ledger/pkg/errno"
	"stake-ledger/pkg/monitor"
)

// maxRetries bounds optimistic-lock retries before the operation is
// escalated as a consistency error.
const maxRetries = 3

var errVersionConflict = errors.New("account version conflict")

// Adjustment is one balance-affecting change. Amount is signed: debits are
// negative, accruals positive.
type Adjustment struct {
	Kind   model.EntryKind
	Amount decimal.Decimal
	Reason string
}

// Tx is the per-attempt view handed to an Update callback. Adjustments are
// staged and only applied if the whole attempt commits.
type Tx struct {
	db          *gorm.DB
	account     *model.Account
	adjustments []Adjustment
}

// Account returns the account as loaded in this attempt. Callers must not
// mutate Credits directly; stage an Adjustment instead.
func (t *Tx) Account() *model.Account { return t.account }

// DB exposes the underlying transaction so callers can update rows owned by
// the same account (stakes, withdrawal requests) atomically with the
// balance change.
func (t *Tx) DB() *gorm.DB { return t.db }

// Adjust stages one adjustment.
func (t *Tx) Adjust(kind model.EntryKind, amount decimal.Decimal, reason string) {
	t.adjustments = append(t.adjustments, Adjustment{Kind: kind, Amount: amount, Reason: reason})
}

// Staged returns the credits balance after all currently staged adjustments.
func (t *Tx) Staged() decimal.Decimal {
	credits := t.account.Credits
	for _, adj := range t.adjustments {
		credits = credits.Add(adj.Amount)
	}
	return credits
}

// Store is the Account Ledger.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Update loads the account, runs fn to stage adjustments (and any updates to
// stake/withdrawal rows via Tx.DB), then commits with a compare-and-swap on
// the account version. A lost race retries the whole callback with a fresh
// load, bounded by maxRetries.
//
// Any staged sequence that would leave credits negative aborts the attempt
// with ErrInsufficientCredits and nothing is persisted.
func (s *Store) Update(ctx context.Context, accountID uint64, fn func(tx *Tx) error) error {
	for attempt := 0; attempt < maxRetries; attempt++ {
		err := s.tryUpdate(ctx, accountID, fn)
		if err == nil {
			return nil
		}
		if errors.Is(err, errVersionConflict) {
			if monitor.Business != nil {
				monitor.Business.LedgerConflictRetries.Inc()
			}
			continue
		}
		return err
	}
	return errno.ErrConflict
}

func (s *Store) tryUpdate(ctx context.Context, accountID uint64, fn func(tx *Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		var account model.Account
		if err := db.First(&account, accountID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errno.ErrAccountNotFound
			}
			return err
		}

		tx := &Tx{db: db, account: &account}
		if err := fn(tx); err != nil {
			return err
		}

		newCredits := account.Credits
		now := time.Now()
		for _, adj := range tx.adjustments {
			newCredits = newCredits.Add(adj.Amount)
			if newCredits.IsNegative() {
				return errno.ErrInsufficientCredits
			}
			entry := model.CreditEntry{
				AccountID: account.ID,
				Kind:      adj.Kind,
				Amount:    adj.Amount,
				Reason:    adj.Reason,
				CreatedAt: now,
			}
			if err := db.Create(&entry).Error; err != nil {
				return err
			}
		}

		// CAS on version. Zero rows affected means another writer won the
		// race since our load; the outer loop retries from a fresh read.
		res := db.Model(&model.Account{}).
			Where("id = ? AND version = ?", account.ID, account.Version).
			Updates(map[string]interface{}{
				"credits":           newCredits,
				"referral_earnings": account.ReferralEarnings,
				"referral_code":     account.ReferralCode,
				"kyc_approved":      account.KYCApproved,
				"is_active":         account.IsActive,
				"version":           account.Version + 1,
				"updated_at":        now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errVersionConflict
		}
		return nil
	})
}

// Adjust applies a single adjustment. Convenience wrapper used by referral
// payout and admin adjustments.
func (s *Store) Adjust(ctx context.Context, accountID uint64, kind model.EntryKind, amount decimal.Decimal, reason string) error {
	return s.Update(ctx, accountID, func(tx *Tx) error {
		tx.Adjust(kind, amount, reason)
		return nil
	})
}

// Load fetches an account without its associations.
func (s *Store) Load(ctx context.Context, accountID uint64) (*model.Account, error) {
	var account model.Account
	if err := s.db.WithContext(ctx).First(&account, accountID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errno.ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}
