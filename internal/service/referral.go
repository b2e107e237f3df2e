package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"stake-ledger/internal/ledger"
	"stake-ledger/internal/model"
	"stake-ledger/pkg/logger"
	"stake-ledger/pkg/safe_random"
)

// ReferralStats summarizes an account's referral activity.
type ReferralStats struct {
	ReferralCode   string          `json:"referral_code"`
	TotalReferrals int64           `json:"total_referrals"`
	TotalEarnings  decimal.Decimal `json:"total_earnings"`
}

// ReferralService pays a fixed-rate bonus to the referrer of an account
// whose stake completed.
type ReferralService struct {
	db    *gorm.DB
	store *ledger.Store
	rate  decimal.Decimal
}

func NewReferralService(db *gorm.DB, store *ledger.Store, rate decimal.Decimal) *ReferralService {
	return &ReferralService{db: db, store: store, rate: rate}
}

// PayReferral credits stakePrincipal * rate to the referrer, if any.
// Failures are logged and swallowed: a broken referral payout must never
// fail or roll back the stake completion that triggered it.
func (s *ReferralService) PayReferral(ctx context.Context, referredAccountID uint64, stakePrincipal decimal.Decimal) {
	var referred model.Account
	if err := s.db.WithContext(ctx).First(&referred, referredAccountID).Error; err != nil {
		logger.Error("referral payout: loading referred account failed",
			zap.Uint64("account_id", referredAccountID), zap.Error(err))
		return
	}
	if referred.ReferredBy == nil {
		return
	}

	reward := stakePrincipal.Mul(s.rate)
	err := s.store.Update(ctx, *referred.ReferredBy, func(tx *ledger.Tx) error {
		tx.Adjust(model.EntryReferral, reward,
			fmt.Sprintf("Referral bonus from %s's completed stake", referred.Username))
		tx.Account().ReferralEarnings = tx.Account().ReferralEarnings.Add(reward)
		return nil
	})
	if err != nil {
		logger.Error("referral payout failed",
			zap.Uint64("referrer_id", *referred.ReferredBy),
			zap.Uint64("referred_id", referredAccountID),
			zap.String("reward", reward.String()),
			zap.Error(err),
		)
		return
	}

	logger.Info("referral bonus paid",
		zap.Uint64("referrer_id", *referred.ReferredBy),
		zap.String("reward", reward.String()),
	)
}

// Code returns the account's referral code, generating and persisting a
// unique one on first use.
func (s *ReferralService) Code(ctx context.Context, accountID uint64) (string, decimal.Decimal, error) {
	account, err := s.store.Load(ctx, accountID)
	if err != nil {
		return "", decimal.Zero, err
	}
	if account.ReferralCode != nil {
		return *account.ReferralCode, account.ReferralEarnings, nil
	}

	code, err := s.generateUniqueCode(ctx)
	if err != nil {
		return "", decimal.Zero, err
	}

	err = s.store.Update(ctx, accountID, func(tx *ledger.Tx) error {
		if tx.Account().ReferralCode != nil {
			code = *tx.Account().ReferralCode
			return nil
		}
		tx.Account().ReferralCode = &code
		return nil
	})
	if err != nil {
		return "", decimal.Zero, err
	}
	return code, account.ReferralEarnings, nil
}

func (s *ReferralService) generateUniqueCode(ctx context.Context) (string, error) {
	for i := 0; i < 5; i++ {
		raw, err := safe_random.GenerateRandomHexString(4)
		if err != nil {
			return "", err
		}
		code := strings.ToUpper(raw)

		var count int64
		if err := s.db.WithContext(ctx).Model(&model.Account{}).
			Where("referral_code = ?", code).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return code, nil
		}
	}
	return "", errors.New("could not generate a unique referral code")
}

// Stats returns referral counters for an account.
func (s *ReferralService) Stats(ctx context.Context, accountID uint64) (*ReferralStats, error) {
	account, err := s.store.Load(ctx, accountID)
	if err != nil {
		return nil, err
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&model.Account{}).
		Where("referred_by = ?", accountID).Count(&total).Error; err != nil {
		return nil, err
	}

	code := ""
	if account.ReferralCode != nil {
		code = *account.ReferralCode
	}
	return &ReferralStats{
		ReferralCode:   code,
		TotalReferrals: total,
		TotalEarnings:  account.ReferralEarnings,
	}, nil
}
