package service

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"stake-ledger/internal/ledger"
	"stake-ledger/internal/model"
	"stake-ledger/pkg/errno"
	"stake-ledger/pkg/logger"
)

// AdminService covers operator-facing ledger operations.
type AdminService struct {
	store *ledger.Store
}

func NewAdminService(store *ledger.Store) *AdminService {
	return &AdminService{store: store}
}

// AdjustCredits applies a signed manual adjustment with a mandatory reason.
// Debits that would drive credits negative are rejected by the ledger.
func (s *AdminService) AdjustCredits(ctx context.Context, accountID uint64, amount decimal.Decimal, reason string) error {
	if reason == "" {
		return errno.ErrReasonRequired
	}
	if amount.IsZero() {
		return errno.ErrAmountNotPositive
	}

	if err := s.store.Adjust(ctx, accountID, model.EntryAdminAdjustment, amount, reason); err != nil {
		return err
	}

	logger.Info("admin credit adjustment applied",
		zap.Uint64("account_id", accountID),
		zap.String("amount", amount.String()),
		zap.String("reason", reason),
	)
	return nil
}

// ApproveKYC marks an account as KYC-verified, unlocking withdrawals when the
// KYC gate is enabled. Re-approving an already verified account is a no-op.
func (s *AdminService) ApproveKYC(ctx context.Context, accountID uint64) error {
	if err := s.store.Update(ctx, accountID, func(tx *ledger.Tx) error {
		tx.Account().KYCApproved = true
		return nil
	}); err != nil {
		return err
	}

	logger.Info("kyc approved", zap.Uint64("account_id", accountID))
	return nil
}
