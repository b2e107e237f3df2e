package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"stake-ledger/internal/ledger"
	"stake-ledger/internal/model"
	"stake-ledger/internal/notifier"
	"stake-ledger/internal/service/mq"
	"stake-ledger/internal/wallet"
	"stake-ledger/pkg/errno"
	"stake-ledger/pkg/logger"
	"stake-ledger/pkg/monitor"
)

// TopicWithdrawalRequested carries accepted withdrawal requests to the
// out-of-band payout worker.
const TopicWithdrawalRequested = "ledger_events_withdrawal"

// WithdrawalRequestedEvent is the MQ payload for an accepted request.
type WithdrawalRequestedEvent struct {
	WithdrawalID string `json:"withdrawal_id"`
	AccountID    uint64 `json:"account_id"`
	Amount       string `json:"amount"`
	Destination  string `json:"destination"`
}

// BalanceReport is the withdrawal-balance view of an account.
//
// Policy: all credits are withdrawable. Staked principal was already debited
// from credits when the stake opened, so it is reported separately for
// information only, not subtracted again.
type BalanceReport struct {
	TotalCredits           decimal.Decimal `json:"total_credits"`
	ActiveStakePrincipal   decimal.Decimal `json:"active_stake_principal"`
	AvailableForWithdrawal decimal.Decimal `json:"available_for_withdrawal"`
}

// WithdrawService accepts withdrawal requests. The debit happens
// unconditionally at request time, so the same funds can never be requested
// twice while settlement is pending; the terminal status is recorded later by
// the payout worker or an administrator and never re-debits.
type WithdrawService struct {
	db         *gorm.DB
	store      *ledger.Store
	wallet     wallet.Client
	producer   mq.Producer
	notify     notifier.Notifier
	requireKYC bool
	now        func() time.Time
}

func NewWithdrawService(db *gorm.DB, store *ledger.Store, w wallet.Client, producer mq.Producer,
	notify notifier.Notifier, requireKYC bool) *WithdrawService {
	return &WithdrawService{
		db:         db,
		store:      store,
		wallet:     w,
		producer:   producer,
		notify:     notify,
		requireKYC: requireKYC,
		now:        time.Now,
	}
}

// RequestWithdrawal validates, debits credits, and records a pending request
// in one atomic account update, then hands the request to the payout queue.
func (s *WithdrawService) RequestWithdrawal(ctx context.Context, accountID uint64, amount decimal.Decimal, destination string) (*model.WithdrawalRequest, error) {
	if !amount.IsPositive() {
		return nil, errno.ErrAmountNotPositive
	}
	if destination == "" || !s.wallet.IsValidAddress(destination) {
		return nil, errno.ErrInvalidAddress
	}

	var request *model.WithdrawalRequest
	err := s.store.Update(ctx, accountID, func(tx *ledger.Tx) error {
		account := tx.Account()
		if !account.IsActive {
			return errno.ErrAccountInactive
		}
		if s.requireKYC && !account.KYCApproved {
			return errno.ErrKYCRequired
		}
		if account.Credits.LessThan(amount) {
			return errno.ErrInsufficientCredits
		}

		req := model.WithdrawalRequest{
			ID:                 uuid.NewString(),
			AccountID:          accountID,
			Amount:             amount,
			DestinationAddress: destination,
			Status:             model.WithdrawalPending,
			RequestedAt:        s.now(),
		}
		if err := tx.DB().Create(&req).Error; err != nil {
			return err
		}

		tx.Adjust(model.EntryWithdrawal, amount.Neg(), fmt.Sprintf("Withdrawal to address %s", destination))
		request = &req
		return nil
	})
	if err != nil {
		return nil, err
	}

	if monitor.Business != nil {
		monitor.Business.WithdrawRequestedTotal.Inc()
	}

	s.publishRequested(ctx, request)
	return request, nil
}

// publishRequested emits the settlement notification. Publish failure does
// not undo the accepted request: the request row is already pending and the
// payout worker reconciles from the table, so the event is an optimization,
// not the source of truth.
func (s *WithdrawService) publishRequested(ctx context.Context, request *model.WithdrawalRequest) {
	if s.producer == nil {
		return
	}
	payload, _ := json.Marshal(WithdrawalRequestedEvent{
		WithdrawalID: request.ID,
		AccountID:    request.AccountID,
		Amount:       request.Amount.String(),
		Destination:  request.DestinationAddress,
	})
	// Account id as partition key keeps one account's requests ordered.
	if err := s.producer.Publish(ctx, TopicWithdrawalRequested, strconv.FormatUint(request.AccountID, 10), payload); err != nil {
		logger.Error("failed to publish withdrawal event",
			zap.String("withdrawal_id", request.ID),
			zap.Error(err),
		)
		s.notify.NotifyOperator("Withdrawal Event Publish Failed", err,
			fmt.Sprintf("withdrawal=%s account=%d: request is recorded and pending, settle manually if the queue stays down",
				request.ID, request.AccountID))
	}
}

// Balance reports the withdrawable balance.
func (s *WithdrawService) Balance(ctx context.Context, accountID uint64) (*BalanceReport, error) {
	account, err := s.store.Load(ctx, accountID)
	if err != nil {
		return nil, err
	}

	var stakes []model.Stake
	if err := s.db.WithContext(ctx).
		Where("account_id = ? AND status = ?", accountID, model.StakeActive).
		Find(&stakes).Error; err != nil {
		return nil, err
	}

	locked := decimal.Zero
	for _, st := range stakes {
		locked = locked.Add(st.Principal)
	}

	return &BalanceReport{
		TotalCredits:           account.Credits,
		ActiveStakePrincipal:   locked,
		AvailableForWithdrawal: account.Credits,
	}, nil
}

// History returns the account's withdrawal requests, newest first.
func (s *WithdrawService) History(ctx context.Context, accountID uint64) ([]model.WithdrawalRequest, error) {
	var withdrawals []model.WithdrawalRequest
	if err := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("requested_at DESC").
		Find(&withdrawals).Error; err != nil {
		return nil, err
	}
	return withdrawals, nil
}

// Get loads one withdrawal request by id.
func (s *WithdrawService) Get(ctx context.Context, withdrawalID string) (*model.WithdrawalRequest, error) {
	var request model.WithdrawalRequest
	if err := s.db.WithContext(ctx).First(&request, "id = ?", withdrawalID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errno.ErrWithdrawalNotFound
		}
		return nil, err
	}
	return &request, nil
}

// MarkSettled records the terminal outcome of a pending request. It never
// touches credits: the debit happened at request time, and a failed
// settlement is a manual-reconciliation case, not an automatic refund.
func (s *WithdrawService) MarkSettled(ctx context.Context, withdrawalID string, success bool, txRef string) error {
	var request model.WithdrawalRequest
	if err := s.db.WithContext(ctx).First(&request, "id = ?", withdrawalID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errno.ErrWithdrawalNotFound
		}
		return err
	}

	err := s.store.Update(ctx, request.AccountID, func(tx *ledger.Tx) error {
		var req model.WithdrawalRequest
		if err := tx.DB().First(&req, "id = ?", withdrawalID).Error; err != nil {
			return err
		}
		if req.Status != model.WithdrawalPending {
			return errno.ErrWithdrawalSettled
		}

		now := s.now()
		req.SettledAt = &now
		req.ExternalTxRef = txRef
		if success {
			req.Status = model.WithdrawalCompleted
		} else {
			req.Status = model.WithdrawalFailed
		}
		return tx.DB().Save(&req).Error
	})
	if err != nil {
		return err
	}

	status := model.WithdrawalCompleted
	if !success {
		status = model.WithdrawalFailed
		s.notify.NotifyOperator("Withdrawal Settlement Failed", nil,
			fmt.Sprintf("withdrawal=%s account=%d amount=%s: debit stands, reconcile manually via admin adjustment",
				request.ID, request.AccountID, request.Amount.String()))
	}
	if monitor.Business != nil {
		monitor.Business.WithdrawSettledTotal.WithLabelValues(string(status)).Inc()
	}
	return nil
}
