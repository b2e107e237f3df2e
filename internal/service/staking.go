package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"stake-ledger/internal/ledger"
	"stake-ledger/internal/model"
	"stake-ledger/pkg/errno"
	"stake-ledger/pkg/monitor"
)

// StakingService creates stakes against the static plan catalog.
type StakingService struct {
	db    *gorm.DB
	store *ledger.Store
	now   func() time.Time
}

func NewStakingService(db *gorm.DB, store *ledger.Store) *StakingService {
	return &StakingService{db: db, store: store, now: time.Now}
}

// OpenStake debits the principal and creates an active stake in one atomic
// account update. Validation failures mutate nothing.
func (s *StakingService) OpenStake(ctx context.Context, accountID uint64, planID string, amount decimal.Decimal) (*model.Stake, error) {
	plan, ok := FindPlan(planID)
	if !ok {
		return nil, errno.ErrUnknownPlan
	}
	if amount.LessThan(plan.MinPrincipal) {
		return nil, errno.ErrBelowPlanMinimum
	}

	var stake *model.Stake
	err := s.store.Update(ctx, accountID, func(tx *ledger.Tx) error {
		if !tx.Account().IsActive {
			return errno.ErrAccountInactive
		}
		if tx.Account().Credits.LessThan(amount) {
			return errno.ErrInsufficientCredits
		}

		now := s.now()
		totalReward := plan.TotalReward(amount)
		st := model.Stake{
			AccountID:    accountID,
			PlanID:       plan.ID,
			PlanName:     plan.Name,
			Principal:    amount,
			TotalReward:  totalReward,
			DailyReward:  plan.DailyReward(totalReward),
			DurationDays: plan.DurationDays,
			DaysPaid:     0,
			LastRewardAt: now,
			StartAt:      now,
			EndAt:        now.Add(time.Duration(plan.DurationDays) * 24 * time.Hour),
			Status:       model.StakeActive,
		}
		if err := tx.DB().Create(&st).Error; err != nil {
			return err
		}

		tx.Adjust(model.EntryStake, amount.Neg(), fmt.Sprintf("Staked in %s plan", plan.Name))
		stake = &st
		return nil
	})
	if err != nil {
		return nil, err
	}

	if monitor.Business != nil {
		monitor.Business.StakesOpenedTotal.WithLabelValues(plan.ID).Inc()
	}
	return stake, nil
}

// Status returns the account's credits and all of its stakes.
func (s *StakingService) Status(ctx context.Context, accountID uint64) (decimal.Decimal, []model.Stake, error) {
	account, err := s.store.Load(ctx, accountID)
	if err != nil {
		return decimal.Zero, nil, err
	}

	var stakes []model.Stake
	if err := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Find(&stakes).Error; err != nil {
		return decimal.Zero, nil, err
	}
	return account.Credits, stakes, nil
}
