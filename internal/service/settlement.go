package service

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"stake-ledger/internal/ledger"
	"stake-ledger/internal/model"
	"stake-ledger/internal/notifier"
	"stake-ledger/pkg/logger"
	"stake-ledger/pkg/monitor"
)

// SettlementService advances every active stake by the number of whole
// settlement periods elapsed since its watermark and pays the corresponding
// reward. The run is re-entrant: advancement is anchored to each stake's
// LastRewardAt, never to "has it run today", so running twice in succession
// is a no-op and a crash mid-run is completed safely by the next run.
type SettlementService struct {
	db       *gorm.DB
	store    *ledger.Store
	referral *ReferralService
	notify   notifier.Notifier
	period   time.Duration
}

func NewSettlementService(db *gorm.DB, store *ledger.Store, referral *ReferralService, notify notifier.Notifier, period time.Duration) *SettlementService {
	return &SettlementService{db: db, store: store, referral: referral, notify: notify, period: period}
}

// Run settles all accounts holding at least one active stake. A failure on
// one account is alerted and skipped; it never blocks the rest of the run.
func (s *SettlementService) Run(ctx context.Context, now time.Time) {
	if monitor.Business != nil {
		timer := prometheus.NewTimer(monitor.Business.SettlementRunDuration)
		defer timer.ObserveDuration()
	}

	var accountIDs []uint64
	if err := s.db.WithContext(ctx).Model(&model.Stake{}).
		Where("status = ?", model.StakeActive).
		Distinct().
		Pluck("account_id", &accountIDs).Error; err != nil {
		logger.Error("settlement: listing accounts failed", zap.Error(err))
		s.notify.NotifyOperator("Settlement Run Failed", err, "could not list accounts with active stakes")
		return
	}

	logger.Info("settlement run started", zap.Int("accounts", len(accountIDs)), zap.Time("now", now))

	for _, accountID := range accountIDs {
		if err := s.SettleAccount(ctx, accountID, now); err != nil {
			if monitor.Business != nil {
				monitor.Business.SettlementErrorsTotal.Inc()
			}
			logger.Error("settlement: account failed",
				zap.Uint64("account_id", accountID),
				zap.Error(err),
			)
			s.notify.NotifyOperator("Settlement Failed For Account", err,
				fmt.Sprintf("account=%d, will be retried on the next run", accountID))
			continue
		}
	}
}

// SettleAccount processes all active stakes of one account inside a single
// ledger update, so the account is written exactly once per run.
func (s *SettlementService) SettleAccount(ctx context.Context, accountID uint64, now time.Time) error {
	// Stakes completed in this update; referral payouts happen after the
	// commit so a payout failure can never roll back the completion.
	var completed []model.Stake

	err := s.store.Update(ctx, accountID, func(tx *ledger.Tx) error {
		completed = completed[:0]

		var stakes []model.Stake
		if err := tx.DB().
			Where("account_id = ? AND status = ?", accountID, model.StakeActive).
			Find(&stakes).Error; err != nil {
			return err
		}

		for i := range stakes {
			st := &stakes[i]

			elapsed := int(now.Sub(st.LastRewardAt) / s.period)
			if elapsed < 1 {
				continue
			}
			periods := elapsed
			if remaining := st.DurationDays - st.DaysPaid; periods > remaining {
				periods = remaining
			}
			if periods <= 0 {
				continue
			}

			reward := s.rewardFor(st, periods)
			tx.Adjust(model.EntryReward, reward, fmt.Sprintf("Daily staking reward for %s", st.PlanName))

			st.DaysPaid += periods
			// Advance the watermark by whole periods, preserving any
			// fractional remainder for the next run.
			st.LastRewardAt = st.LastRewardAt.Add(time.Duration(periods) * s.period)

			if st.DaysPaid == st.DurationDays {
				st.Status = model.StakeCompleted
				tx.Adjust(model.EntryStake, st.Principal,
					fmt.Sprintf("Completed stake principal returned for %s", st.PlanName))
				completed = append(completed, *st)
			}

			if err := tx.DB().Save(st).Error; err != nil {
				return err
			}

			if monitor.Business != nil {
				rewardF, _ := reward.Float64()
				monitor.Business.RewardsPaidTotal.Add(rewardF)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, st := range completed {
		if monitor.Business != nil {
			monitor.Business.StakesCompletedTotal.WithLabelValues(st.PlanID).Inc()
		}
		logger.Info("stake completed",
			zap.Uint64("account_id", accountID),
			zap.String("plan", st.PlanID),
			zap.String("principal", st.Principal.String()),
		)
		s.referral.PayReferral(ctx, accountID, st.Principal)
	}
	return nil
}

// rewardFor pays dailyReward per period, except on the closing period where
// the remainder of totalReward is paid instead, so rounding in the per-day
// division can never over- or under-pay the stake across its lifetime.
func (s *SettlementService) rewardFor(st *model.Stake, periods int) decimal.Decimal {
	if st.DaysPaid+periods == st.DurationDays {
		alreadyPaid := st.DailyReward.Mul(decimal.NewFromInt(int64(st.DaysPaid)))
		return st.TotalReward.Sub(alreadyPaid)
	}
	return st.DailyReward.Mul(decimal.NewFromInt(int64(periods)))
}
