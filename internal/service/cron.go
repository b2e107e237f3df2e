package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"stake-ledger/pkg/logger"
	"stake-ledger/pkg/utils/lock"
)

// CronService schedules the two recurring jobs: daily stake settlement and
// the deposit sweep.
type CronService struct {
	cron       *cron.Cron
	locker     lock.DistributedLock
	settlement *SettlementService
	sweep      *SweepService

	settlementSpec string
	sweepSpec      string
}

func NewCronService(rdb *redis.Client, settlement *SettlementService, sweep *SweepService,
	settlementSpec, sweepSpec string) *CronService {
	return &CronService{
		cron:           cron.New(),
		locker:         lock.NewRedisLock(rdb),
		settlement:     settlement,
		sweep:          sweep,
		settlementSpec: settlementSpec,
		sweepSpec:      sweepSpec,
	}
}

func (s *CronService) Start() {
	_, _ = s.cron.AddFunc(s.settlementSpec, s.runSettlement)
	_, _ = s.cron.AddFunc(s.sweepSpec, s.runSweep)

	s.cron.Start()
	logger.Info("Cron Service started",
		zap.String("settlement_spec", s.settlementSpec),
		zap.String("sweep_spec", s.sweepSpec),
	)
}

func (s *CronService) Stop() {
	s.cron.Stop()
	logger.Info("Cron Service stopped")
}

// runSettlement takes the cross-instance lock and settles. The job itself is
// watermark-idempotent, so the lock only avoids wasted duplicate scans.
func (s *CronService) runSettlement() {
	ctx := context.Background()
	lockKey := "cron:lock:settlement"

	locked, err := s.locker.Acquire(ctx, lockKey, 30*time.Minute)
	if err != nil || !locked {
		logger.Debug("settlement: another instance holds the lock, skipping")
		return
	}
	defer s.locker.Release(ctx, lockKey)

	s.settlement.Run(ctx, time.Now())
}

// runSweep takes the cross-instance lock; SweepService additionally drops
// overlapping ticks within the process.
func (s *CronService) runSweep() {
	ctx := context.Background()
	lockKey := "cron:lock:deposit_sweep"

	locked, err := s.locker.Acquire(ctx, lockKey, 10*time.Minute)
	if err != nil || !locked {
		logger.Debug("deposit sweep: another instance holds the lock, skipping")
		return
	}
	defer s.locker.Release(ctx, lockKey)

	s.sweep.Run(ctx)
}
