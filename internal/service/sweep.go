package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"stake-ledger/internal/ledger"
	"stake-ledger/internal/model"
	"stake-ledger/internal/notifier"
	"stake-ledger/internal/wallet"
	"stake-ledger/pkg/crypto_util"
	"stake-ledger/pkg/logger"
	"stake-ledger/pkg/monitor"
)

// SweepService polls every active account's custody wallet for incoming
// deposits and sweeps them to the platform custody address.
//
// Ordering contract: sweep first, credit later. The ledger is credited with
// the full detected balance only after the transfer is confirmed; a failed
// sweep credits nothing and raises an operator alert for manual
// reconciliation. A balance that was never moved into custody is never
// spendable.
type SweepService struct {
	db     *gorm.DB
	store  *ledger.Store
	wallet wallet.Client
	notify notifier.Notifier

	custodyAddress string
	sealKey        []byte
	minDeposit     decimal.Decimal
	feeBuffer      decimal.Decimal

	// running enforces the single-flight guarantee: a tick that arrives
	// while a run is in progress is dropped, never queued.
	running sync.Mutex
}

func NewSweepService(db *gorm.DB, store *ledger.Store, w wallet.Client, notify notifier.Notifier,
	custodyAddress string, sealKey []byte, minDeposit, feeBuffer decimal.Decimal) *SweepService {
	return &SweepService{
		db:             db,
		store:          store,
		wallet:         w,
		notify:         notify,
		custodyAddress: custodyAddress,
		sealKey:        sealKey,
		minDeposit:     minDeposit,
		feeBuffer:      feeBuffer,
	}
}

// Run performs one sweep pass over all active accounts. At most one pass is
// in flight process-wide; overlapping invocations return immediately.
func (s *SweepService) Run(ctx context.Context) {
	if !s.running.TryLock() {
		logger.Debug("deposit sweep already in flight, tick dropped")
		return
	}
	defer s.running.Unlock()

	if monitor.Business != nil {
		timer := prometheus.NewTimer(monitor.Business.SweepJobDuration)
		defer timer.ObserveDuration()
	}

	var accounts []model.Account
	if err := s.db.WithContext(ctx).Where("is_active = ?", true).Find(&accounts).Error; err != nil {
		logger.Error("sweep: listing active accounts failed", zap.Error(err))
		s.notify.NotifyOperator("Deposit Sweep Run Failed", err, "could not list active accounts")
		return
	}

	for i := range accounts {
		// Per-account failures are handled inside; one bad wallet never
		// aborts the run for the others.
		s.sweepAccount(ctx, &accounts[i])
	}
}

func (s *SweepService) sweepAccount(ctx context.Context, account *model.Account) {
	balance, err := s.wallet.BalanceOf(ctx, account.WalletAddress)
	if err != nil {
		logger.Error("sweep: balance query failed",
			zap.Uint64("account_id", account.ID),
			zap.String("address", account.WalletAddress),
			zap.Error(err),
		)
		return
	}

	if balance.LessThan(s.minDeposit) {
		return
	}

	sweepAmount := balance.Sub(s.feeBuffer)
	if !sweepAmount.IsPositive() {
		return
	}

	logger.Info("deposit detected, attempting sweep",
		zap.Uint64("account_id", account.ID),
		zap.String("balance", balance.String()),
		zap.String("sweep_amount", sweepAmount.String()),
	)

	// The stored secret stays sealed except for the duration of the
	// signing call.
	secret, err := crypto_util.DecryptAESGCM(s.sealKey, account.EncryptedSecret)
	if err != nil {
		s.notify.NotifyOperator("Deposit Sweep Failed", err,
			fmt.Sprintf("account=%d: stored wallet secret could not be unsealed", account.ID))
		return
	}
	result, err := s.wallet.Transfer(ctx, account.WalletAddress, secret, s.custodyAddress, sweepAmount)
	for i := range secret {
		secret[i] = 0
	}
	if err != nil {
		if monitor.Business != nil {
			monitor.Business.SweepFailuresTotal.Inc()
		}
		s.notify.NotifyOperator("Deposit Sweep Failed", err,
			fmt.Sprintf("account=%d balance=%s: sweep failed, NO credits were given, manual action may be required",
				account.ID, balance.String()))
		return
	}

	// Sweep confirmed: credit the full detected balance. The next balance
	// read of this wallet is below the threshold, so the same physical
	// deposit cannot be credited twice.
	err = s.store.Adjust(ctx, account.ID, model.EntryDeposit, balance,
		fmt.Sprintf("Deposit detected and secured, tx %s", result.TxRef))
	if err != nil {
		// Value is already in custody but the account was not credited.
		// This must never be silently dropped.
		s.notify.NotifyOperator("Deposit Credit Failed After Sweep", err,
			fmt.Sprintf("account=%d balance=%s tx=%s: funds swept but NOT credited, manual credit required",
				account.ID, balance.String(), result.TxRef))
		return
	}

	if monitor.Business != nil {
		balanceF, _ := balance.Float64()
		monitor.Business.DepositSweptTotal.Add(balanceF)
	}
	logger.Info("deposit swept and credited",
		zap.Uint64("account_id", account.ID),
		zap.String("credited", balance.String()),
		zap.String("tx_ref", result.TxRef),
	)
}
