package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"stake-ledger/internal/model"
	"stake-ledger/internal/notifier"
	"stake-ledger/internal/service/mq"
	"stake-ledger/internal/wallet"
	"stake-ledger/pkg/crypto_util"
	"stake-ledger/pkg/logger"
)

// PayoutWorker is the out-of-band settlement process for withdrawal
// requests: it consumes accepted requests from the queue, performs the
// custody transfer, and records the terminal status. It never touches the
// account's credits — the debit already happened at request time.
type PayoutWorker struct {
	withdraw *WithdrawService
	wallet   wallet.Client
	notify   notifier.Notifier

	custodyAddress string
	sealedSecret   []byte
	sealKey        []byte
}

func NewPayoutWorker(withdraw *WithdrawService, w wallet.Client, notify notifier.Notifier,
	custodyAddress string, sealedSecret, sealKey []byte) *PayoutWorker {
	return &PayoutWorker{
		withdraw:       withdraw,
		wallet:         w,
		notify:         notify,
		custodyAddress: custodyAddress,
		sealedSecret:   sealedSecret,
		sealKey:        sealKey,
	}
}

// Start subscribes to the withdrawal topic and blocks until ctx ends.
func (w *PayoutWorker) Start(ctx context.Context, consumer mq.Consumer) error {
	logger.Info("withdrawal payout worker started")
	return consumer.Subscribe(ctx, TopicWithdrawalRequested, func(msg *mq.Message) error {
		return w.handle(ctx, msg)
	})
}

func (w *PayoutWorker) handle(ctx context.Context, msg *mq.Message) error {
	var event WithdrawalRequestedEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		logger.Error("payout: malformed event, dropping", zap.Error(err))
		return nil // retrying cannot fix a bad payload
	}

	amount, err := decimal.NewFromString(event.Amount)
	if err != nil {
		logger.Error("payout: bad amount in event, dropping",
			zap.String("withdrawal_id", event.WithdrawalID), zap.Error(err))
		return nil
	}

	// Redelivered messages for already-settled requests must not pay twice.
	request, err := w.withdraw.Get(ctx, event.WithdrawalID)
	if err != nil {
		logger.Error("payout: loading request failed",
			zap.String("withdrawal_id", event.WithdrawalID), zap.Error(err))
		return err
	}
	if request.Status != model.WithdrawalPending {
		logger.Info("payout: request already settled, skipping",
			zap.String("withdrawal_id", event.WithdrawalID),
			zap.String("status", string(request.Status)),
		)
		return nil
	}

	logger.Info("processing withdrawal payout",
		zap.String("withdrawal_id", event.WithdrawalID),
		zap.Uint64("account_id", event.AccountID),
		zap.String("amount", event.Amount),
	)

	secret, err := crypto_util.DecryptAESGCM(w.sealKey, w.sealedSecret)
	if err != nil {
		// Configuration problem; retrying this message cannot help and
		// every other payout is equally stuck.
		w.notify.NotifyOperator("Withdrawal Payout Blocked", err,
			"custody wallet secret could not be unsealed, all payouts halted")
		return err
	}
	result, transferErr := w.wallet.Transfer(ctx, w.custodyAddress, secret, event.Destination, amount)
	for i := range secret {
		secret[i] = 0
	}

	if transferErr != nil {
		w.notify.NotifyOperator("Withdrawal Transaction Failed", transferErr,
			fmt.Sprintf("withdrawal=%s account=%d amount=%s to=%s",
				event.WithdrawalID, event.AccountID, event.Amount, event.Destination))
		if err := w.withdraw.MarkSettled(ctx, event.WithdrawalID, false, ""); err != nil {
			logger.Error("payout: recording failed status failed",
				zap.String("withdrawal_id", event.WithdrawalID), zap.Error(err))
			return err // redeliver so the terminal status is not lost
		}
		return nil
	}

	if err := w.withdraw.MarkSettled(ctx, event.WithdrawalID, true, result.TxRef); err != nil {
		// The transfer went out; the status record must not be dropped.
		w.notify.NotifyOperator("Withdrawal Status Update Failed", err,
			fmt.Sprintf("withdrawal=%s tx=%s: transfer sent but status not recorded",
				event.WithdrawalID, result.TxRef))
		return err
	}

	logger.Info("withdrawal settled",
		zap.String("withdrawal_id", event.WithdrawalID),
		zap.String("tx_ref", result.TxRef),
	)
	return nil
}
