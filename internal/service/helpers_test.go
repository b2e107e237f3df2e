package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"stake-ledger/internal/ledger"
	"stake-ledger/internal/model"
	"stake-ledger/internal/testutil"
	"stake-ledger/internal/wallet"
)

func newTestDB(t *testing.T) *gorm.DB {
	return testutil.OpenDB(t)
}

func newTestAccount(t *testing.T, db *gorm.DB, name, credits string) *model.Account {
	t.Helper()
	account := &model.Account{
		Username:        name,
		Email:           name + "@example.com",
		PasswordHash:    "hashed",
		WalletAddress:   fmt.Sprintf("0x%040x", len(name)*31+int(name[0])),
		EncryptedSecret: []byte("sealed-" + name),
		Credits:         decimal.RequireFromString(credits),
		IsActive:        true,
	}
	require.NoError(t, db.Create(account).Error)
	return account
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// fakeWallet scripts balances and transfer outcomes per address.
type fakeWallet struct {
	mu        sync.Mutex
	balances  map[string]decimal.Decimal
	transfers []fakeTransfer
	failNext  error
}

type fakeTransfer struct {
	From   string
	To     string
	Amount decimal.Decimal
	Secret string
}

func newFakeWallet() *fakeWallet {
	return &fakeWallet{balances: make(map[string]decimal.Decimal)}
}

func (w *fakeWallet) setBalance(address, amount string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.balances[address] = dec(amount)
}

func (w *fakeWallet) BalanceOf(_ context.Context, address string) (decimal.Decimal, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balances[address], nil
}

func (w *fakeWallet) Transfer(_ context.Context, from string, secret []byte, to string, amount decimal.Decimal) (*wallet.TransferResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failNext != nil {
		err := w.failNext
		w.failNext = nil
		return nil, err
	}
	w.transfers = append(w.transfers, fakeTransfer{
		From: from, To: to, Amount: amount, Secret: string(secret),
	})
	w.balances[from] = decimal.Zero
	return &wallet.TransferResult{TxRef: fmt.Sprintf("0xtx%d", len(w.transfers))}, nil
}

func (w *fakeWallet) IsValidAddress(address string) bool {
	return len(address) == 42 && address[:2] == "0x"
}

func (w *fakeWallet) GenerateAccount(context.Context) (*wallet.GeneratedAccount, error) {
	return nil, errors.New("not implemented")
}

// fakeNotifier records operator alerts.
type fakeNotifier struct {
	mu     sync.Mutex
	alerts []string
}

func (n *fakeNotifier) NotifyOperator(subject string, _ error, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, subject)
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.alerts)
}

// recordingProducer captures published messages.
type recordingProducer struct {
	mu       sync.Mutex
	messages []recordedMessage
	failWith error
}

type recordedMessage struct {
	Topic   string
	Key     string
	Payload []byte
}

func (p *recordingProducer) Publish(_ context.Context, topic, key string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failWith != nil {
		return p.failWith
	}
	p.messages = append(p.messages, recordedMessage{Topic: topic, Key: key, Payload: payload})
	return nil
}

func newStore(db *gorm.DB) *ledger.Store { return ledger.NewStore(db) }
