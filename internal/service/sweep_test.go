package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"stake-ledger/internal/ledger"
	"stake-ledger/internal/model"
	"stake-ledger/pkg/crypto_util"
)

var testSealKey = []byte("0123456789abcdef0123456789abcdef")

const testCustody = "0xcccccccccccccccccccccccccccccccccccccccc"

func newSweepFixture(t *testing.T) (*gorm.DB, *ledger.Store, *fakeWallet, *fakeNotifier, *SweepService) {
	t.Helper()
	db := newTestDB(t)
	store := newStore(db)
	w := newFakeWallet()
	notify := &fakeNotifier{}
	svc := NewSweepService(db, store, w, notify, testCustody, testSealKey, dec("1"), dec("0.1"))
	return db, store, w, notify, svc
}

func sealSecret(t *testing.T, db *gorm.DB, account *model.Account, secret string) {
	t.Helper()
	sealed, err := crypto_util.EncryptAESGCM(testSealKey, []byte(secret))
	require.NoError(t, err)
	require.NoError(t, db.Model(&model.Account{}).
		Where("id = ?", account.ID).
		Update("encrypted_secret", sealed).Error)
}

func TestSweepCreditsFullBalanceAfterTransfer(t *testing.T) {
	db, store, w, notify, svc := newSweepFixture(t)
	account := newTestAccount(t, db, "alice", "0")
	sealSecret(t, db, account, "deadbeef")
	w.setBalance(account.WalletAddress, "25")

	svc.Run(context.Background())

	// The transfer moves balance minus the fee buffer, but the full detected
	// balance is credited.
	require.Len(t, w.transfers, 1)
	assert.Equal(t, account.WalletAddress, w.transfers[0].From)
	assert.Equal(t, testCustody, w.transfers[0].To)
	assert.True(t, w.transfers[0].Amount.Equal(dec("24.9")))
	assert.Equal(t, "deadbeef", w.transfers[0].Secret)

	got, err := store.Load(context.Background(), account.ID)
	require.NoError(t, err)
	assert.True(t, got.Credits.Equal(dec("25")), "credits = %s", got.Credits)

	var entry model.CreditEntry
	require.NoError(t, db.Where("account_id = ?", account.ID).First(&entry).Error)
	assert.Equal(t, model.EntryDeposit, entry.Kind)
	assert.True(t, entry.Amount.Equal(dec("25")))

	assert.Equal(t, 0, notify.count())
}

func TestSweepSkipsBalancesBelowThreshold(t *testing.T) {
	db, store, w, _, svc := newSweepFixture(t)
	account := newTestAccount(t, db, "bob", "0")
	sealSecret(t, db, account, "deadbeef")
	w.setBalance(account.WalletAddress, "0.5")

	svc.Run(context.Background())

	assert.Empty(t, w.transfers)
	got, err := store.Load(context.Background(), account.ID)
	require.NoError(t, err)
	assert.True(t, got.Credits.IsZero())
}

func TestSweepFailureCreditsNothing(t *testing.T) {
	db, store, w, notify, svc := newSweepFixture(t)
	account := newTestAccount(t, db, "carol", "0")
	sealSecret(t, db, account, "deadbeef")
	w.setBalance(account.WalletAddress, "25")
	w.failNext = errors.New("rpc timeout")

	svc.Run(context.Background())

	// A failed sweep gives no credits and raises an alert; the detected
	// deposit is reconciled manually.
	got, err := store.Load(context.Background(), account.ID)
	require.NoError(t, err)
	assert.True(t, got.Credits.IsZero())

	var count int64
	require.NoError(t, db.Model(&model.CreditEntry{}).Where("account_id = ?", account.ID).Count(&count).Error)
	assert.Equal(t, int64(0), count)
	assert.Equal(t, 1, notify.count())
}

func TestSweepUnsealableSecretAlerts(t *testing.T) {
	db, store, w, notify, svc := newSweepFixture(t)
	account := newTestAccount(t, db, "dave", "0") // secret not sealed with the test key
	w.setBalance(account.WalletAddress, "25")

	svc.Run(context.Background())

	assert.Empty(t, w.transfers)
	got, err := store.Load(context.Background(), account.ID)
	require.NoError(t, err)
	assert.True(t, got.Credits.IsZero())
	assert.Equal(t, 1, notify.count())
}

func TestSweepSkipsInactiveAccounts(t *testing.T) {
	db, _, w, _, svc := newSweepFixture(t)
	account := newTestAccount(t, db, "erin", "0")
	sealSecret(t, db, account, "deadbeef")
	w.setBalance(account.WalletAddress, "25")
	require.NoError(t, db.Model(&model.Account{}).
		Where("id = ?", account.ID).
		Update("is_active", false).Error)

	svc.Run(context.Background())

	assert.Empty(t, w.transfers)
}

func TestSweepDropsOverlappingRun(t *testing.T) {
	db, _, w, _, svc := newSweepFixture(t)
	account := newTestAccount(t, db, "frank", "0")
	sealSecret(t, db, account, "deadbeef")
	w.setBalance(account.WalletAddress, "25")

	// A run already in flight makes the next tick a no-op.
	svc.running.Lock()
	svc.Run(context.Background())
	svc.running.Unlock()

	assert.Empty(t, w.transfers)
}
