package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"stake-ledger/internal/ledger"
	"stake-ledger/internal/model"
	"stake-ledger/pkg/errno"
)

const testDestination = "0xdddddddddddddddddddddddddddddddddddddddd"

func newWithdrawFixture(t *testing.T, requireKYC bool) (*gorm.DB, *ledger.Store, *recordingProducer, *fakeNotifier, *WithdrawService) {
	t.Helper()
	db := newTestDB(t)
	store := newStore(db)
	producer := &recordingProducer{}
	notify := &fakeNotifier{}
	svc := NewWithdrawService(db, store, newFakeWallet(), producer, notify, requireKYC)
	return db, store, producer, notify, svc
}

func TestRequestWithdrawalDebitsAndPublishes(t *testing.T) {
	db, store, producer, _, svc := newWithdrawFixture(t, false)
	account := newTestAccount(t, db, "alice", "100")

	request, err := svc.RequestWithdrawal(context.Background(), account.ID, dec("40"), testDestination)
	require.NoError(t, err)

	assert.NotEmpty(t, request.ID)
	assert.Equal(t, model.WithdrawalPending, request.Status)
	assert.True(t, request.Amount.Equal(dec("40")))
	assert.Equal(t, testDestination, request.DestinationAddress)

	got, err := store.Load(context.Background(), account.ID)
	require.NoError(t, err)
	assert.True(t, got.Credits.Equal(dec("60")))

	var entry model.CreditEntry
	require.NoError(t, db.Where("account_id = ?", account.ID).First(&entry).Error)
	assert.Equal(t, model.EntryWithdrawal, entry.Kind)
	assert.True(t, entry.Amount.Equal(dec("-40")))

	require.Len(t, producer.messages, 1)
	assert.Equal(t, TopicWithdrawalRequested, producer.messages[0].Topic)
	var event WithdrawalRequestedEvent
	require.NoError(t, json.Unmarshal(producer.messages[0].Payload, &event))
	assert.Equal(t, request.ID, event.WithdrawalID)
	assert.Equal(t, "40", event.Amount)
}

func TestRequestWithdrawalValidation(t *testing.T) {
	db, store, _, _, svc := newWithdrawFixture(t, false)
	account := newTestAccount(t, db, "bob", "100")

	tests := []struct {
		name        string
		amount      string
		destination string
		wantErr     error
	}{
		{"zero amount", "0", testDestination, errno.ErrAmountNotPositive},
		{"negative amount", "-5", testDestination, errno.ErrAmountNotPositive},
		{"bad address", "10", "not-an-address", errno.ErrInvalidAddress},
		{"over balance", "100.01", testDestination, errno.ErrInsufficientCredits},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RequestWithdrawal(context.Background(), account.ID, dec(tt.amount), tt.destination)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	got, err := store.Load(context.Background(), account.ID)
	require.NoError(t, err)
	assert.True(t, got.Credits.Equal(dec("100")))
}

func TestRequestWithdrawalRequiresKYC(t *testing.T) {
	db, store, _, _, svc := newWithdrawFixture(t, true)
	account := newTestAccount(t, db, "carol", "100")

	_, err := svc.RequestWithdrawal(context.Background(), account.ID, dec("10"), testDestination)
	assert.ErrorIs(t, err, errno.ErrKYCRequired)

	require.NoError(t, NewAdminService(store).ApproveKYC(context.Background(), account.ID))

	_, err = svc.RequestWithdrawal(context.Background(), account.ID, dec("10"), testDestination)
	assert.NoError(t, err)
}

func TestRequestWithdrawalRejectsInactiveAccount(t *testing.T) {
	db, store, producer, _, svc := newWithdrawFixture(t, false)
	account := newTestAccount(t, db, "judy", "100")
	require.NoError(t, db.Model(&model.Account{}).
		Where("id = ?", account.ID).
		Update("is_active", false).Error)

	_, err := svc.RequestWithdrawal(context.Background(), account.ID, dec("10"), testDestination)
	assert.ErrorIs(t, err, errno.ErrAccountInactive)

	got, err := store.Load(context.Background(), account.ID)
	require.NoError(t, err)
	assert.True(t, got.Credits.Equal(dec("100")))
	assert.Empty(t, producer.messages)
}

func TestRequestWithdrawalSurvivesPublishFailure(t *testing.T) {
	db, store, producer, notify, svc := newWithdrawFixture(t, false)
	account := newTestAccount(t, db, "dave", "100")
	producer.failWith = assert.AnError

	// The request is accepted and debited even when the queue is down; the
	// payout worker reconciles from the table.
	request, err := svc.RequestWithdrawal(context.Background(), account.ID, dec("40"), testDestination)
	require.NoError(t, err)
	assert.Equal(t, model.WithdrawalPending, request.Status)

	got, err := store.Load(context.Background(), account.ID)
	require.NoError(t, err)
	assert.True(t, got.Credits.Equal(dec("60")))
	assert.Equal(t, 1, notify.count())
}

func TestBalanceReportsAllCreditsWithdrawable(t *testing.T) {
	db, store, _, _, svc := newWithdrawFixture(t, false)
	account := newTestAccount(t, db, "erin", "1000")

	staking := NewStakingService(db, store)
	_, err := staking.OpenStake(context.Background(), account.ID, "quick", dec("200"))
	require.NoError(t, err)

	report, err := svc.Balance(context.Background(), account.ID)
	require.NoError(t, err)

	// Staked principal was already debited; it is informational, never
	// subtracted a second time.
	assert.True(t, report.TotalCredits.Equal(dec("800")))
	assert.True(t, report.ActiveStakePrincipal.Equal(dec("200")))
	assert.True(t, report.AvailableForWithdrawal.Equal(dec("800")))
}

func TestMarkSettledCompleted(t *testing.T) {
	db, store, _, _, svc := newWithdrawFixture(t, false)
	account := newTestAccount(t, db, "frank", "100")

	request, err := svc.RequestWithdrawal(context.Background(), account.ID, dec("40"), testDestination)
	require.NoError(t, err)

	require.NoError(t, svc.MarkSettled(context.Background(), request.ID, true, "0xabc123"))

	var got model.WithdrawalRequest
	require.NoError(t, db.First(&got, "id = ?", request.ID).Error)
	assert.Equal(t, model.WithdrawalCompleted, got.Status)
	assert.Equal(t, "0xabc123", got.ExternalTxRef)
	assert.NotNil(t, got.SettledAt)

	// Settlement never touches credits again.
	acc, err := store.Load(context.Background(), account.ID)
	require.NoError(t, err)
	assert.True(t, acc.Credits.Equal(dec("60")))
}

func TestMarkSettledFailedKeepsDebitAndAlerts(t *testing.T) {
	db, store, _, notify, svc := newWithdrawFixture(t, false)
	account := newTestAccount(t, db, "grace", "100")

	request, err := svc.RequestWithdrawal(context.Background(), account.ID, dec("40"), testDestination)
	require.NoError(t, err)

	require.NoError(t, svc.MarkSettled(context.Background(), request.ID, false, ""))

	var got model.WithdrawalRequest
	require.NoError(t, db.First(&got, "id = ?", request.ID).Error)
	assert.Equal(t, model.WithdrawalFailed, got.Status)

	// No automatic refund: the debit stands pending manual reconciliation.
	acc, err := store.Load(context.Background(), account.ID)
	require.NoError(t, err)
	assert.True(t, acc.Credits.Equal(dec("60")))
	assert.Equal(t, 1, notify.count())
}

func TestMarkSettledRejectsDoubleSettlement(t *testing.T) {
	db, _, _, _, svc := newWithdrawFixture(t, false)
	account := newTestAccount(t, db, "henry", "100")

	request, err := svc.RequestWithdrawal(context.Background(), account.ID, dec("40"), testDestination)
	require.NoError(t, err)

	require.NoError(t, svc.MarkSettled(context.Background(), request.ID, true, "0xabc"))
	err = svc.MarkSettled(context.Background(), request.ID, false, "")
	assert.ErrorIs(t, err, errno.ErrWithdrawalSettled)

	var got model.WithdrawalRequest
	require.NoError(t, db.First(&got, "id = ?", request.ID).Error)
	assert.Equal(t, model.WithdrawalCompleted, got.Status)
}

func TestMarkSettledUnknownRequest(t *testing.T) {
	_, _, _, _, svc := newWithdrawFixture(t, false)
	err := svc.MarkSettled(context.Background(), "no-such-id", true, "")
	assert.ErrorIs(t, err, errno.ErrWithdrawalNotFound)
}

func TestHistoryNewestFirst(t *testing.T) {
	db, _, _, _, svc := newWithdrawFixture(t, false)
	account := newTestAccount(t, db, "iris", "100")

	first, err := svc.RequestWithdrawal(context.Background(), account.ID, dec("10"), testDestination)
	require.NoError(t, err)
	second, err := svc.RequestWithdrawal(context.Background(), account.ID, dec("20"), testDestination)
	require.NoError(t, err)

	history, err := svc.History(context.Background(), account.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, second.ID, history[0].ID)
	assert.Equal(t, first.ID, history[1].ID)
}
