package ledger

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"stake-ledger/internal/model"
	"stake-ledger/internal/testutil"
	"stake-ledger/pkg/errno"
)

func newTestDB(t *testing.T) *gorm.DB {
	return testutil.OpenDB(t)
}

func newAccount(t *testing.T, db *gorm.DB, credits string) *model.Account {
	t.Helper()
	account := &model.Account{
		Username:        "alice",
		Email:           "alice@example.com",
		PasswordHash:    "hashed",
		WalletAddress:   "0x1111111111111111111111111111111111111111",
		EncryptedSecret: []byte("sealed"),
		Credits:         decimal.RequireFromString(credits),
		IsActive:        true,
	}
	require.NoError(t, db.Create(account).Error)
	return account
}

func entrySum(t *testing.T, db *gorm.DB, accountID uint64) decimal.Decimal {
	t.Helper()
	var entries []model.CreditEntry
	require.NoError(t, db.Where("account_id = ?", accountID).Find(&entries).Error)
	sum := decimal.Zero
	for _, e := range entries {
		sum = sum.Add(e.Amount)
	}
	return sum
}

func TestUpdateAppliesAdjustmentsAndEntries(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	account := newAccount(t, db, "100")

	err := store.Update(context.Background(), account.ID, func(tx *Tx) error {
		tx.Adjust(model.EntryDeposit, decimal.RequireFromString("25"), "deposit")
		tx.Adjust(model.EntryWithdrawal, decimal.RequireFromString("-10"), "withdrawal")
		return nil
	})
	require.NoError(t, err)

	var got model.Account
	require.NoError(t, db.First(&got, account.ID).Error)
	assert.True(t, got.Credits.Equal(decimal.RequireFromString("115")), "credits = %s", got.Credits)
	assert.Equal(t, uint64(1), got.Version)

	// Reconciliation invariant: credits == sum of entries + opening balance.
	assert.True(t, entrySum(t, db, account.ID).Equal(decimal.RequireFromString("15")))

	var count int64
	require.NoError(t, db.Model(&model.CreditEntry{}).Where("account_id = ?", account.ID).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestUpdateRejectsNegativeBalance(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	account := newAccount(t, db, "50")

	err := store.Update(context.Background(), account.ID, func(tx *Tx) error {
		tx.Adjust(model.EntryWithdrawal, decimal.RequireFromString("-51"), "overdraw")
		return nil
	})
	assert.ErrorIs(t, err, errno.ErrInsufficientCredits)

	// Nothing persisted.
	var got model.Account
	require.NoError(t, db.First(&got, account.ID).Error)
	assert.True(t, got.Credits.Equal(decimal.RequireFromString("50")))
	assert.Equal(t, uint64(0), got.Version)

	var count int64
	require.NoError(t, db.Model(&model.CreditEntry{}).Where("account_id = ?", account.ID).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestUpdateRejectsIntermediateNegative(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	account := newAccount(t, db, "10")

	// Final balance would be positive, but the sequence dips below zero.
	err := store.Update(context.Background(), account.ID, func(tx *Tx) error {
		tx.Adjust(model.EntryWithdrawal, decimal.RequireFromString("-20"), "debit")
		tx.Adjust(model.EntryDeposit, decimal.RequireFromString("30"), "credit")
		return nil
	})
	assert.ErrorIs(t, err, errno.ErrInsufficientCredits)
}

func TestUpdateAccountNotFound(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)

	err := store.Update(context.Background(), 999, func(tx *Tx) error { return nil })
	assert.ErrorIs(t, err, errno.ErrAccountNotFound)
}

func TestUpdateRetriesOnVersionConflict(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	account := newAccount(t, db, "100")

	attempts := 0
	err := store.Update(context.Background(), account.ID, func(tx *Tx) error {
		attempts++
		if attempts == 1 {
			// Simulate a concurrent writer landing between our load and
			// commit by bumping the version out from under this attempt.
			require.NoError(t, tx.DB().Model(&model.Account{}).
				Where("id = ?", account.ID).
				Update("version", gorm.Expr("version + 1")).Error)
		}
		tx.Adjust(model.EntryDeposit, decimal.RequireFromString("5"), "deposit")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)

	var got model.Account
	require.NoError(t, db.First(&got, account.ID).Error)
	assert.True(t, got.Credits.Equal(decimal.RequireFromString("105")))

	// The losing attempt's entry must not survive.
	var count int64
	require.NoError(t, db.Model(&model.CreditEntry{}).Where("account_id = ?", account.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestUpdateGivesUpAfterMaxRetries(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	account := newAccount(t, db, "100")

	err := store.Update(context.Background(), account.ID, func(tx *Tx) error {
		require.NoError(t, tx.DB().Model(&model.Account{}).
			Where("id = ?", account.ID).
			Update("version", gorm.Expr("version + 1")).Error)
		tx.Adjust(model.EntryDeposit, decimal.RequireFromString("5"), "deposit")
		return nil
	})
	assert.ErrorIs(t, err, errno.ErrConflict)
}

func TestStagedReflectsPendingAdjustments(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	account := newAccount(t, db, "100")

	err := store.Update(context.Background(), account.ID, func(tx *Tx) error {
		tx.Adjust(model.EntryStake, decimal.RequireFromString("-60"), "stake")
		assert.True(t, tx.Staged().Equal(decimal.RequireFromString("40")))
		tx.Adjust(model.EntryReward, decimal.RequireFromString("1.5"), "reward")
		assert.True(t, tx.Staged().Equal(decimal.RequireFromString("41.5")))
		return nil
	})
	require.NoError(t, err)
}

func TestDecimalPrecisionSurvivesStorage(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	account := newAccount(t, db, "950")

	// 50/7 at 18-digit scale needs more precision than float64 carries; it
	// must come back from the database bit-for-bit.
	seventh := decimal.NewFromInt(50).DivRound(decimal.NewFromInt(7), 18)
	require.NoError(t, store.Adjust(context.Background(), account.ID, model.EntryReward, seventh, "reward"))

	expected := decimal.RequireFromString("950").Add(seventh)
	got, err := store.Load(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, expected.String(), got.Credits.String())

	// An update staging no adjustments rewrites credits unchanged; any drift
	// here would break the credits == SUM(entries) invariant.
	require.NoError(t, store.Update(context.Background(), account.ID, func(tx *Tx) error { return nil }))

	got, err = store.Load(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, expected.String(), got.Credits.String())
	assert.True(t, entrySum(t, db, account.ID).Equal(seventh))
}

func TestAdjustConvenience(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	account := newAccount(t, db, "0")

	err := store.Adjust(context.Background(), account.ID, model.EntryAdminAdjustment,
		decimal.RequireFromString("12.34"), "manual correction")
	require.NoError(t, err)

	got, err := store.Load(context.Background(), account.ID)
	require.NoError(t, err)
	assert.True(t, got.Credits.Equal(decimal.RequireFromString("12.34")))
}
