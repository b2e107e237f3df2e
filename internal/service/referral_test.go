package service

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stake-ledger/internal/model"
)

func TestReferralCodeGeneratedOnce(t *testing.T) {
	db := newTestDB(t)
	store := newStore(db)
	account := newTestAccount(t, db, "alice", "0")
	svc := NewReferralService(db, store, dec("0.1"))

	code, _, err := svc.Code(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[0-9A-F]{8}$`), code)

	// Second call returns the persisted code, not a fresh one.
	again, _, err := svc.Code(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, code, again)
}

func TestPayReferralNoReferrerIsNoop(t *testing.T) {
	db := newTestDB(t)
	store := newStore(db)
	account := newTestAccount(t, db, "bob", "0")
	svc := NewReferralService(db, store, dec("0.1"))

	svc.PayReferral(context.Background(), account.ID, dec("100"))

	var count int64
	require.NoError(t, db.Model(&model.CreditEntry{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestPayReferralCreditsReferrer(t *testing.T) {
	db := newTestDB(t)
	store := newStore(db)
	referrer := newTestAccount(t, db, "carol", "5")
	referred := newTestAccount(t, db, "dave", "0")
	require.NoError(t, db.Model(&model.Account{}).
		Where("id = ?", referred.ID).
		Update("referred_by", referrer.ID).Error)

	svc := NewReferralService(db, store, dec("0.1"))
	svc.PayReferral(context.Background(), referred.ID, dec("250"))

	got, err := store.Load(context.Background(), referrer.ID)
	require.NoError(t, err)
	assert.True(t, got.Credits.Equal(dec("30")), "credits = %s", got.Credits)
	assert.True(t, got.ReferralEarnings.Equal(dec("25")))
}

func TestReferralStats(t *testing.T) {
	db := newTestDB(t)
	store := newStore(db)
	referrer := newTestAccount(t, db, "erin", "0")
	first := newTestAccount(t, db, "frank", "0")
	second := newTestAccount(t, db, "grace", "0")
	for _, id := range []uint64{first.ID, second.ID} {
		require.NoError(t, db.Model(&model.Account{}).
			Where("id = ?", id).
			Update("referred_by", referrer.ID).Error)
	}

	svc := NewReferralService(db, store, dec("0.1"))
	svc.PayReferral(context.Background(), first.ID, dec("100"))

	stats, err := svc.Stats(context.Background(), referrer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalReferrals)
	assert.True(t, stats.TotalEarnings.Equal(dec("10")))
}
