package service

import (
	"context"

	"gorm.io/gorm"

	"stake-ledger/internal/model"
)

// HistoryService reads the append-only credit entry feed of an account.
type HistoryService struct {
	db *gorm.DB
}

func NewHistoryService(db *gorm.DB) *HistoryService {
	return &HistoryService{db: db}
}

// Entries returns the account's credit entries, newest first. Entries are
// append-only, so id order is insertion order.
func (s *HistoryService) Entries(ctx context.Context, accountID uint64) ([]model.CreditEntry, error) {
	var entries []model.CreditEntry
	if err := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("id DESC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
