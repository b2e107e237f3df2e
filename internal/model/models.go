package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// EntryKind enumerates every valid credit ledger entry kind.
type EntryKind string

const (
	EntryDeposit         EntryKind = "deposit"
	EntryReward          EntryKind = "reward"
	EntryReferral        EntryKind = "referral"
	EntryWithdrawal      EntryKind = "withdrawal"
	EntryStake           EntryKind = "stake"
	EntryAdminAdjustment EntryKind = "admin_adjustment"
)

// StakeStatus is a closed set. Completed is terminal.
type StakeStatus string

const (
	StakeActive    StakeStatus = "active"
	StakeCompleted StakeStatus = "completed"
)

// WithdrawalStatus is a closed set. Completed and Failed are terminal.
type WithdrawalStatus string

const (
	WithdrawalPending   WithdrawalStatus = "pending"
	WithdrawalCompleted WithdrawalStatus = "completed"
	WithdrawalFailed    WithdrawalStatus = "failed"
)

// Account holds the per-user credit balance and custody wallet.
// The Version column implements optimistic locking: every balance mutation is
// a compare-and-swap on (id, version), so concurrent settlement and user
// actions against the same account can never lose an update.
type Account struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string `gorm:"type:varchar(30);not null;unique" json:"username"`
	Email        string `gorm:"type:varchar(255);not null;unique" json:"email"`
	PasswordHash string `gorm:"type:varchar(255);not null" json:"-"`

	// Custody wallet. The secret is AES-GCM sealed and only decrypted for
	// the duration of a signing call.
	WalletAddress   string `gorm:"type:varchar(64);not null;unique" json:"wallet_address"`
	EncryptedSecret []byte `gorm:"type:bytea;not null" json:"-"`

	Credits decimal.Decimal `gorm:"type:decimal(32,18);not null;default:0" json:"credits"`
	Version uint64          `gorm:"not null;default:0" json:"-"`

	ReferralCode     *string         `gorm:"type:varchar(16);uniqueIndex" json:"referral_code,omitempty"`
	ReferredBy       *uint64         `gorm:"index" json:"referred_by,omitempty"`
	ReferralEarnings decimal.Decimal `gorm:"type:decimal(32,18);not null;default:0" json:"referral_earnings"`

	IsActive    bool `gorm:"not null;default:true" json:"is_active"`
	IsAdmin     bool `gorm:"not null;default:false" json:"is_admin"`
	KYCApproved bool `gorm:"not null;default:false" json:"kyc_approved"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Stakes      []Stake             `gorm:"foreignKey:AccountID" json:"stakes,omitempty"`
	Entries     []CreditEntry       `gorm:"foreignKey:AccountID" json:"entries,omitempty"`
	Withdrawals []WithdrawalRequest `gorm:"foreignKey:AccountID" json:"withdrawals,omitempty"`
}

// CreditEntry is the append-only history of an account's credits.
// Invariant: SUM(amount) over an account's entries equals Account.Credits.
type CreditEntry struct {
	ID        uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID uint64          `gorm:"not null;index" json:"account_id"`
	Kind      EntryKind       `gorm:"type:varchar(20);not null" json:"kind"`
	Amount    decimal.Decimal `gorm:"type:decimal(32,18);not null" json:"amount"`
	Reason    string          `gorm:"type:varchar(255)" json:"reason"`
	CreatedAt time.Time       `json:"created_at"`
}

// Stake is a fixed-term lock of principal. Reward terms are fixed at
// creation; settlement only advances DaysPaid and LastRewardAt.
type Stake struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID uint64 `gorm:"not null;index" json:"account_id"`
	PlanID    string `gorm:"type:varchar(20);not null" json:"plan_id"`
	PlanName  string `gorm:"type:varchar(50);not null" json:"plan_name"`

	Principal    decimal.Decimal `gorm:"type:decimal(32,18);not null" json:"principal"`
	TotalReward  decimal.Decimal `gorm:"type:decimal(32,18);not null" json:"total_reward"`
	DailyReward  decimal.Decimal `gorm:"type:decimal(32,18);not null" json:"daily_reward"`
	DurationDays int             `gorm:"not null" json:"duration_days"`
	DaysPaid     int             `gorm:"not null;default:0" json:"days_paid"`

	// LastRewardAt is the settlement watermark. It advances by whole
	// settlement periods, never jumps to wall-clock now.
	LastRewardAt time.Time   `gorm:"not null" json:"last_reward_at"`
	StartAt      time.Time   `gorm:"not null" json:"start_at"`
	EndAt        time.Time   `gorm:"not null" json:"end_at"`
	Status       StakeStatus `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WithdrawalRequest records a user withdrawal. The amount is debited from
// credits at request time; the terminal status is written later by the payout
// worker or an administrator and never re-debits.
type WithdrawalRequest struct {
	ID                 string           `gorm:"type:varchar(36);primaryKey" json:"id"`
	AccountID          uint64           `gorm:"not null;index" json:"account_id"`
	Amount             decimal.Decimal  `gorm:"type:decimal(32,18);not null" json:"amount"`
	DestinationAddress string           `gorm:"type:varchar(64);not null" json:"destination_address"`
	Status             WithdrawalStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	RequestedAt        time.Time        `gorm:"not null" json:"requested_at"`
	SettledAt          *time.Time       `json:"settled_at,omitempty"`
	ExternalTxRef      string           `gorm:"type:varchar(128)" json:"external_tx_ref,omitempty"`
}

func (Account) TableName() string           { return "accounts" }
func (CreditEntry) TableName() string       { return "credit_entries" }
func (Stake) TableName() string             { return "stakes" }
func (WithdrawalRequest) TableName() string { return "withdrawal_requests" }
