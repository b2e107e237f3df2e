// Package wallet defines the external value-transfer capability consumed by
// the ledger. The implementation owns nothing about credits; it only moves
// on-chain value and reports success or failure.
package wallet

import (
	"context"

	"github.com/shopspring/decimal"
)

// GeneratedAccount is a fresh custody wallet. The secret is already sealed;
// cleartext key material never leaves the generation call.
type GeneratedAccount struct {
	Address         string
	EncryptedSecret []byte
}

// TransferResult reports a confirmed transfer submission.
type TransferResult struct {
	TxRef string
}

// Client is the wallet capability interface.
type Client interface {
	// BalanceOf returns the spendable balance of an address in token units.
	BalanceOf(ctx context.Context, address string) (decimal.Decimal, error)

	// Transfer moves amount from the address controlled by the cleartext
	// secret to the destination. Callers decrypt the stored secret only for
	// the duration of this call.
	Transfer(ctx context.Context, from string, secret []byte, to string, amount decimal.Decimal) (*TransferResult, error)

	// IsValidAddress reports whether the address is well-formed.
	IsValidAddress(address string) bool

	// GenerateAccount creates a new wallet and returns its address with the
	// sealed secret.
	GenerateAccount(ctx context.Context) (*GeneratedAccount, error)
}
