package model

// AllModels returns every model subject to schema migration.
// New tables only need to be registered here.
func AllModels() []interface{} {
	return []interface{}{
		&Account{},
		&CreditEntry{},
		&Stake{},
		&WithdrawalRequest{},
	}
}
