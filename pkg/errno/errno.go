package errno

import "errors"

// Errno defines the error code logic
type Errno struct {
	Code    int
	Message string
}

func (e Errno) Error() string {
	return e.Message
}

// Decode tries to convert an error to Errno. Wrapped errnos decode to their
// code, so callers may annotate with fmt.Errorf("...: %w", err) freely.
func Decode(err error) (int, string) {
	if err == nil {
		return OK.Code, OK.Message
	}

	var typed Errno
	if errors.As(err, &typed) {
		return typed.Code, typed.Message
	}
	var ptr *Errno
	if errors.As(err, &ptr) {
		return ptr.Code, ptr.Message
	}
	return InternalServerError.Code, err.Error()
}

// IsValidation reports whether err belongs to the validation range.
// Validation errors are rejected synchronously with no state mutated.
func IsValidation(err error) bool {
	code, _ := Decode(err)
	return code >= 20000 && code < 30000
}

// Common Errors
var (
	OK                  = Errno{Code: 0, Message: "Success"}
	InternalServerError = Errno{Code: 10001, Message: "Internal server error"}
	ErrBind             = Errno{Code: 10002, Message: "Error occurred while binding the request body to the struct"}

	// ErrConflict signals a lost optimistic-lock race after bounded retries.
	ErrConflict = Errno{Code: 10005, Message: "Concurrent update conflict, please retry"}
	// ErrExternalCall signals a wallet query/transfer failure. Never retried
	// silently within the same run.
	ErrExternalCall = Errno{Code: 10006, Message: "External wallet call failed"}
)

// Validation Errors (20000+). No state is mutated when these are returned.
var (
	ErrAccountNotFound     = Errno{Code: 20101, Message: "Account not found"}
	ErrAccountInactive     = Errno{Code: 20102, Message: "Account is deactivated"}
	ErrUnknownPlan         = Errno{Code: 20201, Message: "Invalid staking plan"}
	ErrBelowPlanMinimum    = Errno{Code: 20202, Message: "Amount below plan minimum"}
	ErrInsufficientCredits = Errno{Code: 20203, Message: "Insufficient credits"}
	ErrInvalidAddress      = Errno{Code: 20301, Message: "Invalid destination address"}
	ErrAmountNotPositive   = Errno{Code: 20302, Message: "Amount must be greater than 0"}
	ErrKYCRequired         = Errno{Code: 20303, Message: "KYC approval required for withdrawal"}
	ErrWithdrawalNotFound  = Errno{Code: 20304, Message: "Withdrawal request not found"}
	ErrWithdrawalSettled   = Errno{Code: 20305, Message: "Withdrawal request already settled"}
	ErrReasonRequired      = Errno{Code: 20401, Message: "Adjustment reason is required"}
)
