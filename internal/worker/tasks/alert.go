package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"stake-ledger/pkg/logger"
)

const (
	TypeOperatorAlert = "operator:alert"
)

// OperatorAlertPayload carries a critical error to the on-call operator.
type OperatorAlertPayload struct {
	Subject string    `json:"subject"`
	Error   string    `json:"error"`
	Context string    `json:"context,omitempty"`
	At      time.Time `json:"at"`
}

// NewOperatorAlertTask builds an alert delivery task.
func NewOperatorAlertTask(subject, errMsg, contextMsg string) (*asynq.Task, error) {
	payload, err := json.Marshal(OperatorAlertPayload{
		Subject: subject,
		Error:   errMsg,
		Context: contextMsg,
		At:      time.Now(),
	})
	if err != nil {
		return nil, err
	}
	// Alerts are worth retrying; losing one hides a reconciliation case.
	return asynq.NewTask(TypeOperatorAlert, payload, asynq.MaxRetry(5), asynq.Timeout(5*time.Minute)), nil
}

// HandleOperatorAlertTask delivers the alert. Actual transport (email, pager)
// is owned by the deployment; this handler is the hand-off point and records
// the alert in the service log either way.
func HandleOperatorAlertTask(ctx context.Context, t *asynq.Task) error {
	var p OperatorAlertPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		// Malformed payload cannot succeed on retry; archive it instead.
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}

	logger.Error("OPERATOR ALERT",
		zap.String("subject", p.Subject),
		zap.String("error", p.Error),
		zap.String("context", p.Context),
		zap.Time("raised_at", p.At),
	)
	return nil
}
