// Package notifier raises operator alerts. Alerts are fire-and-forget:
// nothing in this package ever returns an error into a caller, because a
// broken alert channel must not fail the mutation that triggered it.
package notifier

import (
	"go.uber.org/zap"

	"stake-ledger/internal/worker"
	"stake-ledger/internal/worker/tasks"
	"stake-ledger/pkg/logger"
	"stake-ledger/pkg/monitor"
)

// Notifier is the operator notification capability.
type Notifier interface {
	NotifyOperator(subject string, err error, context string)
}

// QueueNotifier enqueues alerts onto the task queue for out-of-band delivery.
type QueueNotifier struct {
	client *worker.Client
}

func NewQueueNotifier(client *worker.Client) *QueueNotifier {
	return &QueueNotifier{client: client}
}

func (n *QueueNotifier) NotifyOperator(subject string, err error, context string) {
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	if monitor.Business != nil {
		monitor.Business.OperatorAlertsTotal.WithLabelValues(subject).Inc()
	}

	task, taskErr := tasks.NewOperatorAlertTask(subject, errMsg, context)
	if taskErr == nil {
		_, taskErr = n.client.Enqueue(task)
	}
	if taskErr != nil {
		// The alert still lands in the log even when the queue is down.
		logger.Error("failed to enqueue operator alert",
			zap.String("subject", subject),
			zap.String("alert_error", errMsg),
			zap.String("context", context),
			zap.Error(taskErr),
		)
	}
}

// LogNotifier writes alerts straight to the service log. Used in development
// and tests where no task queue is running.
type LogNotifier struct{}

func (LogNotifier) NotifyOperator(subject string, err error, context string) {
	if monitor.Business != nil {
		monitor.Business.OperatorAlertsTotal.WithLabelValues(subject).Inc()
	}
	logger.Error("OPERATOR ALERT",
		zap.String("subject", subject),
		zap.Error(err),
		zap.String("context", context),
	)
}
