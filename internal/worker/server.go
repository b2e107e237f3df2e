package worker

import (
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"stake-ledger/internal/worker/tasks"
	"stake-ledger/pkg/logger"
)

// Server wraps the asynq worker that delivers operator alerts.
type Server struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

func NewServer(addr string, password string, db int, concurrency int) *Server {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     addr,
			Password: password,
			DB:       db,
		},
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			Logger: logger.NewAsynqLogger(),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeOperatorAlert, tasks.HandleOperatorAlertTask)

	return &Server{
		server: srv,
		mux:    mux,
	}
}

// Run starts the worker and blocks.
func (s *Server) Run() error {
	logger.Info("Worker Server starting...")
	return s.server.Run(s.mux)
}

// Start runs the worker in the background.
func (s *Server) Start() {
	go func() {
		if err := s.server.Run(s.mux); err != nil {
			logger.Fatal("Worker Server failed", zap.Error(err))
		}
	}()
}

// Stop shuts the worker down.
func (s *Server) Stop() {
	s.server.Stop()
	s.server.Shutdown()
}
