package main

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"stake-ledger/internal/handler"
	"stake-ledger/internal/ledger"
	"stake-ledger/internal/model"
	"stake-ledger/internal/notifier"
	"stake-ledger/internal/server"
	"stake-ledger/internal/service"
	"stake-ledger/internal/service/mq"
	"stake-ledger/internal/wallet"
	"stake-ledger/internal/worker"
	"stake-ledger/pkg/config"
	"stake-ledger/pkg/crypto_util"
	"stake-ledger/pkg/database"
	"stake-ledger/pkg/logger"
	"stake-ledger/pkg/monitor"
)

// sealSalt is the deployment-wide scrypt salt for the secret-sealing key.
// Changing it orphans every sealed wallet secret in the database.
var sealSalt = []byte("stake-ledger-seal-v1")

func main() {
	// 0. Config
	config.Init()

	// 1. Logger
	logger.Init(config.Global.App.Env)
	defer logger.Sync()

	// 2. Metrics registries
	monitor.Init()
	monitor.InitBusinessMetrics()

	// 3. Database
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		config.Global.DB.Host,
		config.Global.DB.User,
		config.Global.DB.Password,
		config.Global.DB.Name,
		config.Global.DB.Port,
	)
	db, err := database.ConnectPostgres(dsn)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}

	// 4. Redis
	rdb, err := database.ConnectRedis(config.Global.Redis.Addr, config.Global.Redis.Password, config.Global.Redis.DB)
	if err != nil {
		logger.Fatal("redis connection failed", zap.Error(err))
	}

	// 5. Schema. AutoMigrate in development only; production schemas are
	// managed with the migrate tool.
	if config.Global.App.Env == "development" {
		logger.Info("development env: running GORM AutoMigrate")
		if err := db.AutoMigrate(model.AllModels()...); err != nil {
			logger.Fatal("auto migration failed", zap.Error(err))
		}
	} else {
		logger.Info("production env: skipping AutoMigrate, use the migrate tool")
	}

	// 6. Secret-sealing key
	sealKey, err := crypto_util.DeriveKey([]byte(config.Global.Chain.SecretPassphrase), sealSalt)
	if err != nil {
		logger.Fatal("deriving the sealing key failed", zap.Error(err))
	}

	// 7. Chain client
	chainClient, err := wallet.NewEthClient(context.Background(), config.Global.Chain.RpcUrl, sealKey)
	if err != nil {
		logger.Fatal("chain rpc connection failed", zap.Error(err))
	}

	// 8. Task queue: client for enqueuing alerts, worker for delivering them.
	taskClient := worker.NewClient(config.Global.Redis.Addr, config.Global.Redis.Password, config.Global.Redis.DB)
	defer taskClient.Close()
	notify := notifier.NewQueueNotifier(taskClient)

	taskServer := worker.NewServer(config.Global.Redis.Addr, config.Global.Redis.Password, config.Global.Redis.DB, 10)
	taskServer.Start()
	defer taskServer.Stop()

	// 9. Message queue
	var producer mq.Producer
	var consumer mq.Consumer
	if config.Global.Redis.MQType == "kafka" {
		logger.Info("using Kafka as the message queue")
		producer = mq.NewKafkaProducer(config.Global.Kafka.Brokers, service.TopicWithdrawalRequested)
		consumer = mq.NewKafkaConsumer(config.Global.Kafka.Brokers, "ledger_payout_group")
	} else {
		logger.Info("using Redis Streams as the message queue")
		producer = mq.NewRedisProducer(rdb)
		consumer = mq.NewRedisConsumer(rdb, "ledger_payout", "payout-0")
	}
	defer consumer.Close()

	// 10. Services
	store := ledger.NewStore(db)

	referralRate, err := decimal.NewFromString(config.Global.Staking.ReferralRate)
	if err != nil {
		logger.Fatal("invalid staking.referral_rate", zap.Error(err))
	}
	minDeposit, err := decimal.NewFromString(config.Global.Sweep.MinDeposit)
	if err != nil {
		logger.Fatal("invalid sweep.min_deposit", zap.Error(err))
	}
	feeBuffer, err := decimal.NewFromString(config.Global.Sweep.FeeBuffer)
	if err != nil {
		logger.Fatal("invalid sweep.fee_buffer", zap.Error(err))
	}

	stakingService := service.NewStakingService(db, store)
	referralService := service.NewReferralService(db, store, referralRate)
	settlementService := service.NewSettlementService(db, store, referralService, notify, config.Global.Staking.SettlementPeriod)
	sweepService := service.NewSweepService(db, store, chainClient, notify,
		config.Global.Chain.CustodyAddress, sealKey, minDeposit, feeBuffer)
	withdrawService := service.NewWithdrawService(db, store, chainClient, producer, notify, config.Global.Withdraw.RequireKYC)
	historyService := service.NewHistoryService(db)
	adminService := service.NewAdminService(store)

	// 11. Withdrawal payout worker
	custodySecret, err := base64.StdEncoding.DecodeString(config.Global.Chain.CustodySecret)
	if err != nil {
		logger.Fatal("invalid chain.custody_secret, expected base64", zap.Error(err))
	}
	payoutWorker := service.NewPayoutWorker(withdrawService, chainClient, notify,
		config.Global.Chain.CustodyAddress, custodySecret, sealKey)
	go func() {
		if err := payoutWorker.Start(context.Background(), consumer); err != nil {
			logger.Error("payout worker stopped", zap.Error(err))
		}
	}()

	// 12. Cron: daily settlement and deposit sweeps
	cronService := service.NewCronService(rdb, settlementService, sweepService,
		config.Global.Staking.SettlementSpec, config.Global.Sweep.Spec)
	cronService.Start()
	defer cronService.Stop()

	// 13. HTTP
	router := server.NewHTTPRouter(server.Handlers{
		Health:   handler.NewHealthHandler(db, rdb),
		Staking:  handler.NewStakingHandler(stakingService),
		Withdraw: handler.NewWithdrawHandler(withdrawService),
		History:  handler.NewHistoryHandler(historyService),
		Referral: handler.NewReferralHandler(referralService),
		Admin:    handler.NewAdminHandler(adminService, settlementService, sweepService),
		Store:    store,
	})

	app := server.New(server.Config{HttpPort: config.Global.App.HttpPort}, router)
	app.Run()

	// 14. Cleanup
	logger.Info("closing database connections...")
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	rdb.Close()
	logger.Info("system exited")
}
