package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	DB       DBConfig       `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Chain    ChainConfig    `mapstructure:"chain"`
	Staking  StakingConfig  `mapstructure:"staking"`
	Sweep    SweepConfig    `mapstructure:"sweep"`
	Withdraw WithdrawConfig `mapstructure:"withdraw"`
}

type AppConfig struct {
	Env      string `mapstructure:"env"`
	HttpPort string `mapstructure:"http_port"`
}

type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	MQType   string `mapstructure:"mq_type"` // "redis" or "kafka"
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
}

type ChainConfig struct {
	RpcUrl         string `mapstructure:"rpc_url"`
	CustodyAddress string `mapstructure:"custody_address"`
	// SecretPassphrase derives (scrypt) the AES key sealing per-account
	// wallet secrets. Required outside development; the process refuses to
	// start without it rather than run in a fund-losing mode.
	SecretPassphrase string `mapstructure:"secret_passphrase"`
	// CustodySecret is the custody wallet's signing key, hex encoded and
	// sealed with the same passphrase-derived key (base64 of the AES-GCM
	// ciphertext). The payout worker unseals it per transfer.
	CustodySecret string `mapstructure:"custody_secret"`
}

type StakingConfig struct {
	// SettlementPeriod is the unit of reward accrual. One day in
	// production; shortened in tests and local runs.
	SettlementPeriod time.Duration `mapstructure:"settlement_period"`
	SettlementSpec   string        `mapstructure:"settlement_spec"`
	ReferralRate     string        `mapstructure:"referral_rate"`
}

type SweepConfig struct {
	Spec       string `mapstructure:"spec"`
	MinDeposit string `mapstructure:"min_deposit"`
	FeeBuffer  string `mapstructure:"fee_buffer"`
}

type WithdrawConfig struct {
	RequireKYC bool `mapstructure:"require_kyc"`
}

var Global Config

func Init() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Printf("Warning: Config file not found, using defaults and environment variables")
		} else {
			log.Fatalf("Fatal error config file: %s \n", err)
		}
	}

	if err := viper.Unmarshal(&Global); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}

	// Fatal startup check: without the sealing passphrase no wallet secret
	// can be decrypted and sweeps/payouts would silently fail.
	if Global.Chain.SecretPassphrase == "" && Global.App.Env != "development" {
		log.Fatalf("chain.secret_passphrase is required outside development")
	}

	log.Printf("Configuration loaded successfully. Env: %s", Global.App.Env)
}

func setDefaults() {
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.http_port", "8080")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.user", "ledger_user")
	viper.SetDefault("db.password", "ledger_password")
	viper.SetDefault("db.name", "ledger_db")

	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.mq_type", "redis")

	viper.SetDefault("kafka.brokers", []string{"localhost:9092"})

	viper.SetDefault("chain.rpc_url", "http://localhost:8545")

	viper.SetDefault("staking.settlement_period", 24*time.Hour)
	viper.SetDefault("staking.settlement_spec", "0 0 * * *") // midnight daily
	viper.SetDefault("staking.referral_rate", "0.1")

	viper.SetDefault("sweep.spec", "@every 1m")
	viper.SetDefault("sweep.min_deposit", "1")
	viper.SetDefault("sweep.fee_buffer", "1.1")

	viper.SetDefault("withdraw.require_kyc", false)
}
