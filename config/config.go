package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"paybot/internal/db"
	"paybot/internal/models"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var ErrConfiguration = errors.New("invalid configuration")

type Config struct {
	Telegram struct {
		PaymentToken string
		SupportToken string

		// PaymentBotUsername is used to build handoff deep links; resolved from the API
		// when empty.
		PaymentBotUsername string
		PollTimeout        int
		Debug              bool
	}
	Reviewer struct {
		ID int64

		// Contact is the support handle shown to buyers.
		Contact string
	}
	Handoff struct {
		Secret string
	}
	Channels struct {
		VIP  int64
		Dark int64
	}
	Payment models.PaymentDetails
	Storage db.Config
	Server  struct {
		Port       string
		AdminToken string
	}
	Log struct {
		Level       string
		Development bool
	}
	Timezone          string
	ProofWindow       time.Duration
	BroadcastInterval time.Duration
	ShutdownTimeout   time.Duration
}

// Load reads config.{yaml,json} from the usual places, falling back to environment
// variables when no file is found.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.SetConfigType("json")

	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")
	v.AddConfigPath("$HOME/.paybot")

	setDefaults(v)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		return fromEnv(), nil
	}

	// Process any ${ENV_VAR} syntax in the config values
	for _, key := range v.AllKeys() {
		value := v.GetString(key)
		if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
			envVar := strings.TrimPrefix(strings.TrimSuffix(value, "}"), "${")
			if envValue := os.Getenv(envVar); envValue != "" {
				v.Set(key, envValue)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("Telegram.PollTimeout", 60)
	v.SetDefault("Reviewer.Contact", "@support_bot")
	v.SetDefault("Payment.UPIID", "store@upi")
	v.SetDefault("Payment.CryptoNetwork", "BEP20")
	v.SetDefault("Payment.RemitlyInfo", "Send via Remitly")
	v.SetDefault("Storage.Driver", db.DriverFile)
	v.SetDefault("Storage.DataDir", "/data")
	v.SetDefault("Storage.FileName", db.DefaultFileName)
	v.SetDefault("Storage.SnapshotName", "paybot")
	v.SetDefault("Storage.Postgres.MaxOpenConns", 5)
	v.SetDefault("Storage.Postgres.MaxIdleConns", 1)
	v.SetDefault("Storage.Postgres.ConnLifetime", 5*time.Minute)
	v.SetDefault("Server.Port", "8080")
	v.SetDefault("Log.Level", "info")
	v.SetDefault("Timezone", "Asia/Kolkata")
	v.SetDefault("ProofWindow", 30*time.Minute)
	v.SetDefault("BroadcastInterval", 50*time.Millisecond)
	v.SetDefault("ShutdownTimeout", 10*time.Second)
}

func fromEnv() *Config {
	cfg := &Config{}

	cfg.Telegram.PaymentToken = os.Getenv("PAYMENT_BOT_TOKEN")
	cfg.Telegram.SupportToken = os.Getenv("HELP_BOT_TOKEN")
	cfg.Telegram.PaymentBotUsername = strings.TrimPrefix(os.Getenv("PAYMENT_BOT_USERNAME"), "@")
	cfg.Telegram.PollTimeout = getEnvInt("TELEGRAM_POLL_TIMEOUT", 60)
	cfg.Telegram.Debug = os.Getenv("TELEGRAM_DEBUG") == "true"
	cfg.Reviewer.ID = getEnvInt64("ADMIN_CHAT_ID", 0)
	cfg.Reviewer.Contact = getEnvOr("HELP_BOT_USERNAME", "@support_bot")
	cfg.Handoff.Secret = os.Getenv("HANDOFF_SECRET")
	cfg.Channels.VIP = getEnvInt64("VIP_CHANNEL_ID", 0)
	cfg.Channels.Dark = getEnvInt64("DARK_CHANNEL_ID", 0)

	cfg.Payment.UPIID = getEnvOr("UPI_ID", "store@upi")
	cfg.Payment.UPIQRURL = os.Getenv("UPI_QR_URL")
	cfg.Payment.UPIGuideURL = os.Getenv("UPI_HOW_TO_PAY_LINK")
	cfg.Payment.CryptoAddress = os.Getenv("CRYPTO_ADDRESS")
	cfg.Payment.CryptoNetwork = getEnvOr("CRYPTO_NETWORK", "BEP20")
	cfg.Payment.RemitlyInfo = getEnvOr("REMITLY_INFO", "Send via Remitly")
	cfg.Payment.RemitlyGuideURL = os.Getenv("REMITLY_HOW_TO_PAY_LINK")

	cfg.Storage.Driver = getEnvOr("STORAGE_DRIVER", db.DriverFile)
	cfg.Storage.DataDir = getEnvOr("DATA_DIR", "/data")
	cfg.Storage.FileName = getEnvOr("SNAPSHOT_FILE", db.DefaultFileName)
	cfg.Storage.SnapshotName = getEnvOr("SNAPSHOT_NAME", "paybot")
	cfg.Storage.SQLite.Path = os.Getenv("SQLITE_PATH")
	cfg.Storage.Postgres.Host = getEnvOr("DB_HOST", "localhost")
	cfg.Storage.Postgres.Port = getEnvOr("DB_PORT", "5432")
	cfg.Storage.Postgres.User = getEnvOr("DB_USER", "postgres")
	cfg.Storage.Postgres.Password = getEnvOr("DB_PASSWORD", "postgres")
	cfg.Storage.Postgres.DBName = getEnvOr("DB_NAME", "paybot")
	cfg.Storage.Postgres.SSLMode = getEnvOr("DB_SSL_MODE", "disable")
	cfg.Storage.Postgres.MaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 5)
	cfg.Storage.Postgres.MaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 1)
	cfg.Storage.Postgres.ConnLifetime = getEnvDuration("DB_CONN_LIFETIME", 5*time.Minute)

	cfg.Server.Port = getEnvOr("SERVER_PORT", "8080")
	cfg.Server.AdminToken = os.Getenv("ADMIN_API_TOKEN")
	cfg.Log.Level = getEnvOr("LOG_LEVEL", "info")
	cfg.Log.Development = os.Getenv("LOG_DEVELOPMENT") == "true"

	cfg.Timezone = getEnvOr("TIMEZONE", "Asia/Kolkata")
	cfg.ProofWindow = getEnvDuration("PROOF_WINDOW", 30*time.Minute)
	cfg.BroadcastInterval = getEnvDuration("BROADCAST_INTERVAL", 50*time.Millisecond)
	cfg.ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	return cfg
}

// Validate checks the settings the service cannot start without.
func (c *Config) Validate() error {
	var problems []string
	if c.Telegram.PaymentToken == "" {
		problems = append(problems, "payment bot token is required")
	}
	if c.Telegram.SupportToken == "" {
		problems = append(problems, "support bot token is required")
	}
	if c.Reviewer.ID == 0 {
		problems = append(problems, "reviewer id is required")
	}
	if len(c.Handoff.Secret) < 16 {
		problems = append(problems, "handoff secret must be at least 16 characters")
	}
	switch c.Storage.Driver {
	case "", db.DriverFile, db.DriverPostgres, db.DriverSQLite:
	default:
		problems = append(problems, fmt.Sprintf("unknown storage driver %q", c.Storage.Driver))
	}
	if _, err := c.Location(); err != nil {
		problems = append(problems, err.Error())
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrConfiguration, strings.Join(problems, "; "))
	}
	return nil
}

// Location resolves the timezone used for deadlines and income reports.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// ChannelMap returns the configured channel per resource.
func (c *Config) ChannelMap() map[models.Resource]int64 {
	return map[models.Resource]int64{
		models.ResourceVIP:  c.Channels.VIP,
		models.ResourceDark: c.Channels.Dark,
	}
}

// Helper function to get environment variable with default value
func getEnvOr(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if n, err := strconv.ParseInt(os.Getenv(key), 10, 64); err == nil {
		return n
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return defaultValue
}
