package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies CANDLEBOT_* environment variable overrides, and
// returns the final Config. The result has NOT been validated; call
// Config.Validate after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env if present; missing files are fine.
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides overwrites Config fields from well-known CANDLEBOT_*
// variables when set. This lets operators inject secrets at deploy time
// without touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Exchange.RestHost, "CANDLEBOT_EXCHANGE_REST_HOST")
	setStr(&cfg.Exchange.WsHost, "CANDLEBOT_EXCHANGE_WS_HOST")
	setStr(&cfg.Exchange.ApiKey, "CANDLEBOT_EXCHANGE_API_KEY")
	setStr(&cfg.Exchange.ApiSecret, "CANDLEBOT_EXCHANGE_API_SECRET")
	setStr(&cfg.Exchange.EncryptedSecretPath, "CANDLEBOT_EXCHANGE_ENCRYPTED_SECRET_PATH")
	setStr(&cfg.Exchange.SecretPassword, "CANDLEBOT_EXCHANGE_SECRET_PASSWORD")

	setStr(&cfg.Trading.Symbol, "CANDLEBOT_TRADING_SYMBOL")
	setStr(&cfg.Trading.Interval, "CANDLEBOT_TRADING_INTERVAL")
	setStr(&cfg.Trading.BaseAsset, "CANDLEBOT_TRADING_BASE_ASSET")
	setStr(&cfg.Trading.QuoteAsset, "CANDLEBOT_TRADING_QUOTE_ASSET")
	setStr(&cfg.Trading.QuoteUSDSymbol, "CANDLEBOT_TRADING_QUOTE_USD_SYMBOL")
	setFloat64(&cfg.Trading.Quantity, "CANDLEBOT_TRADING_QUANTITY")
	setFloat64(&cfg.Trading.StopLossThreshold, "CANDLEBOT_TRADING_STOP_LOSS_THRESHOLD")
	setBool(&cfg.Trading.TrailingStop, "CANDLEBOT_TRADING_TRAILING_STOP")
	setInt(&cfg.Trading.CooldownCandles, "CANDLEBOT_TRADING_COOLDOWN_CANDLES")
	setFloat64(&cfg.Trading.PaperBaseBalance, "CANDLEBOT_TRADING_PAPER_BASE_BALANCE")
	setFloat64(&cfg.Trading.PaperQuoteBalance, "CANDLEBOT_TRADING_PAPER_QUOTE_BALANCE")

	setStr(&cfg.Strategy.Name, "CANDLEBOT_STRATEGY_NAME")
	setInt(&cfg.Strategy.RSIPeriod, "CANDLEBOT_STRATEGY_RSI_PERIOD")
	setFloat64(&cfg.Strategy.Overbought, "CANDLEBOT_STRATEGY_OVERBOUGHT")
	setFloat64(&cfg.Strategy.Oversold, "CANDLEBOT_STRATEGY_OVERSOLD")
	setStr(&cfg.Strategy.ModelPath, "CANDLEBOT_STRATEGY_MODEL_PATH")
	setFloat64(&cfg.Strategy.BuyPercent, "CANDLEBOT_STRATEGY_BUY_PERCENT")
	setFloat64(&cfg.Strategy.SellPercent, "CANDLEBOT_STRATEGY_SELL_PERCENT")

	setBool(&cfg.Postgres.Enabled, "CANDLEBOT_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "CANDLEBOT_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "CANDLEBOT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "CANDLEBOT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "CANDLEBOT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "CANDLEBOT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "CANDLEBOT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "CANDLEBOT_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "CANDLEBOT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "CANDLEBOT_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "CANDLEBOT_POSTGRES_RUN_MIGRATIONS")

	setBool(&cfg.Redis.Enabled, "CANDLEBOT_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "CANDLEBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "CANDLEBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "CANDLEBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "CANDLEBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "CANDLEBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "CANDLEBOT_REDIS_TLS_ENABLED")
	setDuration(&cfg.Redis.SnapshotTTL, "CANDLEBOT_REDIS_SNAPSHOT_TTL")

	setStr(&cfg.S3.Endpoint, "CANDLEBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "CANDLEBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "CANDLEBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "CANDLEBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "CANDLEBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "CANDLEBOT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "CANDLEBOT_S3_FORCE_PATH_STYLE")

	setBool(&cfg.Archive.Enabled, "CANDLEBOT_ARCHIVE_ENABLED")
	setDuration(&cfg.Archive.Interval, "CANDLEBOT_ARCHIVE_INTERVAL")
	setInt(&cfg.Archive.RetentionDays, "CANDLEBOT_ARCHIVE_RETENTION_DAYS")

	setStr(&cfg.Notify.TelegramToken, "CANDLEBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "CANDLEBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "CANDLEBOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "CANDLEBOT_NOTIFY_EVENTS")

	setBool(&cfg.Metrics.Enabled, "CANDLEBOT_METRICS_ENABLED")
	setStr(&cfg.Metrics.Addr, "CANDLEBOT_METRICS_ADDR")

	setBool(&cfg.Audit.Enabled, "CANDLEBOT_AUDIT_ENABLED")
	setStr(&cfg.Audit.Dir, "CANDLEBOT_AUDIT_DIR")

	setStr(&cfg.Mode, "CANDLEBOT_MODE")
	setStr(&cfg.LogLevel, "CANDLEBOT_LOG_LEVEL")
}

// Typed env-var helpers. Each only mutates the target when the variable is
// present and non-empty.

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
