// Package config defines the bot's configuration and validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration. Fields are populated from a TOML file and
// then optionally overridden by CANDLEBOT_* environment variables.
type Config struct {
	Exchange Exchange `toml:"exchange"`
	Trading  Trading  `toml:"trading"`
	Strategy Strategy `toml:"strategy"`
	Postgres Postgres `toml:"postgres"`
	Redis    Redis    `toml:"redis"`
	S3       S3       `toml:"s3"`
	Archive  Archive  `toml:"archive"`
	Notify   Notify   `toml:"notify"`
	Metrics  Metrics  `toml:"metrics"`
	Audit    Audit    `toml:"audit"`
	Mode     string   `toml:"mode"`
	LogLevel string   `toml:"log_level"`
}

// Exchange holds exchange endpoints and API credentials. The secret can come
// in plaintext via ApiSecret or from an encrypted file via EncryptedSecretPath
// plus SecretPassword.
type Exchange struct {
	RestHost            string `toml:"rest_host"`
	WsHost              string `toml:"ws_host"`
	ApiKey              string `toml:"api_key"`
	ApiSecret           string `toml:"api_secret"`
	EncryptedSecretPath string `toml:"encrypted_secret_path"`
	SecretPassword      string `toml:"secret_password"`
}

// Trading holds the traded pair and position management parameters.
type Trading struct {
	Symbol     string `toml:"symbol"`
	Interval   string `toml:"interval"`
	BaseAsset  string `toml:"base_asset"`
	QuoteAsset string `toml:"quote_asset"`
	// QuoteUSDSymbol values the quote asset in USD for the audit trail,
	// e.g. "BTCUSDT". Empty treats the quote asset as USD-equivalent.
	QuoteUSDSymbol    string  `toml:"quote_usd_symbol"`
	Quantity          float64 `toml:"quantity"`
	StopLossThreshold float64 `toml:"stop_loss_threshold"`
	TrailingStop      bool    `toml:"trailing_stop"`
	CooldownCandles   int     `toml:"cooldown_candles"`
	// PaperBaseBalance and PaperQuoteBalance seed the simulated account in
	// paper mode. Trade mode ignores them.
	PaperBaseBalance  float64 `toml:"paper_base_balance"`
	PaperQuoteBalance float64 `toml:"paper_quote_balance"`
}

// Strategy selects the signal engine and its parameters.
type Strategy struct {
	Name       string  `toml:"name"`
	RSIPeriod  int     `toml:"rsi_period"`
	Overbought float64 `toml:"overbought"`
	Oversold   float64 `toml:"oversold"`
	// ModelPath points at the JSON forecast model used by the forecast
	// strategy; the RSI strategies ignore it.
	ModelPath   string  `toml:"model_path"`
	BuyPercent  float64 `toml:"buy_percent"`
	SellPercent float64 `toml:"sell_percent"`
}

// Postgres holds the primary store connection parameters.
type Postgres struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// Redis holds the snapshot cache connection parameters.
type Redis struct {
	Enabled     bool     `toml:"enabled"`
	Addr        string   `toml:"addr"`
	Password    string   `toml:"password"`
	DB          int      `toml:"db"`
	PoolSize    int      `toml:"pool_size"`
	MaxRetries  int      `toml:"max_retries"`
	TLSEnabled  bool     `toml:"tls_enabled"`
	SnapshotTTL duration `toml:"snapshot_ttl"`
}

// S3 holds the object store connection parameters for archives.
type S3 struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// Archive controls moving aged rows from Postgres into the object store.
type Archive struct {
	Enabled       bool     `toml:"enabled"`
	Interval      duration `toml:"interval"`
	RetentionDays int      `toml:"retention_days"`
}

// Notify holds notification channel credentials.
type Notify struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Metrics controls the Prometheus endpoint.
type Metrics struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
}

// Audit holds the CSV audit log locations.
type Audit struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

// duration wraps time.Duration so TOML can decode strings like "5m" or "30s".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with the values in config.example.toml.
func Defaults() Config {
	return Config{
		Exchange: Exchange{
			RestHost: "https://api.binance.com",
			WsHost:   "wss://stream.binance.com:9443",
		},
		Trading: Trading{
			Symbol:            "BNBBTC",
			Interval:          "1m",
			BaseAsset:         "BNB",
			QuoteAsset:        "BTC",
			QuoteUSDSymbol:    "BTCUSDT",
			Quantity:          0.2,
			StopLossThreshold: 0.0025,
			TrailingStop:      true,
			CooldownCandles:   2,
			PaperQuoteBalance: 1,
		},
		Strategy: Strategy{
			Name:        "rsi_breakout",
			RSIPeriod:   14,
			Overbought:  70,
			Oversold:    30,
			BuyPercent:  0.0015,
			SellPercent: 0.0015,
		},
		Postgres: Postgres{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "candlebot",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: Redis{
			Enabled:     false,
			Addr:        "localhost:6379",
			PoolSize:    10,
			MaxRetries:  3,
			SnapshotTTL: duration{24 * time.Hour},
		},
		S3: S3{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "candlebot-archive",
			ForcePathStyle: true,
		},
		Archive: Archive{
			Enabled:       false,
			Interval:      duration{6 * time.Hour},
			RetentionDays: 30,
		},
		Notify: Notify{
			Events: []string{"order_filled", "order_failed", "stop_loss"},
		},
		Metrics: Metrics{
			Enabled: true,
			Addr:    ":9100",
		},
		Audit: Audit{
			Enabled: true,
			Dir:     "data",
		},
		Mode:     "paper",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"trade":   true,
	"paper":   true,
	"monitor": true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks the config for invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: trade, paper, monitor)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Exchange.RestHost == "" {
		errs = append(errs, "exchange: rest_host must not be empty")
	}
	if c.Exchange.WsHost == "" {
		errs = append(errs, "exchange: ws_host must not be empty")
	}
	// Live trading needs credentials; paper and monitor modes do not.
	if strings.ToLower(c.Mode) == "trade" {
		if c.Exchange.ApiKey == "" {
			errs = append(errs, "exchange: api_key is required for mode trade")
		}
		if c.Exchange.ApiSecret == "" && c.Exchange.EncryptedSecretPath == "" {
			errs = append(errs, "exchange: either api_secret or encrypted_secret_path must be set for mode trade")
		}
		if c.Exchange.EncryptedSecretPath != "" && c.Exchange.SecretPassword == "" {
			errs = append(errs, "exchange: secret_password is required when encrypted_secret_path is set")
		}
	}

	if c.Trading.Symbol == "" {
		errs = append(errs, "trading: symbol must not be empty")
	}
	if c.Trading.BaseAsset == "" || c.Trading.QuoteAsset == "" {
		errs = append(errs, "trading: base_asset and quote_asset must not be empty")
	}
	if c.Trading.Quantity <= 0 {
		errs = append(errs, "trading: quantity must be > 0")
	}
	if c.Trading.StopLossThreshold <= 0 || c.Trading.StopLossThreshold >= 1 {
		errs = append(errs, fmt.Sprintf("trading: stop_loss_threshold must be in (0, 1), got %g", c.Trading.StopLossThreshold))
	}
	if c.Trading.CooldownCandles < 0 {
		errs = append(errs, "trading: cooldown_candles must be >= 0")
	}

	if c.Strategy.Name == "" {
		errs = append(errs, "strategy: name must not be empty")
	}
	if c.Strategy.RSIPeriod < 2 {
		errs = append(errs, fmt.Sprintf("strategy: rsi_period must be >= 2, got %d", c.Strategy.RSIPeriod))
	}
	if c.Strategy.Overbought <= c.Strategy.Oversold {
		errs = append(errs, "strategy: overbought must exceed oversold")
	}
	if c.Strategy.Name == "forecast" && c.Strategy.ModelPath == "" {
		errs = append(errs, "strategy: model_path is required for the forecast strategy")
	}

	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	if c.Archive.Enabled {
		if !c.Postgres.Enabled {
			errs = append(errs, "archive: requires postgres to be enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when archive is enabled")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty when archive is enabled")
		}
		if c.Archive.RetentionDays < 1 {
			errs = append(errs, "archive: retention_days must be >= 1")
		}
		if c.Archive.Interval.Duration <= 0 {
			errs = append(errs, "archive: interval must be positive")
		}
	}

	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		errs = append(errs, "metrics: addr must not be empty when enabled")
	}
	if c.Audit.Enabled && c.Audit.Dir == "" {
		errs = append(errs, "audit: dir must not be empty when enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
