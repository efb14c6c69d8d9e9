package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := writeConfig(t, `
mode = "monitor"

[trading]
symbol = "ETHBTC"
base_asset = "ETH"
quantity = 0.5

[strategy]
name = "rsi"
rsi_period = 21
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Trading.Symbol != "ETHBTC" || cfg.Trading.Quantity != 0.5 {
		t.Fatalf("file values not applied: %+v", cfg.Trading)
	}
	if cfg.Strategy.RSIPeriod != 21 {
		t.Fatalf("rsi_period = %d, want 21", cfg.Strategy.RSIPeriod)
	}
	// untouched sections keep their defaults
	if cfg.Exchange.RestHost != "https://api.binance.com" {
		t.Fatalf("default rest_host lost: %q", cfg.Exchange.RestHost)
	}
	if cfg.Trading.QuoteAsset != "BTC" {
		t.Fatalf("default quote_asset lost: %q", cfg.Trading.QuoteAsset)
	}
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	path := writeConfig(t, `
[trading]
symbol = "ETHBTC"
`)
	t.Setenv("CANDLEBOT_TRADING_SYMBOL", "BNBBTC")
	t.Setenv("CANDLEBOT_TRADING_QUANTITY", "1.5")
	t.Setenv("CANDLEBOT_TRADING_TRAILING_STOP", "false")
	t.Setenv("CANDLEBOT_REDIS_SNAPSHOT_TTL", "90m")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Trading.Symbol != "BNBBTC" {
		t.Fatalf("env symbol not applied: %q", cfg.Trading.Symbol)
	}
	if cfg.Trading.Quantity != 1.5 {
		t.Fatalf("env quantity not applied: %v", cfg.Trading.Quantity)
	}
	if cfg.Trading.TrailingStop {
		t.Fatalf("env bool override not applied")
	}
	if cfg.Redis.SnapshotTTL.Minutes() != 90 {
		t.Fatalf("env duration override not applied: %v", cfg.Redis.SnapshotTTL)
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestValidateRequiresCredentialsForTradeMode(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "trade"
	err := cfg.Validate()
	if err == nil {
		t.Fatalf("trade mode without credentials must fail validation")
	}
	if !strings.Contains(err.Error(), "api_key") {
		t.Fatalf("error does not mention api_key: %v", err)
	}

	cfg.Exchange.ApiKey = "k"
	cfg.Exchange.ApiSecret = "s"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("trade mode with credentials should validate: %v", err)
	}
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "bogus"
	cfg.Trading.Quantity = 0
	cfg.Trading.StopLossThreshold = 2
	cfg.Strategy.RSIPeriod = 1

	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation failure")
	}
	for _, want := range []string{"mode", "quantity", "stop_loss_threshold", "rsi_period"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error missing %q: %v", want, err)
		}
	}
}

func TestRedactedConfigMasksSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Exchange.ApiKey = "key"
	cfg.Exchange.ApiSecret = "secret"
	cfg.Redis.Password = "hunter2"
	cfg.Notify.TelegramToken = "tok"

	red := RedactedConfig(&cfg)
	if red.Exchange.ApiKey != "***" || red.Exchange.ApiSecret != "***" {
		t.Fatalf("exchange credentials not redacted: %+v", red.Exchange)
	}
	if red.Redis.Password != "***" || red.Notify.TelegramToken != "***" {
		t.Fatalf("secrets not redacted")
	}
	// original untouched
	if cfg.Exchange.ApiSecret != "secret" {
		t.Fatalf("redaction mutated the original config")
	}
	// empty secrets stay empty rather than becoming "***"
	if red.S3.SecretKey != "" {
		t.Fatalf("empty secret turned into placeholder")
	}
}
