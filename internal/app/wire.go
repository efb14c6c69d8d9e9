package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/minutebar/candlebot/internal/audit"
	s3blob "github.com/minutebar/candlebot/internal/blob/s3"
	"github.com/minutebar/candlebot/internal/cache/redis"
	"github.com/minutebar/candlebot/internal/config"
	"github.com/minutebar/candlebot/internal/domain"
	"github.com/minutebar/candlebot/internal/notify"
	"github.com/minutebar/candlebot/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function. Optional subsystems that are disabled in config
// leave their fields nil; the modes treat nil as "skip".
type Dependencies struct {
	// Stores (nil unless postgres is enabled)
	Candles   domain.CandleStore
	Decisions domain.DecisionStore
	Orders    domain.OrderStore

	// Session snapshot cache (nil unless redis is enabled)
	Snapshots domain.SnapshotCache

	// Blob storage (nil unless archiving is enabled)
	BlobWriter domain.BlobWriter
	Archiver   *s3blob.Archiver

	// Audit trail (nil unless audit is enabled)
	AuditLog *audit.Log

	// Notifications (always set; empty sender list is a no-op)
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.Candles = postgres.NewCandleStore(pool)
		deps.Decisions = postgres.NewDecisionStore(pool)
		deps.Orders = postgres.NewOrderStore(pool)
	}

	// --- Redis snapshot cache ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.Snapshots = redis.NewSnapshotCache(redisClient, cfg.Redis.SnapshotTTL.Duration)
	}

	// --- S3 blob storage for archives ---
	if cfg.Archive.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}

		deps.BlobWriter = s3blob.NewWriter(s3Client)
		// Config validation guarantees postgres is enabled alongside archiving.
		deps.Archiver = s3blob.NewArchiver(deps.BlobWriter, deps.Candles, deps.Decisions, deps.Orders, logger)
	}

	// --- CSV audit trail ---
	if cfg.Audit.Enabled {
		if err := os.MkdirAll(cfg.Audit.Dir, 0o755); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: audit dir: %w", err)
		}
		auditLog, err := audit.NewLog(
			filepath.Join(cfg.Audit.Dir, "candles.csv"),
			filepath.Join(cfg.Audit.Dir, "orders.csv"),
			time.Now().UTC(),
		)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: audit log: %w", err)
		}
		closers = append(closers, func() { _ = auditLog.Close() })
		deps.AuditLog = auditLog
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
