package bootstrap

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/cybersathi/internal/channels/whatsapp"
	"github.com/wolfman30/cybersathi/internal/complaints"
	appconfig "github.com/wolfman30/cybersathi/internal/config"
	"github.com/wolfman30/cybersathi/internal/events"
	"github.com/wolfman30/cybersathi/internal/intake"
	"github.com/wolfman30/cybersathi/internal/messagelog"
	"github.com/wolfman30/cybersathi/internal/nlu"
	"github.com/wolfman30/cybersathi/internal/notify"
	"github.com/wolfman30/cybersathi/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available; falling back", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// ConnectPostgres opens a pgx pool. An empty URL disables Postgres and
// returns nil without error.
func ConnectPostgres(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	databaseURL = strings.TrimSpace(databaseURL)
	if databaseURL == "" {
		return nil, nil
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pool, err := pgxpool.New(pingCtx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: open postgres pool: %w", err)
	}
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
	}
	return pool, nil
}

// SQLFromPool exposes a pgx pool through database/sql for the message log.
func SQLFromPool(pool *pgxpool.Pool) *sql.DB {
	if pool == nil {
		return nil
	}
	return stdlib.OpenDBFromPool(pool)
}

// BuildComplaintRepository prefers Postgres and falls back to memory.
func BuildComplaintRepository(pool *pgxpool.Pool, logger *logging.Logger) complaints.Repository {
	if pool != nil {
		return complaints.NewPostgresRepository(pool)
	}
	if logger == nil {
		logger = logging.Default()
	}
	logger.Warn("DATABASE_URL not set; complaints are kept in memory and lost on restart")
	return complaints.NewInMemoryRepository()
}

// BuildDeduper picks Redis, then the processed_messages table. Nil means
// webhook retries are not deduplicated.
func BuildDeduper(redisClient *redis.Client, pool *pgxpool.Pool, ttl time.Duration, logger *logging.Logger) whatsapp.Deduper {
	if logger == nil {
		logger = logging.Default()
	}
	switch {
	case redisClient != nil:
		logger.Info("webhook dedupe backed by redis", "ttl", ttl.String())
		return events.NewRedisStore(redisClient, ttl)
	case pool != nil:
		logger.Info("webhook dedupe backed by postgres")
		return events.NewProcessedStore(pool)
	default:
		logger.Warn("webhook dedupe disabled; retried deliveries will be reprocessed")
		return nil
	}
}

// BuildMessenger returns the Graph API client when credentials are present
// and a logging sender otherwise.
func BuildMessenger(cfg *appconfig.Config, logger *logging.Logger) (intake.Messenger, *whatsapp.Client) {
	if cfg == nil || !cfg.WhatsAppEnabled() {
		if logger == nil {
			logger = logging.Default()
		}
		logger.Warn("whatsapp credentials missing; replies will only be logged")
		return whatsapp.NewLogSender(logger), nil
	}
	client := whatsapp.NewClient(cfg.WhatsAppToken, cfg.WhatsAppPhoneID)
	if base := strings.TrimSpace(cfg.WhatsAppGraphBase); base != "" {
		client.SetGraphAPIBase(base)
	}
	return client, client
}

// BuildComplaintMailer wires SendGrid when configured, else a logging stub.
func BuildComplaintMailer(cfg *appconfig.Config, logger *logging.Logger) *notify.ComplaintMailer {
	var sender notify.EmailSender = notify.NewStubEmailSender(logger)
	deskEmail := ""
	if cfg != nil {
		deskEmail = cfg.CybercellDeskEmail
		if sg := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger); sg != nil {
			sender = sg
		}
	}
	return notify.NewComplaintMailer(sender, deskEmail, logger)
}

// BuildMessageLog returns the message store and recorder, or nils without a
// database.
func BuildMessageLog(db *sql.DB, logger *logging.Logger) (*messagelog.Store, *messagelog.Recorder) {
	if db == nil {
		return nil, nil
	}
	store := messagelog.NewStore(db)
	return store, messagelog.NewRecorder(store, nlu.NewAnalyzer(nil), logger)
}
