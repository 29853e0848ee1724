package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/mindlyhq/mindly/internal/bot"
	"github.com/mindlyhq/mindly/internal/config"
	"github.com/mindlyhq/mindly/internal/dialogue"
	"github.com/mindlyhq/mindly/internal/logger"
	"github.com/mindlyhq/mindly/internal/notify"
	"github.com/mindlyhq/mindly/internal/risk"
	"github.com/mindlyhq/mindly/internal/session"
	"github.com/mindlyhq/mindly/internal/store"
	"github.com/mindlyhq/mindly/internal/whatsapp"
)

// processedRetention is how long provider message ids are remembered for dedup.
const processedRetention = 48 * time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zlog, err := logger.NewZapLogger(cfg.LogLevel, cfg.AppEnv)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	if err := run(cfg, zlog); err != nil {
		zlog.Error("mindly stopped with error", zap.Error(err))
		_ = zlog.Sync()
		os.Exit(1)
	}
	_ = zlog.Sync()
}

func run(cfg *config.Config, zlog *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer db.Close()

	var dedup store.Deduper = db
	if cfg.RedisAddr != "" {
		rdb, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer rdb.Close()
		dedup = store.NewRedisDeduper(rdb, processedRetention)
		zlog.Info("mindly using redis for message dedup", zap.String("addr", cfg.RedisAddr))
	}
	if p, ok := dedup.(store.Pruner); ok {
		go pruneProcessed(ctx, p, zlog)
	}

	gen, err := newGenerator(ctx, cfg)
	if err != nil {
		return fmt.Errorf("risk provider: %w", err)
	}
	responder := risk.NewService(gen, cfg.RiskTimeout, zlog.Named("risk"))

	waClient := whatsapp.NewClient(cfg.WAPhoneNumberID, cfg.WAAccessToken, cfg.WATimeout)

	notifier, closeNotifier, err := newNotifier(ctx, cfg, waClient, zlog)
	if err != nil {
		return fmt.Errorf("notifications: %w", err)
	}
	defer closeNotifier()

	engine := dialogue.NewEngine(db, db, responder, notifier, dialogue.Options{
		AutoActivateDoctors: cfg.DoctorAutoActivate,
		MaxListed:           cfg.MaxListedRequests,
	}, zlog.Named("dialogue"))

	botHandler := bot.NewHandler(session.NewManager(db, zlog.Named("session")), engine, waClient, dedup, zlog.Named("bot"))
	webhookHandler := whatsapp.NewWebhookHandler(cfg.WAVerifyToken, botHandler.HandleMessage, zlog.Named("whatsapp"))

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      newRouter(webhookHandler, cfg.WebhookRateLimit, zlog.Named("http")),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zlog.Info("mindly listening",
			zap.String("port", cfg.Port),
			zap.String("store", cfg.StoreDriver),
			zap.String("risk_provider", cfg.RiskProvider),
			zap.Bool("doctor_auto_activate", cfg.DoctorAutoActivate),
		)
		if os.Getenv("WA_VERIFY_TOKEN") == "" {
			zlog.Info("mindly generated webhook verify token", zap.String("token", cfg.WAVerifyToken))
		}
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}
	zlog.Info("mindly shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	zlog.Info("mindly stopped")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.StoreDriver == "mongo" {
		s, err := store.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	s, err := store.NewBoltStore(filepath.Join(cfg.DataDir, "mindly.db"))
	if err != nil {
		return nil, err
	}
	return s, nil
}

func newGenerator(ctx context.Context, cfg *config.Config) (risk.Generator, error) {
	if cfg.RiskProvider == "openai" {
		return risk.NewOpenAIGenerator(cfg.OpenAIAPIKey, cfg.OpenAIModel), nil
	}
	g, err := risk.NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// newNotifier sends student notifications through RabbitMQ when AMQP_URL is set, and
// straight through the WhatsApp client otherwise.
func newNotifier(ctx context.Context, cfg *config.Config, wa *whatsapp.Client, zlog *zap.Logger) (dialogue.Notifier, func(), error) {
	if cfg.AMQPURL == "" {
		return notify.NewDirect(wa, zlog.Named("notify")), func() {}, nil
	}

	conn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to rabbitmq: %w", err)
	}
	queue, pubCh, err := notify.NewQueue(conn, cfg.NotifyQueue, zlog.Named("notify"))
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	subCh, err := conn.Channel()
	if err != nil {
		pubCh.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("opening consumer channel: %w", err)
	}

	worker := notify.NewWorker(subCh, cfg.NotifyQueue, wa, cfg.WATimeout, zlog.Named("notify"))
	go func() {
		if err := worker.Run(ctx); err != nil {
			zlog.Error("notify worker stopped", zap.Error(err))
		}
	}()
	zlog.Info("mindly publishing notifications to rabbitmq", zap.String("queue", cfg.NotifyQueue))

	return queue, func() {
		subCh.Close()
		pubCh.Close()
		conn.Close()
	}, nil
}

// pruneProcessed trims dedup records on drivers without native expiry.
func pruneProcessed(ctx context.Context, p store.Pruner, zlog *zap.Logger) {
	ticker := time.NewTicker(30 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.PruneProcessed(ctx, processedRetention)
			if err != nil {
				zlog.Warn("mindly failed to prune processed messages", zap.Error(err))
				continue
			}
			if n > 0 {
				zlog.Debug("mindly pruned processed messages", zap.Int("count", n))
			}
		}
	}
}
