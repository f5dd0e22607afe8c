package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/hongminglow/hometown-ledger/internal/accounts"
	"github.com/hongminglow/hometown-ledger/internal/admin"
	"github.com/hongminglow/hometown-ledger/internal/auth"
	"github.com/hongminglow/hometown-ledger/internal/config"
	"github.com/hongminglow/hometown-ledger/internal/ids"
	"github.com/hongminglow/hometown-ledger/internal/ledger"
	"github.com/hongminglow/hometown-ledger/internal/notify"
	"github.com/hongminglow/hometown-ledger/internal/server"
	"github.com/hongminglow/hometown-ledger/internal/storage"
	"github.com/hongminglow/hometown-ledger/internal/storage/memory"
	"github.com/hongminglow/hometown-ledger/internal/storage/postgres"
	"github.com/hongminglow/hometown-ledger/internal/support"
)

func main() {
	loadLocalEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx := context.Background()
	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("init storage: %v", err)
	}
	defer store.Close()

	notifier, closeNotifier := openNotifier(ctx, cfg)
	defer closeNotifier()

	hasher := auth.NewBcryptHasher()
	gen := ids.NewGenerator()
	accts := accounts.NewService(gen)
	adminSvc := admin.NewService(admin.Config{
		Store:           store,
		Accounts:        accts,
		Generator:       gen,
		Hasher:          hasher,
		Notifier:        notifier,
		DefaultCurrency: cfg.DefaultCurrency,
	})

	if cfg.BootstrapAdmin() {
		if _, _, err := adminSvc.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			log.Fatalf("bootstrap admin: %v", err)
		}
	}

	srv := server.New(cfg, server.Deps{
		Store:   store,
		Tokens:  auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL),
		Hasher:  hasher,
		Ledger:  ledger.NewEngine(store, accts, hasher, notifier),
		Support: support.NewService(store),
		Admin:   adminSvc,
	})

	go func() {
		log.Printf("hometown ledger listening on %s (storage=%s)", cfg.HTTPAddress(), cfg.StorageDriver)
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Printf("graceful shutdown error: %v", err)
	}
}

func openStore(ctx context.Context, cfg config.Config) (storage.Store, error) {
	if cfg.StorageDriver == config.DriverMemory {
		log.Println("using in-memory storage; data is lost on exit")
		return memory.NewStore(), nil
	}
	store, err := postgres.NewStore(ctx, cfg.DatabaseURL, cfg.StorageTimeout)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// openNotifier prefers the Redis stream and falls back to logging when Redis
// is not configured or unreachable at start.
func openNotifier(ctx context.Context, cfg config.Config) (notify.Notifier, func()) {
	fallback := notify.LogNotifier{From: cfg.MailFrom}
	if cfg.RedisAddr == "" {
		return fallback, func() {}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Printf("redis unavailable at %s, logging notifications instead: %v", cfg.RedisAddr, err)
		_ = client.Close()
		return fallback, func() {}
	}
	closeFn := func() {
		if err := client.Close(); err != nil {
			log.Printf("close redis: %v", err)
		}
	}
	return notify.NewStreamNotifier(client, cfg.NotifyStream, cfg.MailFrom), closeFn
}

func loadLocalEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found; relying on existing environment")
	}
}
