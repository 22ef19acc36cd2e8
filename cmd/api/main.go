package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/tamales-preorder/internal/config"
	"github.com/tamales-preorder/internal/infrastructure/dynamo"
	"github.com/tamales-preorder/internal/infrastructure/mail"
	"github.com/tamales-preorder/internal/infrastructure/postgres"
	"github.com/tamales-preorder/internal/infrastructure/resend"
	"github.com/tamales-preorder/internal/infrastructure/smtp"
	"github.com/tamales-preorder/internal/infrastructure/sns"
	transporthttp "github.com/tamales-preorder/internal/transport/http"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	deps, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer closeStore()

	deps.Mailer = newMailer(cfg)

	// SNS SMS sender (optional).
	if sender, err := sns.NewSender(cfg); err == nil {
		deps.SMSSender = sender
	} else {
		log.Printf("WARN: SNS sender not available: %v", err)
	}

	router := transporthttp.NewRouter(ctx, cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s, store=%s, mail=%s)", cfg.AppPort, cfg.AppEnv, cfg.StoreDriver, cfg.MailProvider)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}

// openStore wires the repositories for the configured backend.
func openStore(ctx context.Context, cfg *config.Config) (*transporthttp.Deps, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreDynamo:
		client, err := dynamo.NewClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		// Creates the tables if they don't exist.
		dynamo.Bootstrap(ctx, client, cfg.DynamoTables)
		t := cfg.DynamoTables
		return &transporthttp.Deps{
			UserRepo:      dynamo.NewUserRepo(client, t.Users),
			OrderRepo:     dynamo.NewOrderRepo(client, t.Orders, t.Inventory, t.Counters),
			InventoryRepo: dynamo.NewInventoryRepo(client, t.Inventory),
		}, func() {}, nil

	case config.StorePostgres:
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if cfg.MigrateOnStart {
			if err := postgres.Migrate(db); err != nil {
				db.Close()
				return nil, nil, err
			}
		}
		return &transporthttp.Deps{
			UserRepo:      postgres.NewUserRepo(db),
			OrderRepo:     postgres.NewOrderRepo(db),
			InventoryRepo: postgres.NewInventoryRepo(db),
		}, func() { db.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}

func newMailer(cfg *config.Config) mail.Sender {
	if cfg.MailProvider == config.MailSMTP {
		return smtp.NewMailer(cfg)
	}
	if cfg.ResendAPIKey == "" {
		log.Println("WARN: RESEND_API_KEY not set, email actions will fail")
	}
	return resend.NewSender(cfg)
}
