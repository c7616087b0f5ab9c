package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"paybot/config"
	"paybot/internal/bot"
	"paybot/internal/catalog"
	"paybot/internal/db"
	"paybot/internal/ledger"
	"paybot/internal/models"
	"paybot/internal/server"
	"paybot/internal/workflow"
	"paybot/pkg/logger"

	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run both bots and the ops HTTP server",
		RunE:  runServe,
	}
}

func newLogger(cfg *config.Config) *logger.Logger {
	if cfg.Log.Development {
		return logger.NewDevelopment()
	}
	return logger.New(cfg.Log.Level)
}

// openStore connects to the snapshot backend, retrying while the database comes up.
func openStore(ctx context.Context, cfg db.Config, l *logger.Logger) (db.Store, error) {
	var (
		store db.Store
		err   error
	)
	maxRetries := 5
	for i := 0; i < maxRetries; i++ {
		store, err = db.Open(ctx, cfg)
		if err == nil {
			return store, nil
		}
		if errors.Is(err, db.ErrUnknownDriver) {
			return nil, err
		}
		l.Errorw("Failed to open storage, retrying...", "driver", cfg.Driver, "attempt", i+1, "error", err)
		time.Sleep(time.Duration(i+1) * time.Second)
	}
	return nil, err
}

// restore loads the last snapshot into a fresh ledger and catalog.
func restore(ctx context.Context, cfg *config.Config, store db.Store, l *logger.Logger) (*ledger.Ledger, *catalog.Catalog, error) {
	blob, err := store.Load(ctx)
	if err != nil {
		return nil, nil, err
	}

	led := ledger.New()
	restored, err := led.Restore(blob)
	if err != nil {
		l.Errorw("Stored snapshot is unreadable, starting empty", "error", err)
	}
	for _, s := range restored.Skipped {
		l.Warnw("Skipped snapshot entry", "entry", s)
	}

	cat := catalog.New(nil, cfg.ChannelMap(), cfg.Payment)
	if restored.Settings != nil {
		cat.Apply(*restored.Settings)
	}
	return led, cat, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	l := newLogger(cfg)
	defer l.Sync()
	l.Info("Starting payment bot...")

	if err := cfg.Validate(); err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	ctx := context.Background()
	store, err := openStore(ctx, cfg.Storage, l)
	if err != nil {
		return err
	}
	defer store.Close()

	led, cat, err := restore(ctx, cfg, store, l)
	if err != nil {
		return err
	}
	counts := led.Counts()
	l.Infow("State restored",
		"pending_payments", counts.PendingPayments,
		"pending_negotiations", counts.PendingNegotiations,
		"purchases", counts.Purchases,
		"buyers", counts.Buyers)

	paymentClient, err := bot.NewClient(cfg.Telegram.PaymentToken, cfg.Telegram.Debug, l.Named("payment"))
	if err != nil {
		return err
	}
	supportClient, err := bot.NewClient(cfg.Telegram.SupportToken, cfg.Telegram.Debug, l.Named("support"))
	if err != nil {
		return err
	}

	gw := bot.NewGateway(paymentClient, supportClient, cfg.Reviewer.ID, loc, cfg.Telegram.PaymentBotUsername, l)
	engine := workflow.New(cat, led, gw, gw, store, l, workflow.Options{
		ReviewerID:        models.BuyerID(cfg.Reviewer.ID),
		SupportContact:    cfg.Reviewer.Contact,
		HandoffSecret:     []byte(cfg.Handoff.Secret),
		Location:          loc,
		ProofWindow:       cfg.ProofWindow,
		BroadcastInterval: cfg.BroadcastInterval,
	})

	paymentBot := bot.NewPaymentBot(paymentClient, engine, loc, l)
	supportBot := bot.NewSupportBot(supportClient, engine, l)

	if err := paymentBot.Start(ctx, cfg.Telegram.PollTimeout); err != nil {
		return err
	}
	if err := supportBot.Start(ctx, cfg.Telegram.PollTimeout); err != nil {
		return err
	}
	l.Info("Telegram bots started successfully")

	httpServer := server.NewServer(cfg.Server.Port, engine, cfg.Server.AdminToken, l)
	go func() {
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatalw("Failed to start HTTP server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	l.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		l.Errorw("Error during HTTP server shutdown", "error", err)
	}
	if err := supportBot.Stop(shutdownCtx); err != nil {
		l.Errorw("Error during support bot shutdown", "error", err)
	}
	if err := paymentBot.Stop(shutdownCtx); err != nil {
		l.Errorw("Error during payment bot shutdown", "error", err)
	}

	l.Info("Stopped successfully")
	return nil
}
