package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"ticketsale/internal/handler"
	"ticketsale/internal/ledger"
	"ticketsale/internal/middleware"
	"ticketsale/internal/notification"
	"ticketsale/internal/sale"
	"ticketsale/pkg/cache"
	"ticketsale/pkg/config"
	"ticketsale/pkg/logger"
	"ticketsale/pkg/validator"
)

const idempotencyTTL = 24 * time.Hour

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.NewWithWriter("ticketsale", os.Stdout, logger.ParseLevel(cfg.Log.Level))

	if err := cfg.ValidateCore(); err != nil {
		log.Fatal("Invalid configuration", map[string]interface{}{"error": err.Error()})
	}

	manager, err := managerIdentity(cfg.Sale.ManagerID)
	if err != nil {
		log.Fatal("Invalid manager identity", map[string]interface{}{"error": err.Error()})
	}

	redisClient, err := cache.Connect(context.Background(), cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis", map[string]interface{}{"error": err.Error()})
	}
	defer redisClient.Close()
	log.Info("Redis connected", nil)

	pubsub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, notification.NewWatermillLogger(log))
	defer pubsub.Close()

	saleService, err := sale.NewService(cfg.Sale, manager, ledger.NewService(), notification.NewEventPublisher(pubsub), log)
	if err != nil {
		log.Fatal("Failed to initialise ticket sale", map[string]interface{}{"error": err.Error()})
	}

	log.Info("Ticket sale initialised", map[string]interface{}{
		"tickets":            cfg.Sale.NumTickets,
		"unit_price":         cfg.Sale.UnitPrice.String(),
		"resale_fee_percent": cfg.Sale.ResaleFeePercent,
		"refund_mode":        cfg.Sale.Refund.Mode,
		"manager":            manager,
	})

	router := handler.NewRouter(handler.RouterDeps{
		Tickets:     handler.NewTicketHandler(saleService, validator.New(), log),
		Feed:        handler.NewFeedHandler(pubsub, log),
		Auth:        middleware.NewAuthMiddleware(cfg.JWT.Secret),
		Idempotency: middleware.NewIdempotencyMiddleware(redisClient, idempotencyTTL, log),
		RateLimit:   middleware.NewRateLimiter(redisClient, cfg.RateLimit.Requests, cfg.RateLimit.Window, log),
		Logger:      log,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	dispatcher := notification.NewDispatcher(notification.NewLogSender(log), log)
	g.Go(func() error {
		return dispatcher.Run(ctx, pubsub)
	})

	g.Go(func() error {
		log.Info("Ticket sale service started", map[string]interface{}{"address": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info("Shutting down ticket sale service...", nil)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal("Ticket sale service stopped with error", map[string]interface{}{"error": err.Error()})
	}
	log.Info("Ticket sale service stopped gracefully", nil)
}

// managerIdentity parses MANAGER_ID, generating an identity when unset.
func managerIdentity(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.New(), nil
	}
	return uuid.Parse(raw)
}
