package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ariefcatur/go-order-inventory/internal/config"
	kafkax "github.com/ariefcatur/go-order-inventory/internal/kafka"
	"github.com/ariefcatur/go-order-inventory/internal/orders"
	"github.com/ariefcatur/go-order-inventory/internal/postgres"
	"github.com/ariefcatur/go-order-inventory/internal/redisx"
	"github.com/ariefcatur/go-order-inventory/internal/stockwatch"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.ServiceName+"-stockwatch").Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &stockwatch.Service{
		Store:     orders.NewPGStore(db),
		Redis:     rdb,
		Threshold: cfg.LowStockThreshold,
		Name:      "stockwatch",
		Log:       log,
	}

	group := getenv("STOCKWATCH_GROUP", "stockwatch-svc")
	workers := atoiDefault(os.Getenv("STOCKWATCH_WORKERS"), 4)

	// one consumer per topic that can lower stock
	g, gctx := errgroup.WithContext(ctx)
	for _, topic := range []string{orders.TopicOrderCreated, orders.TopicOrderUpdated} {
		cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, topic, workers, log)
		log.Info().Str("topic", topic).Str("group", group).Int("workers", workers).Msg("consumer started")
		g.Go(func() error { return cons.Run(gctx, svc.HandleOrderEvent) })
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info().Msg("shutting down consumers...")
	cancel()
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("consumer exit")
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
