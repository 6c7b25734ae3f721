package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/ariefcatur/go-order-inventory/internal/config"
	"github.com/ariefcatur/go-order-inventory/internal/httpx"
	kafkax "github.com/ariefcatur/go-order-inventory/internal/kafka"
	"github.com/ariefcatur/go-order-inventory/internal/orders"
	"github.com/ariefcatur/go-order-inventory/internal/postgres"
	"github.com/ariefcatur/go-order-inventory/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.ServiceName).Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers, one per lifecycle topic
	pCreated := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 1024, log)
	pCreated.Start(ctx)
	pUpdated := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderUpdated, 1024, log)
	pUpdated.Start(ctx)
	pDeleted := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderDeleted, 1024, log)
	pDeleted.Start(ctx)

	// Services & handlers
	store := orders.NewPGStore(db)
	orderSvc := &orders.OrderService{Store: store, Log: log}
	productSvc := &orders.ProductService{Store: store, Log: log}

	router := httpx.NewRouter()
	(&httpx.OrdersHandler{
		Orders:     orderSvc,
		Redis:      rdb,
		PubCreated: pCreated,
		PubUpdated: pUpdated,
		PubDeleted: pDeleted,
		Service:    cfg.ServiceName,
		Log:        log,
	}).Register(router)
	(&httpx.ProductsHandler{Products: productSvc, Log: log}).Register(router)
	(&httpx.ItemsHandler{Orders: orderSvc, Redis: rdb, Log: log}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info().Msg("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)

	for _, p := range []*kafkax.Producer{pCreated, pUpdated, pDeleted} {
		p.Close() // close inbox -> flush & close writer
	}
	cancel()
	for _, p := range []*kafkax.Producer{pCreated, pUpdated, pDeleted} {
		p.WaitClosed()
	}
}
