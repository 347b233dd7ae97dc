package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ariefcatur/bracelet-orders/internal/config"
	"github.com/ariefcatur/bracelet-orders/internal/imaging"
	kafkax "github.com/ariefcatur/bracelet-orders/internal/kafka"
	"github.com/ariefcatur/bracelet-orders/internal/ledger"
	"github.com/ariefcatur/bracelet-orders/internal/logger"
	"github.com/ariefcatur/bracelet-orders/internal/orders"
	"github.com/ariefcatur/bracelet-orders/internal/postgres"
	"github.com/ariefcatur/bracelet-orders/internal/redisx"
	"github.com/ariefcatur/bracelet-orders/internal/relay"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: cfg.LogOutput})
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()
	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}
	loc, _ := cfg.Location()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	prod := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderSynced, 1024, log)
	prod.Start(ctx)

	gw := ledger.New(ledger.Config{
		Endpoint:     cfg.LedgerURL,
		Timeout:      cfg.LedgerTimeout,
		ImageQuality: cfg.ImageQuality,
		Location:     loc,
	}, imaging.NewJPEGCompressor(cfg.ImageMaxEdge), log)

	svc := &relay.Service{
		Repo:        &orders.Repo{DB: db},
		Ledger:      gw,
		Redis:       rdb,
		Producer:    prod,
		ServiceName: cfg.ServiceName + "-relay",
		Logger:      log.Named("relay"),
	}

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.RelayGroup, orders.TopicOrderSubmitted, cfg.RelayWorkers, log)
	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Info("relay consumer started",
			zap.String("group", cfg.RelayGroup),
			zap.String("topic", orders.TopicOrderSubmitted),
			zap.Int("workers", cfg.RelayWorkers))
		if err := cons.Start(ctx, svc.HandleOrderSubmitted); err != nil {
			log.Error("consumer exit", zap.Error(err))
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Info("shutting down consumer")
	cancel()
	<-done // in-flight sends finish first
	prod.Close()
	prod.WaitClosed()
}
