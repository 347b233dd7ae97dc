package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ariefcatur/bracelet-orders/internal/config"
	"github.com/ariefcatur/bracelet-orders/internal/draft"
	"github.com/ariefcatur/bracelet-orders/internal/httpx"
	"github.com/ariefcatur/bracelet-orders/internal/imaging"
	kafkax "github.com/ariefcatur/bracelet-orders/internal/kafka"
	"github.com/ariefcatur/bracelet-orders/internal/ledger"
	"github.com/ariefcatur/bracelet-orders/internal/logger"
	"github.com/ariefcatur/bracelet-orders/internal/orders"
	"github.com/ariefcatur/bracelet-orders/internal/postgres"
	"github.com/ariefcatur/bracelet-orders/internal/redisx"
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
	if err := postgres.Migrate(cfg.PostgresDSN, log.Named("migrate")); err != nil {
		log.Fatal("db migrate", zap.Error(err))
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer
	prod := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderSubmitted, 1024, log)
	prod.Start(ctx)

	// ledger probe only; delivery runs in the relay
	gw := ledger.New(ledger.Config{
		Endpoint:     cfg.LedgerURL,
		Timeout:      cfg.LedgerTimeout,
		ImageQuality: cfg.ImageQuality,
		Location:     loc,
	}, imaging.NewJPEGCompressor(cfg.ImageMaxEdge), log)

	repo := &orders.Repo{DB: db}
	router := httpx.NewRouter(log)
	(&httpx.FormsHandler{
		Policies: cfg.Policies(),
		Coupon:   cfg.Coupon,
		Drafts:   draft.RedisFactory(rdb, cfg.DraftKey, cfg.DraftTTL, log),
		Records:  repo,
		Producer: prod,
		Redis:    rdb,
		Service:  cfg.ServiceName,
	}).Register(router)
	(&httpx.RecordsHandler{
		Records:   repo,
		Redis:     rdb,
		Ledger:    gw,
		PingLimit: rate.NewLimiter(rate.Every(cfg.PingInterval), 1),
	}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		log.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close()      // no more publishes; flush the queue
	prod.WaitClosed() // writer closed
}
