package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mahaj/carechat/pkg/bootstrap"
	"github.com/mahaj/carechat/pkg/config"
	"github.com/mahaj/carechat/pkg/logger"
	"github.com/mahaj/carechat/pkg/metrics"
	"github.com/mahaj/carechat/pkg/notify"
	"github.com/mahaj/carechat/pkg/presence"
	"github.com/mahaj/carechat/pkg/trigger"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr := logger.Must(logger.Config{Development: cfg.Development(), Level: cfg.Log.Level})
	defer func() { _ = logr.Sync() }()
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backends, cleanup, err := bootstrap.Open(ctx, cfg, logr, bootstrap.Needs{Rooms: true, Tokens: true, Push: true})
	if err != nil {
		logr.Fatal("failed to open backends", zap.Error(err))
	}
	defer func() {
		cctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		cleanup(cctx)
	}()

	fns := newFunctions(
		notify.NewDispatcher(backends.Rooms, backends.Tokens, backends.Sender, cfg.Push.ClickAction, logr),
		presence.NewPropagator(backends.Rooms, logr),
	)
	router := trigger.NewRouter(
		cfg.Kafka.TopicMessageCreated, fns.sendChatNotification,
		cfg.Kafka.TopicStatusUpdated, fns.updateOnlineStatus,
		logr,
	)
	consumer := trigger.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, router, logr)
	defer consumer.Close()

	srv := &http.Server{
		Addr:              cfg.HTTP.FunctionsAddr,
		Handler:           newMux(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logr.Info("functions http listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	logr.Info("starting trigger consumer", zap.Strings("topics", router.Topics()))
	if err := consumer.Consume(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logr.Error("consumer stopped", zap.Error(err))
	}

	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logr.Error("http shutdown error", zap.Error(err))
	}
}

func newMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}
