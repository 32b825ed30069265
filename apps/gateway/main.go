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

	"github.com/mahaj/carechat/pkg/auth"
	"github.com/mahaj/carechat/pkg/bootstrap"
	"github.com/mahaj/carechat/pkg/config"
	"github.com/mahaj/carechat/pkg/logger"
	"github.com/mahaj/carechat/pkg/metrics"
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

	issuer, err := auth.NewIssuer(cfg.JWT.Secret, cfg.TokenTTL)
	if err != nil {
		logr.Fatal("invalid jwt config", zap.Error(err))
	}

	backends, cleanup, err := bootstrap.Open(ctx, cfg, logr, bootstrap.Needs{Statuses: true})
	if err != nil {
		logr.Fatal("failed to open backends", zap.Error(err))
	}
	defer func() {
		cctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		cleanup(cctx)
	}()

	events := trigger.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.TopicMessageCreated, cfg.Kafka.TopicStatusUpdated)
	defer events.Close()

	hub := NewHub(presence.NewWriter(backends.Statuses, events, logr), logr)
	hubDone := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(hubDone)
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveWs(hub, issuer, logr, w, r)
	})
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{Addr: cfg.HTTP.GatewayAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	logr.Info("gateway service starting", zap.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logr.Error("listen error", zap.Error(err))
		stop()
	}
	// Let the hub mark everyone offline before the stores close.
	<-hubDone
}
