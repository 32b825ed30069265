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
	"github.com/mahaj/carechat/pkg/db"
	"github.com/mahaj/carechat/pkg/logger"
	"github.com/mahaj/carechat/pkg/presence"
	"github.com/mahaj/carechat/pkg/snowflake"
	"github.com/mahaj/carechat/pkg/trigger"
)

func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization")

		if r.Method == http.MethodOptions {
			return
		}

		next.ServeHTTP(w, r)
	})
}

func main() {
	configPath := flag.String("config", "", "path to config file")
	migrate := flag.Bool("migrate", false, "create the scylla schema before serving")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr := logger.Must(logger.Config{Development: cfg.Development(), Level: cfg.Log.Level})
	defer func() { _ = logr.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *migrate {
		if err := db.EnsureSchema(cfg.Scylla.Hosts, cfg.Scylla.Keyspace, logr); err != nil {
			logr.Fatal("failed to migrate scylla", zap.Error(err))
		}
	}

	issuer, err := auth.NewIssuer(cfg.JWT.Secret, cfg.TokenTTL)
	if err != nil {
		logr.Fatal("invalid jwt config", zap.Error(err))
	}
	ids, err := snowflake.NewNode(cfg.App.NodeID)
	if err != nil {
		logr.Fatal("invalid node id", zap.Error(err))
	}

	backends, cleanup, err := bootstrap.Open(ctx, cfg, logr, bootstrap.Needs{Rooms: true, Messages: true, Tokens: true, Statuses: true})
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

	s := &server{
		rooms:    backends.Rooms,
		messages: backends.Messages,
		tokens:   backends.Tokens,
		statuses: backends.Statuses,
		presence: presence.NewWriter(backends.Statuses, events, logr),
		events:   events,
		ids:      ids,
		auth:     issuer,
		log:      logr.Named("api"),
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.APIAddr,
		Handler:           CORSMiddleware(s.routes()),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	logr.Info("api service starting", zap.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logr.Error("listen error", zap.Error(err))
	}
}
