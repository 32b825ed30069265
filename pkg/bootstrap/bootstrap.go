// Package bootstrap opens the backends a service needs according to config.
package bootstrap

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/mahaj/carechat/pkg/config"
	"github.com/mahaj/carechat/pkg/db"
	"github.com/mahaj/carechat/pkg/errs"
	"github.com/mahaj/carechat/pkg/push"
	"github.com/mahaj/carechat/pkg/store"
)

const (
	BackendScylla    = "scylla"
	BackendMongo     = "mongo"
	BackendFirestore = "firestore"
	BackendRedis     = "redis"
)

// Needs selects which backends Open connects.
type Needs struct {
	Rooms    bool
	Tokens   bool
	Messages bool
	Statuses bool
	Push     bool
}

type Backends struct {
	Rooms    store.RoomStore
	Tokens   store.TokenStore
	Messages store.MessageStore
	Statuses store.StatusStore
	Sender   push.Sender
}

type CleanupFn func(context.Context)

type opener struct {
	cfg      *config.Config
	log      *zap.Logger
	scylla   *db.Session
	mongo    *mongo.Client
	redis    *redis.Client
	firebase *firebase.App
	fs       *firestore.Client
	closers  []func(context.Context)
}

// Open connects what needs asks for. On error everything opened so far is
// closed again.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger, needs Needs) (*Backends, CleanupFn, error) {
	o := &opener{cfg: cfg, log: log}
	b, err := o.open(ctx, needs)
	if err != nil {
		o.cleanup(ctx)
		return nil, nil, err
	}
	return b, o.cleanup, nil
}

func (o *opener) open(ctx context.Context, needs Needs) (*Backends, error) {
	var b Backends
	var err error

	if needs.Rooms {
		if b.Rooms, err = o.rooms(ctx); err != nil {
			return nil, err
		}
	}
	if needs.Messages {
		// Messages live next to their rooms, except that the Mongo room store
		// keeps history in Scylla.
		if o.cfg.Store.Rooms == BackendFirestore {
			fs, err := o.firestore(ctx)
			if err != nil {
				return nil, err
			}
			b.Messages = store.NewFirestore(fs)
		} else {
			session, err := o.scyllaSession()
			if err != nil {
				return nil, err
			}
			b.Messages = store.NewScyllaMessages(session)
		}
	}
	if needs.Tokens {
		if b.Tokens, err = o.tokens(ctx); err != nil {
			return nil, err
		}
	}
	if needs.Statuses {
		rdb, err := o.redisClient(ctx)
		if err != nil {
			return nil, err
		}
		b.Statuses = store.NewRedis(rdb, o.cfg.Redis.Prefix)
	}
	if needs.Push {
		if b.Sender, err = o.sender(ctx); err != nil {
			return nil, err
		}
	}
	return &b, nil
}

func (o *opener) rooms(ctx context.Context) (store.RoomStore, error) {
	switch o.cfg.Store.Rooms {
	case BackendScylla:
		session, err := o.scyllaSession()
		if err != nil {
			return nil, err
		}
		return store.NewScyllaRooms(session), nil
	case BackendMongo:
		client, err := o.mongoClient(ctx)
		if err != nil {
			return nil, err
		}
		return store.NewMongoRooms(ctx, client, o.cfg.Mongo.Database)
	case BackendFirestore:
		fs, err := o.firestore(ctx)
		if err != nil {
			return nil, err
		}
		return store.NewFirestore(fs), nil
	}
	return nil, fmt.Errorf("unknown room store %q", o.cfg.Store.Rooms)
}

func (o *opener) tokens(ctx context.Context) (store.TokenStore, error) {
	switch o.cfg.Store.Tokens {
	case BackendRedis:
		rdb, err := o.redisClient(ctx)
		if err != nil {
			return nil, err
		}
		return store.NewRedis(rdb, o.cfg.Redis.Prefix), nil
	case BackendFirestore:
		fs, err := o.firestore(ctx)
		if err != nil {
			return nil, err
		}
		return store.NewFirestore(fs), nil
	}
	return nil, fmt.Errorf("unknown token store %q", o.cfg.Store.Tokens)
}

func (o *opener) sender(ctx context.Context) (push.Sender, error) {
	switch o.cfg.Push.Driver {
	case push.DriverFCM:
		app, err := o.firebaseApp(ctx)
		if err != nil {
			return nil, err
		}
		client, err := app.Messaging(ctx)
		if err != nil {
			return nil, fmt.Errorf("firebase messaging: %w", err)
		}
		return push.NewFCMSender(client, o.log), nil
	case push.DriverKafka:
		s := push.NewKafkaSender(o.cfg.Kafka.Brokers, o.cfg.Kafka.TopicPushOutbox)
		o.onClose(func(context.Context) {
			if err := s.Close(); err != nil {
				o.log.Error("push outbox close error", zap.Error(err))
			}
		})
		return s, nil
	case push.DriverLog:
		return push.NewLogSender(o.log), nil
	}
	return nil, fmt.Errorf("unknown push driver %q", o.cfg.Push.Driver)
}

func (o *opener) scyllaSession() (*db.Session, error) {
	if o.scylla != nil {
		return o.scylla, nil
	}
	session, err := db.NewSession(o.cfg.Scylla.Hosts, o.cfg.Scylla.Keyspace, o.log)
	if err != nil {
		return nil, fmt.Errorf("connect scylla: %w: %w", errs.ErrUnavailable, err)
	}
	o.scylla = session
	o.onClose(func(context.Context) { session.Close() })
	return session, nil
}

func (o *opener) mongoClient(ctx context.Context) (*mongo.Client, error) {
	if o.mongo != nil {
		return o.mongo, nil
	}
	client, err := db.NewMongoClient(ctx, o.cfg.Mongo.URI)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w: %w", errs.ErrUnavailable, err)
	}
	o.mongo = client
	o.onClose(func(ctx context.Context) {
		if err := client.Disconnect(ctx); err != nil {
			o.log.Error("mongo disconnect error", zap.Error(err))
		}
	})
	return client, nil
}

func (o *opener) redisClient(ctx context.Context) (*redis.Client, error) {
	if o.redis != nil {
		return o.redis, nil
	}
	rdb, err := db.NewRedis(ctx, o.cfg.Redis.Addr, o.cfg.Redis.Password, o.cfg.Redis.DB)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w: %w", errs.ErrUnavailable, err)
	}
	o.redis = rdb
	o.onClose(func(context.Context) {
		if err := rdb.Close(); err != nil {
			o.log.Error("redis close error", zap.Error(err))
		}
	})
	return rdb, nil
}

func (o *opener) firebaseApp(ctx context.Context) (*firebase.App, error) {
	if o.firebase != nil {
		return o.firebase, nil
	}
	app, err := db.NewFirebaseApp(ctx, o.cfg.Firebase.ProjectID, o.cfg.Firebase.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("init firebase: %w", err)
	}
	o.firebase = app
	return app, nil
}

func (o *opener) firestore(ctx context.Context) (*firestore.Client, error) {
	if o.fs != nil {
		return o.fs, nil
	}
	app, err := o.firebaseApp(ctx)
	if err != nil {
		return nil, err
	}
	fs, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	o.fs = fs
	o.onClose(func(context.Context) {
		if err := fs.Close(); err != nil {
			o.log.Error("firestore close error", zap.Error(err))
		}
	})
	return fs, nil
}

func (o *opener) onClose(fn func(context.Context)) {
	o.closers = append(o.closers, fn)
}

// cleanup closes in reverse order of opening.
func (o *opener) cleanup(ctx context.Context) {
	for i := len(o.closers) - 1; i >= 0; i-- {
		o.closers[i](ctx)
	}
	o.closers = nil
}
