package db

import (
	"time"

	"github.com/gocql/gocql"
	"go.uber.org/zap"
)

// Session wraps the gocql session shared by the room and message stores.
type Session struct {
	*gocql.Session
}

// NewSession connects at QUORUM. Room presence batches rely on it so a
// read after a committed batch observes every room in it.
func NewSession(hosts []string, keyspace string, log *zap.Logger) (*Session, error) {
	cluster := gocql.NewCluster(hosts...)
	cluster.Keyspace = keyspace
	cluster.Consistency = gocql.Quorum
	cluster.SerialConsistency = gocql.LocalSerial
	cluster.Timeout = 5 * time.Second
	cluster.ConnectTimeout = 5 * time.Second
	cluster.PoolConfig.HostSelectionPolicy = gocql.TokenAwareHostPolicy(gocql.RoundRobinHostPolicy())
	cluster.RetryPolicy = &gocql.ExponentialBackoffRetryPolicy{
		NumRetries: 3,
		Min:        100 * time.Millisecond,
		Max:        time.Second,
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, err
	}

	log.Info("connected to scylla", zap.Strings("hosts", hosts), zap.String("keyspace", keyspace))
	return &Session{Session: session}, nil
}
