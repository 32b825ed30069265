package db

import (
	"fmt"

	"go.uber.org/zap"
)

var tables = []string{
	`CREATE TABLE IF NOT EXISTS chat_rooms (
		id text PRIMARY KEY,
		doctor_id text,
		patient_id text,
		doctor_name text,
		patient_name text,
		is_doctor_online boolean,
		is_patient_online boolean,
		doctor_last_seen timestamp,
		patient_last_seen timestamp
	)`,
	`CREATE INDEX IF NOT EXISTS chat_rooms_doctor_idx ON chat_rooms (doctor_id)`,
	`CREATE INDEX IF NOT EXISTS chat_rooms_patient_idx ON chat_rooms (patient_id)`,
	`CREATE TABLE IF NOT EXISTS messages (
		room_id text,
		id bigint,
		sender_id text,
		receiver_id text,
		type text,
		content text,
		caption text,
		timestamp timestamp,
		PRIMARY KEY (room_id, id)
	) WITH CLUSTERING ORDER BY (id DESC)`,
}

// EnsureSchema creates the keyspace and tables if they do not exist yet.
// Schema changes beyond that belong in scripts/migrate.
func EnsureSchema(hosts []string, keyspace string, log *zap.Logger) error {
	sys, err := NewSession(hosts, "system", log)
	if err != nil {
		return fmt.Errorf("connect system keyspace: %w", err)
	}
	err = sys.Query(`CREATE KEYSPACE IF NOT EXISTS ` + keyspace + ` WITH REPLICATION = { 'class' : 'SimpleStrategy', 'replication_factor' : 1 }`).Exec()
	sys.Close()
	if err != nil {
		return fmt.Errorf("create keyspace: %w", err)
	}

	session, err := NewSession(hosts, keyspace, log)
	if err != nil {
		return fmt.Errorf("connect %s keyspace: %w", keyspace, err)
	}
	defer session.Close()

	for _, stmt := range tables {
		if err := session.Query(stmt).Exec(); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	log.Info("scylla schema ready", zap.String("keyspace", keyspace))
	return nil
}
