package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	Env    string `mapstructure:"env"`
	NodeID int64  `mapstructure:"node_id"`
}

type HTTPConfig struct {
	FunctionsAddr       string `mapstructure:"functions_addr"`
	APIAddr             string `mapstructure:"api_addr"`
	GatewayAddr         string `mapstructure:"gateway_addr"`
	ShutdownTimeoutSecs int    `mapstructure:"shutdown_timeout_seconds"`
}

type KafkaConfig struct {
	Brokers             []string `mapstructure:"brokers"`
	TopicMessageCreated string   `mapstructure:"topic_message_created"`
	TopicStatusUpdated  string   `mapstructure:"topic_status_updated"`
	TopicPushOutbox     string   `mapstructure:"topic_push_outbox"`
	GroupID             string   `mapstructure:"group_id"`
}

type ScyllaConfig struct {
	Hosts    []string `mapstructure:"hosts"`
	Keyspace string   `mapstructure:"keyspace"`
}

type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type FirebaseConfig struct {
	ProjectID       string `mapstructure:"project_id"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

// StoreConfig picks the backend for each external store.
type StoreConfig struct {
	Rooms  string `mapstructure:"rooms"`
	Tokens string `mapstructure:"tokens"`
}

type PushConfig struct {
	Driver      string `mapstructure:"driver"`
	ClickAction string `mapstructure:"click_action"`
}

type JWTConfig struct {
	Secret   string `mapstructure:"secret"`
	TTLHours int    `mapstructure:"ttl_hours"`
}

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Scylla   ScyllaConfig   `mapstructure:"scylla"`
	Mongo    MongoConfig    `mapstructure:"mongo"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Firebase FirebaseConfig `mapstructure:"firebase"`
	Store    StoreConfig    `mapstructure:"store"`
	Push     PushConfig     `mapstructure:"push"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Log      struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`

	// derived
	ShutdownTimeout time.Duration
	TokenTTL        time.Duration
}

func (c *Config) Development() bool { return c.App.Env == "development" }

var defaults = map[string]any{
	"app.env":                       "production",
	"app.node_id":                   1,
	"http.functions_addr":           ":8082",
	"http.api_addr":                 ":8081",
	"http.gateway_addr":             ":8080",
	"http.shutdown_timeout_seconds": 15,
	"kafka.brokers":                 []string{"localhost:19092"},
	"kafka.topic_message_created":   "chat-room-messages.created",
	"kafka.topic_status_updated":    "user-status.updated",
	"kafka.topic_push_outbox":       "push-notifications",
	"kafka.group_id":                "chat-functions-group",
	"scylla.hosts":                  []string{"localhost:9042"},
	"scylla.keyspace":               "chat",
	"mongo.uri":                     "mongodb://localhost:27017",
	"mongo.database":                "chat",
	"redis.addr":                    "localhost:6379",
	"redis.password":                "",
	"redis.db":                      0,
	"redis.prefix":                  "chat",
	"firebase.project_id":           "",
	"firebase.credentials_file":     "",
	"store.rooms":                   "scylla",
	"store.tokens":                  "redis",
	"push.driver":                   "log",
	"push.click_action":             "FLUTTER_NOTIFICATION_CLICK",
	"jwt.secret":                    "",
	"jwt.ttl_hours":                 24,
	"log.level":                     "info",
}

// legacyEnv keeps the bare variable names the services were first deployed with.
var legacyEnv = map[string]string{
	"kafka.brokers": "KAFKA_BROKERS",
	"scylla.hosts":  "SCYLLA_HOSTS",
	"redis.addr":    "REDIS_ADDR",
	"jwt.secret":    "JWT_SECRET",
}

// Load reads the optional config file at path and applies CARECHAT_* env
// overrides on top of the built-in defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix("CARECHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		if err := v.BindEnv(key, "CARECHAT_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, err
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.HTTP.ShutdownTimeoutSecs <= 0 {
		cfg.HTTP.ShutdownTimeoutSecs = 15
	}
	if cfg.JWT.TTLHours <= 0 {
		cfg.JWT.TTLHours = 24
	}
	cfg.ShutdownTimeout = time.Duration(cfg.HTTP.ShutdownTimeoutSecs) * time.Second
	cfg.TokenTTL = time.Duration(cfg.JWT.TTLHours) * time.Hour
	return &cfg, nil
}
