// Package push delivers notification payloads to a device token.
package push

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mahaj/carechat/pkg/model"
)

// Sender makes a single best-effort delivery attempt.
type Sender interface {
	Send(ctx context.Context, token string, p model.PushPayload) error
}

const (
	DriverFCM   = "fcm"
	DriverKafka = "kafka"
	DriverLog   = "log"
)

// LogSender only records what would have been sent.
type LogSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{log: log.Named("push")}
}

func (s *LogSender) Send(_ context.Context, token string, p model.PushPayload) error {
	s.log.Info("push (dry run)",
		zap.String("token", redact(token)),
		zap.String("title", p.Notification.Title),
		zap.String("body", p.Notification.Body),
		zap.Any("data", p.DataMap()),
	)
	return nil
}

func redact(token string) string {
	if len(token) <= 8 {
		return "***"
	}
	return fmt.Sprintf("%s...%s", token[:4], token[len(token)-4:])
}
