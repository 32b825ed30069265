package push

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/mahaj/carechat/pkg/model"
)

// OutboxRecord is what KafkaSender writes for a downstream delivery worker.
type OutboxRecord struct {
	Token   string            `json:"token"`
	Payload model.PushPayload `json:"payload"`
}

// KafkaSender hands payloads to a push outbox topic instead of calling a
// push service directly.
type KafkaSender struct {
	writer *kafka.Writer
}

func NewKafkaSender(brokers []string, topic string) *KafkaSender {
	return &KafkaSender{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	}}
}

func (s *KafkaSender) Send(ctx context.Context, token string, p model.PushPayload) error {
	b, err := json.Marshal(OutboxRecord{Token: token, Payload: p})
	if err != nil {
		return err
	}
	return s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(p.Data.ChatRoomID),
		Value: b,
		Time:  time.Now(),
	})
}

func (s *KafkaSender) Close() error { return s.writer.Close() }
