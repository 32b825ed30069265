package trigger

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/mahaj/carechat/pkg/model"
)

// Publisher emits store-change events. Messages are keyed by room and status
// updates by user so each key stays ordered within its partition.
type Publisher struct {
	messages *kafka.Writer
	statuses *kafka.Writer
}

func NewPublisher(brokers []string, messageTopic, statusTopic string) *Publisher {
	return &Publisher{
		messages: newWriter(brokers, messageTopic),
		statuses: newWriter(brokers, statusTopic),
	}
}

// publishBatchTimeout caps how long a synchronous publish waits to be batched.
const publishBatchTimeout = 10 * time.Millisecond

func newWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: publishBatchTimeout,
	}
}

func (p *Publisher) PublishMessageCreated(ctx context.Context, ev model.MessageCreated) error {
	return write(ctx, p.messages, ev.RoomID, ev)
}

func (p *Publisher) PublishStatusUpdated(ctx context.Context, ev model.StatusUpdated) error {
	return write(ctx, p.statuses, ev.UserID, ev)
}

func (p *Publisher) Close() error {
	err := p.messages.Close()
	if serr := p.statuses.Close(); err == nil {
		err = serr
	}
	return err
}

func write(ctx context.Context, w *kafka.Writer, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: b,
		Time:  time.Now(),
	})
}
