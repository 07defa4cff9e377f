// Package bus carries domain events over an in-process watermill pub/sub.
//
// Payloads are JSON. Delivery is best effort: messages published while a
// topic has no subscriber are dropped.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/okian/kala/internal/domain/model"
	"github.com/okian/kala/pkg/logger"
	"github.com/okian/kala/pkg/metrics"
)

const (
	metaKey        = "key"
	metaOccurredAt = "occurred_at"

	defaultBuffer = 1024
)

// Bus implements model.Publisher.
type Bus struct {
	pubsub *gochannel.GoChannel
	logger logger.Logger
}

var _ model.Publisher = (*Bus)(nil)

// New creates a bus whose subscriber channels hold up to buffer messages.
func New(buffer int, log logger.Logger) *Bus {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	if log == nil {
		log = logger.Nop()
	}
	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer:            int64(buffer),
		Persistent:                     false,
		BlockPublishUntilSubscriberAck: false,
	}, watermill.NewSlogLogger(log.Slog()))
	return &Bus{pubsub: pubsub, logger: log}
}

// Publish encodes ev and publishes it on ev.Topic.
func (b *Bus) Publish(ctx context.Context, ev model.Event) error {
	msg, err := Encode(ev)
	if err != nil {
		metrics.RecordEventPublishError(ev.Topic)
		return err
	}
	msg.SetContext(ctx)
	if err := b.pubsub.Publish(ev.Topic, msg); err != nil {
		metrics.RecordEventPublishError(ev.Topic)
		return fmt.Errorf("publish %s: %w", ev.Topic, err)
	}
	metrics.RecordEventPublished(ev.Topic)
	return nil
}

// Subscribe returns the message stream for topic. It closes when ctx is done or the bus closes.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	ch, err := b.pubsub.Subscribe(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return ch, nil
}

// Close stops delivery and closes all subscriber channels.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}

// Encode turns an event into a watermill message.
func Encode(ev model.Event) (*message.Message, error) {
	payload, err := json.Marshal(ev.Data)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", ev.Topic, err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(metaKey, ev.Key)
	msg.Metadata.Set(metaOccurredAt, ev.OccurredAt.UTC().Format(time.RFC3339Nano))
	return msg, nil
}

// Decode rebuilds an event from a message received on topic.
// Data is left as raw JSON.
func Decode(topic string, msg *message.Message) (model.Event, error) {
	ev := model.Event{
		Topic: topic,
		Key:   msg.Metadata.Get(metaKey),
		Data:  json.RawMessage(msg.Payload),
	}
	if raw := msg.Metadata.Get(metaOccurredAt); raw != "" {
		at, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return model.Event{}, fmt.Errorf("decode %s occurred_at: %w", topic, err)
		}
		ev.OccurredAt = at
	}
	if !json.Valid(msg.Payload) {
		return model.Event{}, fmt.Errorf("decode %s: payload is not JSON", topic)
	}
	return ev, nil
}
