package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"survey-assistant-be/internal/pkg/logger"
	"survey-assistant-be/pkg/events"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// EventHandler is a function that processes an event.
type EventHandler func(ctx context.Context, event events.Event) error

// Subscriber handles listening for events from NATS.
type Subscriber struct {
	nc       *nats.Conn
	js       jetstream.JetStream
	logger   logger.ILogger
	contexts []jetstream.ConsumeContext
}

func NewSubscriber(url string, logger logger.ILogger) (*Subscriber, error) {
	nc, js, err := connect(url)
	if err != nil {
		return nil, err
	}
	return &Subscriber{nc: nc, js: js, logger: logger}, nil
}

// Subscribe registers a handler for one event code on a durable consumer.
// Messages that fail to decode are terminated; handler errors are nak'ed for redelivery.
func (s *Subscriber) Subscribe(ctx context.Context, eventType string, durableName string, handler EventHandler) error {
	subject := events.Subject(eventType)
	consumer, err := s.js.CreateOrUpdateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		Durable:       durableName,
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverNewPolicy,
		MaxDeliver:    5,
		// Consumers of instances that went away are removed by the server.
		InactiveThreshold: 24 * time.Hour,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		event, err := Decode(msg.Subject(), msg.Data())
		if err != nil {
			s.logger.Error("EVENTS", "Dropping undecodable event", map[string]interface{}{
				"subject": msg.Subject(),
				"error":   err.Error(),
			})
			_ = msg.Term()
			return
		}

		if err := handler(context.Background(), event); err != nil {
			s.logger.Warn("EVENTS", "Event handler failed, will retry", map[string]interface{}{
				"subject": msg.Subject(),
				"error":   err.Error(),
			})
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	s.contexts = append(s.contexts, cc)

	s.logger.Info("EVENTS", "Subscribed", map[string]interface{}{
		"subject": subject,
		"durable": durableName,
	})
	return nil
}

// Decode rebuilds an event from a subject and its JSON payload.
func Decode(subject string, data []byte) (events.Event, error) {
	var payload map[string]interface{}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event data: %w", err)
	}
	return events.BaseEvent{
		Type:       strings.TrimPrefix(subject, "memory."),
		Data:       payload,
		OccurredAt: time.Now(),
	}, nil
}

func (s *Subscriber) Close() {
	for _, cc := range s.contexts {
		cc.Stop()
	}
	if s.nc != nil {
		s.nc.Close()
	}
}
