package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"survey-assistant-be/internal/pkg/logger"
	"survey-assistant-be/pkg/memory"

	"github.com/ThreeDotsLabs/watermill/message"
)

type IPersistenceConsumer interface {
	Consume(ctx context.Context) error
	Failures() int64
}

type persistenceConsumer struct {
	subscriber message.Subscriber
	topicName  string
	store      memory.LongTermStore
	timeout    time.Duration
	logger     logger.ILogger
	tracker    *PersistenceTracker
	failures   atomic.Int64
}

func NewPersistenceConsumer(
	subscriber message.Subscriber,
	topicName string,
	store memory.LongTermStore,
	timeout time.Duration,
	tracker *PersistenceTracker,
	logger logger.ILogger,
) IPersistenceConsumer {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &persistenceConsumer{
		subscriber: subscriber,
		topicName:  topicName,
		store:      store,
		timeout:    timeout,
		logger:     logger,
		tracker:    tracker,
	}
}

// Consume subscribes until the bus itself is closed. Cancelling ctx does not
// end the subscription, so the final flush on shutdown still has a reader.
func (c *persistenceConsumer) Consume(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)
	messages, err := c.subscriber.Subscribe(ctx, c.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			c.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (c *persistenceConsumer) Failures() int64 {
	return c.failures.Load()
}

// processMessage always acks. A failed write is logged and dropped; the next
// flush of the same session or entry rewrites it.
func (c *persistenceConsumer) processMessage(ctx context.Context, msg *message.Message) {
	defer msg.Ack()
	if c.tracker != nil && msg.Metadata.Get(trackedKey) == "1" {
		defer c.tracker.done()
	}

	var job memory.PersistJob
	if err := json.Unmarshal(msg.Payload, &job); err != nil {
		c.failures.Add(1)
		c.logger.Error("PERSISTENCE", "Failed to unmarshal persistence job", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := memory.Dispatch(ctx, c.store, job); err != nil {
		c.failures.Add(1)
		level := c.logger.Error
		if errors.Is(err, memory.ErrIncompleteJob) {
			level = c.logger.Warn
		}
		level("PERSISTENCE", "Durable write failed", map[string]interface{}{
			"kind":       job.Kind,
			"session_id": job.SessionId,
			"user_id":    job.UserId,
			"error":      err.Error(),
		})
	}
}
