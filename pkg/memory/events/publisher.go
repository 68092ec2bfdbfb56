package events

import (
	"context"
	"time"

	"survey-assistant-be/internal/entity"
	"survey-assistant-be/internal/pkg/logger"
	pkgEvents "survey-assistant-be/pkg/events"
	"survey-assistant-be/pkg/memory/cache"
)

// Bus is the part of the NATS publisher the memory events need.
type Bus interface {
	Publish(ctx context.Context, event pkgEvents.Event) error
}

// NatsPublisher implements memory.EventPublisher on the NATS bus. Publishing
// happens on its own goroutine so eviction and session hooks never wait on I/O.
type NatsPublisher struct {
	bus     Bus
	logger  logger.ILogger
	timeout time.Duration
	now     func() time.Time
}

func NewNatsPublisher(bus Bus, logger logger.ILogger) *NatsPublisher {
	return &NatsPublisher{
		bus:     bus,
		logger:  logger,
		timeout: 5 * time.Second,
		now:     time.Now,
	}
}

// PublishCacheEvicted emits REASONING_CACHE_EVICTED
func (p *NatsPublisher) PublishCacheEvicted(ctx context.Context, report cache.EvictionReport) {
	p.publish(ctx, pkgEvents.BaseEvent{
		Type: pkgEvents.ReasoningCacheEvicted,
		Data: map[string]interface{}{
			"expired":    report.Expired,
			"lru":        report.LRU,
			"cache_size": report.Size,
		},
		OccurredAt: p.now(),
	})
}

// PublishSessionClosed emits REASONING_SESSION_CLOSED
func (p *NatsPublisher) PublishSessionClosed(ctx context.Context, summary entity.HistoricalSession) {
	p.publish(ctx, pkgEvents.BaseEvent{
		Type: pkgEvents.ReasoningSessionClosed,
		Data: map[string]interface{}{
			"session_id":          summary.Id,
			"user_id":             summary.UserId,
			"message_count":       summary.MessageCount,
			"total_tokens":        summary.TotalTokens,
			"total_cost":          summary.TotalCost,
			"dominant_complexity": string(summary.DominantComplexity),
			"entity_type":         "reasoning_session",
			"entity_id":           summary.Id,
		},
		OccurredAt: p.now(),
	})
}

// PublishInvalidate asks every instance to drop cached results tagged tag.
func (p *NatsPublisher) PublishInvalidate(ctx context.Context, tag string) {
	p.publish(ctx, pkgEvents.BaseEvent{
		Type:       pkgEvents.ReasoningCacheInvalidate,
		Data:       map[string]interface{}{"tag": tag},
		OccurredAt: p.now(),
	})
}

func (p *NatsPublisher) publish(ctx context.Context, evt pkgEvents.BaseEvent) {
	if p == nil || p.bus == nil {
		return
	}
	go func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		if err := p.bus.Publish(ctx, evt); err != nil {
			p.logger.Error("EVENTS", "Failed to publish "+evt.Type+" event", map[string]interface{}{"error": err.Error()})
		}
	}(context.WithoutCancel(ctx))
}
