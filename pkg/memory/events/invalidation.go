package events

import (
	"context"
	"fmt"

	"survey-assistant-be/internal/pkg/logger"
	pkgEvents "survey-assistant-be/pkg/events"
	pktNats "survey-assistant-be/pkg/nats"
)

type Subscriber interface {
	Subscribe(ctx context.Context, eventType string, durableName string, handler pktNats.EventHandler) error
}

type TagInvalidator interface {
	InvalidateTag(tag string) int
}

// InvalidationHandler turns REASONING_CACHE_INVALIDATE events into local
// cache invalidations.
func InvalidationHandler(target TagInvalidator, logger logger.ILogger) pktNats.EventHandler {
	return func(ctx context.Context, event pkgEvents.Event) error {
		tag, _ := event.Payload()["tag"].(string)
		if tag == "" {
			// Nothing to retry; acknowledge and move on.
			logger.Warn("EVENTS", "Invalidation event without tag", nil)
			return nil
		}
		removed := target.InvalidateTag(tag)
		logger.Info("EVENTS", "Cache invalidated by event", map[string]interface{}{
			"tag":     tag,
			"removed": removed,
		})
		return nil
	}
}

// SubscribeInvalidations registers the handler on a consumer owned by this
// instance, so every instance sees every invalidation.
func SubscribeInvalidations(ctx context.Context, sub Subscriber, instanceID string, target TagInvalidator, logger logger.ILogger) error {
	if sub == nil {
		return nil
	}
	durable := fmt.Sprintf("memory-invalidate-%s", instanceID)
	return sub.Subscribe(ctx, pkgEvents.ReasoningCacheInvalidate, durable, InvalidationHandler(target, logger))
}
