package service

import (
	"context"
	"encoding/json"
	"fmt"

	"survey-assistant-be/internal/entity"
	"survey-assistant-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const PreferenceChannel = "memory_preferences"

type preferenceEnvelope struct {
	Origin      string                 `json:"origin"`
	Preferences entity.UserPreferences `json:"preferences"`
}

// PreferenceSync keeps live sessions on every instance in line with the
// latest preferences. It satisfies memory.PreferenceBroadcaster.
type PreferenceSync struct {
	rdb     *redis.Client
	channel string
	origin  string
	logger  logger.ILogger
}

func NewPreferenceSync(rdb *redis.Client, logger logger.ILogger) *PreferenceSync {
	return &PreferenceSync{
		rdb:     rdb,
		channel: PreferenceChannel,
		origin:  uuid.NewString(),
		logger:  logger,
	}
}

func (p *PreferenceSync) BroadcastPreferences(ctx context.Context, prefs entity.UserPreferences) error {
	if p.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(preferenceEnvelope{Origin: p.origin, Preferences: prefs})
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, p.channel, payload).Err()
}

// Listen subscribes and applies updates published by other instances until
// ctx is done. It returns once the subscription is confirmed.
func (p *PreferenceSync) Listen(ctx context.Context, apply func(entity.UserPreferences) int) error {
	if p.rdb == nil {
		return nil
	}

	pubsub := p.rdb.Subscribe(ctx, p.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", p.channel, err)
	}

	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				p.handle(msg.Payload, apply)
			}
		}
	}()
	return nil
}

func (p *PreferenceSync) handle(payload string, apply func(entity.UserPreferences) int) {
	var env preferenceEnvelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		p.logger.Warn("PREFERENCES", "Dropping malformed preference update", map[string]interface{}{"error": err.Error()})
		return
	}
	if env.Origin == p.origin || env.Preferences.UserId == "" {
		return
	}

	n := apply(env.Preferences)
	p.logger.Debug("PREFERENCES", "Applied remote preference update", map[string]interface{}{
		"user_id":  env.Preferences.UserId,
		"sessions": n,
	})
}
