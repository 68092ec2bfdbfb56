package service

import (
	"context"
	"encoding/json"

	"survey-assistant-be/pkg/memory"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// persistencePublisher hands persistence jobs to the in-process event bus.
// It satisfies memory.Persister and, with a tracker, memory.Drainer.
type persistencePublisher struct {
	topicName string
	publisher message.Publisher
	tracker   *PersistenceTracker
}

func NewPersistencePublisher(topicName string, publisher message.Publisher, tracker *PersistenceTracker) memory.Persister {
	return &persistencePublisher{
		topicName: topicName,
		publisher: publisher,
		tracker:   tracker,
	}
}

func (p *persistencePublisher) Enqueue(ctx context.Context, job memory.PersistJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("kind", string(job.Kind))
	if p.tracker == nil {
		return p.publisher.Publish(p.topicName, msg)
	}

	msg.Metadata.Set(trackedKey, "1")
	p.tracker.add()
	if err := p.publisher.Publish(p.topicName, msg); err != nil {
		p.tracker.done()
		return err
	}
	return nil
}

// Drain waits until the consumer has handled every job published so far.
func (p *persistencePublisher) Drain(ctx context.Context) error {
	if p.tracker == nil {
		return nil
	}
	return p.tracker.Wait(ctx)
}
