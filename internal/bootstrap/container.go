package bootstrap

import (
	"context"
	"log"
	"os"
	"strings"

	"survey-assistant-be/internal/config"
	"survey-assistant-be/internal/controller"
	"survey-assistant-be/internal/pkg/logger"
	"survey-assistant-be/internal/repository/unitofwork"
	"survey-assistant-be/internal/service"
	"survey-assistant-be/pkg/embedding"
	"survey-assistant-be/pkg/embedding/jina"
	"survey-assistant-be/pkg/embedding/mock"
	"survey-assistant-be/pkg/memory"
	memEvents "survey-assistant-be/pkg/memory/events"
	pktNats "survey-assistant-be/pkg/nats"
	"survey-assistant-be/pkg/tokenizer"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	MemoryController controller.IMemoryController

	Manager *memory.Manager

	// Background services, started by Start
	PersistenceConsumer service.IPersistenceConsumer
	PreferenceSync      *service.PreferenceSync

	instanceID string
	logger     logger.ILogger
	natsPub    *pktNats.Publisher
	natsSub    *pktNats.Subscriber
	pubSub     *gochannel.GoChannel
	rdb        *redis.Client
	embedder   *embedding.GuardedProvider
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.New(cfg.App.LoggerOptions())
	nodeID := instanceID()

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 1024},
		watermillLogger,
	)

	// 3. Embeddings
	guarded, err := embedding.NewGuardedProvider(newEmbeddingProvider(cfg), cfg.Ai.ToGuardConfig())
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize embedding guard: %v", err)
	}

	estimator, err := tokenizer.New(cfg.Memory.TokenEstimator)
	if err != nil {
		log.Printf("[WARN] Token estimator %q unavailable, using character estimate: %v", cfg.Memory.TokenEstimator, err)
	}

	// 4. Infrastructure
	// NATS
	var bus memEvents.Bus
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	} else {
		bus = natsPub
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL, sysLogger)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	// 5. Memory
	persistLogger := logger.NewIsolatedLogger("logs/persistence.log")
	longTermStore := service.NewLongTermStore(uowFactory)
	persistTracker := service.NewPersistenceTracker()
	persistenceConsumer := service.NewPersistenceConsumer(
		pubSub,
		cfg.App.PersistTopic,
		longTermStore,
		cfg.Memory.StoreTimeout,
		persistTracker,
		persistLogger,
	)
	preferenceSync := service.NewPreferenceSync(rdb, sysLogger)
	eventPublisher := memEvents.NewNatsPublisher(bus, sysLogger)

	manager, err := memory.NewManager(
		cfg.Memory.ToManagerConfig(cfg.Ai.EmbeddingDims),
		guarded,
		memory.Options{
			Store:       longTermStore,
			Persister:   service.NewPersistencePublisher(cfg.App.PersistTopic, pubSub, persistTracker),
			Events:      eventPublisher,
			Broadcaster: preferenceSync,
			Estimator:   estimator,
		},
		sysLogger,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize memory manager: %v", err)
	}

	memoryService := service.NewMemoryService(manager, eventPublisher)

	return &Container{
		MemoryController:    controller.NewMemoryController(memoryService),
		Manager:             manager,
		PersistenceConsumer: persistenceConsumer,
		PreferenceSync:      preferenceSync,
		instanceID:          nodeID,
		logger:              sysLogger,
		natsPub:             natsPub,
		natsSub:             natsSub,
		pubSub:              pubSub,
		rdb:                 rdb,
		embedder:            guarded,
	}
}

// Start runs the background consumers, warms the cache and starts the
// maintenance loop.
func (c *Container) Start(ctx context.Context) error {
	if err := c.PersistenceConsumer.Consume(ctx); err != nil {
		return err
	}

	c.Manager.Warm(ctx)
	c.Manager.Start(ctx)

	if err := c.PreferenceSync.Listen(ctx, c.Manager.ApplyPreferences); err != nil {
		log.Printf("[WARN] Preference sync disabled: %v", err)
	}
	if c.natsSub != nil {
		if err := memEvents.SubscribeInvalidations(ctx, c.natsSub, c.instanceID, c.Manager, c.logger); err != nil {
			log.Printf("[WARN] Cache invalidation events disabled: %v", err)
		}
	}
	return nil
}

// Shutdown flushes live sessions, waits for the persistence bus to drain and
// only then closes every connection.
func (c *Container) Shutdown(ctx context.Context) error {
	err := c.Manager.Shutdown(ctx)
	if err != nil {
		log.Printf("[WARN] Memory flush did not finish: %v", err)
	}

	if c.natsSub != nil {
		c.natsSub.Close()
	}
	if c.natsPub != nil {
		c.natsPub.Close()
	}
	if c.pubSub != nil {
		_ = c.pubSub.Close()
	}
	if c.rdb != nil {
		_ = c.rdb.Close()
	}
	c.embedder.Close()
	return err
}

func newEmbeddingProvider(cfg *config.Config) embedding.EmbeddingProvider {
	switch cfg.Ai.EmbeddingProvider {
	case "ollama":
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaModel)
		return embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.OllamaModel)
	case "jina":
		log.Printf("[INFO] Using Embedding Provider: JINA AI")
		return jina.NewJinaProvider(cfg.Keys.Jina)
	case "mock":
		log.Printf("[INFO] Using Embedding Provider: MOCK (%d dims)", cfg.Ai.EmbeddingDims)
		return mock.New(cfg.Ai.EmbeddingDims)
	default:
		log.Printf("[INFO] Using Embedding Provider: GEMINI")
		return embedding.NewGeminiProvider(cfg.Keys.GoogleGemini, cfg.Ai.EmbeddingDims)
	}
}

// instanceID names this process's NATS consumer. Consumer names may not
// contain dots or wildcards.
func instanceID() string {
	suffix := uuid.NewString()[:8]
	host, err := os.Hostname()
	if err != nil || host == "" {
		return suffix
	}
	return strings.NewReplacer(".", "-", "*", "-", ">", "-", " ", "-").Replace(host) + "-" + suffix
}
