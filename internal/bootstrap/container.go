package bootstrap

import (
	"context"
	"log"
	"time"

	"research-collab-be/internal/config"
	"research-collab-be/internal/controller"
	"research-collab-be/internal/handler"
	"research-collab-be/internal/pkg/logger"
	"research-collab-be/internal/repository/implementation"
	"research-collab-be/internal/repository/memory"
	"research-collab-be/internal/service"
	"research-collab-be/internal/websocket"
	"research-collab-be/pkg/collab"
	pktNats "research-collab-be/pkg/nats"
	"research-collab-be/pkg/research"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	CollabController controller.ICollabController

	// Background Services (Exposed for main.go to run)
	ActivityConsumer service.IActivityConsumerService

	// WebSockets
	CollabHandler *handler.CollabHandler
	WebSocketHub  *websocket.Hub
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
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

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/collab.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	// 3. Repositories
	sessionRepo := implementation.NewCollabSessionRepository(db)
	activityRepo := implementation.NewCollabActivityRepository(db)
	snapshots := memory.NewSnapshotCache()

	// 4. Lock backend: in-memory for single-process deployments, Redis
	// leases when running more than one instance.
	var locks *collab.LockTable
	if cfg.Collab.UseRedisLockBackend {
		lease := time.Duration(cfg.Collab.LockLeaseSeconds) * time.Second
		locks = collab.NewLockTable(collab.NewRedisLockBackend(rdb, lease))
		log.Printf("[INFO] Using Redis lock backend (lease %s)", lease)
	} else {
		locks = collab.NewLockTable(nil)
	}

	// 5. Services
	activityPublisher := service.NewActivityPublisherService(pubSub, natsPub, sysLogger)
	activityConsumer := service.NewActivityConsumerService(pubSub, service.ActivityTopic, activityRepo)

	researchProvider := research.NewHTTPProvider(cfg.Research.BaseURL, cfg.Research.APIKey)

	collabService := service.NewCollabService(service.CollabServiceDeps{
		Repo:             sessionRepo,
		Snapshots:        snapshots,
		Hub:              wsHub,
		Publisher:        activityPublisher,
		Policy:           service.AllowAllPolicy{},
		Resolver:         collab.NewResolver(collab.HeuristicScorer{}),
		Locks:            locks,
		Research:         researchProvider,
		Logger:           sysLogger,
		ActivityCap:      cfg.Collab.ActivityLogCap,
		MaxCollaborators: cfg.Collab.MaxCollaborators,
	})

	notifier := service.NewNotifierService(natsSub, wsHub, wsLogger)
	if natsSub != nil {
		go notifier.Start()
	}

	// 6. Handlers & Controllers
	collabHandler := handler.NewCollabHandler(collabService, wsHub, wsLogger)

	return &Container{
		CollabController: controller.NewCollabController(collabService),
		ActivityConsumer: activityConsumer,
		CollabHandler:    collabHandler,
		WebSocketHub:     wsHub,
	}
}
