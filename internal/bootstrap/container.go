package bootstrap

import (
	"context"
	"log"

	"ai-codereview-be/internal/config"
	"ai-codereview-be/internal/controller"
	"ai-codereview-be/internal/handler"
	"ai-codereview-be/internal/pkg/logger"
	"ai-codereview-be/internal/pkg/mailer"
	"ai-codereview-be/internal/repository/contract"
	"ai-codereview-be/internal/repository/implementation"
	"ai-codereview-be/internal/repository/memory"
	"ai-codereview-be/internal/route"
	"ai-codereview-be/internal/service"
	"ai-codereview-be/internal/websocket"
	pktNats "ai-codereview-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const runTopic = "codereview.runs"

type Container struct {
	// Controllers
	RunController controller.IRunController
	LogController controller.ILogController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// WebSockets
	RunStreamHandler *handler.RunStreamHandler
	WebSocketHub     *websocket.Hub

	Logger logger.ILogger

	closers []func()
}

// NewContainer wires the REST service. db may be nil, in which case run
// history only lives in memory.
func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	c := &Container{Logger: sysLogger}

	// 1. Run history
	var backing contract.RunRepository
	if db != nil {
		backing = implementation.NewRunRepository(db)
	}
	runRepo := memory.NewRunRepository(backing)

	// 2. Event Bus
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermill.NewStdLogger(false, false),
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// 3. Lifecycle event sinks
	var bus service.EventBus
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			bus = natsPub
			c.closers = append(c.closers, natsPub.Close)
		}
	}

	var rdb *redis.Client
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{Addr: cfg.App.RedisURL}
		}
		rdb = redis.NewClient(opt)
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
		}
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}

	wsLogger := logger.NewIsolatedLogger("logs/websocket.log")
	c.WebSocketHub = websocket.NewHub(rdb, wsLogger)
	feeds := []service.LiveFeed{c.WebSocketHub}
	if cfg.SMTP.Enabled() {
		emailService := mailer.NewEmailService(
			cfg.SMTP.Host,
			cfg.SMTP.Port,
			cfg.SMTP.Email,
			cfg.SMTP.Password,
			cfg.SMTP.Email,
			cfg.SMTP.SenderName,
		)
		feeds = append(feeds, service.NewMailFeed(emailService, cfg.SMTP.NotifyTo, sysLogger))
	}
	notifier := service.NewRunNotifier(bus, sysLogger, feeds...)

	// 4. Services
	engine := NewEngine(cfg, nil, sysLogger)
	if err := route.ValidateAll(engine.Routes.All()...); err != nil {
		log.Printf("[WARN] %v (runs will be rejected until fixed)", err)
	}

	runService := service.NewRunService(
		runRepo,
		service.NewPublisherService(runTopic, pubSub),
		engine.Routes,
		notifier,
		sysLogger,
	)
	c.ConsumerService = service.NewConsumerService(
		pubSub,
		runTopic,
		runRepo,
		engine,
		notifier,
		cfg.Review.RunTimeout,
		sysLogger,
	)

	// 5. Controllers
	c.RunController = controller.NewRunController(runService)
	c.LogController = controller.NewLogController(sysLogger)
	c.RunStreamHandler = handler.NewRunStreamHandler(runService, c.WebSocketHub, cfg.App.JWTSecret, wsLogger)

	return c
}

// Close releases the event bus and broker connections
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}
