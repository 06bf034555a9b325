package main

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	brokerredis "github.com/ygyuri/MVPEVENT-i-sub006/broker/redis"
	"github.com/ygyuri/MVPEVENT-i-sub006/config"
	"github.com/ygyuri/MVPEVENT-i-sub006/repository/postgres"
)

func SetupRouter(cfg *config.Config) (*gin.Engine, *brokerredis.RedisPublisher) {
	// Initialize repository
	repo, err := postgres.NewOrderRepository(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to initialize repository:", err)
	}

	// One client per process; the waiter's subscriptions take their own
	// dedicated connections from it per call.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetRedisURL(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Initialize the status broker roles
	publisher, err := brokerredis.NewPublisher(redisClient)
	if err != nil {
		log.Fatal("Failed to initialize status publisher:", err)
	}
	reader := brokerredis.NewCacheReader(redisClient)
	waiter := brokerredis.NewWaiterWithCacheCheck(redisClient, reader)
	streamWaiter := brokerredis.NewWaiter(redisClient)

	// Initialize Kafka writer
	kafkaWriter := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Kafka.Brokers...),
		Topic:    cfg.Kafka.OrderTopic,
		Balancer: &kafka.LeastBytes{},
	}

	// Initialize JWT service
	jwtService := NewJWTService(cfg.JWTSecret)

	// Initialize handlers
	orderHandler := NewOrderHandler(
		repo, publisher, waiter, streamWaiter, reader, kafkaWriter,
		time.Duration(cfg.Broker.MaxWaitMS)*time.Millisecond,
		time.Duration(cfg.Broker.StreamWaitSeconds)*time.Second,
	)

	// Setup Gin router
	r := gin.Default()

	// Add middleware
	r.Use(CORSMiddleware())
	r.Use(LoggingMiddleware())

	// Health check endpoint (no auth required)
	r.GET("/health", orderHandler.HealthCheck)

	// API routes
	api := r.Group("/api")

	// Trusted service endpoints (shared-key header auth)
	internal := api.Group("")
	internal.Use(ServiceAuthMiddleware(cfg.ServiceAuthKey))
	internal.POST("/payments/callback", orderHandler.PaymentCallback)

	// Protected endpoints (require authentication)
	protected := api.Group("")
	protected.Use(AuthMiddleware(jwtService))

	// Order endpoints
	protected.POST("/orders", orderHandler.SubmitOrder)
	protected.GET("/orders/:orderId/status", orderHandler.GetOrderStatus)
	protected.GET("/orders/:orderId/status/wait", orderHandler.WaitOrderStatus)
	protected.GET("/orders/:orderId/status/latest", orderHandler.LatestOrderStatus)
	protected.GET("/orders/:orderId/stream", orderHandler.StreamOrderStatus)
	protected.GET("/orders", orderHandler.ListUserOrders)

	return r, publisher
}
