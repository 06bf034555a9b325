package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	brokerredis "github.com/ygyuri/MVPEVENT-i-sub006/broker/redis"
	"github.com/ygyuri/MVPEVENT-i-sub006/config"
	"github.com/ygyuri/MVPEVENT-i-sub006/repository/postgres"
	"github.com/ygyuri/MVPEVENT-i-sub006/service/http"
	"github.com/ygyuri/MVPEVENT-i-sub006/worker"
)

func main() {
	fmt.Println("Starting Order Service Worker")

	// Load configuration (fallback to env variables if config file not found)
	cfg, err := config.Initialise("config.yaml", false)
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Initialize repository
	repo, err := postgres.NewOrderRepository(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to initialize repository:", err)
	}

	// Initialize the status publisher (released at teardown)
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetRedisURL(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	publisher, err := brokerredis.NewPublisher(redisClient)
	if err != nil {
		log.Fatal("Failed to initialize status publisher:", err)
	}
	defer publisher.Close()

	// Initialize payment gateway client
	gateway := http.NewHTTPPaymentGatewayWithConfig(&cfg.PaymentGateway, cfg.ServiceAuthKey)

	// Initialize Kafka writer for notifications
	notificationWriter := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Kafka.Brokers...),
		Topic:    cfg.Kafka.NotificationTopic,
		Balancer: &kafka.LeastBytes{},
	}
	defer notificationWriter.Close()

	// Setup Kafka consumer
	consumer := kafka.NewReader(kafka.ReaderConfig{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.OrderTopic,
		GroupID: cfg.Kafka.ConsumerGroup,
	})
	defer consumer.Close()

	// Create order processor
	processor := worker.NewOrderProcessor(repo, publisher, gateway,
		notificationWriter, consumer, cfg.Worker.MaxWorkers)

	// Graceful shutdown context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("Received shutdown signal, stopping worker...")
		cancel()
	}()

	// Start worker
	fmt.Println("Order processor worker started")
	if err := processor.Start(ctx); err != nil && err != context.Canceled {
		log.Fatal("Worker error:", err)
	}

	fmt.Println("Worker stopped gracefully")
}
