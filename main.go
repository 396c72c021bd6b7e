package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Shopify/sarama"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/streadway/amqp"

	"github.com/Jafar777/Turbo-Essen-sub001/auth"
	"github.com/Jafar777/Turbo-Essen-sub001/config"
	_ "github.com/Jafar777/Turbo-Essen-sub001/docs"
	"github.com/Jafar777/Turbo-Essen-sub001/handlers"
	"github.com/Jafar777/Turbo-Essen-sub001/relay"
	"github.com/Jafar777/Turbo-Essen-sub001/storage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	db := storage.New(cfg.Redis)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := db.Ping(ctx); err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	cancel()

	rabbitmq, err := connectRabbitMQ(cfg.RabbitMQ.URL)
	if err != nil {
		log.Fatal("Failed to initialize connections:", err)
	}

	kafkaConfig := sarama.NewConfig()
	kafkaConfig.Producer.Return.Successes = true
	producer, err := sarama.NewSyncProducer(cfg.Kafka.Brokers, kafkaConfig)
	if err != nil {
		log.Fatal("Failed to create Kafka producer:", err)
	}

	store := relay.NewStore()
	srv := handlers.NewServer(cfg, store, db, producer, rabbitmq)

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		ErrorHandler: handlers.ErrorHandler,
	})

	// Middlewares
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New())

	// Routes
	app.Get("/health", handlers.HealthCheck)
	app.Get("/swagger/*", swagger.HandlerDefault)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	v1 := app.Group("/api/v1")
	delivery := v1.Group("/delivery", auth.Middleware(cfg.JWT.SecretKey), srv.MetricsMiddleware())
	delivery.Post("/:orderId/location", srv.PublishLocation)
	delivery.Get("/:orderId/location", srv.StreamLocation)

	// WebSocket ingress for couriers
	app.Use("/ws", auth.Middleware(cfg.JWT.SecretKey))
	app.Get("/ws/delivery", websocket.New(srv.HandleAgentWebSocket))

	// Start order status consumer
	go srv.ConsumeStatusUpdates()

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("Gracefully shutting down...")
		_ = app.Shutdown()
	}()

	log.Printf("Server starting on port %s", cfg.Server.Port)
	log.Fatal(app.Listen(":" + cfg.Server.Port))
}

func connectRabbitMQ(url string) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error
	for i := 0; i < 5; i++ {
		log.Printf("Attempting to connect to RabbitMQ (attempt %d/5)...", i+1)
		conn, err = amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		if i < 4 {
			log.Printf("Failed to connect to RabbitMQ: %v. Retrying in 5 seconds...", err)
			time.Sleep(5 * time.Second)
		}
	}
	return nil, fmt.Errorf("failed to connect to RabbitMQ after 5 attempts: %v", err)
}
