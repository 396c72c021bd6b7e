package handlers

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/Shopify/sarama"
	"github.com/gofiber/fiber/v2"
	"github.com/streadway/amqp"

	"github.com/Jafar777/Turbo-Essen-sub001/config"
	"github.com/Jafar777/Turbo-Essen-sub001/models"
	"github.com/Jafar777/Turbo-Essen-sub001/relay"
)

// Records is the slice of the persistent store the tracking endpoints need:
// order and user lookup plus the location mirror write.
type Records interface {
	FindOrder(ctx context.Context, id string) (*models.Order, error)
	FindUser(ctx context.Context, id string) (*models.User, error)
	MirrorLocation(ctx context.Context, sample *models.LocationSample) error
}

type Server struct {
	cfg      *config.Config
	store    *relay.Store
	db       Records
	kafka    sarama.SyncProducer
	rabbitmq *amqp.Connection
}

func NewServer(cfg *config.Config, store *relay.Store, db Records, kafka sarama.SyncProducer, rabbitmq *amqp.Connection) *Server {
	return &Server{
		cfg:      cfg,
		store:    store,
		db:       db,
		kafka:    kafka,
		rabbitmq: rabbitmq,
	}
}

func (s *Server) logEvent(event map[string]interface{}) {
	if s.kafka == nil {
		return
	}
	event["timestamp"] = time.Now().Unix()
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("Failed to marshal event: %v", err)
		return
	}

	_, _, err = s.kafka.SendMessage(&sarama.ProducerMessage{
		Topic: s.cfg.Kafka.Topic,
		Value: sarama.StringEncoder(data),
	})
	if err != nil {
		log.Printf("Failed to log event to Kafka: %v", err)
	}
}

// ErrorHandler maps fiber errors to the JSON error envelope used by every
// endpoint. Anything that is not a fiber error is an internal failure.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"time":   time.Now(),
	})
}
