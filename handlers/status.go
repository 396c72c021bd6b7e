package handlers

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/Jafar777/Turbo-Essen-sub001/models"
)

type statusUpdate struct {
	OrderID string             `json:"order_id"`
	Status  models.OrderStatus `json:"status"`
}

// ConsumeStatusUpdates follows order status transitions from the status
// queue. A terminal status evicts the order's live-tracking entry and
// closes its open streams with a "done" event.
func (s *Server) ConsumeStatusUpdates() {
	if s.rabbitmq == nil {
		return
	}

	ch, err := s.rabbitmq.Channel()
	if err != nil {
		log.Fatal(err)
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(s.cfg.RabbitMQ.StatusQueue, true, false, false, false, nil)
	if err != nil {
		log.Fatal(err)
	}

	msgs, err := ch.Consume(q.Name, "", true, false, false, false, nil)
	if err != nil {
		log.Fatal(err)
	}

	for msg := range msgs {
		if err := s.handleStatusMessage(msg.Body); err != nil {
			log.Printf("Failed to process status update: %v", err)
		}
	}
}

func (s *Server) handleStatusMessage(body []byte) error {
	var update statusUpdate
	if err := json.Unmarshal(body, &update); err != nil {
		return fmt.Errorf("failed to parse status update: %w", err)
	}
	if update.OrderID == "" {
		return fmt.Errorf("status update missing order_id")
	}

	if !update.Status.Terminal() {
		return nil
	}

	s.store.Evict(update.OrderID)
	s.logEvent(map[string]interface{}{
		"event":    "order_terminal",
		"order_id": update.OrderID,
		"status":   string(update.Status),
	})
	log.Printf("Order %s reached terminal status %s, tracking streams closed", update.OrderID, update.Status)
	return nil
}
