package handlers

import (
	"context"
	"errors"
	"log"

	"github.com/gofiber/websocket/v2"

	"github.com/Jafar777/Turbo-Essen-sub001/auth"
	"github.com/Jafar777/Turbo-Essen-sub001/models"
)

type agentUpdate struct {
	OrderID   string                 `json:"order_id"`
	Latitude  float64                `json:"latitude"`
	Longitude float64                `json:"longitude"`
	Meta      map[string]interface{} `json:"meta,omitempty"`
}

var errNotAssigned = errors.New("not assigned to order")

// HandleAgentWebSocket is the courier-side ingress: one socket carrying a
// stream of location updates, each fed through the same authorization and
// publish path as the HTTP endpoint. Authorization per order is resolved
// once and cached for the life of the socket.
func (s *Server) HandleAgentWebSocket(c *websocket.Conn) {
	ident, ok := auth.FromLocals(c.Locals("identity"))
	if !ok || ident.Role != models.RoleDelivery {
		c.WriteJSON(map[string]string{"error": "unauthorized"})
		return
	}

	ctx := context.Background()
	agent, err := s.db.FindUser(ctx, ident.UserID)
	if err != nil {
		log.Printf("Failed to resolve agent %s: %v", ident.UserID, err)
		c.WriteJSON(map[string]string{"error": "unauthorized"})
		return
	}

	authorized := make(map[string]bool)

	for {
		var update agentUpdate
		if err := c.ReadJSON(&update); err != nil {
			break
		}

		sample, err := s.acceptAgentUpdate(ctx, agent, authorized, update)
		if err != nil {
			c.WriteJSON(map[string]string{"error": err.Error()})
			continue
		}

		c.WriteJSON(map[string]interface{}{
			"success":   true,
			"order_id":  sample.OrderID,
			"timestamp": sample.Timestamp,
		})
	}
}

func (s *Server) acceptAgentUpdate(ctx context.Context, agent *models.User, authorized map[string]bool, update agentUpdate) (*models.LocationSample, error) {
	if update.OrderID == "" {
		return nil, errors.New("order_id is required")
	}
	if err := validateCoordinates(update.Latitude, update.Longitude); err != nil {
		return nil, err
	}

	allowed, seen := authorized[update.OrderID]
	if !seen {
		order, err := s.db.FindOrder(ctx, update.OrderID)
		allowed = err == nil && auth.CanPublish(agent, order)
		authorized[update.OrderID] = allowed
	}
	if !allowed {
		return nil, errNotAssigned
	}

	return s.acceptSample(update.OrderID, update.Latitude, update.Longitude, update.Meta), nil
}
