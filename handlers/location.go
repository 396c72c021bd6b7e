package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/Jafar777/Turbo-Essen-sub001/auth"
	"github.com/Jafar777/Turbo-Essen-sub001/models"
	"github.com/Jafar777/Turbo-Essen-sub001/relay"
	"github.com/Jafar777/Turbo-Essen-sub001/storage"
)

type locationPayload struct {
	Latitude  *float64               `json:"latitude"`
	Longitude *float64               `json:"longitude"`
	Meta      map[string]interface{} `json:"meta,omitempty"`
}

func (p *locationPayload) validate() error {
	if p.Latitude == nil || p.Longitude == nil {
		return errors.New("latitude and longitude are required")
	}
	return validateCoordinates(*p.Latitude, *p.Longitude)
}

// validateCoordinates gates every publish path; out-of-range samples must
// never reach the store.
func validateCoordinates(lat, lon float64) error {
	if lat < -90 || lat > 90 {
		return errors.New("latitude out of range")
	}
	if lon < -180 || lon > 180 {
		return errors.New("longitude out of range")
	}
	return nil
}

// @Summary Publish a courier location sample for an order
// @Tags Delivery
// @Accept json
// @Produce json
// @Param orderId path string true "Order ID"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /delivery/{orderId}/location [post]
func (s *Server) PublishLocation(c *fiber.Ctx) error {
	ident, ok := auth.From(c)
	if !ok || ident.Role != models.RoleDelivery {
		return fiber.ErrUnauthorized
	}

	var payload locationPayload
	if err := c.BodyParser(&payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid location payload")
	}
	if err := payload.validate(); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	ctx := context.Background()
	orderID := c.Params("orderId")

	order, err := s.db.FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fiber.ErrNotFound
		}
		return err
	}

	agent, err := s.db.FindUser(ctx, ident.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fiber.ErrUnauthorized
		}
		return err
	}

	if !auth.CanPublish(agent, order) {
		return fiber.ErrForbidden
	}

	sample := s.acceptSample(orderID, *payload.Latitude, *payload.Longitude, payload.Meta)

	return c.JSON(fiber.Map{
		"success":   true,
		"message":   "location accepted",
		"timestamp": sample.Timestamp,
	})
}

// acceptSample stamps the receipt time, replaces the live entry (waking
// subscribers) and kicks off the best-effort mirror write. Shared by the
// HTTP and WebSocket publish paths.
func (s *Server) acceptSample(orderID string, lat, lon float64, meta map[string]interface{}) *models.LocationSample {
	sample := &models.LocationSample{
		OrderID:   orderID,
		Latitude:  lat,
		Longitude: lon,
		Meta:      meta,
		Timestamp: time.Now().UnixMilli(),
	}

	s.store.Put(sample)
	publishesTotal.Inc()
	go s.mirror(sample)
	return sample
}

func (s *Server) mirror(sample *models.LocationSample) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Relay.MirrorTimeout)
	defer cancel()

	if err := s.db.MirrorLocation(ctx, sample); err != nil {
		// Swallowed: the live path already succeeded.
		log.Printf("Failed to mirror location for order %s: %v", sample.OrderID, err)
	}

	s.logEvent(map[string]interface{}{
		"event":    "location_published",
		"order_id": sample.OrderID,
	})
}

// @Summary Stream courier location updates for an order
// @Tags Delivery
// @Produce text/event-stream
// @Param orderId path string true "Order ID"
// @Failure 401 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /delivery/{orderId}/location [get]
func (s *Server) StreamLocation(c *fiber.Ctx) error {
	sub, first, err := s.openStream(c)
	if err != nil {
		return err
	}

	orderID := c.Params("orderId")

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	activeStreams.Inc()
	s.logEvent(map[string]interface{}{
		"event":    "stream_opened",
		"order_id": orderID,
	})

	keepalive := s.cfg.Relay.KeepaliveInterval
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer sub.Cancel()
		defer activeStreams.Dec()

		if err := streamEvents(w, sub, first, keepalive); err != nil {
			log.Printf("Tracking stream for order %s closed: %v", orderID, err)
		}
		s.logEvent(map[string]interface{}{
			"event":    "stream_closed",
			"order_id": orderID,
		})
	}))

	return nil
}

// openStream authorizes the caller and registers the subscription. All
// rejections happen here, before any stream bytes are written, so they go
// out as ordinary JSON error responses. On a store miss the entry is
// hydrated from the mirror fields of the order record, so a subscriber
// reconnecting after a restart still gets the last known position.
func (s *Server) openStream(c *fiber.Ctx) (*relay.Subscription, *models.LocationSample, error) {
	ident, ok := auth.From(c)
	if !ok {
		return nil, nil, fiber.ErrUnauthorized
	}

	ctx := context.Background()
	orderID := c.Params("orderId")

	order, err := s.db.FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, fiber.ErrNotFound
		}
		return nil, nil, err
	}

	user, err := s.db.FindUser(ctx, ident.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, fiber.ErrUnauthorized
		}
		return nil, nil, err
	}

	if !auth.CanSubscribe(user, order) {
		return nil, nil, fiber.ErrForbidden
	}

	if order.LocationUpdatedAt > 0 {
		s.store.PutIfAbsent(&models.LocationSample{
			OrderID:   orderID,
			Latitude:  order.CourierLat,
			Longitude: order.CourierLon,
			Timestamp: order.LocationUpdatedAt,
		})
	}

	sub := s.store.Subscribe(orderID)
	first, _ := s.store.Get(orderID)
	return sub, first, nil
}

// streamEvents runs one tracking stream: the current sample right away if
// there is one, then every broadcast sample until the subscription closes
// (terminal order status -> "done" event) or a write fails (client gone).
// Keepalive comments keep disconnect detection working through quiet spells.
func streamEvents(w *bufio.Writer, sub *relay.Subscription, first *models.LocationSample, keepalive time.Duration) error {
	if keepalive <= 0 {
		keepalive = 15 * time.Second
	}
	if first != nil {
		if err := writeEvent(w, "location", first); err != nil {
			return err
		}
	}

	ticker := time.NewTicker(keepalive)
	defer ticker.Stop()

	for {
		select {
		case sample, ok := <-sub.C():
			if !ok {
				_, err := fmt.Fprint(w, "event: done\ndata: {}\n\n")
				if err != nil {
					return err
				}
				return w.Flush()
			}
			if err := writeEvent(w, "location", sample); err != nil {
				return err
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return err
			}
			if err := w.Flush(); err != nil {
				return err
			}
		}
	}
}

// writeEvent emits one SSE event. A sample that cannot be encoded ends this
// stream with a distinguished "error" event; other subscribers and the
// store are unaffected.
func writeEvent(w *bufio.Writer, name string, sample *models.LocationSample) error {
	data, err := json.Marshal(sample)
	if err != nil {
		fmt.Fprintf(w, "event: error\ndata: {\"error\":%q}\n\n", err.Error())
		w.Flush()
		return fmt.Errorf("failed to encode sample: %w", err)
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return err
	}
	return w.Flush()
}
