// Package storage wraps the Redis order and user records. Orders live in
// "order:{id}" hashes, users in "user:{id}" hashes; the courier location
// mirror is a trio of fields on the order hash.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/Jafar777/Turbo-Essen-sub001/config"
	"github.com/Jafar777/Turbo-Essen-sub001/models"
)

var ErrNotFound = errors.New("not found")

type Redis struct {
	rdb *redis.Client
}

func New(cfg config.RedisConfig) *Redis {
	return &Redis{
		rdb: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
	}
}

func (s *Redis) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Redis) FindOrder(ctx context.Context, id string) (*models.Order, error) {
	data, err := s.rdb.HGetAll(ctx, "order:"+id).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read order %s: %w", id, err)
	}
	if len(data) == 0 {
		return nil, ErrNotFound
	}
	return orderFromHash(id, data), nil
}

func (s *Redis) FindUser(ctx context.Context, id string) (*models.User, error) {
	data, err := s.rdb.HGetAll(ctx, "user:"+id).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read user %s: %w", id, err)
	}
	if len(data) == 0 {
		return nil, ErrNotFound
	}
	return userFromHash(id, data), nil
}

// MirrorLocation writes the latest sample onto the persistent order record.
// Best-effort: the in-memory store stays authoritative for the live path.
func (s *Redis) MirrorLocation(ctx context.Context, sample *models.LocationSample) error {
	return s.rdb.HSet(ctx, "order:"+sample.OrderID, map[string]interface{}{
		"courier_latitude":    sample.Latitude,
		"courier_longitude":   sample.Longitude,
		"location_updated_at": sample.Timestamp,
	}).Err()
}

func orderFromHash(id string, data map[string]string) *models.Order {
	lat, _ := strconv.ParseFloat(data["courier_latitude"], 64)
	lon, _ := strconv.ParseFloat(data["courier_longitude"], 64)
	updatedAt, _ := strconv.ParseInt(data["location_updated_at"], 10, 64)

	o := &models.Order{
		ID:                id,
		CustomerID:        data["customer_id"],
		RestaurantID:      data["restaurant_id"],
		Status:            models.OrderStatus(data["status"]),
		CourierLat:        lat,
		CourierLon:        lon,
		LocationUpdatedAt: updatedAt,
	}
	if t, err := time.Parse(time.RFC3339, data["created_at"]); err == nil {
		o.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, data["updated_at"]); err == nil {
		o.UpdatedAt = t
	}
	return o
}

func userFromHash(id string, data map[string]string) *models.User {
	return &models.User{
		ID:           id,
		Role:         models.Role(data["role"]),
		RestaurantID: data["restaurant_id"],
	}
}
