package models

import "time"

type Role string

const (
	RoleCustomer Role = "customer"
	RoleOwner    Role = "owner"
	RoleChef     Role = "chef"
	RoleWaiter   Role = "waiter"
	RoleDelivery Role = "delivery"
	RoleAdmin    Role = "admin"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusAccepted   OrderStatus = "accepted"
	OrderStatusPreparing  OrderStatus = "preparing"
	OrderStatusReady      OrderStatus = "ready"
	OrderStatusDelivering OrderStatus = "delivering"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRejected   OrderStatus = "rejected"
)

// Terminal reports whether no further status transitions are possible.
// Terminal orders have their live-tracking state evicted.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusDelivered, OrderStatusCancelled, OrderStatusRejected:
		return true
	}
	return false
}

type Order struct {
	ID           string      `json:"id"`
	CustomerID   string      `json:"customer_id"`
	RestaurantID string      `json:"restaurant_id"`
	Status       OrderStatus `json:"status"`

	// Mirror fields: last known courier location, written best-effort on
	// every accepted publish so it survives a process restart.
	CourierLat        float64 `json:"courier_latitude,omitempty"`
	CourierLon        float64 `json:"courier_longitude,omitempty"`
	LocationUpdatedAt int64   `json:"location_updated_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type User struct {
	ID           string `json:"id"`
	Role         Role   `json:"role"`
	RestaurantID string `json:"restaurant_id,omitempty"`
}

// LocationSample is one courier location reading for an order. Timestamp is
// assigned by the server when the sample is accepted, never by the courier.
type LocationSample struct {
	OrderID   string                 `json:"order_id"`
	Latitude  float64                `json:"latitude"`
	Longitude float64                `json:"longitude"`
	Meta      map[string]interface{} `json:"meta,omitempty"`
	Timestamp int64                  `json:"timestamp"`
}
