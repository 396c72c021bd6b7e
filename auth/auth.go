// Package auth resolves the caller's session identity from a JWT and holds
// the capability checks that gate the delivery-tracking endpoints.
package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt"

	"github.com/Jafar777/Turbo-Essen-sub001/models"
)

const identityKey = "identity"

// Identity is the authenticated caller: id and role as carried in the
// session token. Restaurant assignment is deliberately not taken from the
// token; handlers re-resolve it from the user record.
type Identity struct {
	UserID string
	Role   models.Role
}

// Middleware validates the session token and stores the caller's Identity
// in the request locals. Tokens are read from the Authorization header
// (Bearer) or, for WebSocket clients, from the "token" query parameter.
func Middleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return fiber.ErrUnauthorized
		}

		claims := jwt.MapClaims{}
		parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		})
		if err != nil || !parsed.Valid {
			return fiber.ErrUnauthorized
		}

		userID, _ := claims["user_id"].(string)
		role, _ := claims["role"].(string)
		if userID == "" || role == "" {
			return fiber.ErrUnauthorized
		}

		c.Locals(identityKey, Identity{UserID: userID, Role: models.Role(role)})
		return c.Next()
	}
}

// From returns the Identity stored by Middleware.
func From(c *fiber.Ctx) (Identity, bool) {
	ident, ok := c.Locals(identityKey).(Identity)
	return ident, ok
}

// FromLocals is From for handlers that only expose Locals lookup, such as
// WebSocket connections.
func FromLocals(v interface{}) (Identity, bool) {
	ident, ok := v.(Identity)
	return ident, ok
}

func bearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.Query("token")
}

// CanPublish reports whether the user may publish location samples for the
// order. There is no direct courier-to-order assignment record; assignment
// is enforced as the courier's restaurant matching the order's restaurant.
func CanPublish(u *models.User, o *models.Order) bool {
	if u == nil || o == nil {
		return false
	}
	return u.Role == models.RoleDelivery && u.RestaurantID != "" && u.RestaurantID == o.RestaurantID
}

// CanSubscribe reports whether the user may watch the order's location
// stream: the customer who placed it, or the owner of its restaurant.
func CanSubscribe(u *models.User, o *models.Order) bool {
	if u == nil || o == nil {
		return false
	}
	switch u.Role {
	case models.RoleCustomer:
		return o.CustomerID == u.ID
	case models.RoleOwner:
		return u.RestaurantID != "" && u.RestaurantID == o.RestaurantID
	}
	return false
}
