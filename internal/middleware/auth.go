// Package middleware provides the HTTP-side authentication and
// authorization collaborators. The ledger core never inspects tokens;
// it only ever sees the resolved user id, email and capability set
// threaded through by these handlers.
package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"lumapay/internal/models"
	"lumapay/internal/utils"
)

// ClaimsLocal is the fiber locals key the resolved claims are stored
// under.
const ClaimsLocal = "claims"

// AuthMiddleware validates bearer tokens and resolves caller claims.
type AuthMiddleware struct {
	secret []byte
}

func NewAuthMiddleware(jwtSecret string) *AuthMiddleware {
	return &AuthMiddleware{secret: []byte(jwtSecret)}
}

// Handler validates the Authorization header and stores the resolved
// claims in the request context.
func (m *AuthMiddleware) Handler(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return utils.Unauthorized(c, "missing authorization header")
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return utils.Unauthorized(c, "invalid authorization format")
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")

	token, err := jwt.ParseWithClaims(tokenString, &models.UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return utils.Unauthorized(c, "invalid token")
	}

	claims, ok := token.Claims.(*models.UserClaims)
	if !ok || claims.UserID == 0 {
		return utils.Unauthorized(c, "invalid claims")
	}

	c.Locals(ClaimsLocal, claims)
	return c.Next()
}

// RequireCapability rejects callers whose claims lack the capability.
func RequireCapability(capability string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals(ClaimsLocal).(*models.UserClaims)
		if !ok || claims == nil {
			return utils.Unauthorized(c, "invalid claims")
		}
		if !claims.HasCapability(capability) {
			return utils.Forbidden(c, "missing capability: "+capability)
		}
		return c.Next()
	}
}
