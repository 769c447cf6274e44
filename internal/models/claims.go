package models

import "github.com/golang-jwt/jwt/v5"

// Capabilities granted to an authenticated caller. The ledger core never
// inspects these; the middleware layer checks them before a service call.
const (
	CapabilityRead     = "read"
	CapabilityDeposit  = "deposit"
	CapabilityTransfer = "transfer"
)

// UserClaims is the resolved identity the auth collaborator supplies with
// every request.
type UserClaims struct {
	jwt.RegisteredClaims
	UserID       uint     `json:"user_id"`
	Email        string   `json:"email"`
	Capabilities []string `json:"capabilities"`
}

// HasCapability checks if the claims include a specific capability.
func (c *UserClaims) HasCapability(capability string) bool {
	for _, granted := range c.Capabilities {
		if granted == capability {
			return true
		}
	}
	return false
}
