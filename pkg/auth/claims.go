package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
)

// OperatorTokenPayload captures the data available when minting an operator JWT.
type OperatorTokenPayload struct {
	Subject string
	Name    string
	Role    enums.OperatorRole
	JTI     string
}

// OperatorClaims represents the typed JWT presented to the admin API.
type OperatorClaims struct {
	Name string             `json:"name,omitempty"`
	Role enums.OperatorRole `json:"role"`
	jwt.RegisteredClaims
}

// Actor is the identifier written to audit rows.
func (c *OperatorClaims) Actor() string {
	if c == nil {
		return ""
	}
	return c.Subject
}
