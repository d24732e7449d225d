package jwt

import (
	"fleet-track/internal/domain/user"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Issuer stamped into every token this service signs; validation rejects
// tokens minted by anything else.
const Issuer = "fleet-track"

// Claims is the canonical JWT payload for drivers, operators and admins.
type Claims struct {
	Role user.Role `json:"role"` // RBAC role (DRIVER/OPERATOR/ADMIN)
	jwtlib.RegisteredClaims
}

var _ jwtlib.Claims = (*Claims)(nil)

// NewUserClaims constructs end-user claims with the given lifetime.
func NewUserClaims(userID string, role user.Role, ttl time.Duration) *Claims {
	now := time.Now().UTC()
	return &Claims{
		Role: role,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   userID,
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwtlib.NewNumericDate(now),
		},
	}
}
