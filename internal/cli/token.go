package cli

import (
	"fmt"
	"time"

	"fleet-track/internal/domain/user"
	"fleet-track/internal/general/jwt"
)

// GenerateUserToken mints a short-lived JWT for local testing, for example
// to drive the tracking websocket from a curl/wscat session:
//
//	token, _, err := cli.GenerateUserToken(secret,
//	    "550e8400-e29b-41d4-a716-446655440001", "DRIVER")
//
// Dev tooling only; production tokens come from the token endpoint.
func GenerateUserToken(secret string, userID string, roleStr string) (string, jwt.Claims, error) {
	role, err := user.ParseRole(roleStr)
	if err != nil {
		return "", jwt.Claims{}, fmt.Errorf("invalid role %q: %w", roleStr, err)
	}

	mgr := jwt.NewManager(secret, 2*time.Hour)

	token, claims, err := mgr.IssueUserToken(userID, role)
	if err != nil {
		return "", jwt.Claims{}, fmt.Errorf("issue token: %w", err)
	}

	return token, *claims, nil
}
