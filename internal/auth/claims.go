package auth

import (
	"slices"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the decoded payload of a verified access token.
type Claims struct {
	// Permissions is nil when the token carries no permissions claim at all,
	// and non-nil (possibly empty) when the claim is present.
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

// HasPermission reports whether the permission set contains permission.
func (c *Claims) HasPermission(permission string) bool {
	return c != nil && slices.Contains(c.Permissions, permission)
}

// CheckPermission verifies that claims grant the required permission.
// It has no dependency on the HTTP request.
func CheckPermission(claims *Claims, permission string) error {
	if claims == nil || claims.Permissions == nil {
		return ErrInvalidClaims("Permissions not included in JWT.", nil)
	}
	if !claims.HasPermission(permission) {
		return ErrUnauthorized()
	}
	return nil
}
