package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"creatorpay-platform/pkg/errutil"
)

type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

// Caller is the verified identity every core operation receives explicitly.
// It is never read from ambient state.
type Caller struct {
	UserID string
	Role   Role
}

func (c Caller) IsAdmin() bool {
	return c.Role == RoleAdmin
}

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// ParseToken validates an HS256 token and extracts the caller identity.
func ParseToken(secret, tokenString string) (Caller, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		return Caller{}, errutil.Unauthorized("invalid token", errutil.WithErr(err))
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return Caller{}, errutil.Unauthorized("invalid token claims")
	}

	return Caller{UserID: claims.Subject, Role: Role(claims.Role)}, nil
}
