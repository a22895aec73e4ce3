package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/utafrali/returns-service/pkg/middleware"
)

// Claims represents the JWT claims issued by the user service.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// NewTokenValidator returns a middleware.TokenValidator that verifies
// HS256 tokens signed with the platform secret. This service only
// validates tokens; the user service issues them.
func NewTokenValidator(secret string) middleware.TokenValidator {
	key := []byte(secret)

	return func(tokenString string) (*middleware.Claims, error) {
		token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return key, nil
		})
		if err != nil {
			return nil, fmt.Errorf("parse access token: %w", err)
		}

		claims, ok := token.Claims.(*Claims)
		if !ok || !token.Valid {
			return nil, fmt.Errorf("invalid access token claims")
		}

		return &middleware.Claims{
			UserID: claims.UserID,
			Email:  claims.Email,
			Role:   claims.Role,
		}, nil
	}
}
