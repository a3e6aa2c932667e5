package utils

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"social-app-server/internal/config"
	"social-app-server/internal/models"
)

// Claims represents the JWT claims.
type Claims struct {
	UserID string      `json:"user_id"`
	Role   models.Role `json:"role"`
	jwt.RegisteredClaims
}

// GenerateSocketTicket mints a short-lived signed token for the realtime
// handshake. The gateway accepts only this ticket, never a bare user id, so
// socket identity is anchored to the HTTP session that requested the ticket.
func GenerateSocketTicket(userID string, role models.Role, cfg *config.Config) (string, error) {
	expirationTime := time.Now().Add(time.Duration(cfg.SocketTicketTTLSeconds) * time.Second)
	claims := &Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(cfg.SocketTicketSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign socket ticket: %w", err)
	}
	return tokenString, nil
}

// ValidateToken validates a JWT token.
func ValidateToken(tokenString string, secretKey string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secretKey), nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	return claims, nil
}
