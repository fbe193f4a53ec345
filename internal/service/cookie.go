package service

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/BasmalaAyman4/storefront-gateway/internal/config"
)

// CookieService mints and verifies the signed session cookie. The cookie
// carries only the session ID; the bearer token and every other sensitive
// field stay server-side.
type CookieService struct {
	secretKey []byte
	expiry    time.Duration
	logger    *logrus.Logger
}

func NewCookieService(cfg *config.SessionConfig, logger *logrus.Logger) (*CookieService, error) {
	secretKey := []byte(cfg.CookieSecret)
	if len(secretKey) < 32 {
		return nil, fmt.Errorf("cookie secret must be at least 32 bytes")
	}

	return &CookieService{
		secretKey: secretKey,
		expiry:    cfg.CookieExpiry,
		logger:    logger,
	}, nil
}

type SessionClaims struct {
	SessionID string `json:"sid"`
	Type      string `json:"type"`
	jwt.RegisteredClaims
}

func (s *CookieService) MintSessionToken(sessionID string) (string, error) {
	now := time.Now()
	claims := &SessionClaims{
		SessionID: sessionID,
		Type:      "session",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		s.logger.WithError(err).Error("Failed to sign session cookie")
		return "", fmt.Errorf("failed to sign session cookie: %w", err)
	}

	return signed, nil
}

func (s *CookieService) VerifySessionToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to parse session cookie: %w", err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid session cookie")
	}
	if claims.Type != "session" {
		return "", fmt.Errorf("token is not a session cookie")
	}

	return claims.SessionID, nil
}

func GenerateSecretKey() (string, error) {
	key := make([]byte, 32) // 256 bits
	if _, err := rand.Read(key); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(key), nil
}
