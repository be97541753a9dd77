package services

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthService manages JWT token generation and validation for viewing
// sessions.
type AuthService struct {
	secretKey   string
	tokenExpiry time.Duration
}

// SessionClaims represents the JWT claims structure
type SessionClaims struct {
	ViewerName string `json:"viewer_name"`
	jwt.RegisteredClaims
}

var authService *AuthService

// InitAuthService initializes the authentication service. With an empty
// secretKey a persisted key is loaded from the home directory, or generated
// and persisted on first run.
func InitAuthService(secretKey string, tokenExpiry time.Duration) *AuthService {
	if secretKey == "" {
		homeDir, _ := os.UserHomeDir()
		keyFile := filepath.Join(homeDir, ".nigran-secret-key")
		if homeDir == "" {
			keyFile = filepath.Join(os.TempDir(), ".nigran-secret-key")
		}

		if data, err := os.ReadFile(keyFile); err == nil && len(data) > 0 {
			secretKey = strings.TrimSpace(string(data))
		} else {
			hostname, err := os.Hostname()
			if err != nil {
				hostname = "nigran"
			}
			randomBytes := make([]byte, 16)
			if _, err := rand.Read(randomBytes); err != nil {
				secretKey = fmt.Sprintf("nigran-%s-%d", hostname, time.Now().UnixNano())
			} else {
				secretKey = fmt.Sprintf("nigran-%s-%s", hostname, hex.EncodeToString(randomBytes))
			}
			if err := os.WriteFile(keyFile, []byte(secretKey), 0600); err != nil {
				log.Printf("[AUTH] could not persist secret key to %s: %v", keyFile, err)
			}
		}
	}

	if tokenExpiry == 0 {
		tokenExpiry = 90 * 24 * time.Hour
	}

	secretKey = strings.TrimSpace(secretKey)
	// HMAC-SHA256 wants at least 32 key bytes.
	if len(secretKey) < 32 {
		padding := make([]byte, 32-len(secretKey))
		_, _ = rand.Read(padding)
		secretKey = secretKey + hex.EncodeToString(padding)
	}

	authService = &AuthService{
		secretKey:   secretKey,
		tokenExpiry: tokenExpiry,
	}
	return authService
}

// GenerateToken creates a new JWT token for a named viewer.
func GenerateToken(viewerName string) (string, error) {
	if authService == nil {
		return "", fmt.Errorf("auth service not initialized")
	}

	now := time.Now()
	claims := SessionClaims{
		ViewerName: viewerName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(authService.tokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "nigran-server",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(authService.secretKey))
}

// ValidateToken verifies and parses a JWT token
func ValidateToken(tokenString string) (*SessionClaims, error) {
	if authService == nil {
		return nil, fmt.Errorf("auth service not initialized")
	}

	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(authService.secretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// GetTokenExpiry returns when a token issued now would expire.
func GetTokenExpiry() time.Time {
	if authService == nil {
		return time.Time{}
	}
	return time.Now().Add(authService.tokenExpiry)
}
