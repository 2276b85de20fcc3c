package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/sportsfest/registration/pkg/errors"
)

const issuer = "sportsfest"

// Manager signs and verifies session tokens.
// Sessions are issued by the account service; this service only needs to
// verify them and read the organization the user acts for.
type Manager struct {
	secret string
	expire time.Duration
}

// NewManager creates a Manager signing with secret.
func NewManager(secret string, expire time.Duration) *Manager {
	return &Manager{secret: secret, expire: expire}
}

// Claims identifies the user and the organization of the session.
type Claims struct {
	UserID           uint   `json:"user_id"`
	OrganizationID   uint   `json:"organization_id"`
	OrganizationSlug string `json:"organization_slug"`
	jwt.RegisteredClaims
}

// GenerateToken signs a token for userID acting for the given organization.
func (m *Manager) GenerateToken(userID, organizationID uint, organizationSlug string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:           userID,
		OrganizationID:   organizationID,
		OrganizationSlug: organizationSlug,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expire)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   fmt.Sprintf("%d", userID),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(m.secret))
	if err != nil {
		return "", apperrors.Wrap(err, "sign token")
	}
	return signed, nil
}

// ParseToken verifies the signature and time claims and returns the claims.
func (m *Manager) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(m.secret), nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, apperrors.ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.OrganizationID == 0 {
		return nil, apperrors.ErrInvalidToken
	}
	return claims, nil
}
