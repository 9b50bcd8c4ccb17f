package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"mathwizard/internal/models"
)

// ErrInvalidToken is returned for any session token that fails to parse or verify
var ErrInvalidToken = errors.New("invalid or expired session token")

// SessionClaims is the JWT payload carried by a session token
type SessionClaims struct {
	Role        models.Role `json:"role"`
	Email       string      `json:"email,omitempty"`
	Name        string      `json:"name,omitempty"`
	Username    string      `json:"username,omitempty"`
	Year        string      `json:"year,omitempty"`
	YearGroup   *int        `json:"yearGroup,omitempty"`
	MaxChildren *int        `json:"maxChildren,omitempty"`
	jwt.RegisteredClaims
}

// SessionManager issues and validates HS256 session tokens
type SessionManager struct {
	secret   []byte
	duration time.Duration
	now      func() time.Time
}

// NewSessionManager creates a session manager. The secret must be non-empty.
func NewSessionManager(secret string, duration time.Duration) (*SessionManager, error) {
	if secret == "" {
		return nil, errors.New("session secret is required")
	}
	if duration <= 0 {
		duration = 24 * time.Hour
	}
	return &SessionManager{secret: []byte(secret), duration: duration, now: time.Now}, nil
}

// Issue signs a token for p and returns it with its expiry
func (m *SessionManager) Issue(p *models.Principal) (string, time.Time, error) {
	now := m.now()
	expires := now.Add(m.duration)

	claims := &SessionClaims{
		Role:        p.Role,
		Email:       p.Email,
		Name:        p.Name,
		Username:    p.Username,
		Year:        p.Year,
		YearGroup:   p.YearGroup,
		MaxChildren: p.MaxChildren,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Subject(),
			ID:        p.ID,
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, expires, nil
}

// Validate verifies a token and rebuilds the principal it was issued for.
// Roster and partner data are not carried in the token.
func (m *SessionManager) Validate(tokenString string) (*models.Principal, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	switch claims.Role {
	case models.RoleAdmin, models.RoleParent, models.RoleSchool, models.RoleChild:
	default:
		return nil, ErrInvalidToken
	}

	return &models.Principal{
		Role:        claims.Role,
		ID:          claims.ID,
		Email:       claims.Email,
		Name:        claims.Name,
		Username:    claims.Username,
		Year:        claims.Year,
		YearGroup:   claims.YearGroup,
		MaxChildren: claims.MaxChildren,
	}, nil
}
