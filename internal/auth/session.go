package auth

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	CookieName = "df_session"
	DefaultTTL = 7 * 24 * time.Hour
)

// ErrInvalidSession covers every way a token can fail verification.
// Callers treat it as "no session".
var ErrInvalidSession = errors.New("invalid session")

// Strict so that non-zero trailing bits cannot alias a valid signature.
var encoding = base64.RawURLEncoding.Strict()

type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	// MustChangePassword limits the session to its own profile.
	MustChangePassword bool `json:"mcp,omitempty"`
	// Exp is epoch milliseconds.
	Exp int64 `json:"exp"`
}

func (c Claims) ExpiresAt() time.Time {
	return time.UnixMilli(c.Exp)
}

func (c Claims) IsAdmin() bool {
	return c.Role == "admin"
}

type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewManager(secret string, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Mint issues a token for the identity in c. Any Exp on c is overwritten.
func (m *Manager) Mint(c Claims) (string, error) {
	c.Exp = m.now().Add(m.ttl).UnixMilli()

	body, err := json.Marshal(c)
	if err != nil {
		return "", err
	}

	payload := encoding.EncodeToString(body)

	sig, err := jwt.SigningMethodHS256.Sign(payload, m.secret)
	if err != nil {
		return "", err
	}

	return payload + "." + encoding.EncodeToString(sig), nil
}

// Verify checks the signature and expiry of raw.
func (m *Manager) Verify(raw string) (*Claims, error) {
	idx := strings.LastIndex(raw, ".")
	if idx <= 0 || idx == len(raw)-1 {
		return nil, ErrInvalidSession
	}

	payload, encodedSig := raw[:idx], raw[idx+1:]

	sig, err := encoding.DecodeString(encodedSig)
	if err != nil {
		return nil, ErrInvalidSession
	}

	if err := jwt.SigningMethodHS256.Verify(payload, sig, m.secret); err != nil {
		return nil, ErrInvalidSession
	}

	body, err := encoding.DecodeString(payload)
	if err != nil {
		return nil, ErrInvalidSession
	}

	var claims Claims
	if err := json.Unmarshal(body, &claims); err != nil {
		return nil, ErrInvalidSession
	}

	if claims.UserID == "" || claims.Exp <= m.now().UnixMilli() {
		return nil, ErrInvalidSession
	}

	return &claims, nil
}
