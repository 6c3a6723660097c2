// Package sessioncookie issues and verifies the unlock session cookie that
// guards /app/. The cookie carries an HS256 JWT bound to one device.
package sessioncookie

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/louisbranch/newsgate/internal/services/web/platform/requestmeta"
	"golang.org/x/crypto/hkdf"
)

const (
	// Name is the canonical unlock session cookie name.
	Name = "newsgate_unlock"
	// TokenIssuer is the iss claim on unlock tokens.
	TokenIssuer = "newsgate-web"
	// DefaultTTL bounds an unlock session when none is configured.
	DefaultTTL = 12 * time.Hour
)

var (
	ErrInvalid        = errors.New("unlock session is invalid")
	ErrExpired        = errors.New("unlock session is expired")
	ErrDeviceMismatch = errors.New("unlock session belongs to another device")
)

// Method records how the device was unlocked.
type Method string

const (
	MethodBiometric Method = "biometric"
	MethodPassword  Method = "password"
)

// Claims are the validated unlock session claims.
type Claims struct {
	ID        string
	DeviceID  string
	Method    Method
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type unlockClaims struct {
	jwt.RegisteredClaims
	Method Method `json:"unlock_method"`
}

// Manager signs, verifies and writes unlock sessions.
type Manager struct {
	key    []byte
	ttl    time.Duration
	now    func() time.Time
	policy requestmeta.SchemePolicy
}

// NewManager derives the signing key from secret.
func NewManager(secret []byte, ttl time.Duration, policy requestmeta.SchemePolicy) (*Manager, error) {
	if len(secret) < 32 {
		return nil, errors.New("unlock secret must be at least 32 bytes")
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte("newsgate/unlock/v1")), key); err != nil {
		return nil, fmt.Errorf("derive unlock key: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{key: key, ttl: ttl, now: time.Now, policy: policy}, nil
}

// TTL returns the session lifetime.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a new unlock token for deviceID.
func (m *Manager) Issue(deviceID string, method Method) (string, Claims, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return "", Claims{}, errors.New("device id is required")
	}
	now := m.now().UTC().Truncate(time.Second)
	claims := unlockClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    TokenIssuer,
			Subject:   deviceID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		Method: method,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
	if err != nil {
		return "", Claims{}, fmt.Errorf("sign unlock session: %w", err)
	}
	return signed, toClaims(claims), nil
}

// Verify validates token and that it was issued to deviceID.
func (m *Manager) Verify(token string, deviceID string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, ErrInvalid
	}
	var parsed unlockClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(*jwt.Token) (any, error) {
		return m.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpired
		}
		return Claims{}, ErrInvalid
	}
	if parsed.Subject == "" || parsed.Subject != strings.TrimSpace(deviceID) {
		return Claims{}, ErrDeviceMismatch
	}
	return toClaims(parsed), nil
}

// Write issues a session for deviceID and sets the cookie.
func (m *Manager) Write(w http.ResponseWriter, r *http.Request, deviceID string, method Method) (Claims, error) {
	token, claims, err := m.Issue(deviceID, method)
	if err != nil {
		return Claims{}, err
	}
	if w != nil {
		http.SetCookie(w, &http.Cookie{
			Name:     Name,
			Value:    token,
			Path:     "/",
			MaxAge:   int(m.ttl.Seconds()),
			HttpOnly: true,
			Secure:   requestmeta.IsHTTPSWithPolicy(r, m.policy),
			SameSite: http.SameSiteLaxMode,
		})
	}
	return claims, nil
}

// Authenticate verifies the request's unlock cookie for deviceID.
func (m *Manager) Authenticate(r *http.Request, deviceID string) (Claims, error) {
	token, ok := Read(r)
	if !ok {
		return Claims{}, ErrInvalid
	}
	return m.Verify(token, deviceID)
}

// Clear expires the unlock cookie.
func (m *Manager) Clear(w http.ResponseWriter, r *http.Request) {
	if w == nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     Name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   requestmeta.IsHTTPSWithPolicy(r, m.policy),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// Read returns the trimmed unlock cookie value when present.
func Read(r *http.Request) (string, bool) {
	if r == nil {
		return "", false
	}
	cookie, err := r.Cookie(Name)
	if err != nil || cookie == nil {
		return "", false
	}
	value := strings.TrimSpace(cookie.Value)
	if value == "" {
		return "", false
	}
	return value, true
}

func toClaims(raw unlockClaims) Claims {
	claims := Claims{ID: raw.ID, DeviceID: raw.Subject, Method: raw.Method}
	if raw.IssuedAt != nil {
		claims.IssuedAt = raw.IssuedAt.Time.UTC()
	}
	if raw.ExpiresAt != nil {
		claims.ExpiresAt = raw.ExpiresAt.Time.UTC()
	}
	return claims
}
