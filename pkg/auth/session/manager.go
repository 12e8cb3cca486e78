package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/ims-backend/pkg/config"
	redisclient "github.com/angelmondragon/ims-backend/pkg/redis"
	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
)

const refreshTokenBytes = 32

var ErrInvalidRefreshToken = errors.New("invalid refresh token")

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	AddToSet(ctx context.Context, key string, ttl time.Duration, members ...string) error
	RemoveFromSet(ctx context.Context, key string, members ...string) error
	SetMembers(ctx context.Context, key string) ([]string, error)
}

type sessionKeyer interface {
	AccessSessionKey(accessID string) string
	EmployeeSessionsKey(employeeID string) string
}

// AccessSessionChecker is the read-only view the auth middleware needs.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// record is what sits under the access-session key. Only a digest of the
// refresh token is kept so a dump of redis cannot be replayed.
type record struct {
	EmployeeID uuid.UUID `json:"employee_id"`
	TokenHash  string    `json:"token_hash"`
	IssuedAt   time.Time `json:"issued_at"`
}

// Manager owns refresh sessions. Each access token jti maps to one refresh
// token, and a per-employee set indexes the jtis so all of them can be
// dropped at once on deactivation or password reset.
type Manager struct {
	store sessionStore
	keyer sessionKeyer
	ttl   time.Duration
	now   func() time.Time
}

func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	ttl := cfg.RefreshTokenTTL()
	accessTTL := time.Duration(cfg.ExpirationMinutes) * time.Minute
	if ttl <= accessTTL {
		return nil, fmt.Errorf("refresh token ttl (%s) must exceed access token ttl (%s)", ttl, accessTTL)
	}
	return &Manager{store: client, keyer: client, ttl: ttl, now: time.Now}, nil
}

// Generate opens a session for accessID and returns the opaque refresh token.
func (m *Manager) Generate(ctx context.Context, employeeID uuid.UUID, accessID string) (string, error) {
	if employeeID == uuid.Nil || strings.TrimSpace(accessID) == "" {
		return "", fmt.Errorf("employee id and access id are required")
	}
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(buf)

	payload, err := json.Marshal(record{EmployeeID: employeeID, TokenHash: digest(token), IssuedAt: m.now().UTC()})
	if err != nil {
		return "", err
	}
	if err := m.store.Set(ctx, m.keyer.AccessSessionKey(accessID), string(payload), m.ttl); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	if err := m.store.AddToSet(ctx, m.keyer.EmployeeSessionsKey(employeeID.String()), m.ttl, accessID); err != nil {
		return "", fmt.Errorf("index session: %w", err)
	}
	return token, nil
}

// Rotate swaps a valid (accessID, refresh token) pair for a new one. The old
// session is gone afterwards even if the caller never uses the new pair.
func (m *Manager) Rotate(ctx context.Context, employeeID uuid.UUID, oldAccessID, provided string) (string, string, error) {
	if employeeID == uuid.Nil || strings.TrimSpace(oldAccessID) == "" || strings.TrimSpace(provided) == "" {
		return "", "", ErrInvalidRefreshToken
	}
	rec, err := m.load(ctx, oldAccessID)
	if err != nil {
		return "", "", err
	}
	match := subtle.ConstantTimeCompare([]byte(rec.TokenHash), []byte(digest(provided))) == 1
	if !match || rec.EmployeeID != employeeID {
		return "", "", ErrInvalidRefreshToken
	}

	newAccessID := NewAccessID()
	newToken, err := m.Generate(ctx, employeeID, newAccessID)
	if err != nil {
		return "", "", err
	}
	if err := m.Revoke(ctx, employeeID, oldAccessID); err != nil {
		return "", "", err
	}
	return newAccessID, newToken, nil
}

// Revoke ends one session. A nil employeeID skips the index cleanup.
func (m *Manager) Revoke(ctx context.Context, employeeID uuid.UUID, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return fmt.Errorf("access id is required")
	}
	err := m.store.Del(ctx, m.keyer.AccessSessionKey(accessID))
	if employeeID != uuid.Nil {
		err = multierr.Append(err, m.store.RemoveFromSet(ctx, m.keyer.EmployeeSessionsKey(employeeID.String()), accessID))
	}
	return err
}

// RevokeAll ends every session belonging to employeeID.
func (m *Manager) RevokeAll(ctx context.Context, employeeID uuid.UUID) error {
	if employeeID == uuid.Nil {
		return fmt.Errorf("employee id is required")
	}
	indexKey := m.keyer.EmployeeSessionsKey(employeeID.String())
	accessIDs, err := m.store.SetMembers(ctx, indexKey)
	if err != nil && !errors.Is(err, redislib.Nil) {
		return err
	}
	keys := make([]string, 0, len(accessIDs)+1)
	for _, id := range accessIDs {
		keys = append(keys, m.keyer.AccessSessionKey(id))
	}
	return m.store.Del(ctx, append(keys, indexKey)...)
}

func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if strings.TrimSpace(accessID) == "" {
		return false, fmt.Errorf("access id is required")
	}
	_, err := m.load(ctx, accessID)
	switch {
	case errors.Is(err, ErrInvalidRefreshToken):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

func (m *Manager) load(ctx context.Context, accessID string) (*record, error) {
	raw, err := m.store.Get(ctx, m.keyer.AccessSessionKey(accessID))
	if errors.Is(err, redislib.Nil) {
		return nil, ErrInvalidRefreshToken
	}
	if err != nil {
		return nil, err
	}
	var rec record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil || rec.TokenHash == "" {
		return nil, ErrInvalidRefreshToken
	}
	return &rec, nil
}

// NewAccessID returns a fresh jti.
func NewAccessID() string {
	return uuid.NewString()
}

func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
