package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
)

type mockStore struct {
	mu   sync.Mutex
	data map[string]string
	sets map[string]map[string]struct{}
}

func newMockStore() *mockStore {
	return &mockStore{
		data: make(map[string]string),
		sets: make(map[string]map[string]struct{}),
	}
}

func (m *mockStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	return nil
}

func (m *mockStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return val, nil
}

func (m *mockStore) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
		delete(m.sets, key)
	}
	return nil
}

func (m *mockStore) AddToSet(ctx context.Context, key string, ttl time.Duration, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.sets[key]
	if !ok {
		set = make(map[string]struct{})
		m.sets[key] = set
	}
	for _, member := range members {
		set[member] = struct{}{}
	}
	return nil
}

func (m *mockStore) RemoveFromSet(ctx context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, member := range members {
		delete(m.sets[key], member)
	}
	return nil
}

func (m *mockStore) SetMembers(ctx context.Context, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sets[key]))
	for member := range m.sets[key] {
		out = append(out, member)
	}
	return out, nil
}

func (m *mockStore) AccessSessionKey(accessID string) string {
	return fmt.Sprintf("sess:%s", accessID)
}

func (m *mockStore) EmployeeSessionsKey(employeeID string) string {
	return fmt.Sprintf("emp:%s", employeeID)
}

func newTestManager(store *mockStore) *Manager {
	return &Manager{store: store, keyer: store, ttl: time.Hour, now: time.Now}
}

func TestManagerGenerateAndRotate(t *testing.T) {
	store := newMockStore()
	manager := newTestManager(store)

	ctx := context.Background()
	employeeID := uuid.New()
	accessID := "access-123"
	token, err := manager.Generate(ctx, employeeID, accessID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	stored := store.data[store.AccessSessionKey(accessID)]
	if strings.Contains(stored, token) || !strings.Contains(stored, digest(token)) {
		t.Fatalf("expected only the token digest to be stored, got %q", stored)
	}
	if _, ok := store.sets[store.EmployeeSessionsKey(employeeID.String())][accessID]; !ok {
		t.Fatalf("expected access id indexed under employee")
	}

	if _, _, err := manager.Rotate(ctx, employeeID, accessID, "wrong"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected invalid refresh token error, got %v", err)
	}

	newAccessID, newToken, err := manager.Rotate(ctx, employeeID, accessID, token)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if _, exists := store.data[store.AccessSessionKey(accessID)]; exists {
		t.Fatalf("old access key left behind")
	}
	if stored := store.data[store.AccessSessionKey(newAccessID)]; !strings.Contains(stored, digest(newToken)) {
		t.Fatalf("expected new token digest stored, got %q", stored)
	}
	if _, _, err := manager.Rotate(ctx, employeeID, accessID, token); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("rotated token must not be reusable, got %v", err)
	}
	index := store.sets[store.EmployeeSessionsKey(employeeID.String())]
	if _, ok := index[accessID]; ok {
		t.Fatalf("old access id should be removed from index")
	}
	if _, ok := index[newAccessID]; !ok {
		t.Fatalf("new access id should be indexed")
	}
}

func TestManagerRotateUnknownSession(t *testing.T) {
	manager := newTestManager(newMockStore())
	if _, _, err := manager.Rotate(context.Background(), uuid.New(), "missing", "token"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected invalid refresh token, got %v", err)
	}
}

func TestManagerHasSessionAndRevoke(t *testing.T) {
	store := newMockStore()
	manager := newTestManager(store)
	ctx := context.Background()
	employeeID := uuid.New()

	if _, err := manager.Generate(ctx, employeeID, "jti-1"); err != nil {
		t.Fatalf("generate: %v", err)
	}
	ok, err := manager.HasSession(ctx, "jti-1")
	if err != nil || !ok {
		t.Fatalf("expected live session, got ok=%v err=%v", ok, err)
	}

	if err := manager.Revoke(ctx, employeeID, "jti-1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	ok, err = manager.HasSession(ctx, "jti-1")
	if err != nil || ok {
		t.Fatalf("expected revoked session, got ok=%v err=%v", ok, err)
	}
}

func TestManagerRevokeAll(t *testing.T) {
	store := newMockStore()
	manager := newTestManager(store)
	ctx := context.Background()
	employeeID := uuid.New()
	other := uuid.New()

	for _, jti := range []string{"a", "b"} {
		if _, err := manager.Generate(ctx, employeeID, jti); err != nil {
			t.Fatalf("generate %s: %v", jti, err)
		}
	}
	if _, err := manager.Generate(ctx, other, "c"); err != nil {
		t.Fatalf("generate other: %v", err)
	}

	if err := manager.RevokeAll(ctx, employeeID); err != nil {
		t.Fatalf("revoke all: %v", err)
	}
	for _, jti := range []string{"a", "b"} {
		if ok, _ := manager.HasSession(ctx, jti); ok {
			t.Fatalf("session %s should be revoked", jti)
		}
	}
	if ok, _ := manager.HasSession(ctx, "c"); !ok {
		t.Fatalf("other employee session should survive")
	}
}

func TestManagerRotateRejectsOtherEmployee(t *testing.T) {
	manager := newTestManager(newMockStore())
	ctx := context.Background()
	owner := uuid.New()
	token, err := manager.Generate(ctx, owner, "jti-owner")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, _, err := manager.Rotate(ctx, uuid.New(), "jti-owner", token); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected invalid refresh token, got %v", err)
	}
	if ok, _ := manager.HasSession(ctx, "jti-owner"); !ok {
		t.Fatalf("failed rotation must leave the session intact")
	}
}

func TestManagerTreatsCorruptRecordAsMissing(t *testing.T) {
	store := newMockStore()
	manager := newTestManager(store)
	store.data[store.AccessSessionKey("legacy")] = "raw-token-from-before"
	ok, err := manager.HasSession(context.Background(), "legacy")
	if err != nil || ok {
		t.Fatalf("expected corrupt record to read as no session, got ok=%v err=%v", ok, err)
	}
}
