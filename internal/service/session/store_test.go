package session

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/trendformats-go/internal/domain"
)

type memKV struct {
	data map[string][]byte
	ttls map[string]time.Duration
	err  error
}

func newMemKV() *memKV {
	return &memKV{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memKV) Get(_ context.Context, key string, dest any) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	raw, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (m *memKV) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = raw
	m.ttls[key] = ttl
	return nil
}

func (m *memKV) Del(_ context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func (m *memKV) Expire(_ context.Context, key string, ttl time.Duration) error {
	if _, ok := m.data[key]; ok {
		m.ttls[key] = ttl
	}
	return nil
}

func TestCreateAndLookup(t *testing.T) {
	kv := newMemKV()
	store := NewStore(kv, zap.NewNop())

	token, err := store.Create(context.Background(), domain.Session{UserID: "u1", Email: "a@b.c", Plan: domain.PlanCreator})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	raw, ok := kv.data["session:"+token]
	if !ok {
		t.Fatalf("expected session stored under session:<token>")
	}
	if !strings.Contains(string(raw), `"user_id":"u1"`) {
		t.Fatalf("expected snake_case session json, got %s", raw)
	}
	if kv.ttls["session:"+token] != store.TTL() {
		t.Fatalf("expected ttl %v, got %v", store.TTL(), kv.ttls["session:"+token])
	}

	sess, err := store.Lookup(context.Background(), token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.UserID != "u1" || sess.Plan != domain.PlanCreator {
		t.Fatalf("unexpected session %+v", sess)
	}

	if err := store.Revoke(context.Background(), token); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.Lookup(context.Background(), token); !stderrors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated after revoke, got %v", err)
	}
}

func TestLookupUnknownOrEmpty(t *testing.T) {
	store := NewStore(newMemKV(), zap.NewNop())

	for _, token := range []string{"", "  ", "nope"} {
		if _, err := store.Lookup(context.Background(), token); !stderrors.Is(err, domain.ErrUnauthenticated) {
			t.Fatalf("token %q: expected ErrUnauthenticated, got %v", token, err)
		}
	}
}

func TestLookupInvalidPlanDefaultsToFree(t *testing.T) {
	kv := newMemKV()
	kv.data["session:t"] = []byte(`{"user_id":"u2","plan":"enterprise"}`)

	sess, err := NewStore(kv, zap.NewNop()).Lookup(context.Background(), "t")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.Plan != domain.PlanFree {
		t.Fatalf("expected free plan, got %s", sess.Plan)
	}
}

func TestLookupPropagatesBackendError(t *testing.T) {
	kv := newMemKV()
	kv.err = stderrors.New("redis down")

	_, err := NewStore(kv, zap.NewNop()).Lookup(context.Background(), "t")
	if err == nil || stderrors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected backend error, got %v", err)
	}
}

func TestCreateRequiresUserID(t *testing.T) {
	if _, err := NewStore(newMemKV(), zap.NewNop()).Create(context.Background(), domain.Session{}); err == nil {
		t.Fatalf("expected error without user id")
	}
}

func TestLookupRefreshesTTL(t *testing.T) {
	kv := newMemKV()
	store := NewStore(kv, zap.NewNop())

	token, err := store.Create(context.Background(), domain.Session{UserID: "u1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	kv.ttls["session:"+token] = time.Minute

	if _, err := store.Lookup(context.Background(), token); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := kv.ttls["session:"+token]; got != store.TTL() {
		t.Fatalf("expected TTL refreshed to %v, got %v", store.TTL(), got)
	}
}
