package session

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kapu/trendformats-go/internal/constants"
	"github.com/kapu/trendformats-go/internal/domain"
	"github.com/kapu/trendformats-go/pkg/errors"
)

// KV is the part of cache.CacheService the store uses.
type KV interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// Store maps opaque cookie tokens to sessions in Redis.
type Store struct {
	kv     KV
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

func NewStore(kv KV, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		kv:     kv,
		prefix: constants.SessionConfig.KeyPrefix,
		ttl:    constants.SessionConfig.TTL,
		logger: logger,
	}
}

func (s *Store) TTL() time.Duration {
	return s.ttl
}

func (s *Store) key(token string) string {
	return s.prefix + token
}

// Lookup returns domain.ErrUnauthenticated for an empty, unknown or
// malformed session. Redis failures come back as cache errors. A hit slides
// the session expiry forward.
func (s *Store) Lookup(ctx context.Context, token string) (*domain.Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.ErrUnauthenticated
	}

	var sess domain.Session
	found, err := s.kv.Get(ctx, s.key(token), &sess)
	if err != nil {
		return nil, err
	}
	if !found || sess.UserID == "" {
		return nil, domain.ErrUnauthenticated
	}
	if !sess.Plan.IsValid() {
		sess.Plan = domain.PlanFree
	}
	if err := s.kv.Expire(ctx, s.key(token), s.ttl); err != nil {
		s.logger.Warn("Failed to refresh session TTL", zap.String("user_id", sess.UserID), zap.Error(err))
	}
	return &sess, nil
}

// Create stores sess under a fresh token and returns the token.
func (s *Store) Create(ctx context.Context, sess domain.Session) (string, error) {
	if strings.TrimSpace(sess.UserID) == "" {
		return "", errors.NewValidationError("user_id is required", "user_id", sess.UserID)
	}
	if !sess.Plan.IsValid() {
		sess.Plan = domain.PlanFree
	}

	token := uuid.NewString()
	if err := s.kv.Set(ctx, s.key(token), sess, s.ttl); err != nil {
		return "", err
	}

	s.logger.Info("Session created", zap.String("user_id", sess.UserID), zap.String("plan", string(sess.Plan)))
	return token, nil
}

func (s *Store) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.kv.Del(ctx, s.key(token))
}
