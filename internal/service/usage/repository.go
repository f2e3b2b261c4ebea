package usage

import (
	"context"
	"database/sql"
	stderrors "errors"

	"go.uber.org/zap"

	"github.com/kapu/trendformats-go/internal/domain"
	"github.com/kapu/trendformats-go/internal/util"
	"github.com/kapu/trendformats-go/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	email      TEXT NOT NULL DEFAULT '',
	plan       TEXT NOT NULL DEFAULT 'free',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS format_search_usage (
	id         BIGSERIAL PRIMARY KEY,
	user_id    TEXT NOT NULL,
	niche      TEXT NOT NULL,
	platform   TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_format_search_usage_user_created
	ON format_search_usage (user_id, created_at);
`

// Repository is the monthly format search ledger in Postgres.
type Repository struct {
	db     *sql.DB
	policy Policy
	clock  util.Clock
	logger *zap.Logger
}

type Option func(*Repository)

func WithClock(c util.Clock) Option {
	return func(r *Repository) { r.clock = c }
}

func NewRepository(db *sql.DB, policy Policy, logger *zap.Logger, opts ...Option) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Repository{
		db:     db,
		policy: policy,
		clock:  util.SystemClock(),
		logger: logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return errors.NewServiceError("failed to create schema", "postgres", "ensure_schema", err)
	}
	r.logger.Info("Usage schema ready")
	return nil
}

// UpsertUser records the user and the plan carried by their session.
func (r *Repository) UpsertUser(ctx context.Context, sess domain.Session) error {
	plan := sess.Plan
	if !plan.IsValid() {
		plan = domain.PlanFree
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, plan) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, plan = EXCLUDED.plan`,
		sess.UserID, sess.Email, string(plan),
	)
	if err != nil {
		return errors.NewServiceError("failed to upsert user", "postgres", "upsert_user", err)
	}
	return nil
}

// Summary returns this month's usage. The users table wins over the plan in
// the session; sessions for unknown users fall back to their own plan.
func (r *Repository) Summary(ctx context.Context, sess domain.Session) (domain.UsageSummary, error) {
	plan, err := r.planFor(ctx, sess)
	if err != nil {
		return domain.UsageSummary{}, err
	}
	used, err := r.countThisMonth(ctx, sess.UserID)
	if err != nil {
		return domain.UsageSummary{}, err
	}
	return r.policy.Summarize(plan, used), nil
}

func (r *Repository) CanUseFormatSearch(ctx context.Context, sess domain.Session) (bool, domain.UsageSummary, error) {
	summary, err := r.Summary(ctx, sess)
	if err != nil {
		return false, summary, err
	}
	return Allows(summary), summary, nil
}

// RecordFormatSearchUsage is called only after a successful response.
func (r *Repository) RecordFormatSearchUsage(ctx context.Context, userID, niche string, platform domain.Platform) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO format_search_usage (user_id, niche, platform, created_at) VALUES ($1, $2, $3, $4)`,
		userID, niche, string(platform), r.clock.Now().UTC(),
	)
	if err != nil {
		return errors.NewServiceError("failed to record usage", "postgres", "record_usage", err)
	}
	return nil
}

func (r *Repository) planFor(ctx context.Context, sess domain.Session) (domain.Plan, error) {
	var plan string
	err := r.db.QueryRowContext(ctx, `SELECT plan FROM users WHERE id = $1`, sess.UserID).Scan(&plan)
	if stderrors.Is(err, sql.ErrNoRows) {
		return sess.Plan, nil
	}
	if err != nil {
		return "", errors.NewServiceError("failed to load plan", "postgres", "plan", err)
	}
	return domain.Plan(plan), nil
}

func (r *Repository) countThisMonth(ctx context.Context, userID string) (int, error) {
	var used int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM format_search_usage WHERE user_id = $1 AND created_at >= $2`,
		userID, util.MonthStartUTC(r.clock.Now()),
	).Scan(&used)
	if err != nil {
		return 0, errors.NewServiceError("failed to count usage", "postgres", "count_usage", err)
	}
	return used, nil
}
