package usage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kapu/trendformats-go/internal/domain"
	"github.com/kapu/trendformats-go/internal/service/database"
)

func TestPolicySummarize(t *testing.T) {
	p := Policy{Free: 5, Creator: 50, Pro: 0}

	s := p.Summarize(domain.PlanFree, 3)
	if s.Limit != 5 || s.Remaining != 2 || s.Unlimited || !Allows(s) {
		t.Fatalf("unexpected free summary %+v", s)
	}

	s = p.Summarize(domain.PlanFree, 5)
	if s.Remaining != 0 || Allows(s) {
		t.Fatalf("expected free plan exhausted at 5, got %+v", s)
	}

	s = p.Summarize(domain.PlanFree, 9)
	if s.Remaining != 0 {
		t.Fatalf("expected remaining clamped at 0, got %d", s.Remaining)
	}

	s = p.Summarize(domain.PlanPro, 1000)
	if !s.Unlimited || !Allows(s) || s.Limit != 0 {
		t.Fatalf("expected pro unlimited, got %+v", s)
	}

	s = p.Summarize("gold", 1)
	if s.Plan != domain.PlanFree || s.Limit != 5 {
		t.Fatalf("expected unknown plan treated as free, got %+v", s)
	}
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// Runs against a real database when TEST_POSTGRES_DSN is set.
func TestRepositoryMonthlyWindow(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}

	pg, err := database.NewPostgresService(dsn, zap.NewNop())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer pg.Close()

	ctx := context.Background()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	lastMonth := NewRepository(pg.GetDB(), Policy{Free: 2}, zap.NewNop(), WithClock(fixedClock{now.AddDate(0, -1, 0)}))
	repo := NewRepository(pg.GetDB(), Policy{Free: 2}, zap.NewNop(), WithClock(fixedClock{now}))
	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("schema: %v", err)
	}

	sess := domain.Session{UserID: "test-" + uuid.NewString(), Plan: domain.PlanFree}
	if err := repo.UpsertUser(ctx, sess); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if err := lastMonth.RecordFormatSearchUsage(ctx, sess.UserID, "food", domain.PlatformInstagram); err != nil {
		t.Fatalf("record: %v", err)
	}
	for i := 0; i < 2; i++ {
		ok, _, err := repo.CanUseFormatSearch(ctx, sess)
		if err != nil || !ok {
			t.Fatalf("search %d: expected allowed, got %v %v", i, ok, err)
		}
		if err := repo.RecordFormatSearchUsage(ctx, sess.UserID, "food", domain.PlatformTikTok); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	ok, summary, err := repo.CanUseFormatSearch(ctx, sess)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok || summary.Used != 2 {
		t.Fatalf("expected quota exhausted with 2 uses this month, got %v %+v", ok, summary)
	}
}
