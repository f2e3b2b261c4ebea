package filter

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/trendformats-go/internal/domain"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

var testNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestFilter() *ContentFilter {
	return NewContentFilter(
		Bounds{MinViews: 50_000, MaxViews: 10_000_000, MaxAgeDays: 45},
		[]string{"xanax", "Weed"},
		fixedClock{now: testNow},
		zap.NewNop(),
	)
}

func TestViewBoundsAreInclusive(t *testing.T) {
	f := newTestFilter()

	cases := map[int64]bool{
		49_999:     false,
		50_000:     true,
		10_000_000: true,
		10_000_001: false,
	}
	for views, want := range cases {
		if got := f.InViewBounds(views); got != want {
			t.Fatalf("InViewBounds(%d): expected %v, got %v", views, want, got)
		}
	}
}

func TestRecencyCutoff(t *testing.T) {
	f := newTestFilter()

	edge := testNow.Add(-45 * 24 * time.Hour).Unix()
	if !f.IsRecent(edge) {
		t.Fatalf("expected item exactly at the cutoff to pass")
	}
	if f.IsRecent(edge - 1) {
		t.Fatalf("expected item one second older than cutoff to fail")
	}
	if f.IsRecent(0) {
		t.Fatalf("expected unknown timestamp to fail")
	}
}

func TestAppropriatenessIsSubstringAndCaseInsensitive(t *testing.T) {
	f := newTestFilter()

	if f.IsAppropriate("my xanax story") {
		t.Fatalf("expected xanax to be rejected")
	}
	if f.IsAppropriate("TUMBLEWEEDS at sunset") {
		t.Fatalf("expected embedded deny word to be rejected (substring match)")
	}
	if !f.IsAppropriate("easy 10 minute pasta") {
		t.Fatalf("expected clean description to be accepted")
	}
}

func TestCheckOrder(t *testing.T) {
	f := newTestFilter()
	fresh := testNow.Add(-24 * time.Hour).Unix()

	cases := []struct {
		name    string
		video   domain.FilteredVideo
		content bool
		want    domain.RejectReason
	}{
		{"no id", domain.FilteredVideo{Views: 60_000, CreateTime: fresh}, false, domain.RejectNoID},
		{"views", domain.FilteredVideo{ID: "1", Views: 100, CreateTime: fresh}, false, domain.RejectViews},
		{"age", domain.FilteredVideo{ID: "1", Views: 60_000, CreateTime: 1}, false, domain.RejectAge},
		{"content", domain.FilteredVideo{ID: "1", Views: 60_000, CreateTime: fresh, Description: "xanax"}, true, domain.RejectContent},
		{"content skipped", domain.FilteredVideo{ID: "1", Views: 60_000, CreateTime: fresh, Description: "xanax"}, false, domain.RejectNone},
		{"ok", domain.FilteredVideo{ID: "1", Views: 60_000, CreateTime: fresh}, true, domain.RejectNone},
	}

	for _, tc := range cases {
		if got := f.Check(&tc.video, tc.content); got != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.want, got)
		}
	}
}

func TestDedup(t *testing.T) {
	d := NewDedup()
	if !d.Add("a") || d.Add("a") || !d.Add("b") {
		t.Fatalf("unexpected dedup behaviour")
	}
	if d.Len() != 2 {
		t.Fatalf("expected 2 ids, got %d", d.Len())
	}
}
