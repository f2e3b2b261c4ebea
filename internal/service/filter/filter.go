package filter

import (
	"strings"

	"go.uber.org/zap"

	"github.com/kapu/trendformats-go/internal/domain"
	"github.com/kapu/trendformats-go/internal/util"
)

// Bounds are the acceptance thresholds. Both view bounds are inclusive.
type Bounds struct {
	MinViews   int64
	MaxViews   int64
	MaxAgeDays int
}

// ContentFilter decides whether a normalized vendor item may enter the pipeline.
type ContentFilter struct {
	bounds Bounds
	deny   []string
	clock  util.Clock
	logger *zap.Logger
}

func NewContentFilter(bounds Bounds, denyKeywords []string, clock util.Clock, logger *zap.Logger) *ContentFilter {
	if clock == nil {
		clock = util.SystemClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	deny := make([]string, 0, len(denyKeywords))
	for _, k := range denyKeywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			deny = append(deny, k)
		}
	}

	return &ContentFilter{
		bounds: bounds,
		deny:   deny,
		clock:  clock,
		logger: logger,
	}
}

func (f *ContentFilter) Bounds() Bounds {
	return f.bounds
}

// InViewBounds reports MIN_VIEWS <= views <= MAX_VIEWS.
func (f *ContentFilter) InViewBounds(views int64) bool {
	return views >= f.bounds.MinViews && views <= f.bounds.MaxViews
}

// IsRecent reports createTime >= now - MaxAgeDays. Zero timestamps are
// treated as unknown and rejected.
func (f *ContentFilter) IsRecent(createTime int64) bool {
	if createTime <= 0 {
		return false
	}
	cutoff := util.CutoffDays(f.clock.Now(), f.bounds.MaxAgeDays).Unix()
	return createTime >= cutoff
}

// IsAppropriate runs a case-insensitive substring scan of text against the
// deny-list. Word boundaries are not considered.
func (f *ContentFilter) IsAppropriate(text string) bool {
	hit, found := util.ContainsAnyFold(text, f.deny)
	if found {
		f.logger.Debug("Content rejected by deny-list", zap.String("keyword", hit))
	}
	return !found
}

// Check applies the checks in order and returns the first failing reason.
// checkContent enables the deny-list scan.
func (f *ContentFilter) Check(v *domain.FilteredVideo, checkContent bool) domain.RejectReason {
	if v.ID == "" {
		return domain.RejectNoID
	}
	if !f.InViewBounds(v.Views) {
		return domain.RejectViews
	}
	if !f.IsRecent(v.CreateTime) {
		return domain.RejectAge
	}
	if checkContent && !f.IsAppropriate(v.Description) {
		return domain.RejectContent
	}
	return domain.RejectNone
}

// Dedup tracks IDs already accepted within one run.
type Dedup struct {
	seen map[string]struct{}
}

func NewDedup() *Dedup {
	return &Dedup{seen: make(map[string]struct{})}
}

// Add returns false if id was already accepted.
func (d *Dedup) Add(id string) bool {
	if _, ok := d.seen[id]; ok {
		return false
	}
	d.seen[id] = struct{}{}
	return true
}

func (d *Dedup) Len() int {
	return len(d.seen)
}
