package fetcher

import (
	"context"
	"math/rand"

	"go.uber.org/zap"

	"github.com/kapu/trendformats-go/internal/constants"
	"github.com/kapu/trendformats-go/internal/domain"
	"github.com/kapu/trendformats-go/internal/metrics"
	"github.com/kapu/trendformats-go/internal/service/filter"
	"github.com/kapu/trendformats-go/internal/service/scraper"
	"github.com/kapu/trendformats-go/internal/util"
)

type HashtagResolver interface {
	Resolve(niche string) []string
}

// ShuffleFunc permutes tags in place.
type ShuffleFunc func(tags []string)

func randomShuffle(tags []string) {
	rand.Shuffle(len(tags), func(i, j int) { tags[i], tags[j] = tags[j], tags[i] })
}

type Option func(*Fetcher)

func WithShuffle(fn ShuffleFunc) Option {
	return func(f *Fetcher) { f.shuffle = fn }
}

func WithPacer(p *util.Pacer) Option {
	return func(f *Fetcher) { f.pacer = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(f *Fetcher) { f.metrics = m }
}

func WithPageSize(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.pageSize = n
		}
	}
}

// Fetcher collects filtered videos for a niche from one platform source.
// Hashtags are queried sequentially.
type Fetcher struct {
	resolver  HashtagResolver
	sources   map[domain.Platform]scraper.Source
	filter    *filter.ContentFilter
	pacer     *util.Pacer
	shuffle   ShuffleFunc
	pageSize  int
	firstPass int
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

func NewFetcher(resolver HashtagResolver, sources []scraper.Source, f *filter.ContentFilter, logger *zap.Logger, opts ...Option) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	fe := &Fetcher{
		resolver:  resolver,
		sources:   make(map[domain.Platform]scraper.Source, len(sources)),
		filter:    f,
		pacer:     util.NewPacer(0),
		shuffle:   randomShuffle,
		pageSize:  constants.FetchConfig.PageSize,
		firstPass: constants.FetchConfig.FirstPassHashtags,
		logger:    logger,
	}
	for _, s := range sources {
		fe.sources[s.Platform()] = s
	}
	for _, opt := range opts {
		opt(fe)
	}
	return fe
}

// Fetch never fails: per-hashtag problems land in the returned debug record
// and an empty slice is the only signal of total failure.
func (f *Fetcher) Fetch(ctx context.Context, niche string, platform domain.Platform, desiredCount int) ([]domain.FilteredVideo, *domain.FetchDebug) {
	if desiredCount <= 0 {
		desiredCount = constants.FetchConfig.TargetCount
	}
	debug := domain.NewFetchDebug(platform)
	videos := make([]domain.FilteredVideo, 0, desiredCount)

	src, ok := f.sources[platform]
	if !ok {
		debug.AddError("platform %q is not configured", platform)
		return videos, debug
	}

	tags := f.resolver.Resolve(niche)
	f.shuffle(tags)

	k := util.Min(f.firstPass, len(tags))
	passes := [][]string{tags[:k], tags[k:]}

	run := &fetchRun{
		fetcher: f,
		source:  src,
		debug:   debug,
		dedup:   filter.NewDedup(),
		desired: desiredCount,
		videos:  videos,
	}

	for i, pass := range passes {
		if i >= constants.FetchConfig.MaxPasses || len(pass) == 0 {
			break
		}
		if i > 0 && run.done() {
			break
		}
		debug.Passes = i + 1

		for _, tag := range pass {
			if run.done() {
				break
			}
			if err := ctx.Err(); err != nil {
				debug.AddError("fetch cancelled: %v", err)
				return run.videos, debug
			}
			run.fetchHashtag(ctx, tag)
		}
	}

	f.logger.Info("Fetch completed",
		zap.String("niche", niche),
		zap.String("platform", platform.String()),
		zap.Int("videos", len(run.videos)),
		zap.Int("passes", debug.Passes),
		zap.Int("errors", len(debug.Errors)),
	)

	return run.videos, debug
}

type fetchRun struct {
	fetcher *Fetcher
	source  scraper.Source
	debug   *domain.FetchDebug
	dedup   *filter.Dedup
	desired int
	videos  []domain.FilteredVideo
}

func (r *fetchRun) done() bool {
	return len(r.videos) >= r.desired
}

func (r *fetchRun) fetchHashtag(ctx context.Context, tag string) {
	f := r.fetcher
	r.debug.AddHashtag(tag)

	if err := f.pacer.Wait(ctx); err != nil {
		r.debug.AddError("#%s: %v", tag, err)
		return
	}
	id, err := r.source.ResolveHashtagID(ctx, tag)
	if err != nil {
		f.logger.Warn("Hashtag lookup failed", zap.String("hashtag", tag), zap.Error(err))
		r.debug.AddError("#%s: resolve hashtag id: %v", tag, err)
		return
	}

	if err := f.pacer.Wait(ctx); err != nil {
		r.debug.AddError("#%s: %v", tag, err)
		return
	}
	items, err := r.source.ListItems(ctx, tag, id, f.pageSize)
	if err != nil {
		f.logger.Warn("Hashtag listing failed", zap.String("hashtag", tag), zap.Error(err))
		r.debug.AddError("#%s: list items: %v", tag, err)
		return
	}
	if len(items) == 0 {
		r.debug.AddError("#%s: no items returned", tag)
		return
	}
	r.debug.Seen(len(items))

	for _, item := range items {
		v := scraper.NormalizeItem(item)
		if reason := f.filter.Check(&v, r.source.ChecksContent()); reason != domain.RejectNone {
			r.debug.Reject(reason)
			f.metrics.IncFilterRejection(string(reason))
			continue
		}
		if !r.dedup.Add(v.ID) {
			r.debug.Reject(domain.RejectDuplicate)
			f.metrics.IncFilterRejection(string(domain.RejectDuplicate))
			continue
		}
		r.videos = append(r.videos, v)
		if r.done() {
			return
		}
	}
}
