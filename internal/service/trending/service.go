package trending

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/trendformats-go/internal/constants"
	"github.com/kapu/trendformats-go/internal/domain"
	"github.com/kapu/trendformats-go/internal/metrics"
	"github.com/kapu/trendformats-go/internal/service/assemble"
	"github.com/kapu/trendformats-go/pkg/errors"
)

type Stage string

const (
	StageResolved   Stage = "resolved"
	StageFetching   Stage = "fetching"
	StageFetched    Stage = "fetched"
	StageExtracting Stage = "extracting"
	StageDone       Stage = "done"
	StageError      Stage = "error"
)

// Event is one progress notification for a running pipeline.
type Event struct {
	Stage   Stage  `json:"stage"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type ProgressFunc func(Event)

type HashtagResolver interface {
	Resolve(niche string) []string
}

type VideoFetcher interface {
	Fetch(ctx context.Context, niche string, platform domain.Platform, desiredCount int) ([]domain.FilteredVideo, *domain.FetchDebug)
}

type FormatExtractor interface {
	Extract(ctx context.Context, videos []domain.FilteredVideo, niche string) ([]domain.TrendingFormat, domain.AnalysisMethod)
}

type Request struct {
	Niche    string
	Platform domain.Platform
	Progress ProgressFunc
}

// Service runs resolve, fetch, extract and assemble for one request.
type Service struct {
	resolver    HashtagResolver
	fetcher     VideoFetcher
	extractor   FormatExtractor
	targetCount int
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

type Option func(*Service)

func WithTargetCount(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.targetCount = n
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(resolver HashtagResolver, fetcher VideoFetcher, extractor FormatExtractor, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		resolver:    resolver,
		fetcher:     fetcher,
		extractor:   extractor,
		targetCount: constants.FetchConfig.TargetCount,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run returns the payload, or domain.ErrInsufficientData together with the
// fetch debug record when no video survived filtering. The debug record is
// returned in both cases.
func (s *Service) Run(ctx context.Context, req Request) (*domain.TrendingPayload, *domain.FetchDebug, error) {
	start := time.Now()
	emit := req.Progress
	if emit == nil {
		emit = func(Event) {}
	}

	niche := strings.TrimSpace(req.Niche)
	if niche == "" {
		return nil, nil, errors.NewValidationError("niche is required", "niche", req.Niche)
	}
	platform := req.Platform
	if platform == "" {
		platform = domain.PlatformTikTok
	}

	hashtags := s.resolver.Resolve(niche)
	emit(Event{Stage: StageResolved, Message: fmt.Sprintf("%d hashtags for %q", len(hashtags), niche), Data: hashtags})

	emit(Event{Stage: StageFetching, Message: "fetching " + string(platform) + " videos"})
	videos, debug := s.fetcher.Fetch(ctx, niche, platform, s.targetCount)

	if len(videos) == 0 {
		s.metrics.ObservePipeline(string(platform), "empty", time.Since(start))
		s.logger.Warn("No videos after filtering",
			zap.String("niche", niche),
			zap.String("platform", string(platform)),
			zap.Strings("errors", debug.Errors),
		)
		emit(Event{Stage: StageError, Message: domain.ErrInsufficientData.Error(), Data: debug})
		return nil, debug, domain.ErrInsufficientData
	}
	emit(Event{Stage: StageFetched, Message: fmt.Sprintf("%d videos passed filtering", len(videos)), Data: map[string]int{"count": len(videos)}})

	emit(Event{Stage: StageExtracting, Message: "extracting formats"})
	formats, method := s.extractor.Extract(ctx, videos, niche)

	payload := assemble.Assemble(formats, videos, assemble.Request{
		Niche:    niche,
		Platform: platform,
		Hashtags: debug.HashtagsTried,
		Method:   method,
	})

	s.metrics.ObservePipeline(string(platform), "ok", time.Since(start))
	s.logger.Info("Trending formats ready",
		zap.String("niche", niche),
		zap.String("platform", string(platform)),
		zap.Int("videos", len(videos)),
		zap.String("method", string(method)),
		zap.Duration("took", time.Since(start)),
	)
	emit(Event{Stage: StageDone, Message: "done", Data: payload})

	return &payload, debug, nil
}
