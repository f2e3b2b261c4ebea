package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/openai/openai-go/v3/option"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kapu/trendformats-go/internal/api"
	"github.com/kapu/trendformats-go/internal/api/handler"
	"github.com/kapu/trendformats-go/internal/catalog"
	"github.com/kapu/trendformats-go/internal/config"
	"github.com/kapu/trendformats-go/internal/constants"
	"github.com/kapu/trendformats-go/internal/domain"
	"github.com/kapu/trendformats-go/internal/metrics"
	"github.com/kapu/trendformats-go/internal/service/ai"
	"github.com/kapu/trendformats-go/internal/service/cache"
	"github.com/kapu/trendformats-go/internal/service/database"
	"github.com/kapu/trendformats-go/internal/service/extract"
	"github.com/kapu/trendformats-go/internal/service/fetcher"
	"github.com/kapu/trendformats-go/internal/service/filter"
	"github.com/kapu/trendformats-go/internal/service/hashtag"
	"github.com/kapu/trendformats-go/internal/service/media"
	"github.com/kapu/trendformats-go/internal/service/scraper"
	"github.com/kapu/trendformats-go/internal/service/session"
	"github.com/kapu/trendformats-go/internal/service/trending"
	"github.com/kapu/trendformats-go/internal/service/usage"
	"github.com/kapu/trendformats-go/internal/util"
)

// Pipeline is the request-independent half of the service: everything needed
// to turn a niche into formats. The CLI uses it without Redis or Postgres.
type Pipeline struct {
	Catalog   *catalog.Catalog
	Resolver  *hashtag.Resolver
	Fetcher   *fetcher.Fetcher
	Extractor *extract.Extractor
	Models    *ai.ModelManager
	Service   *trending.Service
	// Breakers guard the scraper clients, one per platform.
	Breakers []*util.CircuitBreaker
}

// BuildPipeline wires resolver, sources, filter, downloader and models.
// Missing API keys are logged and degrade the affected tier.
func BuildPipeline(ctx context.Context, cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) (*Pipeline, error) {
	cat, err := catalog.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	resolver := hashtag.NewResolver(cat, logger)
	contentFilter := filter.NewContentFilter(filter.Bounds{
		MinViews:   cfg.Pipeline.MinViews,
		MaxViews:   cfg.Pipeline.MaxViews,
		MaxAgeDays: cfg.Pipeline.MaxAgeDays,
	}, cat.DenyKeywords, util.SystemClock(), logger)

	if len(cfg.Scraper.APIKeys) == 0 {
		logger.Warn("No RAPIDAPI_KEY configured; every hashtag will be recorded as an error")
	}
	tiktokClient := newScraperClient(domain.PlatformTikTok, cfg.Scraper.TikTokHost, cfg.Scraper.TikTokBaseURL, cfg.Scraper.APIKeys, logger, m)
	instagramClient := newScraperClient(domain.PlatformInstagram, cfg.Scraper.InstagramHost, cfg.Scraper.InstagramBaseURL, cfg.Scraper.APIKeys, logger, m)
	sources := []scraper.Source{
		scraper.NewTikTokSource(tiktokClient),
		scraper.NewInstagramSource(instagramClient),
	}
	fetch := fetcher.NewFetcher(resolver, sources, contentFilter, logger,
		fetcher.WithPacer(util.NewPacer(cfg.Pipeline.MinCallInterval)),
		fetcher.WithPageSize(cfg.Pipeline.PageSize),
		fetcher.WithMetrics(m),
	)

	var downloaderOpts []media.DownloaderOption
	if cfg.Pipeline.OGImageFallback {
		downloaderOpts = append(downloaderOpts, media.WithCoverResolver(media.NewOGImageResolver(nil, logger)))
	}
	downloader := media.NewDownloader(logger, downloaderOpts...)

	// Typed nil pointers must not leak into the Provider interfaces.
	var vision, text ai.Provider
	var openaiOpts []option.RequestOption
	if cfg.OpenAI.BaseURL != "" {
		openaiOpts = append(openaiOpts, option.WithBaseURL(cfg.OpenAI.BaseURL))
	}
	if p := ai.NewOpenAIProvider(cfg.OpenAI.APIKey, cfg.OpenAI.VisionModel, logger, openaiOpts...); p != nil {
		vision = p
	} else {
		logger.Warn("OPENAI_API_KEY not set; vision tier disabled")
	}
	gemini, err := ai.NewGeminiProvider(ctx, cfg.Gemini.APIKey, cfg.Gemini.TextModel, "", logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini provider: %w", err)
	}
	if gemini != nil {
		text = gemini
	} else {
		logger.Warn("GEMINI_API_KEY not set; text tier disabled")
	}
	models := ai.NewModelManager(ai.ModelManagerConfig{Vision: vision, Text: text, Metrics: m}, logger)

	extractor := extract.NewExtractor(models, downloader, cat, resolver, logger, extract.WithMetrics(m))
	service := trending.NewService(resolver, fetch, extractor, logger,
		trending.WithTargetCount(cfg.Pipeline.TargetCount),
		trending.WithMetrics(m),
	)

	return &Pipeline{
		Catalog:   cat,
		Resolver:  resolver,
		Fetcher:   fetch,
		Extractor: extractor,
		Models:    models,
		Service:   service,
		Breakers:  []*util.CircuitBreaker{tiktokClient.Breaker(), instagramClient.Breaker()},
	}, nil
}

func newScraperClient(platform domain.Platform, host, baseURL string, keys []string, logger *zap.Logger, m *metrics.Metrics) *scraper.RapidAPIClient {
	breaker := util.NewCircuitBreaker(
		"scraper_"+string(platform),
		constants.CircuitBreakerConfig.FailureThreshold,
		constants.CircuitBreakerConfig.ResetTimeout,
		logger,
		util.WithStateChange(func(name string, _, to util.CircuitState) {
			m.SetBreakerOpen(name, to == util.CircuitStateOpen)
		}),
	)
	return scraper.NewRapidAPIClient(string(platform), host, baseURL, keys, logger,
		scraper.WithBreaker(breaker),
		scraper.WithMetrics(m),
	)
}

// Container holds the fully wired server.
type Container struct {
	Config   *config.Config
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
	Pipeline *Pipeline
	Cache    *cache.CacheService
	Postgres *database.PostgresService
	Sessions *session.Store
	Usage    *usage.Repository

	closers []func()
}

// Build assembles infrastructure and the pipeline. Redis and Postgres are
// required; LLM and scraper keys are not.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (container *Container, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var closers []func()
	defer func() {
		if err != nil {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		}
	}()

	m := metrics.New(prometheus.NewRegistry())

	cacheSvc, err := cache.NewCacheService(cache.CacheConfig{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache service: %w", err)
	}
	closers = append(closers, func() {
		_ = cacheSvc.Close()
	})

	postgresSvc, err := database.NewPostgresService(cfg.Postgres.DSN(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres service: %w", err)
	}
	closers = append(closers, func() {
		_ = postgresSvc.Close()
	})

	usageRepo := usage.NewRepository(postgresSvc.GetDB(), usage.Policy{
		Free:    cfg.Quota.FreeMonthly,
		Creator: cfg.Quota.CreatorMonthly,
		Pro:     cfg.Quota.ProMonthly,
	}, logger)
	if err := usageRepo.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	pipeline, err := BuildPipeline(ctx, cfg, logger, m)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:   cfg,
		Logger:   logger,
		Metrics:  m,
		Pipeline: pipeline,
		Cache:    cacheSvc,
		Postgres: postgresSvc,
		Sessions: session.NewStore(cacheSvc, logger),
		Usage:    usageRepo,
		closers:  closers,
	}, nil
}

// Router returns the HTTP handler for the server.
func (c *Container) Router() http.Handler {
	deps := api.Deps{
		Trending: handler.NewTrendingHandler(c.Pipeline.Service, c.Usage, c.Config.Server.AllowedOrigins, c.Logger),
		Usage:    handler.NewUsageHandler(c.Usage, c.Logger),
		Health: handler.NewHealthHandler(map[string]handler.Pinger{
			"redis":    c.Cache,
			"postgres": c.Postgres,
		}, c.Pipeline.Models, circuitReporters(c.Pipeline.Breakers)...),
		Sessions:       c.Sessions,
		CookieName:     c.Config.Session.CookieName,
		AllowedOrigins: c.Config.Server.AllowedOrigins,
		Metrics:        c.Metrics,
		Logger:         c.Logger,
	}
	if c.Config.Session.DevLogin {
		c.Logger.Warn("Dev login enabled: POST /api/session issues sessions without credentials")
		deps.Session = handler.NewSessionHandler(c.Sessions, c.Usage, c.Config.Session.CookieName, c.Logger)
	}
	return api.NewRouter(deps)
}

// Close releases infrastructure in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

func circuitReporters(breakers []*util.CircuitBreaker) []handler.CircuitReporter {
	out := make([]handler.CircuitReporter, 0, len(breakers))
	for _, b := range breakers {
		out = append(out, b)
	}
	return out
}
