package constants

import "time"

var FilterDefaults = struct {
	MinViews   int64
	MaxViews   int64
	MaxAgeDays int
}{
	MinViews:   50_000,
	MaxViews:   10_000_000,
	MaxAgeDays: 45,
}

var FetchConfig = struct {
	FirstPassHashtags int
	MaxPasses         int
	TargetCount       int
	PageSize          int
	MinCallInterval   time.Duration
}{
	FirstPassHashtags: 4,
	MaxPasses:         2,
	TargetCount:       20,
	PageSize:          30,
	MinCallInterval:   500 * time.Millisecond, // vendor rate limit
}

var ExtractionLimits = struct {
	MaxThumbnails      int
	FormatCount        int
	MaxSourceVideos    int
	VideosPerFormat    int
	SourceStride       int
	ThumbnailWorkers   int
	MaxDescriptionRune int
}{
	MaxThumbnails:      8,
	FormatCount:        3,
	MaxSourceVideos:    8,
	VideosPerFormat:    3,
	SourceStride:       2,
	ThumbnailWorkers:   4,
	MaxDescriptionRune: 200,
}

var RetryConfig = struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Jitter      time.Duration
}{
	MaxAttempts: 3,
	BaseDelay:   500 * time.Millisecond,
	Jitter:      250 * time.Millisecond,
}

var CircuitBreakerConfig = struct {
	FailureThreshold    int
	ResetTimeout        time.Duration
	RateLimitTimeout    time.Duration
	HealthCheckInterval time.Duration
	HealthCheckTimeout  time.Duration
}{
	FailureThreshold:    3,
	ResetTimeout:        30 * time.Second,
	RateLimitTimeout:    10 * time.Minute, // all keys rate limited
	HealthCheckInterval: 5 * time.Minute,
	HealthCheckTimeout:  10 * time.Second,
}

var SessionConfig = struct {
	CookieName string
	KeyPrefix  string
	TTL        time.Duration
}{
	CookieName: "tf_session",
	KeyPrefix:  "session:",
	TTL:        30 * 24 * time.Hour,
}

var RedisConfig = struct {
	ReadyTimeout time.Duration
}{
	ReadyTimeout: 5 * time.Second,
}

var APIConfig = struct {
	TikTokHost       string
	TikTokBaseURL    string
	InstagramHost    string
	InstagramBaseURL string
	ScraperTimeout   time.Duration
	ThumbnailTimeout time.Duration
	LLMTimeout       time.Duration
	MaxThumbnailSize int64
}{
	TikTokHost:       "tiktok-scraper7.p.rapidapi.com",
	TikTokBaseURL:    "https://tiktok-scraper7.p.rapidapi.com",
	InstagramHost:    "instagram-scraper-api2.p.rapidapi.com",
	InstagramBaseURL: "https://instagram-scraper-api2.p.rapidapi.com",
	ScraperTimeout:   15 * time.Second,
	ThumbnailTimeout: 10 * time.Second,
	LLMTimeout:       60 * time.Second,
	MaxThumbnailSize: 5 << 20,
}

var ServerConfig = struct {
	ReadHeaderTimeout time.Duration
	RequestTimeout    time.Duration
	ShutdownTimeout   time.Duration
}{
	ReadHeaderTimeout: 10 * time.Second,
	RequestTimeout:    3 * time.Minute, // full pipeline incl. two LLM tiers
	ShutdownTimeout:   15 * time.Second,
}
