package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kapu/trendformats-go/internal/api/handler"
	"github.com/kapu/trendformats-go/internal/catalog"
	"github.com/kapu/trendformats-go/internal/domain"
	"github.com/kapu/trendformats-go/internal/metrics"
	"github.com/kapu/trendformats-go/internal/service/ai"
	"github.com/kapu/trendformats-go/internal/service/extract"
	"github.com/kapu/trendformats-go/internal/service/fetcher"
	"github.com/kapu/trendformats-go/internal/service/filter"
	"github.com/kapu/trendformats-go/internal/service/hashtag"
	"github.com/kapu/trendformats-go/internal/service/media"
	"github.com/kapu/trendformats-go/internal/service/scraper"
	"github.com/kapu/trendformats-go/internal/service/session"
	"github.com/kapu/trendformats-go/internal/service/trending"
	"github.com/kapu/trendformats-go/internal/service/usage"
)

const visionReply = `[
  {"formatName": "Overhead recipe grid", "formatDescription": "Top-down shot of ingredients", "whyItWorks": "Clear payoff", "howToApply": ["Shoot from above"], "engagementPotential": "High"},
  {"formatName": "Bold text hook", "formatDescription": "Large caption over a close-up", "whyItWorks": "Readable on mute", "howToApply": ["Add a caption"], "engagementPotential": "Medium"},
  {"formatName": "Face and plate", "formatDescription": "Creator holding the dish", "whyItWorks": "Personal", "howToApply": ["Hold the plate to camera"], "engagementPotential": "Low"}
]`

type memKV struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memKV) Get(_ context.Context, key string, dest any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (m *memKV) Set(_ context.Context, key string, value any, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = raw
	return nil
}

func (m *memKV) Del(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memKV) Expire(context.Context, string, time.Duration) error {
	return nil
}

type memLedger struct {
	mu     sync.Mutex
	policy usage.Policy
	used   map[string]int
	users  map[string]domain.Session
}

func newMemLedger(freeLimit int) *memLedger {
	return &memLedger{
		policy: usage.Policy{Free: freeLimit, Creator: 50},
		used:   map[string]int{},
		users:  map[string]domain.Session{},
	}
}

func (l *memLedger) Summary(_ context.Context, sess domain.Session) (domain.UsageSummary, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.policy.Summarize(sess.Plan, l.used[sess.UserID]), nil
}

func (l *memLedger) CanUseFormatSearch(ctx context.Context, sess domain.Session) (bool, domain.UsageSummary, error) {
	s, err := l.Summary(ctx, sess)
	return usage.Allows(s), s, err
}

func (l *memLedger) RecordFormatSearchUsage(_ context.Context, userID, _ string, _ domain.Platform) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.used[userID]++
	return nil
}

func (l *memLedger) UpsertUser(_ context.Context, sess domain.Session) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.users[sess.UserID] = sess
	return nil
}

func (l *memLedger) usedBy(userID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.used[userID]
}

type visionProvider struct{ reply string }

func (p visionProvider) Name() string              { return "fake-vision" }
func (p visionProvider) SupportsImages() bool      { return true }
func (p visionProvider) Ping(context.Context) bool { return true }
func (p visionProvider) Generate(_ context.Context, req ai.GenerateRequest) (ai.ProviderResult, error) {
	if len(req.Images) == 0 {
		return ai.ProviderResult{}, fmt.Errorf("no images")
	}
	return ai.ProviderResult{Text: p.reply, Model: "fake"}, nil
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type testEnv struct {
	server      *httptest.Server
	ledger      *memLedger
	sessions    *session.Store
	vendorCalls *int64
	metrics     *metrics.Metrics
}

type envOptions struct {
	items      []map[string]any
	freeLimit  int
	devLogin   bool
	readyError error
	// requestTimeout overrides the router's plain-route timeout.
	requestTimeout time.Duration
}

// vendorItems returns inBounds items with 100K views and outOfBounds items
// below the view floor, all posted a day ago with a downloadable cover.
func vendorItems(thumbBase string, inBounds, outOfBounds int) []map[string]any {
	created := time.Now().Add(-24 * time.Hour).Unix()
	items := make([]map[string]any, 0, inBounds+outOfBounds)
	for i := 0; i < inBounds+outOfBounds; i++ {
		views := 100_000
		if i >= inBounds {
			views = 1_000
		}
		items = append(items, map[string]any{
			"video_id":    fmt.Sprintf("v%d", i),
			"title":       fmt.Sprintf("easy dinner idea #%d", i),
			"play_count":  views,
			"digg_count":  views / 10,
			"share_count": views / 100,
			"duration":    15,
			"cover":       fmt.Sprintf("%s/img/v%d.jpg", thumbBase, i),
			"author":      map[string]any{"unique_id": "chef"},
			"create_time": created,
		})
	}
	return items
}

func newTestEnv(t *testing.T, opts envOptions) *testEnv {
	t.Helper()
	logger := zap.NewNop()

	var vendorCalls int64
	items := opts.items
	if items == nil {
		items = []map[string]any{}
	}
	vendor := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&vendorCalls, 1)
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/challenge/info":
			_, _ = w.Write([]byte(`{"code":0,"data":{"id":"1001"}}`))
		case "/challenge/posts":
			_ = json.NewEncoder(w).Encode(map[string]any{"code": 0, "data": map[string]any{"videos": items}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(vendor.Close)

	c, err := catalog.Load()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	m := metrics.New(prometheus.NewRegistry())

	resolver := hashtag.NewResolver(c, logger)
	contentFilter := filter.NewContentFilter(filter.Bounds{MinViews: 50_000, MaxViews: 10_000_000, MaxAgeDays: 45}, c.DenyKeywords, nil, logger)
	client := scraper.NewRapidAPIClient("tiktok", "tiktok.test", vendor.URL, []string{"key-1"}, logger,
		scraper.WithSleep(func(context.Context, time.Duration) error { return nil }),
		scraper.WithMetrics(m),
	)
	fetch := fetcher.NewFetcher(resolver, []scraper.Source{scraper.NewTikTokSource(client)}, contentFilter, logger, fetcher.WithMetrics(m))

	models := ai.NewModelManager(ai.ModelManagerConfig{Vision: visionProvider{reply: visionReply}, Metrics: m}, logger)
	extractor := extract.NewExtractor(models, media.NewDownloader(logger), c, resolver, logger, extract.WithMetrics(m))
	pipeline := trending.NewService(resolver, fetch, extractor, logger, trending.WithMetrics(m))

	limit := opts.freeLimit
	if limit == 0 {
		limit = 5
	}
	ledger := newMemLedger(limit)
	sessions := session.NewStore(&memKV{data: map[string][]byte{}}, logger)

	deps := Deps{
		Trending:       handler.NewTrendingHandler(pipeline, ledger, []string{"*"}, logger),
		Usage:          handler.NewUsageHandler(ledger, logger),
		Health:         handler.NewHealthHandler(map[string]handler.Pinger{"redis": stubPinger{}, "postgres": stubPinger{err: opts.readyError}}, models, client.Breaker()),
		Sessions:       sessions,
		CookieName:     "tf_session",
		AllowedOrigins: []string{"https://app.example.com"},
		Metrics:        m,
		Logger:         logger,
		RequestTimeout: opts.requestTimeout,
	}
	if opts.devLogin {
		deps.Session = handler.NewSessionHandler(sessions, ledger, "tf_session", logger)
	}

	srv := httptest.NewServer(NewRouter(deps))
	t.Cleanup(srv.Close)

	return &testEnv{server: srv, ledger: ledger, sessions: sessions, vendorCalls: &vendorCalls, metrics: m}
}

// newThumbServer serves a tiny JPEG for any /img/ path.
func newThumbServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/img/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte{0xff, 0xd8, 0xff, 0xe0, 0, 0x10})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func (e *testEnv) login(t *testing.T, plan domain.Plan) string {
	t.Helper()
	token, err := e.sessions.Create(context.Background(), domain.Session{UserID: "user-1", Email: "u@example.com", Plan: plan})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return token
}

func (e *testEnv) get(t *testing.T, path, token string) (*http.Response, handler.Response) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, e.server.URL+path, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "tf_session", Value: token})
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()

	var body handler.Response
	_ = json.NewDecoder(resp.Body).Decode(&body)
	return resp, body
}
