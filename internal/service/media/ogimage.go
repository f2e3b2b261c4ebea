package media

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/kapu/trendformats-go/internal/constants"
	"github.com/kapu/trendformats-go/internal/domain"
)

// OGImageResolver reads og:image from the public post page.
type OGImageResolver struct {
	httpClient *http.Client
	pageURL    func(domain.FilteredVideo) string
	logger     *zap.Logger
}

func NewOGImageResolver(httpClient *http.Client, logger *zap.Logger) *OGImageResolver {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: constants.APIConfig.ThumbnailTimeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OGImageResolver{
		httpClient: httpClient,
		pageURL:    func(v domain.FilteredVideo) string { return v.URL() },
		logger:     logger,
	}
}

// WithPageURL overrides how the post page URL is built (tests).
func (r *OGImageResolver) WithPageURL(fn func(domain.FilteredVideo) string) *OGImageResolver {
	r.pageURL = fn
	return r
}

func (r *OGImageResolver) ResolveCover(ctx context.Context, v domain.FilteredVideo) (string, bool) {
	page := r.pageURL(v)
	if page == "" {
		return "", false
	}

	img, err := r.fetchOGImage(ctx, page)
	if err != nil {
		r.logger.Debug("og:image lookup failed", zap.String("video_id", v.ID), zap.Error(err))
		return "", false
	}
	return img, true
}

func (r *OGImageResolver) fetchOGImage(ctx context.Context, page string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, page, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; TrendFormats/1.0)")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("HTML parse failed: %w", err)
	}

	for _, sel := range []string{`meta[property="og:image"]`, `meta[name="og:image"]`, `meta[name="twitter:image"]`} {
		if content, ok := doc.Find(sel).First().Attr("content"); ok {
			if content = strings.TrimSpace(content); content != "" {
				return content, nil
			}
		}
	}
	return "", fmt.Errorf("no og:image on page")
}
