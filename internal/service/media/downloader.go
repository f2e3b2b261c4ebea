package media

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/kapu/trendformats-go/internal/constants"
	"github.com/kapu/trendformats-go/internal/domain"
)

// CoverResolver finds a cover image URL for a video that arrived without one.
type CoverResolver interface {
	ResolveCover(ctx context.Context, v domain.FilteredVideo) (string, bool)
}

// Thumbnail is a downloaded cover tied back to its video.
type Thumbnail struct {
	VideoID string
	DataURI string
}

type Downloader struct {
	httpClient  *http.Client
	covers      CoverResolver
	concurrency int
	maxBytes    int64
	logger      *zap.Logger
}

type DownloaderOption func(*Downloader)

func WithHTTPClient(hc *http.Client) DownloaderOption {
	return func(d *Downloader) { d.httpClient = hc }
}

func WithCoverResolver(r CoverResolver) DownloaderOption {
	return func(d *Downloader) { d.covers = r }
}

func WithConcurrency(n int) DownloaderOption {
	return func(d *Downloader) {
		if n > 0 {
			d.concurrency = n
		}
	}
}

func NewDownloader(logger *zap.Logger, opts ...DownloaderOption) *Downloader {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Downloader{
		httpClient:  &http.Client{Timeout: constants.APIConfig.ThumbnailTimeout},
		concurrency: constants.ExtractionLimits.ThumbnailWorkers,
		maxBytes:    constants.APIConfig.MaxThumbnailSize,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Download fetches url once and returns it as a base64 data URI. Any failure
// yields ok=false; the caller skips the item.
func (d *Downloader) Download(ctx context.Context, url string) (string, bool) {
	if url == "" {
		return "", false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", false
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; TrendFormats/1.0)")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		d.logger.Debug("Thumbnail download failed", zap.String("url", url), zap.Error(err))
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		d.logger.Debug("Thumbnail download non-2xx", zap.String("url", url), zap.Int("status", resp.StatusCode))
		return "", false
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, d.maxBytes+1))
	if err != nil || len(data) == 0 || int64(len(data)) > d.maxBytes {
		return "", false
	}

	return "data:" + contentType(resp.Header.Get("Content-Type"), data) + ";base64," + base64.StdEncoding.EncodeToString(data), true
}

// DownloadAll downloads covers for up to limit videos concurrently and returns
// the successful ones in input order.
func (d *Downloader) DownloadAll(ctx context.Context, videos []domain.FilteredVideo, limit int) []Thumbnail {
	if limit > 0 && len(videos) > limit {
		videos = videos[:limit]
	}

	results := make([]*Thumbnail, len(videos))
	var mu sync.Mutex

	p := pool.New().WithMaxGoroutines(d.concurrency)
	for idx, v := range videos {
		idx, v := idx, v
		p.Go(func() {
			cover := v.CoverURL
			if cover == "" && d.covers != nil {
				if resolved, ok := d.covers.ResolveCover(ctx, v); ok {
					cover = resolved
				}
			}
			uri, ok := d.Download(ctx, cover)
			if !ok {
				return
			}
			mu.Lock()
			results[idx] = &Thumbnail{VideoID: v.ID, DataURI: uri}
			mu.Unlock()
		})
	}
	p.Wait()

	out := make([]Thumbnail, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}

	d.logger.Debug("Thumbnails downloaded",
		zap.Int("requested", len(videos)),
		zap.Int("ok", len(out)),
	)
	return out
}

func contentType(header string, data []byte) string {
	ct := strings.TrimSpace(strings.Split(header, ";")[0])
	if strings.HasPrefix(ct, "image/") {
		return ct
	}
	sniffed := http.DetectContentType(data)
	if strings.HasPrefix(sniffed, "image/") {
		return sniffed
	}
	return "image/jpeg"
}
