package assemble

import (
	"github.com/kapu/trendformats-go/internal/constants"
	"github.com/kapu/trendformats-go/internal/domain"
)

// SourceVideos builds up to MaxSourceVideos provenance records from the
// filtered list, dropping entries without an ID.
func SourceVideos(videos []domain.FilteredVideo) []domain.SourceVideo {
	limit := constants.ExtractionLimits.MaxSourceVideos
	out := make([]domain.SourceVideo, 0, limit)
	for i := range videos {
		if len(out) == limit {
			break
		}
		v := &videos[i]
		if v.ID == "" {
			continue
		}
		out = append(out, domain.SourceVideo{
			ID:          v.ID,
			URL:         v.URL(),
			Thumbnail:   v.CoverURL,
			Views:       v.Views,
			Author:      v.Author,
			Description: v.Description,
		})
	}
	return out
}

// Attach gives format i the window sources[i*stride : i*stride+perFormat],
// clipped to what is available, so neighbouring windows overlap. The
// attachment is positional and says nothing about which video actually shows
// the format.
func Attach(formats []domain.TrendingFormat, sources []domain.SourceVideo) []domain.TrendingFormat {
	stride := constants.ExtractionLimits.SourceStride
	perFormat := constants.ExtractionLimits.VideosPerFormat

	out := make([]domain.TrendingFormat, len(formats))
	for i, f := range formats {
		start := i * stride
		end := start + perFormat
		if start > len(sources) {
			start = len(sources)
		}
		if end > len(sources) {
			end = len(sources)
		}
		window := make([]domain.SourceVideo, end-start)
		copy(window, sources[start:end])
		f.SourceVideos = window
		out[i] = f
	}
	return out
}

// Request describes the context a payload is built for.
type Request struct {
	Niche    string
	Platform domain.Platform
	Hashtags []string
	Method   domain.AnalysisMethod
}

// Assemble returns the dashboard payload for one pipeline run.
func Assemble(formats []domain.TrendingFormat, videos []domain.FilteredVideo, req Request) domain.TrendingPayload {
	hashtags := req.Hashtags
	if hashtags == nil {
		hashtags = []string{}
	}
	return domain.TrendingPayload{
		Formats:        Attach(formats, SourceVideos(videos)),
		VideosAnalyzed: len(videos),
		Niche:          req.Niche,
		Platform:       req.Platform,
		HashtagsUsed:   hashtags,
		AnalysisMethod: req.Method,
	}
}
