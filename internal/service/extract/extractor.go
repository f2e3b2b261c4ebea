package extract

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kapu/trendformats-go/internal/catalog"
	"github.com/kapu/trendformats-go/internal/constants"
	"github.com/kapu/trendformats-go/internal/domain"
	"github.com/kapu/trendformats-go/internal/metrics"
	"github.com/kapu/trendformats-go/internal/prompt"
	"github.com/kapu/trendformats-go/internal/service/ai"
	"github.com/kapu/trendformats-go/internal/service/media"
	"github.com/kapu/trendformats-go/internal/util"
)

// ModelClient is the subset of ai.ModelManager the extractor needs.
type ModelClient interface {
	VisionAvailable() bool
	TextAvailable() bool
	GenerateVision(ctx context.Context, req ai.GenerateRequest) (string, *ai.GenerateMetadata, error)
	GenerateText(ctx context.Context, req ai.GenerateRequest) (string, *ai.GenerateMetadata, error)
}

type ThumbnailSource interface {
	DownloadAll(ctx context.Context, videos []domain.FilteredVideo, limit int) []media.Thumbnail
}

// NicheKeyer maps free-text niches onto catalog keys for example lookup.
type NicheKeyer interface {
	Key(niche string) string
}

type Option func(*Extractor)

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Extractor) { e.metrics = m }
}

func WithIDFunc(fn func() string) Option {
	return func(e *Extractor) { e.newID = fn }
}

// Extractor turns filtered videos into trending formats. It tries the vision
// model, then the text model, then the catalog defaults, and always returns
// exactly FormatCount formats.
type Extractor struct {
	models      ModelClient
	thumbnails  ThumbnailSource
	catalog     *catalog.Catalog
	keys        NicheKeyer
	metrics     *metrics.Metrics
	newID       func() string
	formatCount int
	logger      *zap.Logger
}

func NewExtractor(models ModelClient, thumbnails ThumbnailSource, c *catalog.Catalog, keys NicheKeyer, logger *zap.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Extractor{
		models:      models,
		thumbnails:  thumbnails,
		catalog:     c,
		keys:        keys,
		newID:       newFormatID,
		formatCount: constants.ExtractionLimits.FormatCount,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func newFormatID() string {
	return "fmt_" + uuid.NewString()[:8]
}

// Extract never fails. Zero videos go straight to the defaults without any
// network call.
func (e *Extractor) Extract(ctx context.Context, videos []domain.FilteredVideo, niche string) ([]domain.TrendingFormat, domain.AnalysisMethod) {
	stats := averageStats(videos)

	if len(videos) > 0 {
		if formats, ok := e.visionTier(ctx, videos, niche); ok {
			return e.finish(formats, stats, domain.AnalysisVision)
		}
		if formats, ok := e.textTier(ctx, videos, niche); ok {
			return e.finish(formats, stats, domain.AnalysisText)
		}
	}

	return e.finish(e.defaultFormats(niche), stats, domain.AnalysisDefault)
}

func (e *Extractor) finish(formats []domain.TrendingFormat, stats domain.AvgStats, method domain.AnalysisMethod) ([]domain.TrendingFormat, domain.AnalysisMethod) {
	for i := range formats {
		formats[i].ID = e.newID()
		formats[i].AvgStats = stats
		if formats[i].SourceVideos == nil {
			formats[i].SourceVideos = []domain.SourceVideo{}
		}
	}
	e.metrics.IncExtractionTier(string(method))
	e.logger.Info("Formats extracted",
		zap.String("method", string(method)),
		zap.Int("formats", len(formats)),
	)
	return formats, method
}

func (e *Extractor) visionTier(ctx context.Context, videos []domain.FilteredVideo, niche string) ([]domain.TrendingFormat, bool) {
	if e.models == nil || e.thumbnails == nil || !e.models.VisionAvailable() {
		return nil, false
	}

	thumbs := e.thumbnails.DownloadAll(ctx, videos, constants.ExtractionLimits.MaxThumbnails)
	if len(thumbs) == 0 {
		e.logger.Info("Vision tier skipped", zap.Error(domain.ErrNoVisionInput))
		return nil, false
	}

	byID := make(map[string]domain.FilteredVideo, len(videos))
	for _, v := range videos {
		byID[v.ID] = v
	}
	images := make([]string, 0, len(thumbs))
	pictured := make([]domain.FilteredVideo, 0, len(thumbs))
	for _, t := range thumbs {
		images = append(images, t.DataURI)
		pictured = append(pictured, byID[t.VideoID])
	}

	system, err := prompt.BuildFormatSystemPrompt(e.formatCount)
	if err != nil {
		e.logger.Error("Failed to build system prompt", zap.Error(err))
		return nil, false
	}
	userPrompt, err := prompt.BuildVisionPrompt(prompt.VisionPromptData{
		Niche:       niche,
		Platform:    string(videos[0].Platform),
		ImageCount:  len(images),
		FormatCount: e.formatCount,
		Videos:      prompt.PromptVideos(pictured, constants.ExtractionLimits.MaxDescriptionRune),
	})
	if err != nil {
		e.logger.Error("Failed to build vision prompt", zap.Error(err))
		return nil, false
	}

	raw, _, err := e.models.GenerateVision(ctx, ai.GenerateRequest{
		System: system,
		Prompt: userPrompt,
		Images: images,
		Preset: ai.PresetPrecise,
	})
	if err != nil {
		e.logger.Warn("Vision tier failed", zap.Error(err))
		return nil, false
	}

	return e.parse(raw, "vision")
}

func (e *Extractor) textTier(ctx context.Context, videos []domain.FilteredVideo, niche string) ([]domain.TrendingFormat, bool) {
	if e.models == nil || !e.models.TextAvailable() {
		return nil, false
	}

	system, err := prompt.BuildFormatSystemPrompt(e.formatCount)
	if err != nil {
		e.logger.Error("Failed to build system prompt", zap.Error(err))
		return nil, false
	}
	userPrompt, err := prompt.BuildTextPrompt(prompt.TextPromptData{
		Niche:       niche,
		Platform:    string(videos[0].Platform),
		FormatCount: e.formatCount,
		Videos:      prompt.PromptVideos(videos, constants.ExtractionLimits.MaxDescriptionRune),
	})
	if err != nil {
		e.logger.Error("Failed to build text prompt", zap.Error(err))
		return nil, false
	}

	raw, _, err := e.models.GenerateText(ctx, ai.GenerateRequest{
		System: system,
		Prompt: userPrompt,
		Preset: ai.PresetBalanced,
	})
	if err != nil {
		e.logger.Warn("Text tier failed", zap.Error(err))
		return nil, false
	}

	return e.parse(raw, "text")
}

// parse accepts the reply only if it yields at least formatCount named formats.
func (e *Extractor) parse(raw, tier string) ([]domain.TrendingFormat, bool) {
	result := util.ExtractJSONArray[modelFormat](raw)
	if !result.OK {
		e.logger.Warn("Unparseable model reply",
			zap.String("tier", tier),
			zap.String("reason", result.Reason),
			zap.String("reply", util.TruncateString(raw, 200)),
		)
		return nil, false
	}

	formats := make([]domain.TrendingFormat, 0, e.formatCount)
	for _, mf := range result.Value {
		if strings.TrimSpace(mf.FormatName) == "" {
			continue
		}
		formats = append(formats, mf.toFormat())
		if len(formats) == e.formatCount {
			break
		}
	}
	if len(formats) < e.formatCount {
		e.logger.Warn("Model returned too few formats",
			zap.String("tier", tier),
			zap.Int("got", len(formats)),
		)
		return nil, false
	}
	return formats, true
}

func (e *Extractor) defaultFormats(niche string) []domain.TrendingFormat {
	display := util.Title(util.Normalize(niche))
	if display == "" {
		display = "Your Niche"
	}

	var examples []string
	if e.catalog != nil {
		key := ""
		if e.keys != nil {
			key = e.keys.Key(niche)
		}
		examples = e.catalog.Examples(key, display)
	}
	if len(examples) == 0 {
		examples = []string{display}
	}

	fill := func(s string, example string) string {
		return strings.NewReplacer("{niche}", display, "{example}", example).Replace(s)
	}

	var templates []catalog.FormatTemplate
	if e.catalog != nil {
		templates = e.catalog.DefaultFormats
	}

	formats := make([]domain.TrendingFormat, 0, e.formatCount)
	for i := 0; i < e.formatCount && i < len(templates); i++ {
		tpl := templates[i]
		example := examples[i%len(examples)]
		how := make([]string, len(tpl.How))
		for j, step := range tpl.How {
			how[j] = fill(step, example)
		}
		formats = append(formats, domain.TrendingFormat{
			FormatName:          fill(tpl.Name, example),
			FormatDescription:   fill(tpl.Description, example),
			WhyItWorks:          fill(tpl.Why, example),
			HowToApply:          how,
			EngagementPotential: domain.ParseEngagement(tpl.Engagement),
		})
	}
	return formats
}

func averageStats(videos []domain.FilteredVideo) domain.AvgStats {
	views := make([]int64, len(videos))
	likes := make([]int64, len(videos))
	shares := make([]int64, len(videos))
	for i, v := range videos {
		views[i] = v.Views
		likes[i] = v.Likes
		shares[i] = v.Shares
	}
	return domain.AvgStats{
		Views:  util.FormatCount(util.Average(views)),
		Likes:  util.FormatCount(util.Average(likes)),
		Shares: util.FormatCount(util.Average(shares)),
	}
}

// modelFormat is the shape requested from the models. howToApply sometimes
// comes back as a single string.
type modelFormat struct {
	FormatName          string     `json:"formatName"`
	FormatDescription   string     `json:"formatDescription"`
	WhyItWorks          string     `json:"whyItWorks"`
	HowToApply          stringList `json:"howToApply"`
	EngagementPotential string     `json:"engagementPotential"`
}

func (m modelFormat) toFormat() domain.TrendingFormat {
	how := make([]string, 0, len(m.HowToApply))
	for _, step := range m.HowToApply {
		if s := strings.TrimSpace(step); s != "" {
			how = append(how, s)
		}
	}
	return domain.TrendingFormat{
		FormatName:          strings.TrimSpace(m.FormatName),
		FormatDescription:   strings.TrimSpace(m.FormatDescription),
		WhyItWorks:          strings.TrimSpace(m.WhyItWorks),
		HowToApply:          how,
		EngagementPotential: domain.ParseEngagement(m.EngagementPotential),
	}
}

type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	var many []string
	if err := json.Unmarshal(data, &many); err == nil {
		*l = many
		return nil
	}
	var one string
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*l = stringList{one}
	return nil
}
