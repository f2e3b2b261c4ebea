package prompt

import (
	"strings"

	"github.com/kapu/trendformats-go/internal/domain"
	"github.com/kapu/trendformats-go/internal/util"
)

// BuildFormatSystemPrompt is shared by the vision and text tiers.
func BuildFormatSystemPrompt(formatCount int) (string, error) {
	return DefaultPromptBuilder().Render(TemplateFormatSystem, SystemPromptData{FormatCount: formatCount})
}

func BuildVisionPrompt(data VisionPromptData) (string, error) {
	return DefaultPromptBuilder().Render(TemplateVisionFormats, data)
}

func BuildTextPrompt(data TextPromptData) (string, error) {
	return DefaultPromptBuilder().Render(TemplateTextFormats, data)
}

// PromptVideos flattens videos into prompt rows. Descriptions are collapsed
// to one line and cut at maxDescription runes.
func PromptVideos(videos []domain.FilteredVideo, maxDescription int) []PromptVideo {
	out := make([]PromptVideo, 0, len(videos))
	for i, v := range videos {
		desc := strings.Join(strings.Fields(v.Description), " ")
		desc = strings.ReplaceAll(desc, `"`, "'")
		if maxDescription > 0 {
			desc = util.TruncateString(desc, maxDescription)
		}
		author := v.Author
		if author == "" {
			author = "unknown"
		}
		out = append(out, PromptVideo{
			Index:       i + 1,
			Description: desc,
			Views:       util.FormatCount(v.Views),
			Likes:       util.FormatCount(v.Likes),
			Author:      author,
			Duration:    v.Duration,
		})
	}
	return out
}
