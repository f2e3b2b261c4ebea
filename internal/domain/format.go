package domain

import "strings"

type EngagementPotential string

const (
	EngagementHigh   EngagementPotential = "High"
	EngagementMedium EngagementPotential = "Medium"
	EngagementLow    EngagementPotential = "Low"
)

// ParseEngagement accepts any casing and maps unknown values to Medium.
func ParseEngagement(s string) EngagementPotential {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return EngagementHigh
	case "low":
		return EngagementLow
	default:
		return EngagementMedium
	}
}

type AvgStats struct {
	Views  string `json:"views"`
	Likes  string `json:"likes"`
	Shares string `json:"shares"`
}

type TrendingFormat struct {
	ID                  string              `json:"id"`
	FormatName          string              `json:"formatName"`
	FormatDescription   string              `json:"formatDescription"`
	WhyItWorks          string              `json:"whyItWorks"`
	HowToApply          []string            `json:"howToApply"`
	EngagementPotential EngagementPotential `json:"engagementPotential"`
	AvgStats            AvgStats            `json:"avgStats"`
	SourceVideos        []SourceVideo       `json:"sourceVideos"`
}

// SourceVideo is the provenance record shown under a format.
type SourceVideo struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Thumbnail   string `json:"thumbnail"`
	Views       int64  `json:"views"`
	Author      string `json:"author"`
	Description string `json:"description"`
}

type AnalysisMethod string

const (
	AnalysisVision  AnalysisMethod = "vision"
	AnalysisText    AnalysisMethod = "text"
	AnalysisDefault AnalysisMethod = "default"
)

// TrendingPayload is the data object returned to the dashboard.
type TrendingPayload struct {
	Formats        []TrendingFormat `json:"formats"`
	VideosAnalyzed int              `json:"videosAnalyzed"`
	Niche          string           `json:"niche"`
	Platform       Platform         `json:"platform"`
	HashtagsUsed   []string         `json:"hashtagsUsed"`
	AnalysisMethod AnalysisMethod   `json:"analysisMethod"`
}
