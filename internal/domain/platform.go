package domain

import "strings"

type Platform string

const (
	PlatformTikTok    Platform = "tiktok"
	PlatformInstagram Platform = "instagram"
)

func (p Platform) String() string {
	return string(p)
}

func (p Platform) IsValid() bool {
	switch p {
	case PlatformTikTok, PlatformInstagram:
		return true
	default:
		return false
	}
}

// ParsePlatform maps a query value to a Platform. Empty means TikTok.
func ParsePlatform(s string) (Platform, bool) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	if p == "" {
		return PlatformTikTok, true
	}
	return p, p.IsValid()
}
