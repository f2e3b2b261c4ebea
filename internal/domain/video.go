package domain

import "encoding/json"

// RawContentItem is one vendor item as received. Its shape differs per
// platform and per vendor version, so it stays raw until normalized.
type RawContentItem struct {
	Platform Platform
	Hashtag  string
	Payload  json.RawMessage
}

// FilteredVideo is a vendor item that passed view bounds, recency and
// (where applicable) appropriateness checks.
type FilteredVideo struct {
	ID          string   `json:"id"`
	Platform    Platform `json:"platform"`
	Description string   `json:"description"`
	Views       int64    `json:"views"`
	Likes       int64    `json:"likes"`
	Shares      int64    `json:"shares"`
	Duration    int      `json:"duration"` // seconds
	CoverURL    string   `json:"coverUrl"`
	Author      string   `json:"author"`
	CreateTime  int64    `json:"createTime"` // epoch seconds
}

// URL returns the public post URL for the video.
func (v *FilteredVideo) URL() string {
	if v == nil || v.ID == "" {
		return ""
	}
	switch v.Platform {
	case PlatformInstagram:
		return "https://www.instagram.com/reel/" + v.ID + "/"
	default:
		author := v.Author
		if author == "" {
			author = "_"
		}
		return "https://www.tiktok.com/@" + author + "/video/" + v.ID
	}
}
