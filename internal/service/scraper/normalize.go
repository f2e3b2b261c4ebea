package scraper

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/kapu/trendformats-go/internal/domain"
)

// Field aliases seen across vendor versions. The first path that yields a
// usable value wins.
var tiktokFields = fieldPaths{
	id:          []string{"video_id", "aweme_id", "id"},
	description: []string{"title", "desc", "description"},
	views:       []string{"play_count", "stats.playCount", "statistics.play_count", "playCount"},
	likes:       []string{"digg_count", "stats.diggCount", "statistics.digg_count", "diggCount"},
	shares:      []string{"share_count", "stats.shareCount", "statistics.share_count", "shareCount"},
	duration:    []string{"duration", "video.duration"},
	cover:       []string{"cover", "origin_cover", "video.cover", "video.originCover", "video.origin_cover.url_list.0"},
	author:      []string{"author.unique_id", "author.uniqueId", "author.nickname", "author"},
	createTime:  []string{"create_time", "createTime"},
}

var instagramFields = fieldPaths{
	id:          []string{"code", "shortcode", "id", "pk"},
	description: []string{"caption.text", "caption", "edge_media_to_caption.edges.0.node.text"},
	views:       []string{"play_count", "ig_play_count", "video_view_count", "view_count"},
	likes:       []string{"like_count", "edge_liked_by.count", "edge_media_preview_like.count"},
	shares:      []string{"share_count", "reshare_count"},
	duration:    []string{"video_duration", "duration"},
	cover:       []string{"thumbnail_url", "display_url", "image_versions2.candidates.0.url", "image_versions.items.0.url"},
	author:      []string{"user.username", "owner.username", "user.full_name"},
	createTime:  []string{"taken_at", "taken_at_timestamp"},
}

var (
	tiktokListPaths    = []string{"data.videos", "data.aweme_list", "aweme_list", "itemList", "videos"}
	instagramListPaths = []string{"data.items", "items", "data.medias", "medias"}

	tiktokChallengeIDPaths  = []string{"data.id", "data.cid", "data.challenge_info.cid", "challengeInfo.challenge.id", "challenge_info.cid"}
	instagramHashtagIDPaths = []string{"data.id", "id", "data.name", "name"}
)

type fieldPaths struct {
	id, description, views, likes, shares, duration, cover, author, createTime []string
}

// NormalizeItem pulls a FilteredVideo candidate out of a raw vendor item.
// Missing fields become zero values; the filter decides what to do with them.
func NormalizeItem(item domain.RawContentItem) domain.FilteredVideo {
	fields := tiktokFields
	if item.Platform == domain.PlatformInstagram {
		fields = instagramFields
	}

	raw := []byte(item.Payload)
	return domain.FilteredVideo{
		ID:          firstString(raw, fields.id),
		Platform:    item.Platform,
		Description: strings.TrimSpace(firstString(raw, fields.description)),
		Views:       firstInt(raw, fields.views),
		Likes:       firstInt(raw, fields.likes),
		Shares:      firstInt(raw, fields.shares),
		Duration:    int(firstInt(raw, fields.duration)),
		CoverURL:    firstString(raw, fields.cover),
		Author:      firstString(raw, fields.author),
		CreateTime:  firstInt(raw, fields.createTime),
	}
}

// ExtractItems returns the item array from a listing response.
func ExtractItems(platform domain.Platform, hashtag string, body []byte) []domain.RawContentItem {
	paths := tiktokListPaths
	if platform == domain.PlatformInstagram {
		paths = instagramListPaths
	}

	var list gjson.Result
	for _, p := range paths {
		if r := gjson.GetBytes(body, p); r.IsArray() {
			list = r
			break
		}
	}
	if !list.Exists() {
		return nil
	}

	arr := list.Array()
	items := make([]domain.RawContentItem, 0, len(arr))
	for _, r := range arr {
		if !r.IsObject() {
			continue
		}
		// some vendors wrap each entry as {"media": {...}}
		if inner := r.Get("media"); inner.IsObject() {
			r = inner
		}
		items = append(items, domain.RawContentItem{
			Platform: platform,
			Hashtag:  hashtag,
			Payload:  json.RawMessage(r.Raw),
		})
	}
	return items
}

func extractID(body []byte, paths []string) string {
	return firstString(body, paths)
}

func firstString(raw []byte, paths []string) string {
	for _, p := range paths {
		r := gjson.GetBytes(raw, p)
		switch r.Type {
		case gjson.String:
			if s := strings.TrimSpace(r.Str); s != "" {
				return s
			}
		case gjson.Number:
			return r.Raw
		}
	}
	return ""
}

func firstInt(raw []byte, paths []string) int64 {
	for _, p := range paths {
		r := gjson.GetBytes(raw, p)
		switch r.Type {
		case gjson.Number:
			return r.Int()
		case gjson.String:
			if r.Str != "" {
				return r.Int()
			}
		}
	}
	return 0
}
