package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/kapu/trendformats-go/internal/domain"
)

// Source is one platform's hashtag contract: name → ID, then ID → one page of items.
type Source interface {
	Platform() domain.Platform
	ResolveHashtagID(ctx context.Context, hashtag string) (string, error)
	ListItems(ctx context.Context, hashtag, hashtagID string, count int) ([]domain.RawContentItem, error)
	// ChecksContent reports whether items from this source go through the deny-list.
	ChecksContent() bool
}

type TikTokSource struct {
	client Requester
}

func NewTikTokSource(client Requester) *TikTokSource {
	return &TikTokSource{client: client}
}

func (s *TikTokSource) Platform() domain.Platform { return domain.PlatformTikTok }

func (s *TikTokSource) ChecksContent() bool { return false }

func (s *TikTokSource) ResolveHashtagID(ctx context.Context, hashtag string) (string, error) {
	body, err := s.client.Get(ctx, "/challenge/info", url.Values{"challenge_name": {hashtag}})
	if err != nil {
		return "", err
	}
	id := extractID(body, tiktokChallengeIDPaths)
	if id == "" {
		return "", fmt.Errorf("no challenge id for #%s", hashtag)
	}
	return id, nil
}

func (s *TikTokSource) ListItems(ctx context.Context, hashtag, hashtagID string, count int) ([]domain.RawContentItem, error) {
	body, err := s.client.Get(ctx, "/challenge/posts", url.Values{
		"challenge_id": {hashtagID},
		"count":        {strconv.Itoa(count)},
	})
	if err != nil {
		return nil, err
	}
	return ExtractItems(domain.PlatformTikTok, hashtag, body), nil
}

type InstagramSource struct {
	client Requester
}

func NewInstagramSource(client Requester) *InstagramSource {
	return &InstagramSource{client: client}
}

func (s *InstagramSource) Platform() domain.Platform { return domain.PlatformInstagram }

func (s *InstagramSource) ChecksContent() bool { return true }

// ResolveHashtagID falls back to the tag name when the vendor returns no ID;
// the listing endpoint accepts either.
func (s *InstagramSource) ResolveHashtagID(ctx context.Context, hashtag string) (string, error) {
	body, err := s.client.Get(ctx, "/v1/hashtag_info", url.Values{"hashtag": {hashtag}})
	if err != nil {
		return "", err
	}
	if id := extractID(body, instagramHashtagIDPaths); id != "" {
		return id, nil
	}
	return hashtag, nil
}

func (s *InstagramSource) ListItems(ctx context.Context, hashtag, _ string, _ int) ([]domain.RawContentItem, error) {
	body, err := s.client.Get(ctx, "/v1/hashtag", url.Values{"hashtag": {hashtag}})
	if err != nil {
		return nil, err
	}
	return ExtractItems(domain.PlatformInstagram, hashtag, body), nil
}
