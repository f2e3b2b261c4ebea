package hashtag

import (
	"strings"

	"go.uber.org/zap"

	"github.com/kapu/trendformats-go/internal/catalog"
	"github.com/kapu/trendformats-go/internal/util"
)

type MatchSource string

const (
	MatchExact     MatchSource = "exact"
	MatchSubstring MatchSource = "substring"
	MatchFallback  MatchSource = "fallback"
)

// Resolution is the outcome of resolving a niche. Key is empty for fallback.
type Resolution struct {
	Key      string
	Hashtags []string
	Source   MatchSource
}

// Resolver maps a free-text niche to an ordered hashtag list. It never fails.
type Resolver struct {
	profiles []catalog.NicheProfile
	byKey    map[string]int
	defaults []string
	logger   *zap.Logger
}

func NewResolver(c *catalog.Catalog, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Resolver{
		profiles: make([]catalog.NicheProfile, 0, len(c.Niches)),
		byKey:    make(map[string]int, len(c.Niches)),
		defaults: cleanTags(c.DefaultHashtags),
		logger:   logger,
	}

	for _, p := range c.Niches {
		key := util.Normalize(p.Key)
		r.byKey[key] = len(r.profiles)
		r.profiles = append(r.profiles, catalog.NicheProfile{Key: key, Hashtags: cleanTags(p.Hashtags)})
	}

	return r
}

// Resolve returns the hashtags for niche.
func (r *Resolver) Resolve(niche string) []string {
	return r.ResolveProfile(niche).Hashtags
}

// ResolveProfile runs exact match, then the either-contains-other substring
// scan in table order, then the computed fallback. Callers own the returned slice.
func (r *Resolver) ResolveProfile(niche string) Resolution {
	norm := util.Normalize(niche)

	if idx, ok := r.byKey[norm]; ok {
		p := r.profiles[idx]
		return Resolution{Key: p.Key, Hashtags: cloneTags(p.Hashtags), Source: MatchExact}
	}

	// earlier niches shadow later ones on ambiguous input
	for _, p := range r.profiles {
		if util.EitherContains(norm, p.Key) {
			r.logger.Debug("Niche resolved by substring",
				zap.String("niche", norm),
				zap.String("key", p.Key),
			)
			return Resolution{Key: p.Key, Hashtags: cloneTags(p.Hashtags), Source: MatchSubstring}
		}
	}

	return Resolution{Hashtags: r.fallback(niche), Source: MatchFallback}
}

// Key returns the catalog key niche resolves to, or "" for fallback.
func (r *Resolver) Key(niche string) string {
	return r.ResolveProfile(niche).Key
}

func (r *Resolver) fallback(niche string) []string {
	out := make([]string, 0, len(r.defaults)+1)
	if slug := util.Slugify(niche); slug != "" {
		out = append(out, slug)
	}
	for _, d := range r.defaults {
		if len(out) > 0 && out[0] == d {
			continue
		}
		out = append(out, d)
	}
	return out
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimPrefix(util.Normalize(t), "#")
		t = strings.Join(strings.Fields(t), "")
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func cloneTags(tags []string) []string {
	out := make([]string, len(tags))
	copy(out, tags)
	return out
}
