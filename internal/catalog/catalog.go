// Package catalog holds the read-only lookup tables the pipeline needs:
// niche hashtags, the deny-list and default format phrasing.
package catalog

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kapu/trendformats-go/internal/constants"
)

//go:embed data/catalog.yaml
var catalogYAML []byte

type NicheProfile struct {
	Key      string   `yaml:"key"`
	Hashtags []string `yaml:"hashtags"`
}

type FormatTemplate struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Why         string   `yaml:"why"`
	How         []string `yaml:"how"`
	Engagement  string   `yaml:"engagement"`
}

type Catalog struct {
	Niches           []NicheProfile      `yaml:"niches"`
	DefaultHashtags  []string            `yaml:"default_hashtags"`
	DenyKeywords     []string            `yaml:"deny_keywords"`
	DefaultFormats   []FormatTemplate    `yaml:"default_formats"`
	NicheExamples    map[string][]string `yaml:"niche_examples"`
	FallbackExamples []string            `yaml:"fallback_examples"`
}

// Load parses the embedded catalog.
func Load() (*Catalog, error) {
	return Parse(catalogYAML)
}

func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	if len(c.Niches) == 0 {
		return fmt.Errorf("catalog has no niches")
	}
	if len(c.DefaultHashtags) == 0 {
		return fmt.Errorf("catalog has no default hashtags")
	}
	if len(c.DefaultFormats) < constants.ExtractionLimits.FormatCount {
		return fmt.Errorf("catalog needs %d default formats, has %d", constants.ExtractionLimits.FormatCount, len(c.DefaultFormats))
	}
	seen := make(map[string]struct{}, len(c.Niches))
	for i, n := range c.Niches {
		key := strings.ToLower(strings.TrimSpace(n.Key))
		if key == "" || len(n.Hashtags) == 0 {
			return fmt.Errorf("niche #%d is incomplete", i)
		}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("duplicate niche %q", key)
		}
		seen[key] = struct{}{}
		c.Niches[i].Key = key
	}
	return nil
}

// Examples returns the example phrasing for the given niche key, falling back
// to the generic examples with {niche} substituted.
func (c *Catalog) Examples(nicheKey, display string) []string {
	if ex, ok := c.NicheExamples[nicheKey]; ok && len(ex) > 0 {
		return ex
	}
	out := make([]string, len(c.FallbackExamples))
	for i, e := range c.FallbackExamples {
		out[i] = strings.ReplaceAll(e, "{niche}", display)
	}
	return out
}
