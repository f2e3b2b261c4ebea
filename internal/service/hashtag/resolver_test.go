package hashtag

import (
	"strings"
	"testing"
	"unicode"

	"go.uber.org/zap"

	"github.com/kapu/trendformats-go/internal/catalog"
)

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	c, err := catalog.Load()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return NewResolver(c, zap.NewNop())
}

func TestResolveTableNichesAreCleanTokens(t *testing.T) {
	r := newTestResolver(t)
	c, _ := catalog.Load()

	for _, p := range c.Niches {
		tags := r.Resolve(p.Key)
		if len(tags) == 0 {
			t.Fatalf("niche %q resolved to no hashtags", p.Key)
		}
		for _, tag := range tags {
			if tag != strings.ToLower(tag) {
				t.Fatalf("niche %q: hashtag %q is not lowercase", p.Key, tag)
			}
			if strings.IndexFunc(tag, unicode.IsSpace) >= 0 {
				t.Fatalf("niche %q: hashtag %q contains whitespace", p.Key, tag)
			}
		}
	}
}

func TestResolveExactMatchIgnoresCaseAndSpace(t *testing.T) {
	r := newTestResolver(t)

	res := r.ResolveProfile("  FOOD ")
	if res.Source != MatchExact || res.Key != "food" {
		t.Fatalf("expected exact food match, got %+v", res)
	}
	if res.Hashtags[0] != "foodtok" {
		t.Fatalf("expected table order to be kept, got %v", res.Hashtags)
	}
}

func TestResolveExactBeatsEarlierSubstring(t *testing.T) {
	r := newTestResolver(t)

	if got := r.ResolveProfile("fashion"); got.Key != "fashion" || got.Source != MatchExact {
		t.Fatalf("expected exact fashion, got %+v", got)
	}
	if got := r.ResolveProfile("hijab fashion"); got.Key != "hijab fashion" {
		t.Fatalf("expected hijab fashion, got %+v", got)
	}
}

func TestResolveSubstringUsesDeclarationOrder(t *testing.T) {
	r := newTestResolver(t)

	// "street food fitness" contains both fitness and food; fitness is declared first.
	got := r.ResolveProfile("street food fitness")
	if got.Source != MatchSubstring || got.Key != "fitness" {
		t.Fatalf("expected fitness by substring, got %+v", got)
	}

	// Input contained in a key also matches.
	if got := r.ResolveProfile("decor"); got.Key != "home decor" {
		t.Fatalf("expected home decor for contained input, got %+v", got)
	}
}

func TestResolveFallbackSlugPlusDefaults(t *testing.T) {
	r := newTestResolver(t)

	got := r.ResolveProfile("Underwater Basket-Weaving!")
	if got.Source != MatchFallback || got.Key != "" {
		t.Fatalf("expected fallback, got %+v", got)
	}
	if got.Hashtags[0] != "underwaterbasketweaving" {
		t.Fatalf("expected slug first, got %v", got.Hashtags)
	}
	if len(got.Hashtags) != 5 || got.Hashtags[1] != "fyp" {
		t.Fatalf("expected slug plus 4 defaults, got %v", got.Hashtags)
	}
}

func TestResolveReturnsCopies(t *testing.T) {
	r := newTestResolver(t)

	a := r.Resolve("food")
	a[0] = "mutated"
	if b := r.Resolve("food"); b[0] == "mutated" {
		t.Fatalf("resolver leaked its internal slice")
	}
}
