// Package classification picks the invoice total out of document text.
package classification

import (
	"fmt"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// Tier levels. Higher tiers dominate lower ones when choosing a total.
const (
	TierNone    = 0
	TierLow     = 1
	TierStrong  = 2
	TierSupreme = 3
)

// TierTable is a group of phrases that qualify a line for one tier.
type TierTable struct {
	Name    string   `yaml:"name"`
	Phrases []string `yaml:"phrases"`
	Level   int      `yaml:"level"`
}

// Tables holds every vocabulary the classifier consults.
type Tables struct {
	Tiers      []TierTable `yaml:"tiers"`
	Subtotal   []string    `yaml:"subtotal"`
	Ignore     []string    `yaml:"ignore"`
	Identifier []string    `yaml:"identifier"`
	Currency   []string    `yaml:"currency"`
}

// LoadTables reads a YAML keyword file. Sections it leaves empty keep their defaults.
func LoadTables(path string) (Tables, error) {
	tables := DefaultTables()
	if path == "" {
		return tables, nil
	}

	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return tables, fmt.Errorf("failed to read keyword file: %w", err)
	}

	var override Tables
	if err := yaml.Unmarshal(data, &override); err != nil {
		return tables, fmt.Errorf("failed to parse keyword file: %w", err)
	}

	if len(override.Tiers) > 0 {
		for _, t := range override.Tiers {
			if t.Level < TierLow || t.Level > TierSupreme {
				return tables, fmt.Errorf("tier %q has invalid level %d", t.Name, t.Level)
			}
		}
		tables.Tiers = override.Tiers
	}
	if len(override.Subtotal) > 0 {
		tables.Subtotal = override.Subtotal
	}
	if len(override.Ignore) > 0 {
		tables.Ignore = override.Ignore
	}
	if len(override.Identifier) > 0 {
		tables.Identifier = override.Identifier
	}
	if len(override.Currency) > 0 {
		tables.Currency = override.Currency
	}
	return tables, nil
}

// canonical lower-cases s, strips diacritics and removes whitespace and dots,
// so "Net à payer" and "NETAPAYER" compare equal.
func canonical(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		out = strings.ToLower(s)
	}
	return strings.Map(func(r rune) rune {
		if r == '.' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, out)
}

type compiledTier struct {
	name    string
	phrases []string
	level   int
}

// compiledTables is Tables with phrases pre-canonicalized.
type compiledTables struct {
	tiers      []compiledTier
	subtotal   []string
	ignore     []string
	identifier []string
	currency   []string
}

func compileTables(t Tables) compiledTables {
	c := compiledTables{
		tiers:      make([]compiledTier, 0, len(t.Tiers)),
		subtotal:   canonicalAll(t.Subtotal),
		ignore:     lowerAll(t.Ignore),
		identifier: lowerAll(t.Identifier),
		currency:   lowerAll(t.Currency),
	}
	for _, tier := range t.Tiers {
		c.tiers = append(c.tiers, compiledTier{
			name:    tier.Name,
			level:   tier.Level,
			phrases: canonicalAll(tier.Phrases),
		})
	}
	return c
}

func canonicalAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if c := canonical(s); c != "" {
			out = append(out, c)
		}
	}
	return out
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ToLower(s))
	}
	return out
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// lineTier returns the tier a line qualifies for. Subtotal wording demotes
// any higher tier to TierLow.
func (c *compiledTables) lineTier(line string) int {
	canon := canonical(line)
	tier := TierNone
	for _, t := range c.tiers {
		if containsAny(canon, t.phrases) {
			tier = t.level
			break
		}
	}
	if tier > TierLow && containsAny(canon, c.subtotal) {
		tier = TierLow
	}
	return tier
}

func (c *compiledTables) ignored(line string) bool {
	return containsAny(strings.ToLower(line), c.ignore)
}
