package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealwatch/pkg/errors"
)

func writeRules(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validRules = `
global:
  blocklist: ["broken", "for parts"]
  seller_blocklist: ["dropshipper123"]
  condition_blocklist: [7000]

rules:
  - name: gpu-deals
    categories: [27386]
    channel: "-100123"
    keywords:
      - pattern: "regexp::rtx\\s?3080(?!\\s?ti)"
        label: "RTX 3080"
        min_price: 150
        max_price: 400
        deal_ranges:
          fire:  { start: 150, end: 239 }
          great: { start: 240, end: 249 }
          good:  { start: 250, end: 256 }
          ok:    { start: 257, end: 262 }
    exclude: ["water block"]
    blocklist_override: ["tested working"]

  - name: derived
    categories: [139971]
    keywords:
      - pattern: "steam deck"
        min_price: 150
        target_price: 250
        derive_ranges: true
`

func TestLoadRules(t *testing.T) {
	set, err := LoadRules(writeRules(t, validRules), false)
	require.NoError(t, err)

	require.Len(t, set.Rules, 2)
	assert.Equal(t, []int64{7000}, set.Globals.ConditionBlocklist)
	assert.True(t, set.Globals.Blocklist.AnyMatch("sold FOR PARTS"))
	assert.False(t, set.Globals.IncludeShippingInPriceFilter)

	gpu := set.Rules[0]
	assert.Equal(t, "gpu-deals", gpu.Name)
	assert.Equal(t, "-100123", gpu.Channel)
	require.Len(t, gpu.Keywords, 1)

	kw := gpu.Keywords[0]
	assert.True(t, kw.Pattern.IsRegex())
	assert.True(t, kw.Pattern.Matches("RTX 3080 FE"))
	assert.False(t, kw.Pattern.Matches("RTX 3080 Ti"))
	require.NotNil(t, kw.MinPrice)
	assert.Equal(t, "150", kw.MinPrice.String())
	require.NotNil(t, kw.Ranges)
	assert.Equal(t, "239", kw.Ranges.Fire.End.String())

	assert.True(t, gpu.Exclude.AnyMatch("with Water Block"))
	assert.True(t, gpu.BlocklistOverride.AnyMatch("tested working, no box"))
}

func TestLoadRules_DerivesRanges(t *testing.T) {
	set, err := LoadRules(writeRules(t, validRules), false)
	require.NoError(t, err)

	kw := set.Rules[1].Keywords[0]
	require.NotNil(t, kw.Ranges)
	assert.Equal(t, "150", kw.Ranges.Fire.Start.String())
	assert.Equal(t, "240", kw.Ranges.Great.Start.String())
	assert.Equal(t, "249", kw.Ranges.Great.End.String())

	// The derived maximum also becomes the keyword's price ceiling.
	require.NotNil(t, kw.MaxPrice)
	assert.Equal(t, "262", kw.MaxPrice.String())
}

func TestLoadRules_ShippingToggle(t *testing.T) {
	set, err := LoadRules(writeRules(t, validRules), true)
	require.NoError(t, err)
	assert.True(t, set.Globals.IncludeShippingInPriceFilter)
}

func TestLoadRules_MissingFile(t *testing.T) {
	_, err := LoadRules(filepath.Join(t.TempDir(), "nope.yaml"), false)
	assert.Error(t, err)
}

func TestLoadRules_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no rules", "global:\n  blocklist: []\n"},
		{"rule without name", `
rules:
  - categories: [1]
    keywords: [{pattern: "x"}]
`},
		{"rule without categories", `
rules:
  - name: r
    keywords: [{pattern: "x"}]
`},
		{"rule without keywords", `
rules:
  - name: r
    categories: [1]
`},
		{"keyword without pattern", `
rules:
  - name: r
    categories: [1]
    keywords: [{label: "x"}]
`},
		{"min above max", `
rules:
  - name: r
    categories: [1]
    keywords: [{pattern: "x", min_price: 500, max_price: 100}]
`},
		{"derive without target", `
rules:
  - name: r
    categories: [1]
    keywords: [{pattern: "x", min_price: 100, derive_ranges: true}]
`},
		{"duplicate rule names", `
rules:
  - name: r
    categories: [1]
    keywords: [{pattern: "x"}]
  - name: r
    categories: [2]
    keywords: [{pattern: "y"}]
`},
		{"unknown field", `
rules:
  - name: r
    categories: [1]
    keywords: [{pattern: "x"}]
    typo_field: true
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadRules(writeRules(t, tt.content), false)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrInvalidRules), "want ErrInvalidRules, got %v", err)
		})
	}
}

func TestLoadRules_BadRegexDegradesToLiteral(t *testing.T) {
	content := `
rules:
  - name: r
    categories: [1]
    keywords:
      - pattern: "regexp::rtx[3080"
`
	set, err := LoadRules(writeRules(t, content), false)
	require.NoError(t, err, "a malformed regex must not fail the load")

	kw := set.Rules[0].Keywords[0]
	assert.True(t, kw.Pattern.IsFallback())
	assert.False(t, kw.Pattern.IsRegex())
}
