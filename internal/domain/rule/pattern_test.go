package rule

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPattern_LiteralMatch(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		text    string
		want    bool
	}{
		{"exact", "steam deck", "steam deck", true},
		{"substring", "steam deck", "Valve Steam Deck 512GB OLED", true},
		{"case insensitive", "STEAM DECK", "steam deck console", true},
		{"no match", "steam deck", "nintendo switch", false},
		{"partial word still matches", "3080", "RTX 3080 Ti", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Compile(tt.pattern)
			assert.False(t, p.IsRegex())
			assert.Equal(t, tt.want, p.Matches(tt.text))
		})
	}
}

func TestPattern_RegexMatch(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		text    string
		want    bool
	}{
		{"simple", `regexp::rtx\s?3090`, "NVIDIA RTX3090 Founders", true},
		{"case insensitive", `regexp::rtx\s?3090`, "rtx 3090", true},
		{"no match", `regexp::rtx\s?3090`, "rtx 3080", false},
		{"word boundary", `regexp::\bfaulty\b`, "faulty fan", true},
		{"word boundary negative", `regexp::\bfaulty\b`, "defaulty", false},
		{"negative lookahead hit", `regexp::rtx\s?3080(?!\s?ti)`, "EVGA RTX 3080 FTW3", true},
		{"negative lookahead miss", `regexp::rtx\s?3080(?!\s?ti)`, "EVGA RTX 3080 Ti FTW3", false},
		{"negative lookahead compact", `regexp::rtx\s?3080(?!\s?ti)`, "RTX3080Ti", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Compile(tt.pattern)
			assert.True(t, p.IsRegex(), "pattern should compile as regex")
			assert.Equal(t, tt.want, p.Matches(tt.text))
		})
	}
}

func TestPattern_FallbackOnBadRegex(t *testing.T) {
	p := Compile(`regexp::rtx[3080`)

	assert.False(t, p.IsRegex())
	assert.True(t, p.IsFallback())
	// The invalid source text is matched as a literal.
	assert.True(t, p.Matches("listing with rtx[3080 in the title"))
	assert.False(t, p.Matches("RTX 3080"))
}

func TestPattern_String(t *testing.T) {
	assert.Equal(t, "steam deck", Compile("steam deck").String())
	assert.Equal(t, `regexp::rtx\s?3090`, Compile(`regexp::rtx\s?3090`).String())
}

func TestPatterns_AnyMatch(t *testing.T) {
	ps := CompileAll([]string{"broken", "for parts", `regexp::\bfaulty\b`})

	assert.True(t, ps.AnyMatch("GPU broken fan"))
	assert.True(t, ps.AnyMatch("Sold FOR PARTS only"))
	assert.True(t, ps.AnyMatch("one faulty port"))
	assert.False(t, ps.AnyMatch("fully working, tested"))

	var empty Patterns
	assert.False(t, empty.AnyMatch("anything"))
}
