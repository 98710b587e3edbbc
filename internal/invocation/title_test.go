// ABOUTME: Tests for conversation title derivation from user text
// ABOUTME: Covers whitespace collapsing, truncation by runes, and the empty fallback

package invocation

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestDeriveTitle(t *testing.T) {
	long := strings.Repeat("equação ", 20)

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"short", "Frações", "Frações"},
		{"collapses whitespace", "  what\tis\n\n a  verb? ", "what is a verb?"},
		{"empty", "   ", FallbackTitle},
		{"exact limit", strings.Repeat("a", MaxTitleRunes), strings.Repeat("a", MaxTitleRunes)},
		{"truncated", long, strings.TrimRight(string([]rune(strings.TrimSpace(long))[:MaxTitleRunes-1]), " ") + "…"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveTitle(tt.input)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, utf8.RuneCountInString(got), MaxTitleRunes)
		})
	}
}
