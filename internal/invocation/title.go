// ABOUTME: Derives a conversation title from the first user message
// ABOUTME: Collapses whitespace and truncates to a fixed rune count with an ellipsis

package invocation

import (
	"strings"
	"unicode/utf8"
)

// MaxTitleRunes bounds derived conversation titles.
const MaxTitleRunes = 60

// FallbackTitle is used when the user text has no printable content.
const FallbackTitle = "Nova conversa"

// DeriveTitle builds a conversation title from user text.
func DeriveTitle(text string) string {
	title := strings.Join(strings.Fields(text), " ")
	if title == "" {
		return FallbackTitle
	}
	if utf8.RuneCountInString(title) <= MaxTitleRunes {
		return title
	}

	runes := []rune(title)
	cut := strings.TrimRight(string(runes[:MaxTitleRunes-1]), " ")
	return cut + "…"
}
