package language

import (
	"strings"
	"unicode"

	"github.com/rivo/uniseg"
)

// pictographic approximates the Extended_Pictographic property plus regional
// indicators, which the standard unicode tables do not expose.
var pictographic = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x00a9, Hi: 0x00a9, Stride: 1},
		{Lo: 0x00ae, Hi: 0x00ae, Stride: 1},
		{Lo: 0x203c, Hi: 0x203c, Stride: 1},
		{Lo: 0x2049, Hi: 0x2049, Stride: 1},
		{Lo: 0x2122, Hi: 0x2122, Stride: 1},
		{Lo: 0x2139, Hi: 0x2139, Stride: 1},
		{Lo: 0x2194, Hi: 0x2199, Stride: 1},
		{Lo: 0x21a9, Hi: 0x21aa, Stride: 1},
		{Lo: 0x231a, Hi: 0x231b, Stride: 1},
		{Lo: 0x2328, Hi: 0x2328, Stride: 1},
		{Lo: 0x23cf, Hi: 0x23cf, Stride: 1},
		{Lo: 0x23e9, Hi: 0x23f3, Stride: 1},
		{Lo: 0x23f8, Hi: 0x23fa, Stride: 1},
		{Lo: 0x24c2, Hi: 0x24c2, Stride: 1},
		{Lo: 0x25aa, Hi: 0x25ab, Stride: 1},
		{Lo: 0x25b6, Hi: 0x25b6, Stride: 1},
		{Lo: 0x25c0, Hi: 0x25c0, Stride: 1},
		{Lo: 0x25fb, Hi: 0x25fe, Stride: 1},
		{Lo: 0x2600, Hi: 0x27bf, Stride: 1},
		{Lo: 0x2934, Hi: 0x2935, Stride: 1},
		{Lo: 0x2b05, Hi: 0x2b07, Stride: 1},
		{Lo: 0x2b1b, Hi: 0x2b1c, Stride: 1},
		{Lo: 0x2b50, Hi: 0x2b50, Stride: 1},
		{Lo: 0x2b55, Hi: 0x2b55, Stride: 1},
		{Lo: 0x3030, Hi: 0x3030, Stride: 1},
		{Lo: 0x303d, Hi: 0x303d, Stride: 1},
		{Lo: 0x3297, Hi: 0x3297, Stride: 1},
		{Lo: 0x3299, Hi: 0x3299, Stride: 1},
	},
	R32: []unicode.Range32{
		{Lo: 0x1f000, Hi: 0x1faff, Stride: 1},
	},
}

// isEmoji reports whether a grapheme cluster renders as an emoji. Skin tone
// modifiers, variation selectors and ZWJ sequences stay inside one cluster,
// so a family emoji counts once.
func isEmoji(cluster []rune) bool {
	if len(cluster) == 0 {
		return false
	}
	return unicode.Is(pictographic, cluster[0])
}

// CountEmoji counts emoji grapheme clusters in text.
func CountEmoji(text string) int {
	count := 0
	g := uniseg.NewGraphemes(text)
	for g.Next() {
		if isEmoji(g.Runes()) {
			count++
		}
	}
	return count
}

// CapEmoji keeps the first limit emoji of text and drops the rest.
func CapEmoji(text string, limit int) string {
	var b strings.Builder
	b.Grow(len(text))

	seen := 0
	g := uniseg.NewGraphemes(text)
	for g.Next() {
		if isEmoji(g.Runes()) {
			seen++
			if seen > limit {
				continue
			}
		}
		b.WriteString(g.Str())
	}
	return b.String()
}
