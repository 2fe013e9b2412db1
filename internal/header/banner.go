package header

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

var bannerLines = []string{
	"This file is auto-generated",
	"Manual changes made to this file will be overwritten",
}

// writeBanner frames lines in a box of // comments padded to the widest line.
func writeBanner(b *strings.Builder, lines []string) {
	width := 0
	for _, l := range lines {
		width = max(width, runewidth.StringWidth(l))
	}
	border := "// " + strings.Repeat("-", width) + " //\n"
	b.WriteString(border)
	for _, l := range lines {
		b.WriteString("// ")
		b.WriteString(runewidth.FillRight(l, width))
		b.WriteString(" //\n")
	}
	b.WriteString(border)
}
