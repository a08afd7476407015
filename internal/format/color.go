// Package format holds the presentation helpers shared by the CLI report and
// the HTTP API: label colors, duration text and percentages.
package format

import (
	"fmt"
	"unicode/utf16"
)

// hash is the classic 31-multiplier string hash over UTF-16 code units,
// wrapping at 32 bits.
func hash(label string) int32 {
	var h int32
	for _, unit := range utf16.Encode([]rune(label)) {
		h = int32(unit) + (h << 5) - h
	}
	return h
}

// ColorOf returns a stable #RRGGBB color for label.
func ColorOf(label string) string {
	return fmt.Sprintf("#%06X", uint32(hash(label))&0x00FFFFFF)
}

// RGB returns the components of ColorOf(label).
func RGB(label string) (r, g, b int) {
	c := uint32(hash(label)) & 0x00FFFFFF
	return int(c >> 16 & 0xFF), int(c >> 8 & 0xFF), int(c & 0xFF)
}
