package geometry

import (
	"strings"

	"github.com/rivo/uniseg"
)

// MeasureFunc returns the rendered width of a string in canvas units.
type MeasureFunc func(s string) float64

// WrapLines breaks text into lines no wider than maxWidth according to
// measure. Explicit newlines are respected. Wrapping happens on word
// boundaries first; a single word wider than maxWidth is hard-broken at
// grapheme cluster boundaries so multi-rune glyphs are never split. The
// result is fully materialized and safe to iterate any number of times.
func WrapLines(measure MeasureFunc, text string, maxWidth float64) []string {
	var out []string
	for _, raw := range strings.Split(text, "\n") {
		out = append(out, wrapLine(measure, raw, maxWidth)...)
	}
	return out
}

func wrapLine(measure MeasureFunc, line string, maxWidth float64) []string {
	if measure(line) <= maxWidth {
		return []string{line}
	}

	var out []string
	var current string
	for _, word := range strings.Fields(line) {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if measure(candidate) <= maxWidth {
			current = candidate
			continue
		}
		if current != "" {
			out = append(out, current)
			current = ""
		}
		if measure(word) <= maxWidth {
			current = word
			continue
		}
		// The word alone exceeds the width: hard-break by grapheme.
		broken, rest := breakWord(measure, word, maxWidth)
		out = append(out, broken...)
		current = rest
	}
	if current != "" {
		out = append(out, current)
	}
	if len(out) == 0 {
		return []string{""}
	}
	return out
}

// breakWord splits word into full-width chunks plus a trailing remainder
// that fits under maxWidth. Every chunk holds at least one grapheme so
// progress is guaranteed even for absurdly small widths.
func breakWord(measure MeasureFunc, word string, maxWidth float64) (chunks []string, rest string) {
	var current string
	g := uniseg.NewGraphemes(word)
	for g.Next() {
		cluster := g.Str()
		if current != "" && measure(current+cluster) > maxWidth {
			chunks = append(chunks, current)
			current = ""
		}
		current += cluster
	}
	if current != "" && measure(current) > maxWidth && len(chunks) > 0 {
		chunks = append(chunks, current)
		current = ""
	}
	return chunks, current
}
