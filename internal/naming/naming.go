// Package naming produces filesystem-safe canonical strings for series
// names and episode titles.
package naming

import (
	"regexp"
	"strings"
)

// Characters not allowed in filenames on the filesystems we care about.
// Colons are included here: canonical names never carry them.
var illegalCharacters = map[rune]bool{
	'\\': true, '/': true, ':': true, '*': true, '?': true,
	'"': true, '<': true, '>': true, '|': true,
}

var separatorRun = regexp.MustCompile(`[\.\s_\-]+`)

// CleanSeriesName converts a raw series name into its canonical
// filesystem-safe form: illegal characters dropped, separator runs
// collapsed to single spaces, surrounding whitespace and dots trimmed.
// Deterministic: identical input always yields identical output.
func CleanSeriesName(raw string) string {
	return clean(raw)
}

// CleanEpisodeTitle canonicalizes an episode title the same way a series
// name is. The result may be empty when the title reduces to nothing
// meaningful.
func CleanEpisodeTitle(raw string) string {
	return clean(raw)
}

func clean(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if illegalCharacters[r] {
			continue
		}
		b.WriteRune(r)
	}

	s := separatorRun.ReplaceAllString(b.String(), " ")
	return strings.Trim(s, " .")
}
