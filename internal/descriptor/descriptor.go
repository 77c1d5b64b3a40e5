// Package descriptor extracts season/episode numbering and release tags
// from media filenames.
package descriptor

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Descriptor holds the numbering and tags parsed from a single filename.
// Tags keep their original left-to-right order; the extractor never
// deduplicates them.
type Descriptor struct {
	Season  int
	Episode int
	Tags    []string
}

// Numbering patterns, tried in order: Show.S01E02 then Show.1x02.
var (
	patternSE = regexp.MustCompile(`(?i)(?:^|[\.\s_\-\[\(])[Ss](\d{1,4})[\.\s_\-]?[Ee](\d{1,4})(?:[\.\s_\-\]\)]|$)`)
	patternX  = regexp.MustCompile(`(?:^|[\.\s_\-\[\(])(\d{1,2})[xX](\d{1,3})(?:[\.\s_\-\]\)]|$)`)

	tagPattern = regexp.MustCompile(`\[([^\[\]]+)\]`)
)

// Extract parses a bare filename (no directory components) into a
// Descriptor. It reports false when the name carries no recognizable
// season/episode marker.
func Extract(filename string) (Descriptor, bool) {
	name := strings.TrimSuffix(filename, filepath.Ext(filename))

	season, episode, ok := extractNumbering(name)
	if !ok {
		return Descriptor{}, false
	}

	return Descriptor{
		Season:  season,
		Episode: episode,
		Tags:    extractTags(name),
	}, true
}

func extractNumbering(name string) (season, episode int, ok bool) {
	if m := patternSE.FindStringSubmatch(name); m != nil {
		season, _ = strconv.Atoi(m[1])
		episode, _ = strconv.Atoi(m[2])
		return season, episode, true
	}
	if m := patternX.FindStringSubmatch(name); m != nil {
		season, _ = strconv.Atoi(m[1])
		episode, _ = strconv.Atoi(m[2])
		return season, episode, true
	}
	return 0, 0, false
}

// extractTags collects bracketed annotations ("[GroupName]", "[720p]")
// left to right, one entry per occurrence.
func extractTags(name string) []string {
	matches := tagPattern.FindAllStringSubmatch(name, -1)
	if matches == nil {
		return nil
	}

	tags := make([]string, 0, len(matches))
	for _, m := range matches {
		tag := strings.TrimSpace(m[1])
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	if len(tags) == 0 {
		return nil
	}
	return tags
}
