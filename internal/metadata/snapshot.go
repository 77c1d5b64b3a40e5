// Package metadata provides immutable snapshots of the pre-populated
// episode metadata cache and the store that loads and swaps them.
package metadata

import (
	"github.com/reelsort/reelsort/internal/intent"
)

// Episode is one episode record inside a snapshot. Title is empty when
// the cache carries no human title for the episode.
type Episode struct {
	Season  int    `json:"season"`
	Episode int    `json:"episode"`
	Title   string `json:"title,omitempty"`
}

// Snapshot is an immutable view of one series' metadata. Once built it is
// never mutated, so any number of classification calls may read it
// concurrently without locking. Refreshing metadata means building a new
// Snapshot and swapping the reference in the Store.
type Snapshot struct {
	series   string
	episodes []Episode
	index    map[intent.EpisodeKey]int
}

// NewSnapshot builds a snapshot from a series name and its ordered
// episode records. Later records win when two share the same numbering.
func NewSnapshot(series string, episodes []Episode) *Snapshot {
	index := make(map[intent.EpisodeKey]int, len(episodes))
	for i, ep := range episodes {
		index[intent.EpisodeKey{Season: ep.Season, Episode: ep.Episode}] = i
	}
	return &Snapshot{series: series, episodes: episodes, index: index}
}

// SeriesName returns the series-level name, global per snapshot.
func (s *Snapshot) SeriesName() string {
	return s.series
}

// EpisodeTitle looks up the title for an episode key. It reports false
// when the episode is unknown or has no title.
func (s *Snapshot) EpisodeTitle(key intent.EpisodeKey) (string, bool) {
	i, ok := s.index[key]
	if !ok || s.episodes[i].Title == "" {
		return "", false
	}
	return s.episodes[i].Title, true
}

// Episodes returns the snapshot's episode records. The returned slice is
// shared and must be treated as read-only.
func (s *Snapshot) Episodes() []Episode {
	return s.episodes
}

// Len returns the number of episode records in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.episodes)
}
