// Package intent classifies media file paths against filter rules and a
// metadata snapshot, producing one terminal action per file and, for
// renames, the canonical destination path.
package intent

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/reelsort/reelsort/internal/descriptor"
	"github.com/reelsort/reelsort/internal/naming"
)

// Action is the classification outcome for a single file.
type Action int

const (
	ActionRename Action = iota
	ActionComplete
	ActionIgnore
	ActionDelete
	ActionWhitelist
)

// Actions returns every action in display order. Callers use it to group
// classification results for presentation.
func Actions() []Action {
	return []Action{ActionRename, ActionDelete, ActionIgnore, ActionWhitelist, ActionComplete}
}

func (a Action) String() string {
	switch a {
	case ActionRename:
		return "rename"
	case ActionComplete:
		return "complete"
	case ActionIgnore:
		return "ignore"
	case ActionDelete:
		return "delete"
	case ActionWhitelist:
		return "whitelist"
	default:
		return "unknown"
	}
}

// MarshalText renders the action as its lowercase name in JSON and YAML.
func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText parses an action from its lowercase name.
func (a *Action) UnmarshalText(text []byte) error {
	for _, candidate := range Actions() {
		if candidate.String() == string(text) {
			*a = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown action %q", text)
}

// EpisodeKey identifies an episode by numbering. Equality is structural;
// it is used directly as a map key.
type EpisodeKey struct {
	Season  int `json:"season"`
	Episode int `json:"episode"`
}

// EpisodeTitles is the read-only metadata contract the classifier depends
// on. Implementations must be safe for concurrent reads.
type EpisodeTitles interface {
	SeriesName() string
	EpisodeTitle(key EpisodeKey) (string, bool)
}

// FilterRules is the immutable per-run rule set. The four lists are
// independent; Classify checks the blacklist before any whitelist, and
// folder whitelisting before filename whitelisting.
type FilterRules struct {
	BlacklistExtensions []string `json:"blacklistExtensions" yaml:"blacklistExtensions" mapstructure:"blacklist_extensions"`
	WhitelistFolders    []string `json:"whitelistFolders" yaml:"whitelistFolders" mapstructure:"whitelist_folders"`
	WhitelistFilenames  []string `json:"whitelistFilenames" yaml:"whitelistFilenames" mapstructure:"whitelist_filenames"`
	WhitelistTags       []string `json:"whitelistTags" yaml:"whitelistTags" mapstructure:"whitelist_tags"`
}

// FileIntent is the classification result for one path. Dest is populated
// only for ActionRename. Descriptor carries the extracted episode key for
// both Rename and Complete so callers can display or bookmark by episode
// identity.
type FileIntent struct {
	Action     Action      `json:"action"`
	Dest       string      `json:"dest,omitempty"`
	Descriptor *EpisodeKey `json:"descriptor,omitempty"`
}

// Classify decides the terminal action for path. It is a pure function of
// its inputs: no I/O, no mutation of rules or cache, and it never fails.
// Problem files surface as ActionDelete (structurally unusable) or
// ActionIgnore (unrecognized naming).
func Classify(path string, rules FilterRules, cache EpisodeTitles) FileIntent {
	filename := filepath.Base(path)
	ext := filepath.Ext(filename)
	if ext == filename {
		// A leading dot alone (".DS_Store") is not an extension.
		ext = ""
	}
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" || filename == "." || filename == string(filepath.Separator) {
		return FileIntent{Action: ActionDelete}
	}

	if slices.Contains(rules.BlacklistExtensions, ext) {
		return FileIntent{Action: ActionDelete}
	}

	for _, component := range pathComponents(path) {
		if slices.Contains(rules.WhitelistFolders, component) {
			return FileIntent{Action: ActionWhitelist}
		}
	}

	if slices.Contains(rules.WhitelistFilenames, filename) {
		return FileIntent{Action: ActionWhitelist}
	}

	desc, ok := descriptor.Extract(filename)
	if !ok {
		return FileIntent{Action: ActionIgnore}
	}

	key := EpisodeKey{Season: desc.Season, Episode: desc.Episode}
	dest := canonicalPath(desc, key, ext, rules, cache)

	if samePath(path, dest) {
		return FileIntent{Action: ActionComplete, Descriptor: &key}
	}
	return FileIntent{Action: ActionRename, Dest: dest, Descriptor: &key}
}

// canonicalPath builds "Season SS/Series-SssEee[-Title][.[TAG]...].ext".
// Season and episode numbers are zero-padded to at least two digits and
// keep their natural width above 99.
func canonicalPath(desc descriptor.Descriptor, key EpisodeKey, ext string, rules FilterRules, cache EpisodeTitles) string {
	titleSuffix := ""
	if title, ok := cache.EpisodeTitle(key); ok {
		if cleaned := naming.CleanEpisodeTitle(title); cleaned != "" {
			titleSuffix = "-" + cleaned
		}
	}

	var tags strings.Builder
	for _, tag := range desc.Tags {
		if slices.Contains(rules.WhitelistTags, tag) {
			tags.WriteString(".[" + tag + "]")
		}
	}

	filename := fmt.Sprintf("%s-S%02dE%02d%s%s.%s",
		naming.CleanSeriesName(cache.SeriesName()),
		desc.Season, desc.Episode,
		titleSuffix, tags.String(), ext)

	folder := fmt.Sprintf("Season %02d", desc.Season)
	return filepath.Join(folder, filename)
}

// pathComponents splits a path into its components, including the final
// filename. A whitelisted folder protects everything under it, so the
// check walks every component.
func pathComponents(path string) []string {
	normalized := filepath.ToSlash(filepath.Clean(path))
	return strings.Split(strings.Trim(normalized, "/"), "/")
}

// samePath compares two paths component-wise under platform semantics.
func samePath(a, b string) bool {
	return filepath.Clean(a) == filepath.Clean(b)
}
