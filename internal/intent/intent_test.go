package intent

import (
	"path/filepath"
	"reflect"
	"testing"
)

// stubTitles is a fixed in-memory metadata cache for tests.
type stubTitles struct {
	series string
	titles map[EpisodeKey]string
}

func (s stubTitles) SeriesName() string { return s.series }

func (s stubTitles) EpisodeTitle(key EpisodeKey) (string, bool) {
	title, ok := s.titles[key]
	return title, ok
}

func showName() stubTitles {
	return stubTitles{series: "Show Name"}
}

func TestClassify_Delete(t *testing.T) {
	rules := FilterRules{BlacklistExtensions: []string{"tmp", "nfo"}}

	tests := []struct {
		name string
		path string
	}{
		{"no extension", "somefolder/README"},
		{"bare directory", "somefolder/"},
		{"dotfile has no extension", ".DS_Store"},
		{"nested dotfile has no extension", "library/.hidden"},
		{"blacklisted extension", "notes.tmp"},
		{"blacklisted extension wins over episode pattern", "Show.Name.S01E02.tmp"},
		{"nested blacklisted extension", "a/b/c/file.nfo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.path, rules, showName())
			if got.Action != ActionDelete {
				t.Errorf("Classify(%q).Action = %v, want delete", tt.path, got.Action)
			}
			if got.Dest != "" {
				t.Errorf("Dest = %q, want empty", got.Dest)
			}
		})
	}
}

func TestClassify_ExtensionIsCaseSensitive(t *testing.T) {
	rules := FilterRules{BlacklistExtensions: []string{"tmp"}}
	got := Classify("notes.TMP", rules, showName())
	if got.Action == ActionDelete {
		t.Errorf("blacklist matched %q case-insensitively", "TMP")
	}
}

func TestClassify_Whitelist(t *testing.T) {
	rules := FilterRules{
		BlacklistExtensions: []string{"tmp"},
		WhitelistFolders:    []string{"extras"},
		WhitelistFilenames:  []string{"keep.S01E02.mkv"},
	}

	tests := []struct {
		name string
		path string
	}{
		{"whitelisted folder protects contents", "extras/Show.S01E02.mkv"},
		{"whitelisted folder protects unparseable names too", "extras/notes.txt"},
		{"deeply nested whitelisted folder", "a/extras/b/file.mkv"},
		{"whitelisted filename", "keep.S01E02.mkv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.path, rules, showName())
			if got.Action != ActionWhitelist {
				t.Errorf("Classify(%q).Action = %v, want whitelist", tt.path, got.Action)
			}
		})
	}

	// Blacklist still runs before any whitelist.
	got := Classify("extras/junk.tmp", rules, showName())
	if got.Action != ActionDelete {
		t.Errorf("blacklisted extension inside whitelisted folder: got %v, want delete", got.Action)
	}
}

func TestClassify_Ignore(t *testing.T) {
	// Dotfiles with a real extension still classify on content.
	for _, path := range []string{"notes.txt", "cover.jpg", "The.Matrix.1999.mkv", ".hidden.txt"} {
		got := Classify(path, FilterRules{}, showName())
		if got.Action != ActionIgnore {
			t.Errorf("Classify(%q).Action = %v, want ignore", path, got.Action)
		}
		if got.Descriptor != nil {
			t.Errorf("Classify(%q).Descriptor = %v, want nil", path, got.Descriptor)
		}
	}
}

func TestClassify_Rename(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		rules    FilterRules
		cache    stubTitles
		wantDest string
		wantKey  EpisodeKey
	}{
		{
			name:     "no title and no tags",
			path:     "Show.Name.S01E02.mkv",
			cache:    showName(),
			wantDest: filepath.Join("Season 01", "Show Name-S01E02.mkv"),
			wantKey:  EpisodeKey{Season: 1, Episode: 2},
		},
		{
			name: "title suffix from cache",
			path: "Show.Name.S01E02.mkv",
			cache: stubTitles{
				series: "Show Name",
				titles: map[EpisodeKey]string{{Season: 1, Episode: 2}: "The Pilot"},
			},
			wantDest: filepath.Join("Season 01", "Show Name-S01E02-The Pilot.mkv"),
			wantKey:  EpisodeKey{Season: 1, Episode: 2},
		},
		{
			name: "title that cleans to nothing is omitted",
			path: "Show.Name.S01E02.mkv",
			cache: stubTitles{
				series: "Show Name",
				titles: map[EpisodeKey]string{{Season: 1, Episode: 2}: "???"},
			},
			wantDest: filepath.Join("Season 01", "Show Name-S01E02.mkv"),
			wantKey:  EpisodeKey{Season: 1, Episode: 2},
		},
		{
			name:     "whitelisted tags survive in order",
			path:     "[Group] Show Name S02E05 [720p][EngSub].mkv",
			rules:    FilterRules{WhitelistTags: []string{"EngSub", "Group"}},
			cache:    showName(),
			wantDest: filepath.Join("Season 02", "Show Name-S02E05.[Group].[EngSub].mkv"),
			wantKey:  EpisodeKey{Season: 2, Episode: 5},
		},
		{
			name:     "non-whitelisted tags never appear",
			path:     "Show.Name.S01E02.[720p].mkv",
			cache:    showName(),
			wantDest: filepath.Join("Season 01", "Show Name-S01E02.mkv"),
			wantKey:  EpisodeKey{Season: 1, Episode: 2},
		},
		{
			name:     "wide numbers keep natural width",
			path:     "Show.Name.S123E04.mkv",
			cache:    showName(),
			wantDest: filepath.Join("Season 123", "Show Name-S123E04.mkv"),
			wantKey:  EpisodeKey{Season: 123, Episode: 4},
		},
		{
			name:     "series name is cleaned",
			path:     "whatever.S04E07.mkv",
			cache:    stubTitles{series: "Show: The.Sequel"},
			wantDest: filepath.Join("Season 04", "Show The Sequel-S04E07.mkv"),
			wantKey:  EpisodeKey{Season: 4, Episode: 7},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.path, tt.rules, tt.cache)
			if got.Action != ActionRename {
				t.Fatalf("Action = %v, want rename", got.Action)
			}
			if got.Dest != tt.wantDest {
				t.Errorf("Dest = %q, want %q", got.Dest, tt.wantDest)
			}
			if got.Descriptor == nil || *got.Descriptor != tt.wantKey {
				t.Errorf("Descriptor = %v, want %v", got.Descriptor, tt.wantKey)
			}
		})
	}
}

func TestClassify_Complete(t *testing.T) {
	path := filepath.Join("Season 01", "Show Name-S01E02.mkv")
	got := Classify(path, FilterRules{}, showName())
	if got.Action != ActionComplete {
		t.Fatalf("Action = %v, want complete", got.Action)
	}
	if got.Dest != "" {
		t.Errorf("Dest = %q, want empty for complete", got.Dest)
	}
	if got.Descriptor == nil || (*got.Descriptor != EpisodeKey{Season: 1, Episode: 2}) {
		t.Errorf("Descriptor = %v, want S01E02 key", got.Descriptor)
	}
}

// Applying the computed rename and re-classifying must be a fixed point.
func TestClassify_RenameThenCompleteIsStable(t *testing.T) {
	cache := stubTitles{
		series: "Show Name",
		titles: map[EpisodeKey]string{{Season: 3, Episode: 9}: "Endgame"},
	}
	rules := FilterRules{WhitelistTags: []string{"EngSub"}}

	first := Classify("Show.Name.S03E09.[EngSub].mkv", rules, cache)
	if first.Action != ActionRename {
		t.Fatalf("first Action = %v, want rename", first.Action)
	}

	second := Classify(first.Dest, rules, cache)
	if second.Action != ActionComplete {
		t.Fatalf("reclassifying %q: Action = %v, want complete", first.Dest, second.Action)
	}
}

func TestClassify_Deterministic(t *testing.T) {
	cache := stubTitles{
		series: "Show Name",
		titles: map[EpisodeKey]string{{Season: 1, Episode: 2}: "Pilot"},
	}
	rules := FilterRules{
		BlacklistExtensions: []string{"tmp"},
		WhitelistTags:       []string{"720p"},
	}

	for _, path := range []string{
		"Show.Name.S01E02.[720p].mkv",
		"notes.txt",
		"junk.tmp",
		filepath.Join("Season 01", "Show Name-S01E02-Pilot.mkv"),
	} {
		first := Classify(path, rules, cache)
		for i := 0; i < 3; i++ {
			if got := Classify(path, rules, cache); !reflect.DeepEqual(got, first) {
				t.Errorf("Classify(%q) not deterministic: %+v vs %+v", path, got, first)
			}
		}
	}
}

func TestActionTextRoundTrip(t *testing.T) {
	for _, action := range Actions() {
		text, err := action.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%v): %v", action, err)
		}
		var parsed Action
		if err := parsed.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%q): %v", text, err)
		}
		if parsed != action {
			t.Errorf("round trip %v -> %q -> %v", action, text, parsed)
		}
	}

	var bad Action
	if err := bad.UnmarshalText([]byte("nope")); err == nil {
		t.Error("UnmarshalText accepted unknown action")
	}
}
