package logger

import (
	"encoding/json"
	"sync"
)

const defaultStreamSize = 1000

// Broadcaster is the interface for pushing log entries to live listeners
// (the websocket hub implements it).
type Broadcaster interface {
	Broadcast(msgType string, payload any)
}

// Entry is a parsed log entry for streaming and the /api/logs endpoint.
type Entry struct {
	Timestamp string         `json:"timestamp"`
	Level     string         `json:"level"`
	Component string         `json:"component,omitempty"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Stream is an io.Writer fed with zerolog's JSON output. It keeps the
// most recent entries in a ring buffer and forwards each entry to the
// hub when one is attached.
type Stream struct {
	mu      sync.RWMutex
	hub     Broadcaster
	entries []Entry
	head    int
	count   int
}

// NewStream creates a stream retaining up to capacity entries.
func NewStream(capacity int) *Stream {
	if capacity <= 0 {
		capacity = defaultStreamSize
	}
	return &Stream{entries: make([]Entry, capacity)}
}

// SetHub attaches the live broadcaster. May be called after logging has
// already started.
func (s *Stream) SetHub(hub Broadcaster) {
	s.mu.Lock()
	s.hub = hub
	s.mu.Unlock()
}

// Write implements io.Writer for zerolog. Malformed entries are dropped
// silently; logging must never fail the caller.
func (s *Stream) Write(p []byte) (int, error) {
	entry, err := parseEntry(p)
	if err != nil {
		return len(p), nil
	}

	s.mu.Lock()
	tail := (s.head + s.count) % len(s.entries)
	s.entries[tail] = entry
	if s.count < len(s.entries) {
		s.count++
	} else {
		s.head = (s.head + 1) % len(s.entries)
	}
	hub := s.hub
	s.mu.Unlock()

	if hub != nil {
		hub.Broadcast("logs:entry", entry)
	}
	return len(p), nil
}

// Recent returns the buffered entries, oldest first.
func (s *Stream) Recent() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, s.count)
	for i := 0; i < s.count; i++ {
		out[i] = s.entries[(s.head+i)%len(s.entries)]
	}
	return out
}

func parseEntry(data []byte) (Entry, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Entry{}, err
	}

	entry := Entry{Fields: make(map[string]any)}
	if ts, ok := raw["time"].(string); ok {
		entry.Timestamp = ts
		delete(raw, "time")
	}
	if level, ok := raw["level"].(string); ok {
		entry.Level = level
		delete(raw, "level")
	}
	if component, ok := raw["component"].(string); ok {
		entry.Component = component
		delete(raw, "component")
	}
	if msg, ok := raw["message"].(string); ok {
		entry.Message = msg
		delete(raw, "message")
	}
	for k, v := range raw {
		entry.Fields[k] = v
	}
	if len(entry.Fields) == 0 {
		entry.Fields = nil
	}
	return entry, nil
}
