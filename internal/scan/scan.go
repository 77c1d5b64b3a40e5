// Package scan walks library folders, classifies every file through the
// intent engine and aggregates the results into per-action reports.
package scan

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/reelsort/reelsort/internal/intent"
	"github.com/reelsort/reelsort/internal/metadata"
)

const progressEvery = 100

// Broadcaster pushes scan progress events to live listeners.
type Broadcaster interface {
	Broadcast(msgType string, payload any)
}

// Result pairs a path (relative to the scanned root) with its
// classification.
type Result struct {
	Path   string            `json:"path"`
	Intent intent.FileIntent `json:"intent"`
}

// Report is the aggregated outcome of one scan.
type Report struct {
	ID         string         `json:"id"`
	Root       string         `json:"root"`
	SeriesID   int64          `json:"seriesId"`
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt time.Time      `json:"finishedAt"`
	Results    []Result       `json:"results"`
	Counts     map[string]int `json:"counts"`
}

// ByAction groups the report's results per action, in Actions() order.
func (r *Report) ByAction() map[intent.Action][]Result {
	groups := make(map[intent.Action][]Result, len(intent.Actions()))
	for _, res := range r.Results {
		groups[res.Intent.Action] = append(groups[res.Intent.Action], res)
	}
	return groups
}

// Service runs scans and keeps finished reports for retrieval.
type Service struct {
	logger  zerolog.Logger
	hub     Broadcaster
	workers int

	mu      sync.RWMutex
	reports map[string]*Report
}

// NewService creates a scan service. hub may be nil. workers bounds the
// number of concurrent classification goroutines.
func NewService(logger zerolog.Logger, hub Broadcaster, workers int) *Service {
	if workers <= 0 {
		workers = 4
	}
	return &Service{
		logger:  logger.With().Str("component", "scan").Logger(),
		hub:     hub,
		workers: workers,
		reports: make(map[string]*Report),
	}
}

// Report returns a previously finished report by ID.
func (s *Service) Report(id string) (*Report, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	report, ok := s.reports[id]
	return report, ok
}

// Reports returns all retained reports, newest first.
func (s *Service) Reports() []*Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Report, 0, len(s.reports))
	for _, r := range s.reports {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out
}

// Scan walks root, classifies every regular file against rules and the
// series snapshot, and stores the finished report. Paths are classified
// relative to root so canonical "Season NN/..." layouts compare correctly.
func (s *Service) Scan(ctx context.Context, root string, seriesID int64, rules intent.FilterRules, snap *metadata.Snapshot) (*Report, error) {
	report := &Report{
		ID:        uuid.NewString(),
		Root:      root,
		SeriesID:  seriesID,
		StartedAt: time.Now().UTC(),
	}

	paths, err := collectFiles(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	s.logger.Info().
		Str("scanId", report.ID).
		Str("root", root).
		Int("files", len(paths)).
		Msg("scan started")

	results, err := s.classifyAll(ctx, paths, rules, snap, report.ID)
	if err != nil {
		return nil, err
	}
	report.Results = results
	report.Counts = countByAction(report.Results)
	report.FinishedAt = time.Now().UTC()

	s.mu.Lock()
	s.reports[report.ID] = report
	s.mu.Unlock()

	s.logger.Info().
		Str("scanId", report.ID).
		Dur("elapsed", report.FinishedAt.Sub(report.StartedAt)).
		Interface("counts", report.Counts).
		Msg("scan finished")

	if s.hub != nil {
		s.hub.Broadcast("scan:finished", map[string]any{
			"id":     report.ID,
			"root":   report.Root,
			"counts": report.Counts,
		})
	}
	return report, nil
}

// classifyAll fans the paths out to a bounded worker pool. Classification
// is pure and the snapshot immutable, so no locking is needed beyond the
// shared index counter; results land at their input position to keep
// report ordering deterministic. A cancelled context returns ctx.Err()
// rather than a partially filled result set.
func (s *Service) classifyAll(ctx context.Context, paths []string, rules intent.FilterRules, snap *metadata.Snapshot, scanID string) ([]Result, error) {
	results := make([]Result, len(paths))
	var next, done int64
	var mu sync.Mutex

	var wg sync.WaitGroup
	for w := 0; w < s.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if ctx.Err() != nil {
					return
				}
				mu.Lock()
				i := int(next)
				next++
				mu.Unlock()
				if i >= len(paths) {
					return
				}

				results[i] = Result{
					Path:   paths[i],
					Intent: intent.Classify(paths[i], rules, snap),
				}

				mu.Lock()
				done++
				n := done
				mu.Unlock()
				if s.hub != nil && n%progressEvery == 0 {
					s.hub.Broadcast("scan:progress", map[string]any{
						"id":    scanID,
						"done":  n,
						"total": len(paths),
					})
				}
			}
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// collectFiles lists every regular file under root, relative to root.
func collectFiles(ctx context.Context, root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

func countByAction(results []Result) map[string]int {
	counts := make(map[string]int, len(intent.Actions()))
	for _, action := range intent.Actions() {
		counts[action.String()] = 0
	}
	for _, res := range results {
		counts[res.Intent.Action.String()]++
	}
	return counts
}
