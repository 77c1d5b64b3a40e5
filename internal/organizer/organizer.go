// Package organizer applies approved file intents to disk. It is the
// executor collaborator of the classification engine: nothing here runs
// unless explicitly triggered, and the engine itself never mutates the
// filesystem.
package organizer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/reelsort/reelsort/internal/intent"
	"github.com/reelsort/reelsort/internal/scan"
)

var ErrOutsideRoot = errors.New("path escapes library root")

// Service performs renames and deletes for approved intents.
type Service struct {
	logger zerolog.Logger
	dryRun bool
}

// NewService creates an organizer. With dryRun set it only logs what it
// would do.
func NewService(logger zerolog.Logger, dryRun bool) *Service {
	return &Service{
		logger: logger.With().Str("component", "organizer").Logger(),
		dryRun: dryRun,
	}
}

// WithDryRun returns a copy of the service that only logs what it would
// do.
func (s *Service) WithDryRun() *Service {
	return &Service{logger: s.logger, dryRun: true}
}

// Summary reports what Apply did.
type Summary struct {
	Renamed int      `json:"renamed"`
	Deleted int      `json:"deleted"`
	Skipped int      `json:"skipped"`
	Failed  int      `json:"failed"`
	DryRun  bool     `json:"dryRun"`
	Errors  []string `json:"errors,omitempty"`
}

// Apply executes the Rename and Delete results of a scan under root.
// Other actions are skipped. Failures on individual files are collected,
// never fatal.
func (s *Service) Apply(root string, results []scan.Result) Summary {
	summary := Summary{DryRun: s.dryRun}

	for _, res := range results {
		switch res.Intent.Action {
		case intent.ActionRename:
			if err := s.rename(root, res.Path, res.Intent.Dest); err != nil {
				summary.Failed++
				summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", res.Path, err))
				continue
			}
			summary.Renamed++

		case intent.ActionDelete:
			if err := s.remove(root, res.Path); err != nil {
				summary.Failed++
				summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", res.Path, err))
				continue
			}
			summary.Deleted++

		default:
			summary.Skipped++
		}
	}

	s.logger.Info().
		Int("renamed", summary.Renamed).
		Int("deleted", summary.Deleted).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Bool("dryRun", summary.DryRun).
		Msg("apply finished")
	return summary
}

func (s *Service) rename(root, from, to string) error {
	src, err := joinInside(root, from)
	if err != nil {
		return err
	}
	dest, err := joinInside(root, to)
	if err != nil {
		return err
	}

	s.logger.Debug().Str("from", from).Str("to", to).Bool("dryRun", s.dryRun).Msg("renaming")
	if s.dryRun {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}
	if err := os.Rename(src, dest); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func (s *Service) remove(root, rel string) error {
	path, err := joinInside(root, rel)
	if err != nil {
		return err
	}

	s.logger.Debug().Str("path", rel).Bool("dryRun", s.dryRun).Msg("deleting")
	if s.dryRun {
		return nil
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove: %w", err)
	}
	return nil
}

// joinInside joins rel under root and rejects paths that climb out of it.
func joinInside(root, rel string) (string, error) {
	joined := filepath.Join(root, rel)
	cleanRoot := filepath.Clean(root)
	if joined != cleanRoot && !filepath.IsLocal(rel) {
		return "", ErrOutsideRoot
	}
	return joined, nil
}
