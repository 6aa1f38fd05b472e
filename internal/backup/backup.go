// Package backup snapshots the profile database and prunes old snapshots.
package backup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"
)

const (
	filePrefix = "artistlink-"
	fileSuffix = ".db"
	timeLayout = "20060102-150405.000"
)

// snapshotPattern matches snapshot filenames: artistlink-YYYYMMDD-HHMMSS.mmm.db
var snapshotPattern = regexp.MustCompile(`^artistlink-\d{8}-\d{6}\.\d{3}\.db$`)

// Snapshot describes one snapshot file.
type Snapshot struct {
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// Policy bounds how many snapshots are kept. Zero values disable the
// corresponding rule.
type Policy struct {
	Keep   int
	MaxAge time.Duration
}

// Service writes snapshots of db into dir.
type Service struct {
	db     *sql.DB
	dir    string
	policy Policy
	now    func() time.Time
	logger *slog.Logger
}

// NewService creates a snapshot service.
func NewService(db *sql.DB, dir string, policy Policy, logger *slog.Logger) *Service {
	return &Service{
		db:     db,
		dir:    dir,
		policy: policy,
		now:    time.Now,
		logger: logger.With(slog.String("component", "backup")),
	}
}

// SetClock replaces the time source. Intended for tests.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// Dir returns the snapshot directory.
func (s *Service) Dir() string { return s.dir }

// Snapshot writes a consistent copy of the database using VACUUM INTO.
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating backup directory: %w", err)
	}

	created := s.now().UTC()
	filename := filePrefix + created.Format(timeLayout) + fileSuffix
	dest := filepath.Join(s.dir, filename)

	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", dest); err != nil {
		return nil, fmt.Errorf("VACUUM INTO: %w", err)
	}
	info, err := os.Stat(dest)
	if err != nil {
		return nil, fmt.Errorf("stat snapshot: %w", err)
	}

	s.logger.Info("snapshot written", slog.String("filename", filename), slog.Int64("size", info.Size()))
	return &Snapshot{Filename: filename, Size: info.Size(), CreatedAt: created.Truncate(time.Millisecond)}, nil
}

// List returns the snapshots in the directory, newest first.
func (s *Service) List() ([]Snapshot, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading backup directory: %w", err)
	}

	var out []Snapshot
	for _, entry := range entries {
		if entry.IsDir() || !snapshotPattern.MatchString(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(entry.Name(), filePrefix), fileSuffix)
		created, err := time.Parse(timeLayout, stamp)
		if err != nil {
			created = info.ModTime().UTC()
		}
		out = append(out, Snapshot{Filename: entry.Name(), Size: info.Size(), CreatedAt: created})
	}

	slices.SortFunc(out, func(a, b Snapshot) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

// Prune removes snapshots beyond the policy's count and age limits and
// returns the names it removed.
func (s *Service) Prune() ([]string, error) {
	snaps, err := s.List()
	if err != nil {
		return nil, err
	}

	var cutoff time.Time
	if s.policy.MaxAge > 0 {
		cutoff = s.now().UTC().Add(-s.policy.MaxAge)
	}

	var removed []string
	for i, snap := range snaps {
		overCount := s.policy.Keep > 0 && i >= s.policy.Keep
		tooOld := !cutoff.IsZero() && snap.CreatedAt.Before(cutoff)
		if !overCount && !tooOld {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, snap.Filename)); err != nil {
			s.logger.Warn("removing snapshot", slog.String("filename", snap.Filename), slog.Any("error", err))
			continue
		}
		removed = append(removed, snap.Filename)
	}
	if len(removed) > 0 {
		s.logger.Info("pruned snapshots", slog.Int("count", len(removed)))
	}
	return removed, nil
}

// Run snapshots and prunes every interval until ctx is canceled.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	s.logger.Info("backup scheduler started",
		slog.String("interval", interval.String()),
		slog.Int("keep", s.policy.Keep))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("backup scheduler stopped")
			return
		case <-ticker.C:
			if _, err := s.Snapshot(ctx); err != nil {
				s.logger.Error("scheduled snapshot failed", slog.Any("error", err))
				continue
			}
			if _, err := s.Prune(); err != nil {
				s.logger.Error("snapshot prune failed", slog.Any("error", err))
			}
		}
	}
}

// ValidFilename reports whether name is a snapshot filename with no path
// components.
func ValidFilename(name string) bool {
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return false
	}
	return snapshotPattern.MatchString(name)
}
