// Package reports persists intelligence reports as versioned JSON files.
//
// Each analysis run writes <stem>_analysis_vNNNN.json under the report
// directory, where stem is derived from the company name. Versions never
// get overwritten unless the caller asks for it explicitly.
package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"sync"

	"github.com/custodia-labs/signalkb/internal/core/domain"
	"github.com/custodia-labs/signalkb/internal/core/ports/driven"
	"github.com/custodia-labs/signalkb/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.ReportStore = (*Store)(nil)

var reportFilePattern = regexp.MustCompile(`^(.+)_analysis_v(\d{4,})\.json$`)

// Store writes reports to a directory.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore creates a report store. If dir is empty, defaults to
// ~/.signalkb/reports.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, ".signalkb", "reports")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating report directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the report directory.
func (s *Store) Dir() string {
	return s.dir
}

// FileName returns the file name of a report version.
func FileName(company domain.Company, version int) string {
	return fmt.Sprintf("%s_analysis_v%04d.json", company.FileStem(), version)
}

// Save writes the report as a new version, or over the latest version when
// overwrite is set. The report's Version field is updated to match.
func (s *Store) Save(
	ctx context.Context, company domain.Company, report *domain.IntelligenceReport, overwrite bool,
) (string, error) {
	if report == nil {
		return "", fmt.Errorf("%w: nil report", domain.ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	latest, err := s.latestVersion(company)
	if err != nil {
		return "", err
	}
	version := latest + 1
	if overwrite && latest > 0 {
		version = latest
	}
	report.Version = version

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshalling report: %w", err)
	}
	path := filepath.Join(s.dir, FileName(company, version))
	if err := writeAtomic(path, append(data, '\n')); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}
	return path, nil
}

// Latest loads the newest report of a company.
func (s *Store) Latest(ctx context.Context, company domain.Company) (*domain.IntelligenceReport, error) {
	latest, err := s.latestVersion(company)
	if err != nil {
		return nil, err
	}
	if latest == 0 {
		return nil, fmt.Errorf("%w: no report for %s", domain.ErrNotFound, company.ID)
	}
	return s.Load(ctx, filepath.Join(s.dir, FileName(company, latest)))
}

// List describes all stored reports ordered by company then version.
// Files that do not parse are skipped.
func (s *Store) List(ctx context.Context) ([]domain.ReportInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading report directory: %w", err)
	}

	var infos []domain.ReportInfo
	for _, entry := range entries {
		if entry.IsDir() || !reportFilePattern.MatchString(entry.Name()) {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		report, err := s.Load(ctx, path)
		if errors.Is(err, domain.ErrInvalidInput) {
			logger.Warn("Skipping unreadable report %s: %v", entry.Name(), err)
			continue
		}
		if err != nil {
			return nil, err
		}
		infos = append(infos, domain.ReportInfo{
			CompanyID:   report.CompanyID,
			Version:     report.Version,
			Path:        path,
			GeneratedAt: report.GeneratedAt,
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].CompanyID != infos[j].CompanyID {
			return infos[i].CompanyID < infos[j].CompanyID
		}
		return infos[i].Version < infos[j].Version
	})
	return infos, nil
}

// Load reads a report file.
func (s *Store) Load(_ context.Context, path string) (*domain.IntelligenceReport, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	var report domain.IntelligenceReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("%w: parsing report %s: %v", domain.ErrInvalidInput, path, err)
	}
	return &report, nil
}

// latestVersion returns the highest version on disk, or zero.
func (s *Store) latestVersion(company domain.Company) (int, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, company.FileStem()+"_analysis_v*.json"))
	if err != nil {
		return 0, fmt.Errorf("listing reports: %w", err)
	}
	latest := 0
	for _, m := range matches {
		sub := reportFilePattern.FindStringSubmatch(filepath.Base(m))
		if sub == nil || sub[1] != company.FileStem() {
			continue
		}
		if v, err := strconv.Atoi(sub[2]); err == nil && v > latest {
			latest = v
		}
	}
	return latest, nil
}

// writeAtomic writes data to a temp file in the same directory and renames
// it into place.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	cleanup := func() { os.Remove(tmpPath) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tmpPath, 0600); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return err
	}
	return nil
}
