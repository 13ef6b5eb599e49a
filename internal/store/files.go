package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ibeckermayer/influencescope/internal/types"
)

// ErrNoData is returned when nothing has been persisted for a username yet
var ErrNoData = errors.New("no data")

// ErrInvalidUsername is returned for names that cannot key a data file
var ErrInvalidUsername = errors.New("invalid username")

const (
	profileSuffix  = "_profile.json"
	analysisSuffix = "_analysis.json"
	reportSuffix   = "_report.md"
	vizSuffix      = "_visualizations"
)

// FileStore keeps one JSON file per influencer and artifact in a data directory.
// Writes replace the whole file.
type FileStore struct {
	dir string
}

// NewFileStore creates the data directory if needed
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// NormalizeUsername trims surrounding space and one leading '@'. Empty names
// and names that would resolve outside the data directory are rejected.
func NormalizeUsername(raw string) (string, error) {
	u := strings.TrimPrefix(strings.TrimSpace(raw), "@")
	if u == "" || u == "." || u == ".." || strings.ContainsAny(u, "/\\\x00") {
		return "", fmt.Errorf("%w: %q", ErrInvalidUsername, raw)
	}
	return u, nil
}

// checkUsername accepts only names already in normalized form
func checkUsername(username string) error {
	u, err := NormalizeUsername(username)
	if err != nil {
		return err
	}
	if u != username {
		return fmt.Errorf("%w: %q", ErrInvalidUsername, username)
	}
	return nil
}

// Dir returns the data directory
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) ProfilePath(username string) string {
	return filepath.Join(s.dir, username+profileSuffix)
}

func (s *FileStore) AnalysisPath(username string) string {
	return filepath.Join(s.dir, username+analysisSuffix)
}

func (s *FileStore) ReportPath(username string) string {
	return filepath.Join(s.dir, username+reportSuffix)
}

// VisualizationDir is the per-username directory charts are written to
func (s *FileStore) VisualizationDir(username string) string {
	return filepath.Join(s.dir, username+vizSuffix)
}

// LoadProfile reads <username>_profile.json. Returns ErrNoData if it doesn't exist.
func (s *FileStore) LoadProfile(username string) (*types.ProfileRecord, error) {
	if err := checkUsername(username); err != nil {
		return nil, err
	}
	var p types.ProfileRecord
	if err := readJSON(s.ProfilePath(username), &p); err != nil {
		return nil, fmt.Errorf("load profile %s: %w", username, err)
	}
	if p.GeographicReach == nil {
		p.GeographicReach = map[string]int{}
	}
	return &p, nil
}

// SaveProfile writes <username>_profile.json and returns its path
func (s *FileStore) SaveProfile(p *types.ProfileRecord) (string, error) {
	if err := checkUsername(p.Username); err != nil {
		return "", err
	}
	path := s.ProfilePath(p.Username)
	if err := writeJSONAtomic(path, p); err != nil {
		return "", fmt.Errorf("save profile %s: %w", p.Username, err)
	}
	return path, nil
}

// LoadAnalysis reads <username>_analysis.json. Returns ErrNoData if it doesn't exist.
func (s *FileStore) LoadAnalysis(username string) (*types.AnalysisRecord, error) {
	if err := checkUsername(username); err != nil {
		return nil, err
	}
	var a types.AnalysisRecord
	if err := readJSON(s.AnalysisPath(username), &a); err != nil {
		return nil, fmt.Errorf("load analysis %s: %w", username, err)
	}
	return &a, nil
}

// SaveAnalysis overwrites <username>_analysis.json and returns its path
func (s *FileStore) SaveAnalysis(a *types.AnalysisRecord) (string, error) {
	if err := checkUsername(a.Username); err != nil {
		return "", err
	}
	path := s.AnalysisPath(a.Username)
	if err := writeJSONAtomic(path, a); err != nil {
		return "", fmt.Errorf("save analysis %s: %w", a.Username, err)
	}
	return path, nil
}

// SaveReport overwrites <username>_report.md and returns its path
func (s *FileStore) SaveReport(username, markdown string) (string, error) {
	if err := checkUsername(username); err != nil {
		return "", err
	}
	path := s.ReportPath(username)
	if err := writeFileAtomic(path, []byte(markdown), 0644); err != nil {
		return "", fmt.Errorf("save report %s: %w", username, err)
	}
	return path, nil
}

// ListProfiles returns the usernames with a persisted profile, sorted
func (s *FileStore) ListProfiles() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), profileSuffix) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), profileSuffix))
	}
	sort.Strings(names)
	return names, nil
}

// ListAnalyses returns the usernames with a persisted analysis, sorted
func (s *FileStore) ListAnalyses() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), analysisSuffix) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), analysisSuffix))
	}
	sort.Strings(names)
	return names, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNoData
		}
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return nil
}
