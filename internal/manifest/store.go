package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/craftwell/workpack/internal/schema"
)

// Filename is the manifest file name inside every work package directory.
const Filename = "manifest.yaml"

// ArtifactStageDirs are the per-group artifact directories created on
// bootstrap, relative to the artifacts root.
var ArtifactStageDirs = []string{"design", "planning", "tests", "implementation"}

// PersistenceError signals an I/O failure while durably writing state.
// Callers can rely on atomic-rename semantics: the prior on-disk document is
// intact whenever this error is returned.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Path returns the manifest path inside a work package directory.
func Path(workPackageDir string) string {
	return filepath.Join(workPackageDir, Filename)
}

// Load reads and validates the manifest of a work package. An invalid
// document fails with a schema.InvalidManifestError listing every violation.
func Load(workPackageDir string) (*schema.Manifest, error) {
	path := Path(workPackageDir)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("manifest not found: %s", path)
		}
		return nil, &PersistenceError{Op: "read", Path: path, Err: err}
	}

	var m schema.Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := schema.ValidateStrict(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Save validates and atomically persists a manifest. The document is written
// to a temp file in the same directory and renamed over the manifest path, so
// a reader never observes a partially written manifest.
func Save(workPackageDir string, m *schema.Manifest) error {
	if err := schema.ValidateStrict(m); err != nil {
		return err
	}

	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	path := Path(workPackageDir)
	if err := WriteAtomic(path, data); err != nil {
		return &PersistenceError{Op: "write", Path: path, Err: err}
	}
	return nil
}

// Store manages work package directories under a base directory.
type Store struct {
	baseDir string
}

// NewStore creates a Store rooted at baseDir.
func NewStore(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// BaseDir returns the store's root directory.
func (s *Store) BaseDir() string {
	return s.baseDir
}

// Dir returns the directory path for a work package id.
func (s *Store) Dir(workPackageID string) string {
	return filepath.Join(s.baseDir, workPackageID)
}

// InitParams are the inputs for bootstrapping a work package.
type InitParams struct {
	ID                 string
	Title              string
	Dirname            string
	ContextMode        string
	AcceptanceCriteria []string
	Source             schema.Source
}

// Initialize creates a work package directory with a fresh manifest.
//
// Idempotent behavior: if a valid manifest already exists, only the on-disk
// layout is reconciled (missing stage/approvals directories are created) and
// the directory is returned; state is never reset. An existing but invalid
// manifest fails with its full validation error list.
func (s *Store) Initialize(p InitParams) (string, error) {
	dir := s.Dir(p.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &PersistenceError{Op: "mkdir", Path: dir, Err: err}
	}

	if _, err := os.Stat(Path(dir)); err == nil {
		if _, err := Load(dir); err != nil {
			return "", err
		}
		if err := ensureLayout(dir); err != nil {
			return "", err
		}
		return dir, nil
	}

	m := schema.BuildManifest(schema.BuildParams{
		ID:                 p.ID,
		Title:              p.Title,
		Dirname:            p.Dirname,
		ContextMode:        p.ContextMode,
		AcceptanceCriteria: p.AcceptanceCriteria,
		Source:             p.Source,
	})
	if err := Save(dir, m); err != nil {
		return "", err
	}
	if err := ensureLayout(dir); err != nil {
		return "", err
	}
	return dir, nil
}

// InitializeFromTask bootstraps a work package from external task fields.
// The work package id is derived as task-<id>.
func (s *Store) InitializeFromTask(taskID int, title, dirname, contextMode string, criteria []string, projectID int, provider string) (string, error) {
	return s.Initialize(InitParams{
		ID:                 fmt.Sprintf("task-%d", taskID),
		Title:              title,
		Dirname:            dirname,
		ContextMode:        contextMode,
		AcceptanceCriteria: criteria,
		Source: schema.Source{
			Provider:  provider,
			TaskID:    taskID,
			ProjectID: projectID,
		},
	})
}

// List returns the ids of all work packages under the base directory that
// carry a manifest file, sorted lexically. Broken entries are skipped.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read dir %s: %w", s.baseDir, err)
	}

	var ids []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := os.Stat(Path(filepath.Join(s.baseDir, entry.Name()))); err != nil {
			continue
		}
		ids = append(ids, entry.Name())
	}
	sort.Strings(ids)
	return ids, nil
}

// ensureLayout reconciles the on-disk directory structure of a work package,
// creating any missing artifact stage dirs, the approvals dir, and a
// placeholder dashboard.
func ensureLayout(workPackageDir string) error {
	artifactsDir := filepath.Join(workPackageDir, "artifacts")
	for _, stageDir := range ArtifactStageDirs {
		dir := filepath.Join(artifactsDir, stageDir)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &PersistenceError{Op: "mkdir", Path: dir, Err: err}
		}
	}

	approvalsDir := filepath.Join(workPackageDir, "approvals")
	if err := os.MkdirAll(approvalsDir, 0o755); err != nil {
		return &PersistenceError{Op: "mkdir", Path: approvalsDir, Err: err}
	}

	dashboardPath := filepath.Join(artifactsDir, "dashboard.html")
	if _, err := os.Stat(dashboardPath); os.IsNotExist(err) {
		placeholder := []byte("<!doctype html><html><body><h1>Dashboard pending generation</h1></body></html>\n")
		if err := os.WriteFile(dashboardPath, placeholder, 0o644); err != nil {
			return &PersistenceError{Op: "write", Path: dashboardPath, Err: err}
		}
	}
	return nil
}
