// Package artifacts indexes work package artifact files and tracks their
// integrity against the last approved snapshot. The classification is a
// content-addressed freshness check: a file is approved only while its bytes
// match the hash captured at approval time.
package artifacts

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/craftwell/workpack/internal/dashboard"
	"github.com/craftwell/workpack/internal/manifest"
	"github.com/craftwell/workpack/internal/schema"
)

// hashChunkSize is the streaming buffer for artifact hashing, so large
// artifacts are never loaded whole into memory.
const hashChunkSize = 32 * 1024

// RefreshOptions tune a registry refresh performed with a caller-held
// manifest.
type RefreshOptions struct {
	// ApprovedStage and ApprovalEventID stamp the stage's artifacts as newly
	// approved during the scan. Both must be set together.
	ApprovedStage   string
	ApprovalEventID string
	// Persist saves the manifest after the refresh; Dashboard additionally
	// regenerates dashboard output (only meaningful with Persist).
	Persist   bool
	Dashboard bool
	Reason    string
}

func utcNow() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// HashFile computes the streaming SHA-256 of a file.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, hashChunkSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

type scannedFile struct {
	stageGroup string
	sha256     string
	sizeBytes  int64
	mtimeNS    int64
}

// scan walks every stage group directory and hashes each regular file,
// keyed by path relative to the work package directory.
func scan(workPackageDir string, m *schema.Manifest) (map[string]scannedFile, error) {
	indexed := make(map[string]scannedFile)

	for _, group := range schema.StageGroups {
		relative := m.Paths.ForGroup(group)
		if relative == "" {
			continue
		}
		targetDir := filepath.Join(workPackageDir, relative)
		if _, err := os.Stat(targetDir); os.IsNotExist(err) {
			continue
		}

		err := filepath.WalkDir(targetDir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.Type().IsRegular() {
				return nil
			}
			rel, err := filepath.Rel(workPackageDir, path)
			if err != nil {
				return err
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			sum, err := HashFile(path)
			if err != nil {
				return err
			}
			indexed[filepath.ToSlash(rel)] = scannedFile{
				stageGroup: group,
				sha256:     sum,
				sizeBytes:  info.Size(),
				mtimeNS:    info.ModTime().UnixNano(),
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scan %s artifacts: %w", group, err)
		}
	}

	return indexed, nil
}

// groupApproved reports whether the most recent lifecycle stage governing a
// stage group currently holds an approved status.
func groupApproved(m *schema.Manifest, group string) bool {
	approvals := m.Lifecycle.StageApprovals
	if len(approvals) == 0 {
		return false
	}
	latest := ""
	for _, stageID := range schema.GroupStages(group) {
		approval, ok := approvals[stageID]
		if !ok || approval.Status != schema.ApprovalApproved {
			continue
		}
		if latest == "" || schema.StageOrder(stageID) > schema.StageOrder(latest) {
			latest = stageID
		}
	}
	return latest != ""
}

// Refresh re-indexes artifact files for a work package, persists the updated
// manifest, and regenerates dashboard output.
func Refresh(workPackageDir string) (*schema.ArtifactState, error) {
	m, err := manifest.Load(workPackageDir)
	if err != nil {
		return nil, err
	}
	return RefreshWith(workPackageDir, m, RefreshOptions{
		Persist:   true,
		Dashboard: true,
		Reason:    "manual",
	})
}

// RefreshWith re-indexes artifact files against a caller-held manifest and
// recomputes every record's integrity state:
//
//   - draft: file exists but does not match an approved snapshot
//   - approved: hash matches last approved hash and the stage remains approved
//   - stale: hash drifted from the last approved hash
//   - superseded: previously approved file no longer exists (kept for audit)
//
// Draft-only records whose file disappeared are pruned.
func RefreshWith(workPackageDir string, m *schema.Manifest, opts RefreshOptions) (*schema.ArtifactState, error) {
	snapshot, err := scan(workPackageDir, m)
	if err != nil {
		return nil, err
	}

	approvedGroup := ""
	if opts.ApprovedStage != "" && opts.ApprovalEventID != "" {
		approvedGroup = schema.StageGroupFor(opts.ApprovedStage)
	}

	now := utcNow()
	previous := m.Artifacts.Items
	updated := make(map[string]*schema.ArtifactRecord, len(snapshot))

	for relPath, entry := range snapshot {
		record := &schema.ArtifactRecord{}
		if prior, ok := previous[relPath]; ok && prior != nil {
			*record = *prior
		}
		record.Path = relPath
		record.StageGroup = entry.stageGroup
		record.SHA256 = entry.sha256
		record.SizeBytes = entry.sizeBytes
		record.MtimeNS = entry.mtimeNS
		record.Exists = true
		record.SupersededAt = ""

		if approvedGroup != "" && approvedGroup == record.StageGroup {
			record.LastApprovedHash = record.SHA256
			record.LastApprovedAt = now
			record.LastApprovedEventID = opts.ApprovalEventID
			record.ApprovalStage = opts.ApprovedStage
		}

		switch {
		case record.LastApprovedHash != "" && record.LastApprovedHash != record.SHA256:
			record.State = schema.StateStale
		case record.LastApprovedHash != "" && groupApproved(m, record.StageGroup):
			record.State = schema.StateApproved
		default:
			record.State = schema.StateDraft
		}

		record.UpdatedAt = now
		updated[relPath] = record
	}

	for relPath, prior := range previous {
		if _, ok := updated[relPath]; ok || prior == nil {
			continue
		}
		if prior.LastApprovedHash == "" {
			// Keep the registry small: dropped draft-only files are removed.
			continue
		}
		record := &schema.ArtifactRecord{}
		*record = *prior
		record.Exists = false
		record.State = schema.StateSuperseded
		record.SupersededAt = now
		record.UpdatedAt = now
		updated[relPath] = record
	}

	m.Artifacts = schema.ArtifactState{
		Items:     updated,
		Counts:    countStates(updated),
		UpdatedAt: now,
		Reason:    opts.Reason,
	}

	if opts.Persist {
		if err := manifest.Save(workPackageDir, m); err != nil {
			return nil, err
		}
		if opts.Dashboard {
			if _, _, err := dashboard.Refresh(workPackageDir, m); err != nil {
				return nil, err
			}
		}
	}
	return &m.Artifacts, nil
}

func countStates(items map[string]*schema.ArtifactRecord) map[string]int {
	counts := make(map[string]int, len(schema.ArtifactStates))
	for _, state := range schema.ArtifactStates {
		counts[state] = 0
	}
	for _, record := range items {
		if _, ok := counts[record.State]; ok {
			counts[record.State]++
		}
	}
	return counts
}
