package board

import (
	"fmt"
	"strings"
	"time"

	"github.com/craftwell/workpack/internal/manifest"
	"github.com/craftwell/workpack/internal/schema"
)

// RefExport is the portable payload for backing up or migrating external
// work item mappings.
type RefExport struct {
	WorkPackageID string                `json:"work_package_id"`
	ExportedAt    string                `json:"exported_at"`
	Refs          []*schema.ExternalRef `json:"refs"`
}

func utcNow() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// ListExternalRefs returns the configured external work item references.
func ListExternalRefs(workPackageDir string) ([]*schema.ExternalRef, error) {
	m, err := manifest.Load(workPackageDir)
	if err != nil {
		return nil, err
	}
	return m.ExternalRefs.Items, nil
}

// AddExternalRef adds or updates an external provider mapping entry, keyed
// on (provider, external_id).
func AddExternalRef(workPackageDir, provider, externalID, url string) (*schema.ExternalRef, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	externalID = strings.TrimSpace(externalID)
	if provider == "" || externalID == "" {
		return nil, fmt.Errorf("provider and external_id are required")
	}

	m, err := manifest.Load(workPackageDir)
	if err != nil {
		return nil, err
	}

	now := utcNow()
	var ref *schema.ExternalRef
	for _, item := range m.ExternalRefs.Items {
		if item.Provider == provider && item.ExternalID == externalID {
			ref = item
			break
		}
	}
	if ref == nil {
		ref = &schema.ExternalRef{
			Provider:   provider,
			ExternalID: externalID,
			URL:        url,
			AddedAt:    now,
			UpdatedAt:  now,
		}
		m.ExternalRefs.Items = append(m.ExternalRefs.Items, ref)
	} else {
		if url != "" {
			ref.URL = url
		}
		ref.UpdatedAt = now
	}
	m.ExternalRefs.UpdatedAt = now

	if err := manifest.Save(workPackageDir, m); err != nil {
		return nil, err
	}
	return ref, nil
}

// ExportExternalRefs builds the export payload for a work package's
// external mappings.
func ExportExternalRefs(workPackageDir string) (*RefExport, error) {
	m, err := manifest.Load(workPackageDir)
	if err != nil {
		return nil, err
	}
	return &RefExport{
		WorkPackageID: m.WorkPackage.ID,
		ExportedAt:    utcNow(),
		Refs:          m.ExternalRefs.Items,
	}, nil
}

// ImportExternalRefs applies an export payload and returns the number of
// refs applied. Entries missing a provider or external id are skipped.
func ImportExternalRefs(workPackageDir string, payload *RefExport) (int, error) {
	applied := 0
	for _, ref := range payload.Refs {
		if ref == nil {
			continue
		}
		provider := strings.TrimSpace(ref.Provider)
		externalID := strings.TrimSpace(ref.ExternalID)
		if provider == "" || externalID == "" {
			continue
		}
		if _, err := AddExternalRef(workPackageDir, provider, externalID, strings.TrimSpace(ref.URL)); err != nil {
			return applied, err
		}
		applied++
	}
	return applied, nil
}
