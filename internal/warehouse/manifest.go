package warehouse

import (
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/curious-learning/funnel-cli/internal/engine"
)

// Manifest describes one built snapshot: what was extracted, when, and how
// many rows each table carried. It is written next to exported artifacts so
// a report can always be traced back to its extraction run.
type Manifest struct {
	SnapshotID  string    `yaml:"snapshot_id"`
	GeneratedAt time.Time `yaml:"generated_at"`

	UnityUsers   int `yaml:"unity_users"`
	CRUsers      int `yaml:"cr_users"`
	CRAppLaunch  int `yaml:"cr_app_launch"`
	Campaigns    int `yaml:"campaign_segments"`
	BookActivity int `yaml:"book_activity"`
}

// NewManifest stamps a fresh manifest for a built snapshot.
func NewManifest(snap *engine.Snapshot) *Manifest {
	return &Manifest{
		SnapshotID:   uuid.NewString(),
		GeneratedAt:  time.Now().UTC(),
		UnityUsers:   len(snap.UnityUsers),
		CRUsers:      len(snap.CRUsers),
		CRAppLaunch:  len(snap.CRAppLaunch),
		Campaigns:    len(snap.Campaigns),
		BookActivity: len(snap.BookActivity),
	}
}

// Write persists the manifest as YAML.
func (m *Manifest) Write(path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return eris.Wrap(err, "warehouse: marshal manifest")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrap(err, "warehouse: write manifest")
	}
	return nil
}

// ReadManifest loads a previously written manifest.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "warehouse: read manifest")
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrap(err, "warehouse: parse manifest")
	}
	return &m, nil
}
