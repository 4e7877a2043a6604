package certstore

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sufield/trustboot/internal/core/domain"
)

const (
	indexFile    = "index.yaml"
	indexVersion = 1
)

// index is the on-disk catalogue of a store. Certificates and keys live in
// separate files; the index carries everything else.
type index struct {
	Version    int          `yaml:"version"`
	Identities []indexEntry `yaml:"identities"`
}

type indexEntry struct {
	Nickname   string            `yaml:"nickname"`
	Subject    string            `yaml:"subject"`
	Issuer     string            `yaml:"issuer,omitempty"`
	SelfSigned bool              `yaml:"self_signed,omitempty"`
	Trust      domain.TrustFlags `yaml:"trust"`
	HasKey     bool              `yaml:"has_key"`
	Pending    bool              `yaml:"pending,omitempty"`
	NotAfter   time.Time         `yaml:"not_after"`
}

func (e indexEntry) identity() domain.Identity {
	return domain.Identity{
		Nickname:   e.Nickname,
		Subject:    e.Subject,
		Issuer:     e.Issuer,
		SelfSigned: e.SelfSigned,
		Trust:      e.Trust,
		HasKey:     e.HasKey,
		NotAfter:   e.NotAfter,
	}
}

func (idx *index) find(nickname string) (int, *indexEntry) {
	for i := range idx.Identities {
		if idx.Identities[i].Nickname == nickname {
			return i, &idx.Identities[i]
		}
	}
	return -1, nil
}

// put replaces the entry with the same nickname or appends a new one.
func (idx *index) put(e indexEntry) {
	if i, _ := idx.find(e.Nickname); i >= 0 {
		idx.Identities[i] = e
		return
	}
	idx.Identities = append(idx.Identities, e)
}

func readIndex(dir string) (*index, error) {
	data, err := os.ReadFile(filepath.Join(dir, indexFile))
	if err != nil {
		return nil, err
	}
	var idx index
	if err := yaml.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("parse %s: %w", indexFile, err)
	}
	if idx.Version != indexVersion {
		return nil, fmt.Errorf("unsupported store index version %d", idx.Version)
	}
	return &idx, nil
}

func writeIndex(dir string, idx *index) error {
	data, err := yaml.Marshal(idx)
	if err != nil {
		return fmt.Errorf("encode %s: %w", indexFile, err)
	}
	return writeFileAtomic(filepath.Join(dir, indexFile), data, 0o600)
}

// writeFileAtomic writes data to a temporary file next to path and renames it
// into place.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
