package certstore

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sufield/trustboot/internal/core/domain"
	coreerrors "github.com/sufield/trustboot/internal/core/errors"
)

const secretBytes = 32

// LoadSecret returns the store access secret kept at path.
func LoadSecret(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", coreerrors.Newf(coreerrors.ErrStoreUnavailable, "read store secret %s: %w", path, err)
	}
	secret := strings.TrimSpace(string(data))
	if secret == "" {
		return "", coreerrors.Newf(coreerrors.ErrStoreUnavailable, "store secret %s is empty", path)
	}
	return secret, nil
}

// LoadOrCreateSecret returns the store access secret kept at path, creating
// it with fresh random content on first use. The boolean reports whether the
// secret was created by this call.
func LoadOrCreateSecret(path string) (string, bool, error) {
	if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
		secret, err := LoadSecret(path)
		return secret, false, err
	}

	secret, err := domain.NewPassword(secretBytes)
	if err != nil {
		return "", false, coreerrors.NewDomainError(coreerrors.ErrGenerationFailed, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", false, coreerrors.Newf(coreerrors.ErrStoreUnavailable, "create %s: %w", filepath.Dir(path), err)
	}
	if err := writeFileAtomic(path, []byte(secret+"\n"), 0o600); err != nil {
		return "", false, coreerrors.Newf(coreerrors.ErrStoreUnavailable, "write store secret %s: %w", path, err)
	}
	return secret, true, nil
}
