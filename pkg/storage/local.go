package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore keeps documents on the local filesystem under BaseDir and
// serves them from URLPrefix (the server mounts BaseDir as a static route).
type LocalStore struct {
	BaseDir   string
	URLPrefix string
}

func NewLocalStore(baseDir, urlPrefix string) *LocalStore {
	return &LocalStore{BaseDir: baseDir, URLPrefix: strings.TrimRight(urlPrefix, "/")}
}

func (s *LocalStore) Upload(objectPath string, data []byte) (string, error) {
	clean, err := s.resolve(objectPath)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(clean), 0o755); err != nil {
		return "", fmt.Errorf("storage mkdir: %w", err)
	}
	if err := os.WriteFile(clean, data, 0o644); err != nil {
		return "", fmt.Errorf("storage write: %w", err)
	}
	return s.URLPrefix + "/" + objectPath, nil
}

func (s *LocalStore) Delete(objectPath string) error {
	clean, err := s.resolve(objectPath)
	if err != nil {
		return err
	}
	if err := os.Remove(clean); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage delete: %w", err)
	}
	return nil
}

// resolve joins the object path under BaseDir and refuses traversal out of it.
func (s *LocalStore) resolve(objectPath string) (string, error) {
	clean := filepath.Join(s.BaseDir, filepath.FromSlash(objectPath))
	base := filepath.Clean(s.BaseDir)
	if clean != base && !strings.HasPrefix(clean, base+string(filepath.Separator)) {
		return "", fmt.Errorf("storage: path %q escapes base dir", objectPath)
	}
	return clean, nil
}
