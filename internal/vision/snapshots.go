package vision

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// SnapshotStore archives cropped plate images for resolved entries.
// Write-only: nothing in the control path reads these back.
type SnapshotStore struct {
	dir string
}

// NewSnapshotStore ensures the archive directory exists.
func NewSnapshotStore(dir string) (*SnapshotStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &SnapshotStore{dir: dir}, nil
}

// Save writes the image as {plate}_{YYYYMMDD_HHMMSS}.jpg and returns the
// full path.
func (s *SnapshotStore) Save(plate string, at time.Time, img Image) (string, error) {
	data, err := img.JPEG()
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	name := fmt.Sprintf("%s_%s.jpg", plate, at.Format("20060102_150405"))
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, nil
}
