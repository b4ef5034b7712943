package evidence

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Frame storage constants.
const (
	// storeDirPermissions is the permission mode for evidence directories.
	storeDirPermissions = 0750

	// storeFilePermissions is the permission mode for stored frames.
	storeFilePermissions = 0640

	// microsPerNano converts nanoseconds to microseconds.
	microsPerNano = 1000

	// maxCollisionRetries bounds the monotonic suffix search. Two frames from
	// one camera within the same microsecond is already pathological.
	maxCollisionRetries = 1000
)

// FrameStore writes camera frames to a date/zone directory hierarchy.
//
// Layout: {root}/{YYYY-MM-DD}/zone_{id}/cam{device}_{HHMMSS}_{micros}.{ext}
// Frames from unzoned cameras go under "no_zone". Returned paths are relative
// to the root, matching what evidence rows reference.
//
// Thread Safety: safe for concurrent use; collision avoidance is handled by
// exclusive file creation.
type FrameStore struct {
	root string
}

// NewFrameStore creates a frame store rooted at the given directory.
// The directory is created on first save, not here.
func NewFrameStore(root string) *FrameStore {
	return &FrameStore{root: root}
}

// Root returns the store's root directory.
func (s *FrameStore) Root() string {
	return s.root
}

// Save writes frame bytes to disk and returns the relative file path.
//
// The filename carries the device id and a microsecond-resolution timestamp.
// If that name is somehow taken (same camera, same microsecond), a monotonic
// suffix is appended until exclusive creation succeeds - no frame from the
// same device within the same second can collide.
func (s *FrameStore) Save(deviceID int64, zoneID *int64, ts time.Time, format string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyFrame
	}

	zoneDir := "no_zone"
	if zoneID != nil {
		zoneDir = fmt.Sprintf("zone_%d", *zoneID)
	}

	relDir := filepath.Join(ts.Format("2006-01-02"), zoneDir)
	if err := os.MkdirAll(filepath.Join(s.root, relDir), storeDirPermissions); err != nil {
		return "", fmt.Errorf("%w: creating directory: %w", ErrStoreFailed, err)
	}

	base := fmt.Sprintf("cam%d_%s_%06d",
		deviceID,
		ts.Format("150405"),
		(ts.Nanosecond()/microsPerNano)%1000000,
	)
	ext := fileExtension(format)

	for i := 0; i < maxCollisionRetries; i++ {
		name := base
		if i > 0 {
			name = fmt.Sprintf("%s-%d", base, i)
		}
		relPath := filepath.Join(relDir, name+ext)

		// O_EXCL makes creation the collision check: concurrent savers for
		// the same name race on the filesystem, not on in-process state.
		f, err := os.OpenFile(filepath.Join(s.root, relPath),
			os.O_WRONLY|os.O_CREATE|os.O_EXCL, storeFilePermissions)
		if os.IsExist(err) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("%w: creating file: %w", ErrStoreFailed, err)
		}

		if _, err := f.Write(data); err != nil {
			f.Close()
			os.Remove(filepath.Join(s.root, relPath)) //nolint:errcheck // Best effort cleanup
			return "", fmt.Errorf("%w: writing frame: %w", ErrStoreFailed, err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("%w: closing file: %w", ErrStoreFailed, err)
		}

		return relPath, nil
	}

	return "", fmt.Errorf("%w: no free filename for %s", ErrStoreFailed, base)
}

// fileExtension maps a payload format field to a file extension.
// Unknown formats keep their lowercase name; absent formats default to jpg.
func fileExtension(format string) string {
	switch strings.ToLower(format) {
	case "", "jpg", "jpeg":
		return ".jpg"
	case "png":
		return ".png"
	default:
		return "." + strings.ToLower(format)
	}
}
