package account

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// MaxAvatarBytes caps uploaded avatar size at 1 MiB.
const MaxAvatarBytes = 1 << 20

// AvatarStore persists uploaded avatar bytes under a generated name.
type AvatarStore interface {
	// Save writes data and returns the generated filename the record should
	// reference. originalName is only consulted for its extension.
	Save(originalName string, data []byte) (string, error)
}

// DiskAvatarStore stores avatars on the local filesystem.
type DiskAvatarStore struct {
	Dir string
}

// Save writes the bytes under a fresh unique name keeping the original
// extension.
func (s *DiskAvatarStore) Save(originalName string, data []byte) (string, error) {
	name := uuid.NewString() + strings.ToLower(filepath.Ext(originalName))
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("account: avatar dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.Dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("account: write avatar: %w", err)
	}
	return name, nil
}

var _ AvatarStore = (*DiskAvatarStore)(nil)
