package account_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atrium-id/atrium/internal/account"
	_ "github.com/atrium-id/atrium/testing"
)

func TestDiskAvatarStoreSave(t *testing.T) {
	dir := t.TempDir()
	store := &account.DiskAvatarStore{Dir: dir}

	name, err := store.Save("Photo.JPG", []byte("jpeg-bytes"))
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(name, ".jpg"), "extension should be kept lowercase, got %q", name)
	require.NotEqual(t, "Photo.JPG", name)

	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	require.Equal(t, []byte("jpeg-bytes"), data)
}

func TestDiskAvatarStoreUniqueNames(t *testing.T) {
	store := &account.DiskAvatarStore{Dir: t.TempDir()}

	first, err := store.Save("a.png", []byte("one"))
	require.NoError(t, err)
	second, err := store.Save("a.png", []byte("two"))
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

func TestDiskAvatarStoreCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "avatars")
	store := &account.DiskAvatarStore{Dir: dir}

	_, err := store.Save("a.png", []byte("x"))
	require.NoError(t, err)
}
