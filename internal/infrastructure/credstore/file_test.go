package credstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskboard/tracker-core/internal/core/domain"
	"github.com/taskboard/tracker-core/internal/core/ports"
)

func TestLoadAbsentFileIsNotAnError(t *testing.T) {
	fs := NewFileStore(filepath.Join(t.TempDir(), "session.json"))

	got, err := fs.Load()
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	fs := NewFileStore(path)

	stored := ports.StoredSession{
		Token: "tok-123",
		User:  domain.User{ID: 7, Username: "alice", Email: "a@example.com", Role: domain.RoleManager},
	}
	require.NoError(t, fs.Save(stored))

	got, err := fs.Load()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, stored, *got)
}

func TestSaveCreatesParentDirAndRestrictsMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "tracker", "session.json")
	fs := NewFileStore(path)

	require.NoError(t, fs.Save(ports.StoredSession{Token: "t"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestSaveOverwritesPreviousSlot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	fs := NewFileStore(path)

	require.NoError(t, fs.Save(ports.StoredSession{Token: "first"}))
	require.NoError(t, fs.Save(ports.StoredSession{Token: "second"}))

	got, err := fs.Load()
	require.NoError(t, err)
	assert.Equal(t, "second", got.Token)
}

func TestLoadCorruptSlotFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFileStore(path).Load()
	assert.ErrorContains(t, err, "decode session slot")
}

func TestClearIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	fs := NewFileStore(path)

	require.NoError(t, fs.Save(ports.StoredSession{Token: "t"}))
	require.NoError(t, fs.Clear())

	got, err := fs.Load()
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, fs.Clear())
}

func TestSaveLeavesNoTempFilesBehind(t *testing.T) {
	dir := t.TempDir()
	fs := NewFileStore(filepath.Join(dir, "session.json"))

	require.NoError(t, fs.Save(ports.StoredSession{Token: "t"}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "session.json", entries[0].Name())
}
