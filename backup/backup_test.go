package backup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func write_source(t *testing.T, dir string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, "TEST.sl2")
	require.NoError(t, os.WriteFile(path, content, 0644))
	return path
}

func Test_Create_list_restore(t *testing.T) {
	dir := t.TempDir()
	source := write_source(t, dir, []byte("version one, with bytes we do not interpret \x00\x01\x02"))
	mgr := New_manager(filepath.Join(dir, "backups"), 0)

	first, err := mgr.Create_backup(source, "before flag edit", "set")
	require.NoError(t, err)
	require.Equal(t, "set", first.Operation)
	require.Equal(t, "before flag edit", first.Description)

	// Mutate the source, then snapshot again
	v2 := []byte("version two")
	require.NoError(t, os.WriteFile(source, v2, 0644))
	second, err := mgr.Create_backup(source, "before unlock", "unlock")
	require.NoError(t, err)

	all, err := mgr.List_backups(source)
	require.NoError(t, err)
	require.Len(t, all, 2)
	// Most recent first
	require.Equal(t, second.Id, all[0].Id)
	require.Equal(t, first.Id, all[1].Id)

	// Each restore returns the exact bytes at snapshot time, including the
	// uninterpreted ones
	raw, err := mgr.Restore(all[1])
	require.NoError(t, err)
	require.Equal(t, []byte("version one, with bytes we do not interpret \x00\x01\x02"), raw)
	raw, err = mgr.Restore(all[0])
	require.NoError(t, err)
	require.Equal(t, v2, raw)
}

// An unreadable source means no backup at all - not an empty one.
func Test_Create_fails_cleanly(t *testing.T) {
	dir := t.TempDir()
	store := filepath.Join(dir, "backups")
	mgr := New_manager(store, 0)

	_, err := mgr.Create_backup(filepath.Join(dir, "NO_SUCH_FILE.sl2"), "d", "op")
	require.Error(t, err)

	// The store must not contain a partial snapshot (or anything else)
	entries, err := os.ReadDir(store)
	if err == nil {
		require.Empty(t, entries)
	}
}

func Test_Find(t *testing.T) {
	dir := t.TempDir()
	source := write_source(t, dir, []byte("data"))
	mgr := New_manager(filepath.Join(dir, "backups"), 0)

	first, err := mgr.Create_backup(source, "a", "set")
	require.NoError(t, err)
	second, err := mgr.Create_backup(source, "b", "set")
	require.NoError(t, err)

	found, err := mgr.Find(source, first.Id)
	require.NoError(t, err)
	require.Equal(t, first.Id, found.Id)

	// Unique prefix works, shared prefix is ambiguous.  Every ULID from
	// this millennium starts with "01", so that one must refuse.
	n := 0
	for second.Id[n] == first.Id[n] {
		n += 1
	}
	found, err = mgr.Find(source, second.Id[:n+1])
	require.NoError(t, err)
	require.Equal(t, second.Id, found.Id)

	_, err = mgr.Find(source, "01")
	require.Error(t, err)

	_, err = mgr.Find(source, "ZZZZZZ")
	require.Error(t, err)
}

func Test_Prune(t *testing.T) {
	dir := t.TempDir()
	source := write_source(t, dir, []byte("data"))
	store := filepath.Join(dir, "backups")
	mgr := New_manager(store, 2)

	ids := []string{}
	for i := 0; i < 4; i++ {
		b, err := mgr.Create_backup(source, "d", "set")
		require.NoError(t, err)
		ids = append(ids, b.Id)
	}

	// Retention ran after each commit, so only the 2 newest remain
	all, err := mgr.List_backups(source)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, ids[3], all[0].Id)
	require.Equal(t, ids[2], all[1].Id)

	// The pruned snapshots' data files are really gone
	entries, err := os.ReadDir(store)
	require.NoError(t, err)
	require.Len(t, entries, 4) // 2 x (.bin + .json)
}

// Restore cross-checks the stored size against the metadata.
func Test_Restore_detects_truncation(t *testing.T) {
	dir := t.TempDir()
	source := write_source(t, dir, []byte("twelve bytes"))
	mgr := New_manager(filepath.Join(dir, "backups"), 0)

	b, err := mgr.Create_backup(source, "d", "set")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(mgr.data_file(b.Id), []byte("short"), 0644))

	_, err = mgr.Restore(b)
	require.Error(t, err)
}
