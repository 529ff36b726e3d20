package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ersave/fixture"
)

// Short settle: the test writes are atomic, nothing to wait out.
const settle = 10 * time.Millisecond

// start puts a valid save in a temp dir and begins watching it.
func start(t *testing.T) (string, chan *Report) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "TEST.sl2")
	require.NoError(t, os.WriteFile(path, fixture.Valid(map[int]int{0: 0x80}), 0644))

	w := New_watcher(path, settle)
	reports := make(chan *Report, 8)
	require.NoError(t, w.Start_watching(reports))
	t.Cleanup(w.Stop_watching)
	return path, reports
}

func wait_report(t *testing.T, reports chan *Report) *Report {
	t.Helper()
	select {
	case r := <-reports:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("no report arrived")
		return nil
	}
}

func Test_Rewrite_triggers_validation(t *testing.T) {
	path, reports := start(t)

	require.NoError(t, os.WriteFile(path, fixture.Valid(map[int]int{0: 0x80, 1: 0x40}), 0644))

	r := wait_report(t, reports)
	require.Equal(t, path, r.Path)
	require.NoError(t, r.Err)
	require.True(t, r.Checks.Ok())
}

func Test_Stale_digests_are_reported(t *testing.T) {
	path, reports := start(t)

	// Zeroed digests load fine but don't validate
	require.NoError(t, os.WriteFile(path, fixture.Raw(map[int]int{0: 0x80}), 0644))

	r := wait_report(t, reports)
	require.NoError(t, r.Err)
	require.False(t, r.Checks.Ok())
	require.NotEmpty(t, r.Checks.Mismatches())
}

func Test_Unloadable_rewrite_is_reported(t *testing.T) {
	path, reports := start(t)

	require.NoError(t, os.WriteFile(path, []byte("not a save file"), 0644))

	r := wait_report(t, reports)
	require.Error(t, r.Err)
}

// Other files in the watched directory don't produce reports.
func Test_Other_files_are_ignored(t *testing.T) {
	path, reports := start(t)

	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), "OTHER.sl2"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(path, fixture.Valid(map[int]int{0: 0x80}), 0644))

	// The OTHER.sl2 write came first; if it had produced a report, it would
	// be at the head of the channel.
	r := wait_report(t, reports)
	require.Equal(t, path, r.Path)
	require.NoError(t, r.Err)
}
