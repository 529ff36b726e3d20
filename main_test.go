package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"ersave/backup"
	"ersave/eventflags"
	"ersave/fixture"
	"ersave/savefile"
)

func Test_Edit_file_mutation_sequence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "TEST.sl2")
	before := fixture.Valid(map[int]int{0: 0x80})
	require.NoError(t, os.WriteFile(path, before, 0644))

	mgr := backup.New_manager(filepath.Join(dir, "backups"), 0)
	err := edit_file(mgr, path, "before test edit", "set", func(sf *savefile.Savefile) error {
		slot, err := sf.Slot(0)
		if err != nil {
			return err
		}
		return slot.Set_flag(100, true)
	})
	require.NoError(t, err)

	// The write stuck, the digests are coherent
	sf, err := savefile.Load_file(path)
	require.NoError(t, err)
	slot, err := sf.Slot(0)
	require.NoError(t, err)
	on, err := slot.Get_flag(100)
	require.NoError(t, err)
	require.True(t, on)
	require.True(t, sf.Validate().Ok())

	// ...and the backup restores the exact pre-edit bytes
	all, err := mgr.List_backups(path)
	require.NoError(t, err)
	require.Len(t, all, 1)
	raw, err := mgr.Restore(all[0])
	require.NoError(t, err)
	require.Equal(t, before, raw)
}

// No backup, no write: a failed snapshot must leave the file byte-identical.
func Test_Failed_backup_blocks_the_write(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "TEST.sl2")
	before := fixture.Valid(map[int]int{0: 0x80})
	require.NoError(t, os.WriteFile(path, before, 0644))

	// A store dir that can't exist: its parent is a regular file
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	mgr := backup.New_manager(filepath.Join(blocker, "backups"), 0)

	err := edit_file(mgr, path, "d", "set", func(sf *savefile.Savefile) error {
		t.Fatal("mutation ran without a backup")
		return nil
	})
	require.Error(t, err)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func Test_parse_edit(t *testing.T) {
	edit, err := parse_edit("71190=on")
	require.NoError(t, err)
	require.Equal(t, eventflags.Edit{Flag: 71190, On: true}, edit)

	edit, err = parse_edit("20=off")
	require.NoError(t, err)
	require.Equal(t, eventflags.Edit{Flag: 20, On: false}, edit)

	// Bare ID means "on"
	edit, err = parse_edit("9100")
	require.NoError(t, err)
	require.Equal(t, eventflags.Edit{Flag: 9100, On: true}, edit)

	_, err = parse_edit("9100=maybe")
	require.Error(t, err)
	_, err = parse_edit("grafted=on")
	require.Error(t, err)
}

func Test_parse_id_list(t *testing.T) {
	ids, err := parse_id_list("1,2, 3")
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3}, ids)

	ids, err = parse_id_list("")
	require.NoError(t, err)
	require.Empty(t, ids)

	_, err = parse_id_list("1,x")
	require.Error(t, err)
}

func Test_parse_slot(t *testing.T) {
	index, err := parse_slot("1")
	require.NoError(t, err)
	require.Equal(t, 0, index)

	_, err = parse_slot("first")
	require.Error(t, err)
}
