package backup

// Full-file snapshots taken before every mutation.
//
// A backup is two files in the store directory: <ulid>.bin (the complete
// on-disk bytes of the save at snapshot time) and <ulid>.json (metadata).
// ULIDs sort by creation time, so "most recent first" is just a reverse
// string sort.  A backup operation either commits both files or leaves
// nothing behind - a half-written snapshot must never appear in a listing.
//
// Crucially, Create_backup reads the file at path, not anybody's in-memory
// buffer: it snapshots what is currently persisted, which is why it has to
// run before the mutation's write, not after.

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

type Backup struct {
	Id          string    `json:"id"`
	Source_path string    `json:"source_path"`
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description"`
	Operation   string    `json:"operation"`
	Size        int       `json:"size"`
}

type Manager struct {
	Dir string
	// Keep is the retention policy: how many backups to keep per source
	// file, oldest pruned first.  0 means keep everything.
	Keep int
}

func New_manager(dir string, keep int) *Manager {
	return &Manager{Dir: dir, Keep: keep}
}

// Monotonic entropy keeps IDs strictly increasing even when two snapshots
// land in the same millisecond.
var entropy = ulid.Monotonic(rand.Reader, 0)

func (m *Manager) data_file(id string) string {
	return filepath.Join(m.Dir, id+".bin")
}

func (m *Manager) meta_file(id string) string {
	return filepath.Join(m.Dir, id+".json")
}

// Create_backup snapshots the current on-disk bytes at path.
// If this fails, the caller's mutation must not proceed - there is no
// "best effort" mode where we edit a file we failed to back up.
func (m *Manager) Create_backup(path string, description string, operation string) (*Backup, error) {
	// Read the source first.  If the source is unreadable we fail before
	// creating anything.
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("backup of %v failed: %w", path, err)
	}

	err = os.MkdirAll(m.Dir, 0755)
	if err != nil {
		return nil, fmt.Errorf("backup of %v failed: %w", path, err)
	}

	now := time.Now()
	id := ulid.MustNew(ulid.Timestamp(now), entropy).String()

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	b := Backup{
		Id:          id,
		Source_path: abs,
		Timestamp:   now,
		Description: description,
		Operation:   operation,
		Size:        len(raw),
	}

	// Data first, metadata last: a backup without metadata is invisible to
	// List_backups, so the commit point is the metadata write.
	err = os.WriteFile(m.data_file(id), raw, 0644)
	if err == nil {
		var meta []byte
		meta, err = json.MarshalIndent(&b, "", "  ")
		if err == nil {
			err = os.WriteFile(m.meta_file(id), meta, 0644)
		}
	}
	if err != nil {
		os.Remove(m.data_file(id))
		os.Remove(m.meta_file(id))
		return nil, fmt.Errorf("backup of %v failed: %w", path, err)
	}

	if m.Keep > 0 {
		// Pruning failure doesn't un-commit the snapshot we just took
		m.Prune(path)
	}

	return &b, nil
}

// List_backups returns every backup of the given source file, most recent
// first.
func (m *Manager) List_backups(path string) ([]*Backup, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}

	entries, err := os.ReadDir(m.Dir)
	if os.IsNotExist(err) {
		return []*Backup{}, nil
	}
	if err != nil {
		return nil, err
	}

	out := []*Backup{}
	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		meta, err := os.ReadFile(filepath.Join(m.Dir, entry.Name()))
		if err != nil {
			continue
		}
		b := Backup{}
		if json.Unmarshal(meta, &b) != nil {
			// Somebody else's junk in the backup dir; not our problem
			continue
		}
		if b.Source_path == abs {
			out = append(out, &b)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Id > out[j].Id })
	return out, nil
}

// Find returns the backup with the given ID, or an ID prefix if that prefix
// is unambiguous.
func (m *Manager) Find(path string, id string) (*Backup, error) {
	all, err := m.List_backups(path)
	if err != nil {
		return nil, err
	}

	matches := []*Backup{}
	for _, b := range all {
		if b.Id == id {
			return b, nil
		}
		if strings.HasPrefix(b.Id, strings.ToUpper(id)) {
			matches = append(matches, b)
		}
	}
	if len(matches) == 1 {
		return matches[0], nil
	}
	if len(matches) > 1 {
		return nil, fmt.Errorf("backup ID %v is ambiguous (%v matches)", id, len(matches))
	}
	return nil, fmt.Errorf("no backup %v for %v", id, path)
}

// Restore returns the stored byte copy, unmodified.  Writing it back to disk
// is the caller's job, through the save container's serialize path, so a
// restore gets the same backup/checksum/atomic-write discipline as any other
// mutation.
func (m *Manager) Restore(b *Backup) ([]byte, error) {
	raw, err := os.ReadFile(m.data_file(b.Id))
	if err != nil {
		return nil, err
	}
	if len(raw) != b.Size {
		return nil, fmt.Errorf("backup %v is corrupt: %v bytes stored, metadata says %v", b.Id, len(raw), b.Size)
	}
	return raw, nil
}

// Prune enforces the retention policy for one source file, deleting the
// oldest backups beyond Keep.  Returns how many were removed.
func (m *Manager) Prune(path string) (int, error) {
	if m.Keep <= 0 {
		return 0, nil
	}
	all, err := m.List_backups(path)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, b := range all[min(m.Keep, len(all)):] {
		// Metadata first: a data file without metadata is already
		// invisible, so a failure part-way leaves no phantom listing.
		err1 := os.Remove(m.meta_file(b.Id))
		err2 := os.Remove(m.data_file(b.Id))
		if err1 != nil || err2 != nil {
			continue
		}
		removed += 1
	}
	return removed, nil
}
