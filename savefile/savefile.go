package savefile

// Save container: one mutable byte buffer holding the entire file image,
// plus the slot geometry parsed from its header.
//
// The buffer is the single source of truth.  Slots and flag blobs are handed
// out as views (sub-slices) of it, never as copies, so an edit through a view
// is already in the file image - there is no "splice the working copy back"
// step to forget.  All writes are fixed-width in-place replacements; the
// buffer never grows or shrinks, which is what keeps every byte range we
// don't understand intact.

import (
	"fmt"
	"os"
	"path/filepath"

	"ersave/checksum"
	"ersave/eventflags"
	"ersave/readers"
	"ersave/types"
)

type Savefile struct {
	raw    []byte
	header types.Header
}

// Load parses the container header and checks the slot geometry.
// It does NOT verify checksums - save files mangled by other tools still
// have to load, so validation is a separate, explicit step.
func Load(raw []byte) (*Savefile, error) {
	if len(raw) < types.HEADER_SIZE {
		return nil, &types.Format_error{Reason: fmt.Sprintf("file too short (%v bytes; the header alone is %v)", len(raw), types.HEADER_SIZE)}
	}

	cur := 0
	err := readers.Read_fixed_string(types.MARKER, raw, &cur)
	if err != nil {
		return nil, &types.Format_error{Reason: err.Error()}
	}
	version := readers.Read_uint32_le(raw, &cur)
	if version != types.VERSION {
		return nil, &types.Format_error{Reason: fmt.Sprintf("unsupported format version %v (want %v)", version, types.VERSION)}
	}
	count := readers.Read_uint32_le(raw, &cur)
	if count != types.SLOT_COUNT {
		return nil, &types.Format_error{Reason: fmt.Sprintf("slot count is %v (want %v)", count, types.SLOT_COUNT)}
	}

	header := types.Header{File_size: len(raw)}
	for i := 0; i < types.SLOT_COUNT; i++ {
		cur = types.SLOT_TABLE + i*types.SLOT_ENTRY_SIZE
		length, err := readers.Read_uint64_le(raw, &cur)
		if err != nil {
			return nil, &types.Format_error{Reason: fmt.Sprintf("slot %v length: %v", i, err)}
		}
		offset, err := readers.Read_uint64_le(raw, &cur)
		if err != nil {
			return nil, &types.Format_error{Reason: fmt.Sprintf("slot %v offset: %v", i, err)}
		}
		if length < types.MIN_SLOT_SIZE {
			return nil, &types.Format_error{Reason: fmt.Sprintf("slot %v is only %v bytes", i, length)}
		}
		// Subtraction, not offset+length: the sum can wrap for hostile offsets
		if offset < types.HEADER_SIZE || length > len(raw)-offset {
			return nil, &types.Format_error{Reason: fmt.Sprintf("slot %v region (offset %v, length %v) does not fit in the file", i, offset, length)}
		}
		header.Slot_offsets = append(header.Slot_offsets, offset)
		header.Slot_lengths = append(header.Slot_lengths, length)
	}

	sf := &Savefile{raw, header}

	// Occupied slots must carry a sane flag blob.  Checking here means
	// nothing downstream ever sees a blob view that escapes its slot.
	for i := 0; i < types.SLOT_COUNT; i++ {
		slot := Slot{sf, i}
		if slot.Is_empty() {
			continue
		}
		_, err := slot.Event_flags()
		if err != nil {
			return nil, err
		}
	}

	return sf, nil
}

func Load_file(path string) (*Savefile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Load(raw)
}

func (sf *Savefile) Slot(index int) (*Slot, error) {
	if index < 0 || index >= types.SLOT_COUNT {
		return nil, &types.Bounds_error{What: "slot", Index: index, Limit: types.SLOT_COUNT}
	}
	return &Slot{sf, index}, nil
}

// Write_slot_region replaces exactly len(b) bytes at the given offset
// relative to slot index's region start.  Bounds are checked before any
// byte moves.
func (sf *Savefile) Write_slot_region(index int, offset int, b []byte) error {
	if index < 0 || index >= types.SLOT_COUNT {
		return &types.Bounds_error{What: "slot", Index: index, Limit: types.SLOT_COUNT}
	}
	if offset < 0 || len(b) > sf.header.Slot_lengths[index]-offset {
		return &types.Bounds_error{What: "slot region write", Index: offset, Limit: sf.header.Slot_lengths[index]}
	}
	copy(sf.raw[sf.header.Slot_offsets[index]+offset:], b)
	return nil
}

// Regions returns the checksum-protected windows, slots first and the
// whole-file window last.  The order matters: the file window covers the
// slot digests, so they must be recomputed before it.
func (sf *Savefile) Regions() []checksum.Region {
	out := []checksum.Region{}
	for i := 0; i < types.SLOT_COUNT; i++ {
		out = append(out, checksum.Region{
			Name:   fmt.Sprintf("slot %v", i),
			Start:  sf.header.Slot_data_start(i),
			Length: sf.header.Slot_data_length(i),
			Digest: sf.header.Slot_offsets[i],
		})
	}
	out = append(out, checksum.Region{
		Name:   "file",
		Start:  types.HEADER_SIZE,
		Length: len(sf.raw) - types.HEADER_SIZE,
		Digest: types.FILE_DIGEST_OFFSET,
	})
	return out
}

// Recalculate_checksums rewrites every digest field.  Call it after any
// content mutation and before Serialize - batch edits only need it once,
// at the end.
func (sf *Savefile) Recalculate_checksums() {
	checksum.Recalculate(sf.raw, sf.Regions())
}

// Validate recomputes digests without writing and reports mismatches.
// A mismatch is a warning, not an error - the file stays loaded.
func (sf *Savefile) Validate() checksum.Validation {
	return checksum.Validate(sf.raw, sf.Regions())
}

// Serialize returns the file image verbatim.  It deliberately does not
// recompute checksums; callers own that step (see Recalculate_checksums).
func (sf *Savefile) Serialize() []byte {
	return sf.raw
}

// Save_to writes the file image to disk: temp file in the target directory,
// sync, then rename over the target.  A crash mid-write leaves the old file
// intact rather than a truncated one the game refuses to load.
func (sf *Savefile) Save_to(path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp")
	if err != nil {
		return err
	}

	_, err = tmp.Write(sf.raw)
	if err == nil {
		err = tmp.Sync()
	}
	if closer := tmp.Close(); err == nil {
		err = closer
	}
	if err != nil {
		os.Remove(tmp.Name())
		return err
	}

	err = os.Rename(tmp.Name(), path)
	if err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

// Slot is a view into one character slot.  It holds no bytes of its own.
type Slot struct {
	sf    *Savefile
	Index int
}

func (s *Slot) data() []byte {
	start := s.sf.header.Slot_data_start(s.Index)
	return s.sf.raw[start : start+s.sf.header.Slot_data_length(s.Index)]
}

// Is_empty reports whether no character has ever been created in this slot.
func (s *Slot) Is_empty() bool {
	return string(s.data()[:len(types.SLOT_MARKER)]) != types.SLOT_MARKER
}

// Event_flags returns the slot's flag blob as a view into the container
// buffer.  Mutating it mutates the save file directly.
func (s *Slot) Event_flags() ([]byte, error) {
	if s.Is_empty() {
		return nil, fmt.Errorf("slot %v is empty", s.Index)
	}
	data := s.data()
	cur := types.FLAGS_OFFSET_FIELD
	offset := readers.Read_uint32_le(data, &cur)
	length := readers.Read_uint32_le(data, &cur)
	if offset < types.SLOT_HEADER_SIZE || length > len(data)-offset {
		return nil, &types.Format_error{Reason: fmt.Sprintf("slot %v flag blob (offset %v, length %v) does not fit in the slot data (%v bytes)", s.Index, offset, length, len(data))}
	}
	// Capped so an accidental append can't bleed into the next field
	return data[offset : offset+length : offset+length], nil
}

func (s *Slot) Get_flag(flag int) (bool, error) {
	blob, err := s.Event_flags()
	if err != nil {
		return false, err
	}
	return eventflags.Get(blob, flag)
}

func (s *Slot) Set_flag(flag int, on bool) error {
	blob, err := s.Event_flags()
	if err != nil {
		return err
	}
	return eventflags.Set(blob, flag, on)
}

// Apply_flags applies a batch of edits to this slot's blob in one pass.
// Remember to Recalculate_checksums afterwards.
func (s *Slot) Apply_flags(edits []eventflags.Edit) (int, []error) {
	blob, err := s.Event_flags()
	if err != nil {
		return 0, []error{err}
	}
	return eventflags.Apply(blob, edits)
}
