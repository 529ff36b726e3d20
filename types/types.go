package types

import (
	"fmt"
)

// Container layout.
//
// The file is a fixed 0x300-byte header followed by ten character slot regions.
//
// Header format:
//
// bytes 0x000-0x003: marker, always "BND4"
// bytes 0x004-0x007: format version (int32, always 4)
// bytes 0x008-0x00B: slot count (int32, always 10)
// bytes 0x040-0x17F: slot table - ten 0x20-byte entries:
//    +0x00: slot region length (int64)
//    +0x08: slot region offset (int64)
//    +0x10: reserved (we don't touch it)
// bytes 0x2F0-0x2FF: MD5 of everything after the header
//
// Everything else in the header is not understood, and is preserved verbatim.
const (
	MARKER  = "BND4"
	VERSION = 4

	HEADER_SIZE = 0x300
	SLOT_COUNT  = 10

	SLOT_TABLE      = 0x40
	SLOT_ENTRY_SIZE = 0x20

	DIGEST_SIZE        = 16
	FILE_DIGEST_OFFSET = 0x2F0
)

// Slot region format:
//
// bytes 0x00-0x0F: MD5 of the slot data (i.e. of everything below)
// Slot data:
//    bytes 0x00-0x03: "CHR0" if a character exists.  Empty slots are all zeroes.
//    bytes 0x04-0x07: event flag blob offset, relative to slot data start (int32)
//    bytes 0x08-0x0B: event flag blob length (int32)
// The flag blob must fit inside the slot data.  The rest of the slot is
// character data we don't parse.
const (
	SLOT_MARKER      = "CHR0"
	SLOT_HEADER_SIZE = 0x10

	FLAGS_OFFSET_FIELD = 0x04
	FLAGS_LENGTH_FIELD = 0x08
)

// MIN_SLOT_SIZE is the smallest slot region that can hold a digest plus a
// slot data header.
const MIN_SLOT_SIZE = DIGEST_SIZE + SLOT_HEADER_SIZE

// Header holds slot geometry parsed out of the container header.
// It is established once at load time and never recomputed.
type Header struct {
	File_size    int
	Slot_offsets []int
	Slot_lengths []int
}

// Slot_data_start returns the absolute offset of slot i's data (the bytes
// after the slot's stored digest).
func (h *Header) Slot_data_start(i int) int {
	return h.Slot_offsets[i] + DIGEST_SIZE
}

// Slot_data_length returns the length of slot i's data.
func (h *Header) Slot_data_length(i int) int {
	return h.Slot_lengths[i] - DIGEST_SIZE
}

// Format_error means the buffer can not be loaded as a save file at all:
// too short, missing marker, or slot geometry that doesn't fit in the file.
type Format_error struct {
	Reason string
}

func (e *Format_error) Error() string {
	return "bad save file: " + e.Reason
}

// Bounds_error means a caller addressed a slot index or a byte range outside
// the valid bounds.  It is always checked before anything is mutated.
type Bounds_error struct {
	What  string
	Index int
	Limit int
}

func (e *Bounds_error) Error() string {
	return fmt.Sprintf("%v %v out of bounds (limit %v)", e.What, e.Index, e.Limit)
}

// Range_error means a flag ID maps to a byte offset beyond the end of the
// flag blob.  The addressing itself is total; the blob just isn't that big.
type Range_error struct {
	Flag     int
	Blob_len int
}

func (e *Range_error) Error() string {
	return fmt.Sprintf("flag %v is outside the flag blob (%v bytes)", e.Flag, e.Blob_len)
}
