package eventflags

// Bit addressing over a slot's event flag blob.
//
// The blob is a packed bitset: flag N lives at byte N/8, bit N%8 (low bit =
// lowest flag ID in that byte).  The mapping is total over the whole ID
// space; IDs that land past the end of the blob are a checked error, not a
// crash.  No I/O in here - these functions only ever see the blob.

import (
	"ersave/types"
)

// Address maps a flag ID to (byte offset, bit mask).
// Used identically by Get and Set - there is exactly one addressing function.
func Address(flag int) (int, uint8) {
	return flag / 8, uint8(1) << (flag % 8)
}

func check(blob []byte, flag int) (int, uint8, error) {
	if flag < 0 {
		return 0, 0, &types.Range_error{Flag: flag, Blob_len: len(blob)}
	}
	offset, mask := Address(flag)
	if offset >= len(blob) {
		return 0, 0, &types.Range_error{Flag: flag, Blob_len: len(blob)}
	}
	return offset, mask, nil
}

func Get(blob []byte, flag int) (bool, error) {
	offset, mask, err := check(blob, flag)
	if err != nil {
		return false, err
	}
	return blob[offset]&mask != 0, nil
}

// Set sets or clears exactly one bit, in place.  The other 7 bits in the
// byte are untouched.
func Set(blob []byte, flag int, on bool) error {
	offset, mask, err := check(blob, flag)
	if err != nil {
		return err
	}
	if on {
		blob[offset] |= mask
	} else {
		blob[offset] &^= mask
	}
	return nil
}

// Edit is one requested flag change.
type Edit struct {
	Flag int
	On   bool
}

// Apply applies a batch of edits in a single pass.  One bad ID does not
// block the rest: out-of-range flags are collected and reported, everything
// else is applied.  Returns the applied count and the per-flag failures.
func Apply(blob []byte, edits []Edit) (int, []error) {
	applied := 0
	failures := []error{}
	for _, e := range edits {
		err := Set(blob, e.Flag, e.On)
		if err != nil {
			failures = append(failures, err)
			continue
		}
		applied += 1
	}
	return applied, failures
}
