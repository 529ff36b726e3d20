package readers

// Cursor-based readers over a byte slice.
// Callers are expected to have bounds-checked the region they are walking;
// the header parser refuses anything shorter than the fixed header before
// these ever run.

import (
	"errors"
	"fmt"
	"math"
)

func Read_uint32_le(b []byte, cur *int) int {
	out := uint(0)
	for i := 0; i < 4; i++ {
		out = out + uint(b[*cur+i])<<(8*i)
	}
	*cur += 4
	return int(out)
}

// Read_uint64_le refuses values that don't fit in a non-negative int.
// Every 64-bit field in the container is an offset or a length, and a value
// that can't index a byte slice is corruption, not data.
func Read_uint64_le(b []byte, cur *int) (int, error) {
	out := uint64(0)
	for i := 0; i < 8; i++ {
		out = out + uint64(b[*cur+i])<<(8*i)
	}
	*cur += 8
	if out > math.MaxInt {
		return 0, fmt.Errorf("64-bit field %v is too large for an offset or length", out)
	}
	return int(out), nil
}

// Read_fixed_string checks for an expected marker string at the cursor.
func Read_fixed_string(target string, b []byte, cur *int) error {
	if *cur+len(target) > len(b) {
		return errors.New("Could not find string " + target + " (ran out of bytes)")
	}
	got := string(b[*cur : *cur+len(target)])
	if got != target {
		return errors.New("Could not find string " + target + " (got " + got + ")")
	}
	*cur += len(target)
	return nil
}
