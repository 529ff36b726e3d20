package writers

// Fixed-width writers into a byte slice.
// These are the in-place counterparts of the readers package: every write
// replaces exactly as many bytes as the field occupies.

// Write_string_padded writes a variable-length string into a fixed-length slot.
// Unneeded bytes are padded out with 0s.
func Write_string_padded(b []byte, cur *int, str string, length int) {
	copy(b[*cur:*cur+length], str)
	for i := len(str); i < length; i += 1 {
		b[*cur+i] = 0
	}
	*cur += length
}

func Write_uint32_le(b []byte, cur *int, v int) {
	for i := 0; i < 4; i++ {
		b[*cur+i] = uint8((v >> (8 * i)) & 0xFF)
	}
	*cur += 4
}

func Write_uint64_le(b []byte, cur *int, v int) {
	for i := 0; i < 8; i++ {
		b[*cur+i] = uint8((v >> (8 * i)) & 0xFF)
	}
	*cur += 8
}
