package fixture

// Minimal container images for tests.  One builder, shared by the container,
// watcher and CLI tests, so the layout only has to be right in one place.
//
// This package deliberately builds its images from the layout constants alone
// and doesn't import the save container - the container's own white-box tests
// use it too.

import (
	"ersave/checksum"
	"ersave/types"
	"ersave/writers"
)

const empty_data = 0x40

func geometry(blob_sizes map[int]int) ([]int, []int) {
	offsets := []int{}
	lengths := []int{}
	total := types.HEADER_SIZE
	for i := 0; i < types.SLOT_COUNT; i += 1 {
		length := types.DIGEST_SIZE + empty_data
		if blob, ok := blob_sizes[i]; ok {
			length = types.DIGEST_SIZE + types.SLOT_HEADER_SIZE + blob
		}
		offsets = append(offsets, total)
		lengths = append(lengths, length)
		total += length
	}
	return offsets, lengths
}

// Raw builds a 10-slot container image with zeroed digests.  blob_sizes maps
// slot index to event flag blob length; slots not in the map are empty.
func Raw(blob_sizes map[int]int) []byte {
	offsets, lengths := geometry(blob_sizes)
	raw := make([]byte, offsets[types.SLOT_COUNT-1]+lengths[types.SLOT_COUNT-1])

	cur := 0
	writers.Write_string_padded(raw, &cur, types.MARKER, len(types.MARKER))
	writers.Write_uint32_le(raw, &cur, types.VERSION)
	writers.Write_uint32_le(raw, &cur, types.SLOT_COUNT)
	for i := 0; i < types.SLOT_COUNT; i += 1 {
		cur = types.SLOT_TABLE + i*types.SLOT_ENTRY_SIZE
		writers.Write_uint64_le(raw, &cur, lengths[i])
		writers.Write_uint64_le(raw, &cur, offsets[i])
	}
	for i, blob := range blob_sizes {
		cur = offsets[i] + types.DIGEST_SIZE
		writers.Write_string_padded(raw, &cur, types.SLOT_MARKER, len(types.SLOT_MARKER))
		writers.Write_uint32_le(raw, &cur, types.SLOT_HEADER_SIZE)
		writers.Write_uint32_le(raw, &cur, blob)
	}
	return raw
}

// Valid is Raw with every digest filled in: slot digests first, then the
// whole-file digest, the same order the container itself recalculates in.
func Valid(blob_sizes map[int]int) []byte {
	raw := Raw(blob_sizes)
	offsets, lengths := geometry(blob_sizes)

	regions := []checksum.Region{}
	for i := 0; i < types.SLOT_COUNT; i += 1 {
		regions = append(regions, checksum.Region{
			Start:  offsets[i] + types.DIGEST_SIZE,
			Length: lengths[i] - types.DIGEST_SIZE,
			Digest: offsets[i],
		})
	}
	regions = append(regions, checksum.Region{
		Start:  types.HEADER_SIZE,
		Length: len(raw) - types.HEADER_SIZE,
		Digest: types.FILE_DIGEST_OFFSET,
	})
	checksum.Recalculate(raw, regions)
	return raw
}
