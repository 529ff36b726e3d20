package eventflags

import (
	"testing"

	"github.com/stretchr/testify/require"

	"ersave/types"
)

func Test_Address(t *testing.T) {
	for _, tc := range []struct {
		flag   int
		offset int
		mask   uint8
	}{
		{0, 0, 0x01},
		{7, 0, 0x80},
		{8, 1, 0x01},
		{71190, 8898, 0x40},
	} {
		offset, mask := Address(tc.flag)
		require.Equal(t, tc.offset, offset, "flag %v", tc.flag)
		require.Equal(t, tc.mask, mask, "flag %v", tc.flag)
	}
}

func Test_Get_set_roundtrip(t *testing.T) {
	blob := make([]byte, 16)
	for flag := 0; flag < 16*8; flag += 1 {
		require.NoError(t, Set(blob, flag, true))
		on, err := Get(blob, flag)
		require.NoError(t, err)
		require.True(t, on, "flag %v", flag)

		require.NoError(t, Set(blob, flag, false))
		on, err = Get(blob, flag)
		require.NoError(t, err)
		require.False(t, on, "flag %v", flag)
	}
}

// Setting one flag must leave its 7 byte-mates and every other byte alone.
func Test_Siblings_untouched(t *testing.T) {
	for flag := 0; flag < 64; flag += 1 {
		blob := make([]byte, 8)
		for i := range blob {
			blob[i] = 0xA5
		}
		before := append([]byte{}, blob...)

		require.NoError(t, Set(blob, flag, true))
		offset, mask := Address(flag)
		for i := range blob {
			if i == offset {
				require.Equal(t, before[i]|mask, blob[i])
			} else {
				require.Equal(t, before[i], blob[i], "byte %v changed by flag %v", i, flag)
			}
		}

		require.NoError(t, Set(blob, flag, false))
		for i := range blob {
			if i == offset {
				require.Equal(t, before[i]&^mask, blob[i])
			} else {
				require.Equal(t, before[i], blob[i])
			}
		}
	}
}

func Test_Out_of_range(t *testing.T) {
	blob := make([]byte, 8)
	var range_err *types.Range_error

	_, err := Get(blob, 64)
	require.ErrorAs(t, err, &range_err)
	require.Equal(t, 64, range_err.Flag)

	err = Set(blob, 64, true)
	require.ErrorAs(t, err, &range_err)

	err = Set(blob, -1, true)
	require.ErrorAs(t, err, &range_err)

	// The blob must be exactly as it was
	require.Equal(t, make([]byte, 8), blob)
}

// A batch keeps going past bad IDs and reports them.
func Test_Apply_continues_past_failures(t *testing.T) {
	blob := make([]byte, 8)
	applied, failures := Apply(blob, []Edit{
		{Flag: 3, On: true},
		{Flag: 9999, On: true},
		{Flag: 12, On: true},
		{Flag: -5, On: true},
		{Flag: 3, On: false},
	})

	require.Equal(t, 3, applied)
	require.Len(t, failures, 2)
	for _, f := range failures {
		var range_err *types.Range_error
		require.ErrorAs(t, f, &range_err)
	}

	on, err := Get(blob, 12)
	require.NoError(t, err)
	require.True(t, on)
	on, err = Get(blob, 3)
	require.NoError(t, err)
	require.False(t, on)
}
