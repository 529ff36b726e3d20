package checksum

// Digest handling for the protected regions of a save file.
//
// The format protects each slot's data with an MD5 digest stored at the start
// of the slot region, plus one whole-file digest (over everything after the
// header) stored in the header.  MD5 because that's what the game checks -
// this is an integrity field, not a security one.

import (
	"bytes"
	"crypto/md5"

	"ersave/types"
)

// Region is one protected byte window plus the location of its stored digest.
type Region struct {
	Name   string
	Start  int
	Length int
	Digest int
}

// Compute returns the digest of a region's current bytes.
func Compute(raw []byte, r Region) []byte {
	sum := md5.Sum(raw[r.Start : r.Start+r.Length])
	return sum[:]
}

// Recalculate computes every region's digest and writes it into its header
// slot, overwriting whatever was there.  Destructive and idempotent.
//
// Regions must be ordered so that windows containing other regions' digest
// fields come after those regions (slots first, whole file last).
func Recalculate(raw []byte, regions []Region) {
	for _, r := range regions {
		copy(raw[r.Digest:r.Digest+types.DIGEST_SIZE], Compute(raw, r))
	}
}

// Check is the validation result for one region.
type Check struct {
	Name     string
	Match    bool
	Stored   []byte
	Computed []byte
}

type Validation []Check

// Validate recomputes every region's digest without writing anything, and
// reports which stored digests match.  It never repairs; that's Recalculate's
// job, and only ever at the caller's explicit request.
func Validate(raw []byte, regions []Region) Validation {
	out := Validation{}
	for _, r := range regions {
		stored := append([]byte{}, raw[r.Digest:r.Digest+types.DIGEST_SIZE]...)
		computed := Compute(raw, r)
		out = append(out, Check{r.Name, bytes.Equal(stored, computed), stored, computed})
	}
	return out
}

func (v Validation) Ok() bool {
	for _, c := range v {
		if !c.Match {
			return false
		}
	}
	return true
}

func (v Validation) Mismatches() []Check {
	out := []Check{}
	for _, c := range v {
		if !c.Match {
			out = append(out, c)
		}
	}
	return out
}
