package faults

import (
	"crypto/sha256"
	"encoding/binary"
	"math"
)

const twoTo64 = 18446744073709551616.0

// LeakHash maps (seed, t_hours) to a uniform value in [0, 1).
//
// The digest input is 12 bytes: the seed as a little-endian int32 followed by
// t_hours as a little-endian IEEE-754 float64. The first 8 bytes of the
// SHA-256 digest are read as a little-endian uint64 and divided by 2^64.
// Other implementations must follow this layout to reproduce leak timing.
func LeakHash(seed int64, tHours float64) float64 {
	var buf [12]byte
	binary.LittleEndian.PutUint32(buf[0:4], uint32(int32(seed)))
	binary.LittleEndian.PutUint64(buf[4:12], math.Float64bits(tHours))
	sum := sha256.Sum256(buf[:])
	return float64(binary.LittleEndian.Uint64(sum[:8])) / twoTo64
}
