package report

import (
	"encoding/binary"
	"encoding/hex"
	"math"

	"golang.org/x/crypto/blake2b"

	"github.com/djangbahevans/RainflowCycleCounting/internal/rainflow"
)

// Digest identifies a signal by content: the hex BLAKE2b-256 of its
// samples as little-endian IEEE 754 bits. Equal signals loaded from a
// workbook, a CSV file or a JSON body share a digest.
func Digest(sig rainflow.Signal) string {
	h, _ := blake2b.New256(nil) // only fails for oversized keys
	var buf [8]byte
	for _, v := range sig {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		h.Write(buf[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}
