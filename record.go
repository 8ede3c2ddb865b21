package extsort

import (
	"encoding/binary"
	"fmt"
)

// recordSize is the on-disk width of one record: a signed 64-bit integer
// encoded as 8 little-endian bytes. Files are flat concatenations of
// records with no header or separators, so every valid file has a length
// divisible by recordSize.
const recordSize = 8

const (
	runSuffix   = ".sorted"
	chunkInfix  = ".chunk"
	interInfix  = ".intermediate"
)

func decodeRecord(b []byte) int64 {
	return int64(binary.LittleEndian.Uint64(b))
}

func encodeRecord(b []byte, v int64) {
	binary.LittleEndian.PutUint64(b, uint64(v))
}

// runPath returns the run file path for an input file: <input>.sorted
func runPath(input string) string {
	return input + runSuffix
}

// chunkPath returns the k-th chunk file path for an input file:
// <input>.sorted.chunk<k>
func chunkPath(input string, k int) string {
	return fmt.Sprintf("%s%s%s%d", input, runSuffix, chunkInfix, k)
}

// intermediatePath returns the path for a merge-round intermediate:
// <output>.intermediate_r<round>_g<offset>. The offset is the group's
// start index in the round's run list, which makes the name unique
// within a round.
func intermediatePath(output string, round, offset int) string {
	return fmt.Sprintf("%s%s_r%d_g%d", output, interInfix, round, offset)
}
