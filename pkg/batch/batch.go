// Package batch splits add requests into chunks the backing index accepts in one call.
package batch

import "iter"

// SafetyMargin is subtracted from the backing index's advertised maximum.
const SafetyMargin = 1

// Chunk is a contiguous run of entries. IDs and Vectors are sub-slices of the
// input and share its backing arrays.
type Chunk struct {
	Index   int
	IDs     []string
	Vectors [][]float32
}

// Len returns the number of entries in the chunk.
func (c Chunk) Len() int {
	return len(c.IDs)
}

// EffectiveSize derives the chunk size from an advertised maximum, floored at 1.
func EffectiveSize(advertised int) int {
	return max(1, advertised-SafetyMargin)
}

// Count returns the number of chunks Split yields for n entries.
func Count(n, size int) int {
	if n <= 0 {
		return 0
	}
	size = max(1, size)
	return (n + size - 1) / size
}

// Split yields ordered chunks of at most size entries. ids and vectors must
// have equal length. An empty input yields nothing; size below 1 is treated as 1.
func Split(ids []string, vectors [][]float32, size int) iter.Seq[Chunk] {
	size = max(1, size)
	return func(yield func(Chunk) bool) {
		for i, start := 0, 0; start < len(ids); i, start = i+1, start+size {
			end := min(start+size, len(ids))
			if !yield(Chunk{Index: i, IDs: ids[start:end], Vectors: vectors[start:end]}) {
				return
			}
		}
	}
}
