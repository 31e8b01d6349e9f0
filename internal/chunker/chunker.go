// Package chunker splits extracted text into overlapping fixed-size windows,
// the unit of embedding and retrieval.
package chunker

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig means the size/overlap pair cannot produce forward progress.
var ErrInvalidConfig = errors.New("invalid chunk configuration")

// Chunk is one window of the source text. Offset and Seq are rune-based and
// zero-indexed; each chunk after the first repeats the trailing overlap runes
// of its predecessor.
type Chunk struct {
	Text   string
	Offset int
	Seq    int
}

// Split walks text in strides of size-overlap, emitting windows of length
// size. The last window is the remainder. Text no longer than size yields a
// single chunk; empty text yields none.
func Split(text string, size, overlap int) ([]Chunk, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: size %d", ErrInvalidConfig, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: overlap %d for size %d", ErrInvalidConfig, overlap, size)
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil, nil
	}

	stride := size - overlap
	var chunks []Chunk
	for start := 0; ; start += stride {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, Chunk{
			Text:   string(runes[start:end]),
			Offset: start,
			Seq:    len(chunks),
		})
		if end == len(runes) {
			break
		}
	}
	return chunks, nil
}
