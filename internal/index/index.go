// Package index is an exact nearest-neighbor store for chunk embeddings.
// Brute-force search is deliberate: the corpus tops out at low thousands of
// chunks, where scanning beats any approximate structure on simplicity and
// correctness.
package index

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrDimensionMismatch means an insert did not line up with the index:
	// wrong vector length, or vectors/metadata of different counts.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrIndexUnavailable means the persisted pair could not be loaded.
	ErrIndexUnavailable = errors.New("vector index unavailable")
)

// Meta is the chunk metadata stored alongside each vector.
type Meta struct {
	Source string `json:"source"`
	Text   string `json:"text"`
	Offset int    `json:"offset"`
}

// Result is one search hit.
type Result struct {
	Meta     Meta
	Distance float32
}

// Index holds vectors as one flat dim-strided float32 slice with a parallel
// metadata slice. The dimension is fixed by the first insert.
type Index struct {
	mu      sync.RWMutex
	dim     int
	vectors []float32
	metas   []Meta
}

func New() *Index {
	return &Index{}
}

// Insert appends entries. Vectors and metas must have equal length and every
// vector must match the index dimension; on any mismatch nothing is inserted.
func (ix *Index) Insert(vectors [][]float32, metas []Meta) error {
	if len(vectors) != len(metas) {
		return fmt.Errorf("%w: %d vectors for %d metadata entries", ErrDimensionMismatch, len(vectors), len(metas))
	}
	if len(vectors) == 0 {
		return nil
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	dim := ix.dim
	if dim == 0 {
		dim = len(vectors[0])
		if dim == 0 {
			return fmt.Errorf("%w: empty vector", ErrDimensionMismatch)
		}
	}
	// Validate the whole batch before touching anything.
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("%w: vector %d has dim %d, index dim %d", ErrDimensionMismatch, i, len(v), dim)
		}
	}

	ix.dim = dim
	for _, v := range vectors {
		ix.vectors = append(ix.vectors, v...)
	}
	ix.metas = append(ix.metas, metas...)
	return nil
}

// Search returns the topK nearest entries by squared Euclidean distance,
// ascending, ties broken by insertion order. An empty index yields an empty
// result.
func (ix *Index) Search(query []float32, topK int) []Result {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if topK <= 0 || len(ix.metas) == 0 || len(query) != ix.dim {
		return nil
	}

	type scored struct {
		pos  int
		dist float32
	}
	all := make([]scored, len(ix.metas))
	for i := range ix.metas {
		all[i] = scored{pos: i, dist: squaredL2(query, ix.vectors[i*ix.dim:(i+1)*ix.dim])}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].dist < all[j].dist })

	if topK > len(all) {
		topK = len(all)
	}
	results := make([]Result, topK)
	for i := 0; i < topK; i++ {
		results[i] = Result{Meta: ix.metas[all[i].pos], Distance: all[i].dist}
	}
	return results
}

// Replace swaps every entry for source with the given batch in one step.
// The batch is validated against the index dimension before anything is
// removed, so a rejected batch leaves the prior entries intact. Returns how
// many prior entries were removed.
func (ix *Index) Replace(source string, vectors [][]float32, metas []Meta) (int, error) {
	if len(vectors) != len(metas) {
		return 0, fmt.Errorf("%w: %d vectors for %d metadata entries", ErrDimensionMismatch, len(vectors), len(metas))
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	dim := ix.dim
	if len(vectors) > 0 {
		if dim == 0 {
			dim = len(vectors[0])
			if dim == 0 {
				return 0, fmt.Errorf("%w: empty vector", ErrDimensionMismatch)
			}
		}
		for i, v := range vectors {
			if len(v) != dim {
				return 0, fmt.Errorf("%w: vector %d has dim %d, index dim %d", ErrDimensionMismatch, i, len(v), dim)
			}
		}
	}

	removed := ix.removeBySourceLocked(source)
	if len(vectors) > 0 {
		ix.dim = dim
		for _, v := range vectors {
			ix.vectors = append(ix.vectors, v...)
		}
		ix.metas = append(ix.metas, metas...)
	}
	return removed, nil
}

// RemoveBySource deletes every entry whose metadata source matches filename
// and returns how many were removed.
func (ix *Index) RemoveBySource(filename string) int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.removeBySourceLocked(filename)
}

func (ix *Index) removeBySourceLocked(filename string) int {
	removed := 0
	keptVectors := ix.vectors[:0]
	keptMetas := ix.metas[:0]
	for i, m := range ix.metas {
		if m.Source == filename {
			removed++
			continue
		}
		keptVectors = append(keptVectors, ix.vectors[i*ix.dim:(i+1)*ix.dim]...)
		keptMetas = append(keptMetas, m)
	}
	ix.vectors = keptVectors
	ix.metas = keptMetas
	return removed
}

// Len returns the number of stored entries.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.metas)
}

// Dim returns the fixed vector dimension, 0 before the first insert.
func (ix *Index) Dim() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.dim
}

// Sources returns the distinct source filenames in insertion order.
func (ix *Index) Sources() []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	seen := make(map[string]bool, len(ix.metas))
	var sources []string
	for _, m := range ix.metas {
		if !seen[m.Source] {
			seen[m.Source] = true
			sources = append(sources, m.Source)
		}
	}
	return sources
}

func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
