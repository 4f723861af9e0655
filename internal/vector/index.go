// Package vector implements an exact, in-process nearest-neighbor index
// over fixed-dimension float32 vectors. Brute-force scan is deliberate: an
// index holds the chunks of a single document (tens to low hundreds of
// vectors), and exact search keeps result ordering deterministic.
package vector

import (
	"errors"
	"sort"
)

var (
	ErrInvalidDimension  = errors.New("vector: dimension must be positive")
	ErrDimensionMismatch = errors.New("vector: dimension mismatch")
	ErrEmptyIndex        = errors.New("vector: index is empty")
)

// Match is one search hit. Distance is squared Euclidean, so 0 means an
// exact match.
type Match struct {
	ID       int
	Distance float32
}

// Index stores vectors append-only. The id of a vector is its 0-based
// insertion position. The index retains the slices it is given and assumes
// the caller does not mutate them afterwards.
type Index struct {
	dimension int
	vectors   [][]float32
}

func New(dimension int) (*Index, error) {
	if dimension <= 0 {
		return nil, ErrInvalidDimension
	}
	return &Index{dimension: dimension}, nil
}

func (ix *Index) Dimension() int { return ix.dimension }

func (ix *Index) Len() int { return len(ix.vectors) }

// Add appends vectors, assigning sequential ids starting at the current
// size. On a dimension mismatch nothing is added.
func (ix *Index) Add(vectors [][]float32) error {
	for _, v := range vectors {
		if len(v) != ix.dimension {
			return ErrDimensionMismatch
		}
	}
	ix.vectors = append(ix.vectors, vectors...)
	return nil
}

// Search returns the ids of the k vectors nearest to query, ordered by
// ascending distance with ties broken by ascending id. Fewer than k results
// are returned when the index holds fewer than k vectors.
func (ix *Index) Search(query []float32, k int) ([]Match, error) {
	if len(query) != ix.dimension {
		return nil, ErrDimensionMismatch
	}
	if len(ix.vectors) == 0 {
		return nil, ErrEmptyIndex
	}

	matches := make([]Match, len(ix.vectors))
	for i, v := range ix.vectors {
		matches[i] = Match{ID: i, Distance: squaredDistance(query, v)}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].ID < matches[j].ID
	})

	if k < 0 {
		k = 0
	}
	if k > len(matches) {
		k = len(matches)
	}
	return matches[:k], nil
}

func squaredDistance(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
