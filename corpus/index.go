// Package corpus stores chunked rulebook and scenario text with embeddings
// and answers nearest-neighbour queries per document or across all of them.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/nathoo/keepercore/types"
)

var (
	// ErrDimensionMismatch is returned when a vector's length differs from
	// the index dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrInvalidDocument is returned for a name that normalises to nothing.
	ErrInvalidDocument = errors.New("invalid document name")
)

// Index is a partitioned vector index. Documents are addressed by their
// normalised name. Unknown documents search and list as empty.
type Index interface {
	Dimension() int
	// Insert writes all passages or none.
	Insert(ctx context.Context, document string, passages []types.Passage) error
	// Replace swaps a document's passages for new ones, all or nothing.
	Replace(ctx context.Context, document string, passages []types.Passage) error
	SearchDocument(ctx context.Context, document string, query []float32, k int) ([]types.Hit, error)
	ListDocuments(ctx context.Context) ([]string, error)
	// FullDocument returns passages ordered by page, then chunk index.
	FullDocument(ctx context.Context, document string) ([]types.Passage, error)
	Close() error
}

func checkDimension(dim int, vec []float32) error {
	if len(vec) != dim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), dim)
	}
	return nil
}

func checkPassages(dim int, passages []types.Passage) error {
	for i, p := range passages {
		if err := checkDimension(dim, p.Embedding); err != nil {
			return fmt.Errorf("passage %d: %w", i, err)
		}
	}
	return nil
}

// rankHits sorts by descending score, keeping input order on ties, and
// keeps the first k. A non-positive k keeps nothing.
func rankHits(hits []types.Hit, k int) []types.Hit {
	if k <= 0 {
		return []types.Hit{}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// passageLess orders unpaged passages first, then by page and chunk index.
func passageLess(a, b types.Passage) bool {
	switch {
	case a.Page == nil && b.Page != nil:
		return true
	case a.Page != nil && b.Page == nil:
		return false
	case a.Page != nil && *a.Page != *b.Page:
		return *a.Page < *b.Page
	}
	return a.ChunkIndex < b.ChunkIndex
}

func pagePtr(n int) *int {
	if n <= 0 {
		return nil
	}
	return &n
}
