package corpus

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/nathoo/keepercore/types"
)

// FlatIndex is an exhaustive in-memory index. Score is the negative
// Euclidean distance, so 0 is an exact match.
type FlatIndex struct {
	mu   sync.RWMutex
	dim  int
	docs map[string][]types.Passage
}

// NewFlatIndex creates an empty in-memory index of the given dimension.
func NewFlatIndex(dim int) *FlatIndex {
	return &FlatIndex{dim: dim, docs: map[string][]types.Passage{}}
}

// Dimension implements Index.
func (f *FlatIndex) Dimension() int { return f.dim }

// Insert implements Index.
func (f *FlatIndex) Insert(_ context.Context, document string, passages []types.Passage) error {
	return f.write(document, passages, false)
}

// Replace implements Index.
func (f *FlatIndex) Replace(_ context.Context, document string, passages []types.Passage) error {
	return f.write(document, passages, true)
}

func (f *FlatIndex) write(document string, passages []types.Passage, replace bool) error {
	if err := checkPassages(f.dim, passages); err != nil {
		return err
	}
	stored := make([]types.Passage, len(passages))
	for i, p := range passages {
		p.Document = document
		p.Embedding = append([]float32(nil), p.Embedding...)
		stored[i] = p
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if replace {
		f.docs[document] = stored
		return nil
	}
	f.docs[document] = append(f.docs[document], stored...)
	return nil
}

// SearchDocument implements Index.
func (f *FlatIndex) SearchDocument(_ context.Context, document string, query []float32, k int) ([]types.Hit, error) {
	if err := checkDimension(f.dim, query); err != nil {
		return nil, err
	}
	if k <= 0 {
		return []types.Hit{}, nil
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	passages := f.docs[document]
	hits := make([]types.Hit, 0, len(passages))
	for _, p := range passages {
		hits = append(hits, types.Hit{Passage: p, Score: -l2(p.Embedding, query)})
	}
	return rankHits(hits, k), nil
}

// ListDocuments implements Index.
func (f *FlatIndex) ListDocuments(context.Context) ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, 0, len(f.docs))
	for name := range f.docs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// FullDocument implements Index.
func (f *FlatIndex) FullDocument(_ context.Context, document string) ([]types.Passage, error) {
	f.mu.RLock()
	out := append([]types.Passage{}, f.docs[document]...)
	f.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return passageLess(out[i], out[j]) })
	return out, nil
}

// Close implements Index.
func (f *FlatIndex) Close() error { return nil }

func l2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
