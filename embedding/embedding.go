// Package embedding turns text into vectors for the corpus store.
package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"golang.org/x/time/rate"
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed returns one vector per input text, in order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions returns the length of every vector Embed produces.
	Dimensions() int
	// Name identifies the provider and model.
	Name() string
}

// QueryEmbedder is implemented by embedders that encode search queries
// differently from the passages they are matched against.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// EmbedQuery embeds a search query, preferring EmbedQuery when e offers it.
func EmbedQuery(ctx context.Context, e Embedder, text string) ([]float32, error) {
	if q, ok := e.(QueryEmbedder); ok {
		return q.EmbedQuery(ctx, text)
	}
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("got %d vectors for one query", len(vecs))
	}
	return vecs[0], nil
}

// =============================================================================
// HASHING EMBEDDER
// =============================================================================

// Hashing is a deterministic, offline embedder: each token is hashed into a
// bucket and the resulting bag-of-words vector is L2-normalised.
type Hashing struct {
	dim int
}

// NewHashing creates a hashing embedder with dim buckets.
func NewHashing(dim int) *Hashing {
	if dim <= 0 {
		dim = 256
	}
	return &Hashing{dim: dim}
}

// Embed implements Embedder.
func (h *Hashing) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = h.vector(text)
	}
	return out, nil
}

func (h *Hashing) vector(text string) []float32 {
	v := make([]float32, h.dim)
	for _, tok := range tokens(text) {
		f := fnv.New32a()
		f.Write([]byte(tok))
		v[f.Sum32()%uint32(h.dim)]++
	}
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return v
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range v {
		v[i] *= scale
	}
	return v
}

// tokens splits on anything that is not a letter or digit. Han characters
// are emitted one per token since CJK text has no spaces.
func tokens(text string) []string {
	var out []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.Is(unicode.Han, r):
			flush()
			out = append(out, string(r))
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			cur.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return out
}

// Dimensions implements Embedder.
func (h *Hashing) Dimensions() int { return h.dim }

// Name implements Embedder.
func (h *Hashing) Name() string { return fmt.Sprintf("hashing:%d", h.dim) }

// =============================================================================
// RATE LIMITING
// =============================================================================

// RateLimited throttles calls to an underlying Embedder.
type RateLimited struct {
	Embedder
	limiter *rate.Limiter
}

// NewRateLimited allows perSecond requests with the given burst.
// A non-positive perSecond disables limiting.
func NewRateLimited(e Embedder, perSecond float64, burst int) *RateLimited {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{Embedder: e, limiter: rate.NewLimiter(limit, burst)}
}

// Embed waits for a token, then delegates.
func (r *RateLimited) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("embedding rate limit: %w", err)
	}
	return r.Embedder.Embed(ctx, texts)
}

// EmbedQuery waits for a token, then delegates to the wrapped embedder's
// query path.
func (r *RateLimited) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("embedding rate limit: %w", err)
	}
	return EmbedQuery(ctx, r.Embedder, text)
}
