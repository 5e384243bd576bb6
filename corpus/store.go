package corpus

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nathoo/keepercore/embedding"
	"github.com/nathoo/keepercore/types"
)

// embedWorkers bounds concurrent embedding requests during ingestion.
const embedWorkers = 4

// Store chunks, embeds and indexes documents.
type Store struct {
	index     Index
	embedder  embedding.Embedder
	chunkSize int
	log       *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithChunkSize sets the chunk budget in characters.
func WithChunkSize(n int) Option {
	return func(s *Store) { s.chunkSize = n }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// NewStore pairs an index with the embedder that feeds it. Their
// dimensions must agree.
func NewStore(idx Index, emb embedding.Embedder, opts ...Option) (*Store, error) {
	if idx.Dimension() != emb.Dimensions() {
		return nil, fmt.Errorf("%w: index %d, embedder %s %d",
			ErrDimensionMismatch, idx.Dimension(), emb.Name(), emb.Dimensions())
	}
	s := &Store{index: idx, embedder: emb, chunkSize: DefaultChunkSize, log: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// UpsertDocument chunks every page, embeds the chunks and appends them to
// the document. Pages are embedded concurrently; any failure leaves the
// document untouched. Chunk indexes restart on every page. Returns the
// number of passages written.
func (s *Store) UpsertDocument(ctx context.Context, name string, pages []types.Page) (int, error) {
	return s.ingest(ctx, name, pages, s.index.Insert)
}

// ReplaceDocument is UpsertDocument that first drops whatever the document
// held. The swap is all or nothing.
func (s *Store) ReplaceDocument(ctx context.Context, name string, pages []types.Page) (int, error) {
	return s.ingest(ctx, name, pages, s.index.Replace)
}

// UpsertParagraphs ingests unpaged text given as paragraphs.
func (s *Store) UpsertParagraphs(ctx context.Context, name string, paragraphs []string) (int, error) {
	return s.UpsertDocument(ctx, name, unpaged(paragraphs))
}

// ReplaceParagraphs replaces a document with unpaged paragraphs.
func (s *Store) ReplaceParagraphs(ctx context.Context, name string, paragraphs []string) (int, error) {
	return s.ReplaceDocument(ctx, name, unpaged(paragraphs))
}

func unpaged(paragraphs []string) []types.Page {
	return []types.Page{{Text: strings.Join(paragraphs, "\n\n")}}
}

type writeFunc func(ctx context.Context, document string, passages []types.Passage) error

func (s *Store) ingest(ctx context.Context, name string, pages []types.Page, write writeFunc) (int, error) {
	doc := NormalizeName(name)
	if doc == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDocument, name)
	}

	perPage := make([][]types.Passage, len(pages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedWorkers)
	for i, page := range pages {
		g.Go(func() error {
			chunks := Chunk(page.Text, s.chunkSize)
			if len(chunks) == 0 {
				return nil
			}
			vecs, err := s.embedder.Embed(gctx, chunks)
			if err != nil {
				return fmt.Errorf("embed page %d: %w", page.Number, err)
			}
			if len(vecs) != len(chunks) {
				return fmt.Errorf("embed page %d: got %d vectors for %d chunks", page.Number, len(vecs), len(chunks))
			}
			ps := make([]types.Passage, len(chunks))
			for j, text := range chunks {
				ps[j] = types.Passage{
					Document:   doc,
					Page:       pagePtr(page.Number),
					ChunkIndex: j,
					Text:       text,
					Embedding:  vecs[j],
				}
			}
			perPage[i] = ps
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("ingest %s: %w", doc, err)
	}

	passages := slices.Concat(perPage...)
	if err := write(ctx, doc, passages); err != nil {
		return 0, fmt.Errorf("ingest %s: %w", doc, err)
	}
	s.log.Info("document ingested",
		zap.String("document", doc),
		zap.Int("pages", len(pages)),
		zap.Int("passages", len(passages)))
	return len(passages), nil
}

// SearchDocument returns the k passages of one document nearest to vector.
// An unknown document yields no hits.
func (s *Store) SearchDocument(ctx context.Context, name string, vector []float32, k int) ([]types.Hit, error) {
	return s.index.SearchDocument(ctx, NormalizeName(name), vector, k)
}

// SearchAll searches every document for k hits each, then keeps the best k
// overall. Ties keep document order.
func (s *Store) SearchAll(ctx context.Context, vector []float32, k int) ([]types.Hit, error) {
	docs, err := s.index.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	all := []types.Hit{}
	for _, doc := range docs {
		hits, err := s.index.SearchDocument(ctx, doc, vector, k)
		if err != nil {
			return nil, fmt.Errorf("search %s: %w", doc, err)
		}
		all = append(all, hits...)
	}
	return rankHits(all, k), nil
}

// Search embeds query and searches one document.
func (s *Store) Search(ctx context.Context, name, query string, k int) ([]types.Hit, error) {
	vec, err := s.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	return s.SearchDocument(ctx, name, vec, k)
}

// SearchAllText embeds query and searches every document.
func (s *Store) SearchAllText(ctx context.Context, query string, k int) ([]types.Hit, error) {
	vec, err := s.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	return s.SearchAll(ctx, vec, k)
}

func (s *Store) embedQuery(ctx context.Context, query string) ([]float32, error) {
	vec, err := embedding.EmbedQuery(ctx, s.embedder, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return vec, nil
}

// ListDocuments returns the normalised names of every stored document.
func (s *Store) ListDocuments(ctx context.Context) ([]string, error) {
	return s.index.ListDocuments(ctx)
}

// HasDocument reports whether a document has been ingested.
func (s *Store) HasDocument(ctx context.Context, name string) (bool, error) {
	docs, err := s.index.ListDocuments(ctx)
	if err != nil {
		return false, err
	}
	return slices.Contains(docs, NormalizeName(name)), nil
}

// FullDocument returns every passage of a document in reading order.
func (s *Store) FullDocument(ctx context.Context, name string) ([]types.Passage, error) {
	return s.index.FullDocument(ctx, NormalizeName(name))
}

// Close closes the underlying index.
func (s *Store) Close() error {
	return s.index.Close()
}
