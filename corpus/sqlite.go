package corpus

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	sqlite "modernc.org/sqlite"

	"github.com/nathoo/keepercore/types"
)

func init() {
	// Deterministic: same input blobs produce the same distance.
	_ = sqlite.RegisterDeterministicScalarFunction("vec_distance_cosine", 2, vecDistanceCosine)
}

// SQLiteIndex keeps one table per document in a SQLite database and ranks
// by cosine similarity (1 - cosine distance).
type SQLiteIndex struct {
	db  *sql.DB
	dim int
}

// OpenSQLite opens or creates an index at path. Use ":memory:" for a
// throwaway index. An existing database built at another dimension is
// rejected.
func OpenSQLite(ctx context.Context, path string, dim int) (*SQLiteIndex, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open corpus db: %w", err)
	}
	// One connection: ":memory:" databases are per connection.
	db.SetMaxOpenConns(1)

	idx := &SQLiteIndex{db: db, dim: dim}
	if err := idx.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

func (s *SQLiteIndex) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS documents (
		name       TEXT PRIMARY KEY,
		dimension  INTEGER NOT NULL,
		created_at TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("migrate corpus db: %w", err)
	}

	var other int
	err = s.db.QueryRowContext(ctx,
		`SELECT dimension FROM documents WHERE dimension != ? LIMIT 1`, s.dim).Scan(&other)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil
	case err != nil:
		return fmt.Errorf("check corpus dimension: %w", err)
	}
	return fmt.Errorf("%w: corpus db built with %d, want %d", ErrDimensionMismatch, other, s.dim)
}

func table(document string) string {
	return `"doc_` + document + `"`
}

// Dimension implements Index.
func (s *SQLiteIndex) Dimension() int { return s.dim }

// Insert implements Index. The partition and its rows are written in one
// transaction.
func (s *SQLiteIndex) Insert(ctx context.Context, document string, passages []types.Passage) error {
	return s.write(ctx, document, passages, false)
}

// Replace implements Index. Old rows are deleted in the same transaction
// that writes the new ones.
func (s *SQLiteIndex) Replace(ctx context.Context, document string, passages []types.Passage) error {
	return s.write(ctx, document, passages, true)
}

func (s *SQLiteIndex) write(ctx context.Context, document string, passages []types.Passage, replace bool) error {
	if err := checkPassages(s.dim, passages); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO documents (name, dimension, created_at) VALUES (?, ?, ?)`,
		document, s.dim, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("register document %s: %w", document, err)
	}
	if _, err := tx.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+table(document)+` (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		page        INTEGER,
		chunk_index INTEGER NOT NULL,
		content     TEXT NOT NULL,
		embedding   BLOB NOT NULL
	)`); err != nil {
		return fmt.Errorf("create partition %s: %w", document, err)
	}
	if replace {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table(document)); err != nil {
			return fmt.Errorf("clear partition %s: %w", document, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO `+table(document)+` (page, chunk_index, content, embedding) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range passages {
		var page any
		if p.Page != nil {
			page = *p.Page
		}
		if _, err := stmt.ExecContext(ctx, page, p.ChunkIndex, p.Text, encodeVector(p.Embedding)); err != nil {
			return fmt.Errorf("insert passage %d of %s: %w", p.ChunkIndex, document, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", document, err)
	}
	return nil
}

func (s *SQLiteIndex) exists(ctx context.Context, document string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE name = ?`, document).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("lookup document %s: %w", document, err)
	}
	return n > 0, nil
}

// SearchDocument implements Index.
func (s *SQLiteIndex) SearchDocument(ctx context.Context, document string, query []float32, k int) ([]types.Hit, error) {
	if err := checkDimension(s.dim, query); err != nil {
		return nil, err
	}
	ok, err := s.exists(ctx, document)
	if err != nil {
		return nil, err
	}
	if !ok || k <= 0 {
		return []types.Hit{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `SELECT page, chunk_index, content, embedding,
		1 - vec_distance_cosine(embedding, ?) AS score
		FROM `+table(document)+`
		ORDER BY score DESC, id ASC
		LIMIT ?`, encodeVector(query), k)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", document, err)
	}
	defer rows.Close()

	hits := []types.Hit{}
	for rows.Next() {
		var (
			h    types.Hit
			blob []byte
		)
		p, err := scanPassage(rows, &h.Score, &blob)
		if err != nil {
			return nil, err
		}
		p.Document = document
		p.Embedding = decodeVector(blob)
		h.Passage = p
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// ListDocuments implements Index.
func (s *SQLiteIndex) ListDocuments(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM documents ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// FullDocument implements Index.
func (s *SQLiteIndex) FullDocument(ctx context.Context, document string) ([]types.Passage, error) {
	ok, err := s.exists(ctx, document)
	if err != nil || !ok {
		return []types.Passage{}, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT page, chunk_index, content, embedding
		FROM `+table(document)+`
		ORDER BY page, chunk_index, id`)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", document, err)
	}
	defer rows.Close()

	out := []types.Passage{}
	for rows.Next() {
		var blob []byte
		p, err := scanPassage(rows, nil, &blob)
		if err != nil {
			return nil, err
		}
		p.Document = document
		p.Embedding = decodeVector(blob)
		out = append(out, p)
	}
	return out, rows.Err()
}

// Close implements Index.
func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}

func scanPassage(rows *sql.Rows, score *float64, blob *[]byte) (types.Passage, error) {
	var (
		p    types.Passage
		page sql.NullInt64
	)
	dest := []any{&page, &p.ChunkIndex, &p.Text, blob}
	if score != nil {
		dest = append(dest, score)
	}
	if err := rows.Scan(dest...); err != nil {
		return types.Passage{}, fmt.Errorf("scan passage: %w", err)
	}
	if page.Valid {
		p.Page = pagePtr(int(page.Int64))
	}
	return p, nil
}

// encodeVector stores a vector as little-endian float32s.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	if len(b)%4 != 0 {
		return nil
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}

// vecDistanceCosine is registered as vec_distance_cosine(a, b).
// Zero vectors are at distance 1 from everything.
func vecDistanceCosine(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("vec_distance_cosine expects 2 arguments")
	}
	a, ok := args[0].([]byte)
	b, ok2 := args[1].([]byte)
	if !ok || !ok2 {
		return nil, fmt.Errorf("vec_distance_cosine: arguments must be blobs")
	}
	if len(a) != len(b) || len(a)%4 != 0 {
		return nil, fmt.Errorf("vec_distance_cosine: blob lengths %d and %d", len(a), len(b))
	}

	var dot, na, nb float64
	for i := 0; i < len(a); i += 4 {
		x := float64(math.Float32frombits(binary.LittleEndian.Uint32(a[i:])))
		y := float64(math.Float32frombits(binary.LittleEndian.Uint32(b[i:])))
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return float64(1), nil
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb)), nil
}
