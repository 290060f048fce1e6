package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ragpipe/ragpipe/pkg/domain"
)

// SQLiteStore is a local file-backed store holding both document records and
// chunk vectors. Similarity search is an exhaustive cosine scan, which is the
// intended trade-off for a single-process local store.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the store at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("%w: database path is required", domain.ErrConfigurationError)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
CREATE TABLE IF NOT EXISTS documents (
	id       TEXT PRIMARY KEY,
	path     TEXT,
	url      TEXT,
	content  TEXT NOT NULL,
	metadata TEXT,
	created  TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS chunks (
	id          TEXT PRIMARY KEY,
	document_id TEXT NOT NULL,
	position    INTEGER NOT NULL DEFAULT 0,
	content     TEXT NOT NULL,
	vector      BLOB,
	metadata    TEXT
);
CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// ===== domain.VectorStore =====

// Store upserts chunks with their vectors.
func (s *SQLiteStore) Store(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrVectorStoreFailed, err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO chunks (id, document_id, position, content, vector, metadata)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	document_id = excluded.document_id,
	position    = excluded.position,
	content     = excluded.content,
	vector      = excluded.vector,
	metadata    = excluded.metadata`)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrVectorStoreFailed, err)
	}
	defer func() { _ = stmt.Close() }()

	for _, chunk := range chunks {
		metadata, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrVectorStoreFailed, err)
		}

		if _, err := stmt.ExecContext(ctx, chunk.ID, chunk.DocumentID, chunk.Position,
			chunk.Content, encodeVector(chunk.Vector), string(metadata)); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrVectorStoreFailed, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrVectorStoreFailed, err)
	}
	return nil
}

// Search returns the topK chunks nearest to vector by cosine similarity.
func (s *SQLiteStore) Search(ctx context.Context, vector []float64, topK int) ([]domain.Chunk, error) {
	return s.SearchWithFilters(ctx, vector, topK, nil)
}

// SearchWithFilters restricts results to chunks whose metadata matches every
// filter key by string equality.
func (s *SQLiteStore) SearchWithFilters(ctx context.Context, vector []float64, topK int, filters map[string]interface{}) ([]domain.Chunk, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: query vector cannot be empty", domain.ErrInvalidInput)
	}
	if topK <= 0 {
		topK = 10
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, document_id, position, content, vector, metadata FROM chunks`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrVectorStoreFailed, err)
	}
	defer func() { _ = rows.Close() }()

	var results []domain.Chunk
	for rows.Next() {
		var chunk domain.Chunk
		var blob []byte
		var metadata sql.NullString

		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Position, &chunk.Content, &blob, &metadata); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrVectorStoreFailed, err)
		}

		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &chunk.Metadata); err != nil {
				return nil, fmt.Errorf("%w: corrupt metadata for chunk %s: %v", domain.ErrVectorStoreFailed, chunk.ID, err)
			}
		}

		if !matchesFilters(chunk.Metadata, filters) {
			continue
		}

		candidate := decodeVector(blob)
		if len(candidate) == 0 {
			continue
		}

		chunk.Score = cosineSimilarity(vector, candidate)
		results = append(results, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrVectorStoreFailed, err)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Delete removes all chunks belonging to a document along with its record.
func (s *SQLiteStore) Delete(ctx context.Context, documentID string) error {
	if documentID == "" {
		return fmt.Errorf("%w: document ID cannot be empty", domain.ErrInvalidInput)
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = ?`, documentID); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrVectorStoreFailed, err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, documentID); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrVectorStoreFailed, err)
	}
	return nil
}

// Reset clears all documents and chunks.
func (s *SQLiteStore) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chunks`); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrVectorStoreFailed, err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents`); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrVectorStoreFailed, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ===== document store =====

// DocStore exposes the documents table as a domain.DocumentStore.
func (s *SQLiteStore) DocStore() domain.DocumentStore {
	return &sqliteDocStore{store: s}
}

type sqliteDocStore struct {
	store *SQLiteStore
}

func (d *sqliteDocStore) Store(ctx context.Context, doc domain.Document) error {
	metadata, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrVectorStoreFailed, err)
	}

	_, err = d.store.db.ExecContext(ctx,
		`INSERT INTO documents (id, path, url, content, metadata, created) VALUES (?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Path, doc.URL, doc.Content, string(metadata), doc.Created)
	if err != nil {
		exists, checkErr := d.Exists(ctx, doc.ID)
		if checkErr == nil && exists {
			return fmt.Errorf("%w: %s", domain.ErrDocumentExists, doc.ID)
		}
		return fmt.Errorf("%w: %v", domain.ErrVectorStoreFailed, err)
	}
	return nil
}

func (d *sqliteDocStore) Get(ctx context.Context, id string) (domain.Document, error) {
	var doc domain.Document
	var metadata sql.NullString
	var created time.Time

	err := d.store.db.QueryRowContext(ctx,
		`SELECT id, path, url, content, metadata, created FROM documents WHERE id = ?`, id).
		Scan(&doc.ID, &doc.Path, &doc.URL, &doc.Content, &metadata, &created)
	if err == sql.ErrNoRows {
		return domain.Document{}, fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, id)
	}
	if err != nil {
		return domain.Document{}, fmt.Errorf("%w: %v", domain.ErrVectorStoreFailed, err)
	}

	doc.Created = created
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &doc.Metadata); err != nil {
			return domain.Document{}, fmt.Errorf("%w: corrupt metadata for document %s: %v", domain.ErrVectorStoreFailed, id, err)
		}
	}
	return doc, nil
}

func (d *sqliteDocStore) Exists(ctx context.Context, id string) (bool, error) {
	var count int
	err := d.store.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM documents WHERE id = ?`, id).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrVectorStoreFailed, err)
	}
	return count > 0, nil
}

func (d *sqliteDocStore) List(ctx context.Context) ([]domain.Document, error) {
	rows, err := d.store.db.QueryContext(ctx,
		`SELECT id, path, url, content, metadata, created FROM documents ORDER BY created`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrVectorStoreFailed, err)
	}
	defer func() { _ = rows.Close() }()

	var docs []domain.Document
	for rows.Next() {
		var doc domain.Document
		var metadata sql.NullString

		if err := rows.Scan(&doc.ID, &doc.Path, &doc.URL, &doc.Content, &metadata, &doc.Created); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrVectorStoreFailed, err)
		}
		if metadata.Valid && metadata.String != "" {
			_ = json.Unmarshal([]byte(metadata.String), &doc.Metadata)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (d *sqliteDocStore) Delete(ctx context.Context, id string) error {
	return d.store.Delete(ctx, id)
}

func (d *sqliteDocStore) Reset(ctx context.Context) error {
	return d.store.Reset(ctx)
}

// Stats reports document and chunk counts.
func (s *SQLiteStore) Stats(ctx context.Context) (domain.Stats, error) {
	var stats domain.Stats
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM documents`).Scan(&stats.TotalDocuments); err != nil {
		return stats, fmt.Errorf("%w: %v", domain.ErrVectorStoreFailed, err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM chunks`).Scan(&stats.TotalChunks); err != nil {
		return stats, fmt.Errorf("%w: %v", domain.ErrVectorStoreFailed, err)
	}
	return stats, nil
}

// ===== helpers =====

func matchesFilters(metadata map[string]interface{}, filters map[string]interface{}) bool {
	for k, want := range filters {
		got, ok := metadata[k]
		if !ok {
			return false
		}
		if fmt.Sprintf("%v", got) != fmt.Sprintf("%v", want) {
			return false
		}
	}
	return true
}

// encodeVector packs a vector as little-endian float32 values.
func encodeVector(vector []float64) []byte {
	if len(vector) == 0 {
		return nil
	}
	buf := make([]byte, 4*len(vector))
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(float32(v)))
	}
	return buf
}

func decodeVector(buf []byte) []float64 {
	if len(buf) == 0 || len(buf)%4 != 0 {
		return nil
	}
	vector := make([]float64, len(buf)/4)
	for i := range vector {
		vector[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:])))
	}
	return vector
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
