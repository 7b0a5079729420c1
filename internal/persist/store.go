package persist

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/coderag-dev/coderag/pkg/types"
)

// SchemaVersion tracks the snapshot layout. A stored snapshot with a
// different version is treated as a cache miss and rebuilt from source.
const SchemaVersion = "1"

// Snapshot is the persisted form of a populated index: the corpus
// fingerprint it was built from, the backend that produced the vectors, and
// the full record set in insertion order. FeatureHeuristic snapshots also
// carry the frozen vocabulary so query embeddings reproduce ingest-time
// term slots.
type Snapshot struct {
	Fingerprint string
	BackendTag  types.BackendCapability
	Dimension   int
	Vocabulary  map[string]int
	Records     []types.IndexRecord
	CreatedAt   time.Time
}

// Store persists index snapshots to SQLite, one snapshot per corpus
// fingerprint. All load failures, including corruption and version
// mismatches, surface as types.ErrSnapshotNotFound: persistence is a cache,
// never a source of truth.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the snapshot database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single-writer pool suits SQLite.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
    fingerprint    TEXT PRIMARY KEY,
    backend_tag    TEXT NOT NULL,
    dimension      INTEGER NOT NULL,
    vocabulary     BLOB,
    schema_version TEXT NOT NULL,
    created_at     TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS records (
    fingerprint       TEXT NOT NULL,
    position          INTEGER NOT NULL,
    chunk_id          TEXT NOT NULL,
    source_file       TEXT NOT NULL,
    language          TEXT NOT NULL,
    ordinal           INTEGER NOT NULL,
    start_line        INTEGER NOT NULL,
    end_line          INTEGER NOT NULL,
    chunk_text        TEXT NOT NULL,
    overlap_with_prev INTEGER NOT NULL,
    file_name         TEXT,
    issue_count       INTEGER,
    complexity        REAL,
    chunk_index       INTEGER,
    vector            BLOB,
    PRIMARY KEY (fingerprint, position),
    FOREIGN KEY (fingerprint) REFERENCES snapshots(fingerprint) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_records_chunk ON records(fingerprint, chunk_id);
`

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save writes snap, replacing any prior snapshot for the same fingerprint.
func (s *Store) Save(ctx context.Context, snap *Snapshot) error {
	if snap.Fingerprint == "" {
		return fmt.Errorf("snapshot fingerprint cannot be empty")
	}

	var vocabBlob []byte
	if len(snap.Vocabulary) > 0 {
		var err error
		vocabBlob, err = json.Marshal(snap.Vocabulary)
		if err != nil {
			return fmt.Errorf("failed to encode vocabulary: %w", err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM snapshots WHERE fingerprint = ?`, snap.Fingerprint); err != nil {
		return fmt.Errorf("failed to clear prior snapshot: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO snapshots (fingerprint, backend_tag, dimension, vocabulary, schema_version, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		snap.Fingerprint, string(snap.BackendTag), snap.Dimension, vocabBlob,
		SchemaVersion, time.Now()); err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (fingerprint, position, chunk_id, source_file, language,
			ordinal, start_line, end_line, chunk_text, overlap_with_prev,
			file_name, issue_count, complexity, chunk_index, vector)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare record insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for pos, rec := range snap.Records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			snap.Fingerprint, pos, rec.Chunk.ID, rec.Chunk.SourceFile,
			string(rec.Chunk.Language), rec.Chunk.Ordinal,
			rec.Chunk.StartLine, rec.Chunk.EndLine, rec.Chunk.Text,
			boolToInt(rec.Chunk.OverlapWithPrev),
			rec.Meta.FileName, rec.Meta.IssueCount, rec.Meta.ComplexityScore,
			rec.Meta.ChunkIndex, serializeVector(rec.Vector)); err != nil {
			return fmt.Errorf("failed to insert record %s: %w", rec.Chunk.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

// Load reads the snapshot for fingerprint. It returns
// types.ErrSnapshotNotFound when no snapshot exists, when the stored schema
// version differs, or when the stored data cannot be decoded.
func (s *Store) Load(ctx context.Context, fingerprint string) (*Snapshot, error) {
	snap := &Snapshot{Fingerprint: fingerprint}

	var tag, version string
	var vocabBlob []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT backend_tag, dimension, vocabulary, schema_version, created_at
		FROM snapshots WHERE fingerprint = ?`, fingerprint).
		Scan(&tag, &snap.Dimension, &vocabBlob, &version, &snap.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.ErrSnapshotNotFound
		}
		log.Printf("snapshot %s unreadable, treating as miss: %v", fingerprint, err)
		return nil, types.ErrSnapshotNotFound
	}

	if version != SchemaVersion {
		log.Printf("snapshot %s has schema %s, want %s; treating as miss", fingerprint, version, SchemaVersion)
		return nil, types.ErrSnapshotNotFound
	}

	snap.BackendTag = types.BackendCapability(tag)
	if !snap.BackendTag.Valid() {
		log.Printf("snapshot %s has unknown backend tag %q; treating as miss", fingerprint, tag)
		return nil, types.ErrSnapshotNotFound
	}

	if len(vocabBlob) > 0 {
		if err := json.Unmarshal(vocabBlob, &snap.Vocabulary); err != nil {
			log.Printf("snapshot %s vocabulary corrupt, treating as miss: %v", fingerprint, err)
			return nil, types.ErrSnapshotNotFound
		}
	}

	records, err := s.loadRecords(ctx, fingerprint, snap.BackendTag, snap.Dimension)
	if err != nil {
		log.Printf("snapshot %s records corrupt, treating as miss: %v", fingerprint, err)
		return nil, types.ErrSnapshotNotFound
	}
	snap.Records = records

	return snap, nil
}

func (s *Store) loadRecords(ctx context.Context, fingerprint string, tag types.BackendCapability, dim int) ([]types.IndexRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT chunk_id, source_file, language, ordinal, start_line, end_line,
			chunk_text, overlap_with_prev, file_name, issue_count, complexity,
			chunk_index, vector
		FROM records WHERE fingerprint = ? ORDER BY position`, fingerprint)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var records []types.IndexRecord
	for rows.Next() {
		var rec types.IndexRecord
		var lang string
		var overlap int
		var vectorBlob []byte

		if err := rows.Scan(&rec.Chunk.ID, &rec.Chunk.SourceFile, &lang,
			&rec.Chunk.Ordinal, &rec.Chunk.StartLine, &rec.Chunk.EndLine,
			&rec.Chunk.Text, &overlap, &rec.Meta.FileName, &rec.Meta.IssueCount,
			&rec.Meta.ComplexityScore, &rec.Meta.ChunkIndex, &vectorBlob); err != nil {
			return nil, err
		}

		rec.Chunk.Language = types.Language(lang)
		rec.Chunk.OverlapWithPrev = overlap != 0
		rec.Meta.ChunkID = rec.Chunk.ID
		rec.Meta.Language = rec.Chunk.Language
		rec.Vector = deserializeVector(vectorBlob)
		rec.BackendTag = tag

		if rec.Vector != nil && len(rec.Vector) != dim {
			return nil, fmt.Errorf("record %s vector has %d dims, snapshot declares %d",
				rec.Chunk.ID, len(rec.Vector), dim)
		}

		records = append(records, rec)
	}
	return records, rows.Err()
}

// Delete drops the snapshot for fingerprint, if present.
func (s *Store) Delete(ctx context.Context, fingerprint string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE fingerprint = ?`, fingerprint)
	return err
}

// Has reports whether a snapshot exists for fingerprint, without loading it.
func (s *Store) Has(ctx context.Context, fingerprint string) bool {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM snapshots WHERE fingerprint = ? AND schema_version = ?`,
		fingerprint, SchemaVersion).Scan(&one)
	return err == nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
