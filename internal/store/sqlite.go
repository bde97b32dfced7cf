package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db    *sql.DB
	mu    sync.RWMutex
	caser cases.Caser
}

// NewSQLiteStore opens or creates the store at dbPath.
// Use ":memory:" for an in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	s := &SQLiteStore{db: db, caser: cases.Fold()}
	if err := s.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS document_versions (
		id TEXT PRIMARY KEY,
		doc_id TEXT NOT NULL,
		team_id TEXT NOT NULL,
		content TEXT NOT NULL,
		char_count INTEGER NOT NULL,
		message_count INTEGER NOT NULL,
		trigger_type TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_versions_doc_id ON document_versions(doc_id, created_at);

	CREATE TABLE IF NOT EXISTS document_metadata (
		doc_id TEXT PRIMARY KEY,
		team_id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT,
		title_folded TEXT NOT NULL,
		description_folded TEXT,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS folder_mapping (
		name TEXT PRIMARY KEY,
		doc_id TEXT NOT NULL,
		folder_id TEXT NOT NULL,
		synced_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_mapping_folder ON folder_mapping(folder_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveVersion records a snapshot and returns its generated ID.
func (s *SQLiteStore) SaveVersion(ctx context.Context, v Version) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := v.ID
	if id == "" {
		id = uuid.NewString()
	}
	createdAt := v.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO document_versions
		(id, doc_id, team_id, content, char_count, message_count, trigger_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, v.DocID, v.TeamID, v.Content, v.CharCount, v.MessageCount, v.TriggerType, createdAt.Unix(),
	)
	if err != nil {
		return "", fmt.Errorf("insert version: %w", err)
	}
	return id, nil
}

// ListVersions returns the snapshots for a document, newest first.
func (s *SQLiteStore) ListVersions(ctx context.Context, docID string, limit int) ([]Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, doc_id, team_id, content, char_count, message_count, trigger_type, created_at
		FROM document_versions WHERE doc_id = ? ORDER BY created_at DESC, id`
	args := []any{docID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query versions: %w", err)
	}
	defer rows.Close()

	return scanVersions(rows)
}

// LatestVersion returns the most recent snapshot for a document.
func (s *SQLiteStore) LatestVersion(ctx context.Context, docID string) (*Version, error) {
	versions, err := s.ListVersions(ctx, docID, 1)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, nil
	}
	return &versions[0], nil
}

// UpsertMetadata inserts or replaces a document's metadata. Folded copies of
// title and description back the case-insensitive search.
func (s *SQLiteStore) UpsertMetadata(ctx context.Context, m Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedAt := m.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO document_metadata
		(doc_id, team_id, title, description, title_folded, description_folded, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(doc_id) DO UPDATE SET
			team_id = excluded.team_id,
			title = excluded.title,
			description = excluded.description,
			title_folded = excluded.title_folded,
			description_folded = excluded.description_folded,
			updated_at = excluded.updated_at`,
		m.DocID, m.TeamID, m.Title, m.Description,
		s.caser.String(m.Title), s.caser.String(m.Description), updatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert metadata: %w", err)
	}
	return nil
}

// GetMetadata returns the metadata for a document.
func (s *SQLiteStore) GetMetadata(ctx context.Context, docID string) (*Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT doc_id, team_id, title, description, updated_at
		FROM document_metadata WHERE doc_id = ?`, docID)

	m, err := scanMetadata(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query metadata: %w", err)
	}
	return m, nil
}

// SearchMetadata returns documents whose title or description contains the
// query under Unicode case folding.
func (s *SQLiteStore) SearchMetadata(ctx context.Context, query string) ([]Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := "%" + escapeLike(s.caser.String(query)) + "%"
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc_id, team_id, title, description, updated_at
		FROM document_metadata
		WHERE title_folded LIKE ? ESCAPE '\' OR description_folded LIKE ? ESCAPE '\'
		ORDER BY updated_at DESC`, needle, needle)
	if err != nil {
		return nil, fmt.Errorf("search metadata: %w", err)
	}
	defer rows.Close()

	var results []Metadata
	for rows.Next() {
		m, err := scanMetadata(rows)
		if err != nil {
			return nil, fmt.Errorf("scan metadata: %w", err)
		}
		results = append(results, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return results, nil
}

// ReplaceMappings atomically replaces the mapping set for a folder.
func (s *SQLiteStore) ReplaceMappings(ctx context.Context, folderID string, mappings []Mapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM folder_mapping WHERE folder_id = ?", folderID); err != nil {
		return fmt.Errorf("clear mappings: %w", err)
	}

	now := time.Now().Unix()
	for _, m := range mappings {
		syncedAt := m.SyncedAt.Unix()
		if m.SyncedAt.IsZero() {
			syncedAt = now
		}
		_, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO folder_mapping (name, doc_id, folder_id, synced_at)
			VALUES (?, ?, ?, ?)`,
			m.Name, m.DocID, folderID, syncedAt)
		if err != nil {
			return fmt.Errorf("insert mapping %q: %w", m.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit mappings: %w", err)
	}
	return nil
}

// GetMapping resolves a document name to its mapping.
func (s *SQLiteStore) GetMapping(ctx context.Context, name string) (*Mapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT name, doc_id, folder_id, synced_at FROM folder_mapping WHERE name = ?", name)

	var m Mapping
	var syncedAt int64
	err := row.Scan(&m.Name, &m.DocID, &m.FolderID, &syncedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query mapping: %w", err)
	}
	m.SyncedAt = time.Unix(syncedAt, 0)
	return &m, nil
}

// ListMappings returns all known mappings ordered by name.
func (s *SQLiteStore) ListMappings(ctx context.Context) ([]Mapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT name, doc_id, folder_id, synced_at FROM folder_mapping ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("query mappings: %w", err)
	}
	defer rows.Close()

	var mappings []Mapping
	for rows.Next() {
		var m Mapping
		var syncedAt int64
		if err := rows.Scan(&m.Name, &m.DocID, &m.FolderID, &syncedAt); err != nil {
			return nil, fmt.Errorf("scan mapping: %w", err)
		}
		m.SyncedAt = time.Unix(syncedAt, 0)
		mappings = append(mappings, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return mappings, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMetadata(row rowScanner) (*Metadata, error) {
	var m Metadata
	var description sql.NullString
	var updatedAt int64
	if err := row.Scan(&m.DocID, &m.TeamID, &m.Title, &description, &updatedAt); err != nil {
		return nil, err
	}
	m.Description = description.String
	m.UpdatedAt = time.Unix(updatedAt, 0)
	return &m, nil
}

func scanVersions(rows *sql.Rows) ([]Version, error) {
	var versions []Version
	for rows.Next() {
		var v Version
		var createdAt int64
		err := rows.Scan(&v.ID, &v.DocID, &v.TeamID, &v.Content,
			&v.CharCount, &v.MessageCount, &v.TriggerType, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		v.CreatedAt = time.Unix(createdAt, 0)
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return versions, nil
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	return strings.ReplaceAll(s, "_", `\_`)
}
