// Package sqlite provides SQLite-backed session persistence.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/repochat/repochat-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/repochat/repochat-cli/internal/core/domain"
	"github.com/repochat/repochat-cli/internal/core/ports/driven"
)

// Store is a SQLite-backed session store. Save replaces a session's full
// state inside a single transaction, so readers observe either the previous
// complete state or the new one.
type Store struct {
	db   *sql.DB
	path string
}

var _ driven.SessionStore = (*Store)(nil)

// configRecord is the persisted shape of a config snapshot. API keys are
// deliberately excluded: they are resolved from the config file at load time.
type configRecord struct {
	ChunkSize     int    `json:"chunk_size"`
	ChunkOverlap  int    `json:"chunk_overlap"`
	RetrieverK    int    `json:"retriever_k"`
	UseMemory     bool   `json:"use_memory"`
	MemoryWindow  int    `json:"memory_window"`
	EmbedProvider string `json:"embed_provider,omitempty"`
	EmbedModel    string `json:"embed_model,omitempty"`
	EmbedBaseURL  string `json:"embed_base_url,omitempty"`
	LLMProvider   string `json:"llm_provider,omitempty"`
	LLMModel      string `json:"llm_model,omitempty"`
	LLMBaseURL    string `json:"llm_base_url,omitempty"`
}

// NewStore creates a SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.repochat/data/sessions.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".repochat", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "sessions.db")

	// WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{db: db, path: dbPath}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}
		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(
			"INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// Save persists the full session state, replacing any previous rows for the
// same session id.
func (s *Store) Save(ctx context.Context, rec driven.SessionRecord) error {
	if rec.Session == nil || rec.Session.ID == "" {
		return fmt.Errorf("%w: session is missing an id", domain.ErrInvalidConfig)
	}

	configJSON, err := json.Marshal(toConfigRecord(rec.Session.Config))
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	// Cascades remove previous chunks and turns.
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM sessions WHERE id = ?", rec.Session.ID); err != nil {
		return fmt.Errorf("clearing previous state: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sessions (id, repo_url, created_at, status, dimension, config)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.Session.ID, rec.Session.RepoURL, rec.Session.CreatedAt.UTC(),
		string(rec.Session.Status), rec.Session.Dimension, string(configJSON)); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks
			(session_id, position, id, document_id, content, start_offset, end_offset,
			 embedding, status, origin, locator, number, url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing chunk statement: %w", err)
	}
	defer stmt.Close()

	for i, chunk := range rec.Chunks {
		embeddingBlob := float32SliceToBytes(chunk.Embedding)
		if _, err := stmt.ExecContext(ctx, rec.Session.ID, i, chunk.ID, chunk.DocumentID,
			chunk.Text, chunk.Start, chunk.End, embeddingBlob, string(chunk.Status),
			string(chunk.Origin), chunk.Locator, chunk.Number, chunk.URL); err != nil {
			return fmt.Errorf("saving chunk %d: %w", i, err)
		}
	}

	if rec.Session.Memory != nil {
		turnStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO turns (session_id, idx, query, chunk_ids, answer, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing turn statement: %w", err)
		}
		defer turnStmt.Close()

		for _, turn := range rec.Session.Memory.Context() {
			chunkIDs, err := json.Marshal(turn.ChunkIDs)
			if err != nil {
				return fmt.Errorf("marshalling chunk ids: %w", err)
			}
			if _, err := turnStmt.ExecContext(ctx, rec.Session.ID, turn.Index,
				turn.Query, string(chunkIDs), turn.Answer, turn.CreatedAt.UTC()); err != nil {
				return fmt.Errorf("saving turn %d: %w", turn.Index, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Load reconstructs a session record from storage.
func (s *Store) Load(ctx context.Context, sessionID string) (driven.SessionRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, repo_url, created_at, status, dimension, config
		FROM sessions WHERE id = ?
	`, sessionID)

	var session domain.Session
	var status, configJSON string
	if err := row.Scan(&session.ID, &session.RepoURL, &session.CreatedAt,
		&status, &session.Dimension, &configJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return driven.SessionRecord{}, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID)
		}
		return driven.SessionRecord{}, fmt.Errorf("scanning session: %w", err)
	}

	session.Status = domain.SessionStatus(status)
	if !session.Status.IsValid() {
		return driven.SessionRecord{}, fmt.Errorf(
			"%w: session %s has unknown status %q", domain.ErrSessionCorrupted, sessionID, status)
	}

	var cr configRecord
	if err := json.Unmarshal([]byte(configJSON), &cr); err != nil {
		return driven.SessionRecord{}, fmt.Errorf(
			"%w: session %s config unreadable: %w", domain.ErrSessionCorrupted, sessionID, err)
	}
	session.Config = fromConfigRecord(cr)

	chunks, err := s.loadChunks(ctx, sessionID)
	if err != nil {
		return driven.SessionRecord{}, err
	}

	turns, err := s.loadTurns(ctx, sessionID)
	if err != nil {
		return driven.SessionRecord{}, err
	}

	session.Memory = domain.NewMemoryWindow(session.Config.MemoryWindow, session.Config.UseMemory)
	session.Memory.Restore(turns)

	return driven.SessionRecord{Session: &session, Chunks: chunks}, nil
}

func (s *Store) loadChunks(ctx context.Context, sessionID string) ([]domain.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, content, start_offset, end_offset, embedding,
		       status, origin, locator, number, url
		FROM chunks WHERE session_id = ?
		ORDER BY position
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		var chunk domain.Chunk
		var embeddingBlob []byte
		var status, origin string
		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Text,
			&chunk.Start, &chunk.End, &embeddingBlob, &status, &origin,
			&chunk.Locator, &chunk.Number, &chunk.URL); err != nil {
			return nil, fmt.Errorf("%w: scanning chunk: %w", domain.ErrSessionCorrupted, err)
		}
		if len(embeddingBlob)%4 != 0 {
			return nil, fmt.Errorf(
				"%w: chunk %s embedding blob has odd length %d",
				domain.ErrSessionCorrupted, chunk.ID, len(embeddingBlob))
		}
		chunk.Embedding = bytesToFloat32Slice(embeddingBlob)
		chunk.Status = domain.ChunkStatus(status)
		chunk.Origin = domain.OriginType(origin)
		chunks = append(chunks, chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return chunks, nil
}

func (s *Store) loadTurns(ctx context.Context, sessionID string) ([]domain.ConversationTurn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, query, chunk_ids, answer, created_at
		FROM turns WHERE session_id = ?
		ORDER BY idx
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying turns: %w", err)
	}
	defer rows.Close()

	var turns []domain.ConversationTurn //nolint:prealloc // size unknown from query
	for rows.Next() {
		var turn domain.ConversationTurn
		var chunkIDs string
		if err := rows.Scan(&turn.Index, &turn.Query, &chunkIDs,
			&turn.Answer, &turn.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scanning turn: %w", domain.ErrSessionCorrupted, err)
		}
		if err := json.Unmarshal([]byte(chunkIDs), &turn.ChunkIDs); err != nil {
			return nil, fmt.Errorf(
				"%w: turn %d chunk ids unreadable: %w", domain.ErrSessionCorrupted, turn.Index, err)
		}
		turns = append(turns, turn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating turns: %w", err)
	}
	return turns, nil
}

// List returns the metadata of every persisted session, newest first.
func (s *Store) List(ctx context.Context) ([]*domain.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, repo_url, created_at, status, dimension, config
		FROM sessions
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*domain.Session //nolint:prealloc // size unknown from query
	for rows.Next() {
		var session domain.Session
		var status, configJSON string
		if err := rows.Scan(&session.ID, &session.RepoURL, &session.CreatedAt,
			&status, &session.Dimension, &configJSON); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		session.Status = domain.SessionStatus(status)

		var cr configRecord
		if err := json.Unmarshal([]byte(configJSON), &cr); err != nil {
			return nil, fmt.Errorf(
				"%w: session %s config unreadable: %w", domain.ErrSessionCorrupted, session.ID, err)
		}
		session.Config = fromConfigRecord(cr)
		sessions = append(sessions, &session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}
	return sessions, nil
}

// Delete removes a session and everything it owns.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", sessionID)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID)
	}
	return nil
}

// ==================== Helper Functions ====================

func toConfigRecord(cfg domain.Config) configRecord {
	return configRecord{
		ChunkSize:     cfg.ChunkSize,
		ChunkOverlap:  cfg.ChunkOverlap,
		RetrieverK:    cfg.RetrieverK,
		UseMemory:     cfg.UseMemory,
		MemoryWindow:  cfg.MemoryWindow,
		EmbedProvider: string(cfg.Embedding.Provider),
		EmbedModel:    cfg.Embedding.Model,
		EmbedBaseURL:  cfg.Embedding.BaseURL,
		LLMProvider:   string(cfg.LLM.Provider),
		LLMModel:      cfg.LLM.Model,
		LLMBaseURL:    cfg.LLM.BaseURL,
	}
}

func fromConfigRecord(cr configRecord) domain.Config {
	return domain.Config{
		ChunkSize:    cr.ChunkSize,
		ChunkOverlap: cr.ChunkOverlap,
		RetrieverK:   cr.RetrieverK,
		UseMemory:    cr.UseMemory,
		MemoryWindow: cr.MemoryWindow,
		Embedding: domain.EmbeddingSettings{
			Provider: domain.AIProvider(cr.EmbedProvider),
			Model:    cr.EmbedModel,
			BaseURL:  cr.EmbedBaseURL,
		},
		LLM: domain.LLMSettings{
			Provider: domain.AIProvider(cr.LLMProvider),
			Model:    cr.LLMModel,
			BaseURL:  cr.LLMBaseURL,
		},
	}
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
