package thoughtstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/CoReason-AI/coreason-archive/internal/encoding"
	"github.com/CoReason-AI/coreason-archive/pkg/thought"
)

// openThoughtsDB opens (or creates) the sqlite database at path with WAL
// journaling and a relaxed synchronous mode: a snapshot write is an
// at-most-once bulk replace, not a transaction log that needs
// fsync-per-statement durability.
func openThoughtsDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := createThoughtsTable(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func createThoughtsTable(db *sql.DB) error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS thoughts (
		id TEXT PRIMARY KEY,
		vector BLOB NOT NULL,
		scope TEXT NOT NULL,
		scope_id TEXT NOT NULL,
		owner_id TEXT NOT NULL,
		prompt_text TEXT NOT NULL,
		reasoning_trace TEXT NOT NULL,
		final_response TEXT NOT NULL,
		is_stale INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		ttl_seconds INTEGER NOT NULL,
		metadata TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_thoughts_scope_id ON thoughts(scope_id);
	CREATE INDEX IF NOT EXISTS idx_thoughts_created_at ON thoughts(created_at);
	`
	if _, err := db.Exec(ddl); err != nil {
		return fmt.Errorf("create thoughts table: %w", err)
	}
	return nil
}

// buildMetadata packs a thought's slice-valued fields into the single
// metadata column, each sub-field JSON-encoded before going into the
// string-keyed map encoding.EncodeMetadata expects.
func buildMetadata(t *thought.CachedThought) (string, error) {
	m := make(map[string]string, 3)
	for key, vals := range map[string][]string{
		"entities":     t.Entities,
		"source_urns":  t.SourceURNs,
		"access_roles": t.AccessRoles,
	} {
		if len(vals) == 0 {
			continue
		}
		b, err := json.Marshal(vals)
		if err != nil {
			return "", fmt.Errorf("marshal %s: %w", key, err)
		}
		m[key] = string(b)
	}
	return encoding.EncodeMetadata(m)
}

func parseMetadata(jsonStr string) (entities, sourceURNs, accessRoles []string, err error) {
	m, err := encoding.DecodeMetadata(jsonStr)
	if err != nil {
		return nil, nil, nil, err
	}
	unpack := func(key string, dst *[]string) error {
		raw, ok := m[key]
		if !ok {
			return nil
		}
		return json.Unmarshal([]byte(raw), dst)
	}
	if err := unpack("entities", &entities); err != nil {
		return nil, nil, nil, err
	}
	if err := unpack("source_urns", &sourceURNs); err != nil {
		return nil, nil, nil, err
	}
	if err := unpack("access_roles", &accessRoles); err != nil {
		return nil, nil, nil, err
	}
	return entities, sourceURNs, accessRoles, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// SnapshotStore abstracts the Thought Store's persistence backend so the
// composition root can select one without the rest of the archive caring
// which: the default JSON file and the optional SQLite database both
// satisfy it.
type SnapshotStore interface {
	Snapshot(path string) error
	Load(path string) error
}

type jsonBackend struct{ s *Store }

func (b jsonBackend) Snapshot(path string) error { return b.s.Snapshot(path) }
func (b jsonBackend) Load(path string) error     { return b.s.Load(path) }

type sqliteBackend struct{ s *Store }

func (b sqliteBackend) Snapshot(path string) error { return b.s.SnapshotSQLite(path) }
func (b sqliteBackend) Load(path string) error     { return b.s.LoadSQLite(path) }

// JSONBackend returns a SnapshotStore that persists s to a single JSON
// file via write-to-temp-and-rename.
func JSONBackend(s *Store) SnapshotStore { return jsonBackend{s} }

// SQLiteBackend returns a SnapshotStore that persists s to a SQLite
// database, queryable by external tools between archive runs.
func SQLiteBackend(s *Store) SnapshotStore { return sqliteBackend{s} }

// SnapshotSQLite writes every thought to a SQLite database at path,
// replacing its prior contents in a single transaction. Unlike Snapshot's
// JSON file, the database stays queryable by external tools between
// archive runs without needing the archive binary to parse it.
func (s *Store) SnapshotSQLite(path string) error {
	s.mu.RLock()
	all := make([]*thought.CachedThought, 0, len(s.byID))
	for _, t := range s.byID {
		cp := *t
		all = append(all, &cp)
	}
	s.mu.RUnlock()

	db, err := openThoughtsDB(path)
	if err != nil {
		return thought.WrapErr("SnapshotSQLite", err)
	}
	defer db.Close()

	tx, err := db.Begin()
	if err != nil {
		return thought.WrapErr("SnapshotSQLite", err)
	}
	if _, err := tx.Exec(`DELETE FROM thoughts`); err != nil {
		tx.Rollback()
		return thought.WrapErr("SnapshotSQLite", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO thoughts
		(id, vector, scope, scope_id, owner_id, prompt_text, reasoning_trace, final_response, is_stale, created_at, ttl_seconds, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return thought.WrapErr("SnapshotSQLite", err)
	}
	defer stmt.Close()

	for _, t := range all {
		if err := encoding.ValidateVector(t.Vector); err != nil {
			tx.Rollback()
			return thought.WrapErr("SnapshotSQLite", err)
		}
		vecBlob, err := encoding.EncodeVector(t.Vector)
		if err != nil {
			tx.Rollback()
			return thought.WrapErr("SnapshotSQLite", err)
		}
		meta, err := buildMetadata(t)
		if err != nil {
			tx.Rollback()
			return thought.WrapErr("SnapshotSQLite", err)
		}
		if _, err := stmt.Exec(
			t.ID, vecBlob, string(t.Scope), t.ScopeID, t.OwnerID,
			t.PromptText, t.ReasoningTrace, t.FinalResponse,
			boolToInt(t.IsStale), t.CreatedAt, t.TTLSeconds, meta,
		); err != nil {
			tx.Rollback()
			return thought.WrapErr("SnapshotSQLite", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return thought.WrapErr("SnapshotSQLite", err)
	}
	return nil
}

// LoadSQLite replaces the store's contents with the thoughts persisted at
// path by SnapshotSQLite.
func (s *Store) LoadSQLite(path string) error {
	db, err := openThoughtsDB(path)
	if err != nil {
		return thought.WrapErr("LoadSQLite", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(context.Background(), `SELECT
		id, vector, scope, scope_id, owner_id, prompt_text, reasoning_trace,
		final_response, is_stale, created_at, ttl_seconds, metadata
		FROM thoughts`)
	if err != nil {
		return thought.WrapErr("LoadSQLite", err)
	}
	defer rows.Close()

	byID := make(map[string]*thought.CachedThought)
	for rows.Next() {
		var (
			t        thought.CachedThought
			vecBlob  []byte
			scope    string
			isStale  int
			metaJSON sql.NullString
		)
		if err := rows.Scan(
			&t.ID, &vecBlob, &scope, &t.ScopeID, &t.OwnerID,
			&t.PromptText, &t.ReasoningTrace, &t.FinalResponse,
			&isStale, &t.CreatedAt, &t.TTLSeconds, &metaJSON,
		); err != nil {
			return thought.WrapErr("LoadSQLite", err)
		}
		t.Scope = thought.Scope(scope)
		t.IsStale = isStale != 0

		vec, err := encoding.DecodeVector(vecBlob)
		if err != nil {
			return thought.WrapErr("LoadSQLite", err)
		}
		t.Vector = vec

		if metaJSON.Valid && metaJSON.String != "" {
			entities, sourceURNs, accessRoles, err := parseMetadata(metaJSON.String)
			if err != nil {
				return thought.WrapErr("LoadSQLite", err)
			}
			t.Entities = entities
			t.SourceURNs = sourceURNs
			t.AccessRoles = accessRoles
		}

		cp := t
		byID[t.ID] = &cp
	}
	if err := rows.Err(); err != nil {
		return thought.WrapErr("LoadSQLite", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return thought.WrapErr("LoadSQLite", thought.ErrClosed)
	}
	s.byID = byID
	return nil
}
