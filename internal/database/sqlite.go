package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"agri-sentinel/internal/agri"
	"agri-sentinel/internal/database/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore implements agri.Store on a single SQLite file (or ":memory:").
// Each collection is a table of JSON documents keyed by id.
//
// Construction does no I/O; Initialize opens the file and brings the schema to
// the latest version. Every other method fails with agri.ErrStoreNotReady
// until Initialize has succeeded.
type SQLiteStore struct {
	path string

	initMu sync.Mutex // serializes Initialize

	mu    sync.RWMutex // guards state and db
	state agri.StoreState
	db    *sql.DB
}

// NewSQLiteStore creates an uninitialized store for the given path.
func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path, state: agri.StateUninitialized}
}

// OpenConnection opens and configures a SQLite connection.
// The pool is pinned to one connection: ":memory:" databases are per-connection,
// and a single writer keeps calls completing in the order they were issued.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

func (s *SQLiteStore) setState(state agri.StoreState, db *sql.DB) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.db = db
}

// Initialize opens the database and applies pending schema versions.
// Each version runs in its own transaction together with its seed data, so
// seeds are written exactly once. A FAILED store may be initialized again.
func (s *SQLiteStore) Initialize(ctx context.Context) error {
	s.initMu.Lock()
	defer s.initMu.Unlock()

	switch s.State() {
	case agri.StateReady:
		return nil
	case agri.StateClosed:
		return fmt.Errorf("%w: store is closed", agri.ErrStoreUnavailable)
	}
	s.setState(agri.StateOpening, nil)

	db, err := OpenConnection(s.path)
	if err != nil {
		s.setState(agri.StateFailed, nil)
		return fmt.Errorf("%w: %w", agri.ErrStoreUnavailable, err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		s.setState(agri.StateFailed, nil)
		return fmt.Errorf("%w: opening %s: %w", agri.ErrStoreUnavailable, s.path, err)
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		s.setState(agri.StateFailed, nil)
		return fmt.Errorf("%w: %w", agri.ErrStoreUnavailable, err)
	}

	s.setState(agri.StateReady, db)
	return nil
}

// State returns the lifecycle state.
func (s *SQLiteStore) State() agri.StoreState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// conn returns the open database, or ErrStoreNotReady.
func (s *SQLiteStore) conn() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != agri.StateReady {
		return nil, fmt.Errorf("%w: state is %s", agri.ErrStoreNotReady, s.state)
	}
	return s.db, nil
}

// table validates c and returns its table name.
// Table names are the collection names, which come from a fixed list.
func table(c agri.Collection) (string, error) {
	if !c.Valid() {
		return "", fmt.Errorf("%w: unknown collection %q", agri.ErrInvalidRecord, c)
	}
	return string(c), nil
}

func validateDocument(c agri.Collection, doc agri.Document) error {
	if doc.Key == "" {
		return fmt.Errorf("%w: %s record has no key", agri.ErrInvalidRecord, c)
	}
	if !json.Valid(doc.Body) {
		return fmt.Errorf("%w: %s/%s is not valid JSON", agri.ErrInvalidRecord, c, doc.Key)
	}
	return nil
}

// SchemaVersion returns the applied schema version.
func (s *SQLiteStore) SchemaVersion(ctx context.Context) (uint, error) {
	db, err := s.conn()
	if err != nil {
		return 0, err
	}
	version, _, err := migrations.Version(db)
	if err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return version, nil
}

// GetAll returns the collection's documents in insertion order.
func (s *SQLiteStore) GetAll(ctx context.Context, c agri.Collection) ([]agri.Document, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	name, err := table(c)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, "SELECT id, doc FROM "+name+" ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", c, err)
	}
	defer rows.Close()

	docs := []agri.Document{}
	for rows.Next() {
		var (
			key  string
			body string
		)
		if err := rows.Scan(&key, &body); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", c, err)
		}
		docs = append(docs, agri.Document{Key: key, Body: []byte(body)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing %s: %w", c, err)
	}
	return docs, nil
}

// Put inserts or replaces a document. Append-only collections get AddOnly
// semantics, so history is never overwritten.
func (s *SQLiteStore) Put(ctx context.Context, c agri.Collection, doc agri.Document) error {
	if c.AppendOnly() {
		return s.AddOnly(ctx, c, doc)
	}

	db, err := s.conn()
	if err != nil {
		return err
	}
	name, err := table(c)
	if err != nil {
		return err
	}
	if err := validateDocument(c, doc); err != nil {
		return err
	}

	_, err = db.ExecContext(ctx,
		"INSERT INTO "+name+" (id, doc) VALUES (?, ?) "+
			"ON CONFLICT(id) DO UPDATE SET doc = excluded.doc, updated_at = CURRENT_TIMESTAMP",
		doc.Key, string(doc.Body))
	if err != nil {
		return fmt.Errorf("writing %s/%s: %w", c, doc.Key, err)
	}
	return nil
}

// AddOnly inserts a document and rejects an existing key with ErrDuplicateKey.
func (s *SQLiteStore) AddOnly(ctx context.Context, c agri.Collection, doc agri.Document) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	name, err := table(c)
	if err != nil {
		return err
	}
	if err := validateDocument(c, doc); err != nil {
		return err
	}

	res, err := db.ExecContext(ctx,
		"INSERT INTO "+name+" (id, doc) VALUES (?, ?) ON CONFLICT(id) DO NOTHING",
		doc.Key, string(doc.Body))
	if err != nil {
		return fmt.Errorf("inserting %s/%s: %w", c, doc.Key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("inserting %s/%s: %w", c, doc.Key, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s/%s", agri.ErrDuplicateKey, c, doc.Key)
	}
	return nil
}

// Path returns the database file path (or ":memory:").
func (s *SQLiteStore) Path() string {
	return s.path
}

// CheckMigrations verifies the schema is at the version this binary expects.
func (s *SQLiteStore) CheckMigrations() error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	return migrations.CheckDBMigrationStatus(db)
}

// BackupTo writes a consistent copy of the database to destPath using VACUUM INTO.
func (s *SQLiteStore) BackupTo(ctx context.Context, destPath string) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, "VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

// Close closes the database. Later calls fail; Close itself is idempotent.
func (s *SQLiteStore) Close() error {
	s.initMu.Lock()
	defer s.initMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	db := s.db
	s.db = nil
	s.state = agri.StateClosed
	if db != nil {
		return db.Close()
	}
	return nil
}

// Compile-time check that SQLiteStore implements agri.Store.
var _ agri.Store = (*SQLiteStore)(nil)
