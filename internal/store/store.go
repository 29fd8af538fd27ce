package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// Config holds storage engine configuration.
type Config struct {
	// BaseDir is the project directory; the database file lives at
	// <BaseDir>/.claude/memory/<DBFileName>.
	BaseDir string

	// DBFileName overrides the default "memory.db".
	DBFileName string

	// FTSTokenizer selects the FTS5 tokenizer: "unicode61" (default),
	// "porter", "trigram", or a caller-supplied tokenizer name.
	FTSTokenizer string

	MaxContentLength int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		BaseDir:          home,
		DBFileName:       "memory.db",
		FTSTokenizer:     "unicode61",
		MaxContentLength: 1 << 20,
	}
}

func (c Config) dbPath() string {
	return filepath.Join(c.BaseDir, ".claude", "memory", c.dbFileName())
}

func (c Config) dbFileName() string {
	if c.DBFileName == "" {
		return "memory.db"
	}
	return c.DBFileName
}

func (c Config) tokenizer() string {
	switch c.FTSTokenizer {
	case "porter", "trigram", "unicode61":
		return c.FTSTokenizer
	case "":
		return "unicode61"
	default:
		return c.FTSTokenizer
	}
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

type queryer interface {
	Query(query string, args ...any) (*sql.Rows, error)
}

type storeHooks struct {
	exec    func(db execer, query string, args ...any) (sql.Result, error)
	query   func(db queryer, query string, args ...any) (*sql.Rows, error)
	beginTx func(db *sql.DB) (*sql.Tx, error)
	commit  func(tx *sql.Tx) error
}

func defaultStoreHooks() storeHooks {
	return storeHooks{
		exec: func(db execer, query string, args ...any) (sql.Result, error) {
			return db.Exec(query, args...)
		},
		query: func(db queryer, query string, args ...any) (*sql.Rows, error) {
			return db.Query(query, args...)
		},
		beginTx: func(db *sql.DB) (*sql.Tx, error) {
			return db.Begin()
		},
		commit: func(tx *sql.Tx) error {
			return tx.Commit()
		},
	}
}

// Store is the persistent memory engine backed by SQLite + FTS5.
type Store struct {
	db          *sql.DB
	cfg         Config
	hooks       storeHooks
	initialized bool
}

// New creates a new Store, creates the data directory if needed, opens
// SQLite in WAL mode, and runs migrations, so the returned Store is always
// ready to use.
func New(cfg Config) (*Store, error) {
	dir := filepath.Dir(cfg.dbPath())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("store: create data dir: %w", err)
	}

	db, err := openDB("sqlite", cfg.dbPath())
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("store: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, cfg: cfg, hooks: defaultStoreHooks()}
	if err := s.Initialize(); err != nil {
		return nil, fmt.Errorf("store: initialize: %w", err)
	}
	return s, nil
}

// Initialize runs additive schema migrations. Idempotent and re-entrant —
// repeated calls return success without altering an up-to-date schema.
func (s *Store) Initialize() error {
	if err := s.migrate(); err != nil {
		return err
	}
	s.initialized = true
	return nil
}

func (s *Store) requireInit() error {
	if !s.initialized {
		return ErrNotInitialized
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) execHook(db execer, query string, args ...any) (sql.Result, error) {
	return s.hooks.exec(db, query, args...)
}

func (s *Store) queryHook(db queryer, query string, args ...any) (*sql.Rows, error) {
	return s.hooks.query(db, query, args...)
}

func (s *Store) beginTxHook() (*sql.Tx, error) {
	return s.hooks.beginTx(s.db)
}

func (s *Store) commitHook(tx *sql.Tx) error {
	return s.hooks.commit(tx)
}
