package history

import (
	"context"
	"database/sql"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"github.com/comigor/nazborg-go/internal/logger"
)

// SQLiteStore persists messages in a SQLite database. The database is opened
// lazily and created on first use. If opening the DB fails, the store falls
// back to in-memory storage for the life of the process.
type SQLiteStore struct {
	path string

	dbOnce  sync.Once
	db      *sql.DB
	initErr error

	fallback *MemoryStore
}

// NewSQLiteStore returns a store backed by the database file at path.
func NewSQLiteStore(path string) *SQLiteStore {
	if path == "" {
		path = "nazborg.db"
	}
	return &SQLiteStore{path: path, fallback: NewMemoryStore()}
}

// initDB opens the database and creates the conversations table if it doesn't exist.
func (s *SQLiteStore) initDB() {
	var err error
	s.db, err = sql.Open("sqlite", "file:"+s.path+"?_pragma=busy_timeout(10000)")
	if err != nil {
		s.initErr = err
		logger.L.Warn("sqlite open failed; using in-memory history", "error", err)
		return
	}
	if _, err = s.db.Exec(`CREATE TABLE IF NOT EXISTS conversations (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        role TEXT NOT NULL,
        content TEXT NOT NULL,
        created_at DATETIME NOT NULL
    );`); err != nil {
		s.initErr = err
		logger.L.Warn("sqlite table creation failed; using in-memory history", "error", err)
		return
	}
	logger.L.Info("sqlite history DB initialized", "path", s.path)
}

func (s *SQLiteStore) ready() bool {
	s.dbOnce.Do(s.initDB)
	return s.initErr == nil && s.db != nil
}

// Append writes msgs in order inside a single transaction.
func (s *SQLiteStore) Append(ctx context.Context, msgs ...Message) error {
	if !s.ready() {
		return s.fallback.Append(ctx, msgs...)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, m := range msgs {
		createdAt := m.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO conversations (role, content, created_at) VALUES (?,?,?);`, m.Role, m.Content, createdAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadAll returns every stored message in insertion order.
func (s *SQLiteStore) LoadAll(ctx context.Context) ([]Message, error) {
	if !s.ready() {
		return s.fallback.LoadAll(ctx)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, role, content, created_at FROM conversations ORDER BY id ASC;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Close releases the database handle if it was opened.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
