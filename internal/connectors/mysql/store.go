package mysql

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"go-am-realtime-report-ui/internal/config"
)

// Store wraps MySQL access to the Archivematica MCP database.
type Store struct {
	db           *sql.DB
	queryTimeout time.Duration
	stuckAfter   time.Duration
}

// NewStore creates a MySQL-backed store.
func NewStore(cfg config.Config) (*Store, error) {
	db, err := sql.Open("mysql", cfg.MySQLDSN())
	if err != nil {
		return nil, err
	}

	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DBConnTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	store := NewStoreFromDB(db, cfg.DBQueryTimeout)
	store.SetStuckAfter(cfg.RunningStuckAfter)
	return store, nil
}

// NewStoreFromDB wraps an open database handle.
func NewStoreFromDB(db *sql.DB, queryTimeout time.Duration) *Store {
	if queryTimeout <= 0 {
		queryTimeout = 10 * time.Second
	}
	return &Store{db: db, queryTimeout: queryTimeout, stuckAfter: 30 * time.Minute}
}

// SetStuckAfter sets how long a running unit may go without progress before
// it is flagged as stuck. Non-positive values are ignored.
func (s *Store) SetStuckAfter(d time.Duration) {
	if d > 0 {
		s.stuckAfter = d
	}
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	return s.db.PingContext(ctx)
}

func nullTimePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}
