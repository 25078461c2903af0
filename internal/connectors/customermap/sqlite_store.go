package customermap

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"go-am-realtime-report-ui/internal/query"
)

// Mapping is one customer to source-of-acquisition assignment.
type Mapping struct {
	ID                  int64
	CustomerID          string
	SourceOfAcquisition string
	CreatedAt           time.Time
}

const defaultQueryTimeout = 10 * time.Second

// Store manages customer/source mappings in SQLite.
type Store struct {
	db           *sql.DB
	queryTimeout time.Duration
}

func NewSQLiteStore(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sqlite path required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS customer_transfer_sources (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  customer_id TEXT NOT NULL,
  source_of_acquisition TEXT NOT NULL,
  created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(customer_id, source_of_acquisition)
);
`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_cts_customer_id ON customer_transfer_sources(customer_id);`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_cts_created_at ON customer_transfer_sources(created_at);`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, queryTimeout: defaultQueryTimeout}, nil
}

// SetQueryTimeout bounds every read. Non-positive values are ignored.
func (s *Store) SetQueryTimeout(d time.Duration) {
	if d > 0 {
		s.queryTimeout = d
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
	return s.db.PingContext(ctx)
}

func (s *Store) CreateMapping(ctx context.Context, customerID, source string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO customer_transfer_sources (customer_id, source_of_acquisition)
VALUES (?, ?)
ON CONFLICT(customer_id, source_of_acquisition) DO NOTHING;
`, strings.TrimSpace(customerID), strings.TrimSpace(source))
	return err
}

// CreateMappingAt is CreateMapping with an explicit creation time, used by imports.
func (s *Store) CreateMappingAt(ctx context.Context, customerID, source string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO customer_transfer_sources (customer_id, source_of_acquisition, created_at)
VALUES (?, ?, ?)
ON CONFLICT(customer_id, source_of_acquisition) DO NOTHING;
`, strings.TrimSpace(customerID), strings.TrimSpace(source), at.UTC().Format("2006-01-02 15:04:05"))
	return err
}

func (s *Store) SourcesForCustomer(ctx context.Context, customerID string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
SELECT source_of_acquisition
FROM customer_transfer_sources
WHERE customer_id = ?
ORDER BY source_of_acquisition;
`, strings.TrimSpace(customerID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var src string
		if err := rows.Scan(&src); err != nil {
			return nil, err
		}
		src = strings.TrimSpace(src)
		if src != "" {
			out = append(out, src)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// MappingsQuery selects mappings newest first. Callers page and filter it.
func (s *Store) MappingsQuery() *query.Select {
	return query.From(s.db, "customer_transfer_sources",
		"id", "customer_id", "source_of_acquisition", "created_at").
		OrderBy("created_at DESC").
		OrderBy("id DESC")
}

// ListMappings runs a query built by MappingsQuery.
func (s *Store) ListMappings(ctx context.Context, q *query.Select) ([]Mapping, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	rows, err := q.Rows(ctx)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Mapping, 0)
	for rows.Next() {
		var (
			item      Mapping
			createdAt sql.NullTime
		)
		if err := rows.Scan(&item.ID, &item.CustomerID, &item.SourceOfAcquisition, &createdAt); err != nil {
			return nil, err
		}
		if createdAt.Valid {
			item.CreatedAt = createdAt.Time.UTC()
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CountMappings counts a query built by MappingsQuery.
func (s *Store) CountMappings(ctx context.Context, q *query.Select) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	return q.Count(ctx)
}
