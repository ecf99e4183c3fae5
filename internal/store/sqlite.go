package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/influencer-desk/internal/domain"
	"github.com/ashureev/influencer-desk/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	writeMu sync.Mutex // serializes appends to avoid SQLITE_BUSY storms
	retry   shared.RetryPolicy
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db, retry: shared.DefaultRetryPolicy}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	columns := make([]string, len(Columns))
	for i, c := range Columns {
		columns[i] = c + " TEXT NOT NULL DEFAULT ''"
	}

	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS profiles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		company TEXT NOT NULL,
		industry TEXT NOT NULL,
		position TEXT NOT NULL,
		phone TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_profiles_user ON profiles(user_id);

	CREATE TABLE IF NOT EXISTS selections (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		handles TEXT NOT NULL,
		export_format TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_selections_user ON selections(user_id);

	CREATE TABLE IF NOT EXISTS influencers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		` + strings.Join(columns, ",\n\t\t") + `
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// AppendProfile writes one registration row.
func (s *SQLiteStore) AppendProfile(ctx context.Context, p domain.Profile) error {
	if p.UserID == "" {
		return fmt.Errorf("append profile: empty user id")
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}

	query := `
	INSERT INTO profiles (user_id, name, company, industry, position, phone, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return shared.RetryOnConflict(ctx, s.retry, "append profile", func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, query,
			p.UserID, p.Name, p.Company, p.Industry, p.Position, p.Phone, p.CreatedAt.Unix())
		return err
	})
}

// AppendSelection writes one finalized selection row.
func (s *SQLiteStore) AppendSelection(ctx context.Context, sel domain.Selection) error {
	if sel.ID == "" || sel.UserID == "" {
		return fmt.Errorf("append selection: id and user id are required")
	}
	if sel.CreatedAt.IsZero() {
		sel.CreatedAt = time.Now()
	}

	query := `
	INSERT INTO selections (id, user_id, handles, export_format, created_at)
	VALUES (?, ?, ?, ?, ?)`

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return shared.RetryOnConflict(ctx, s.retry, "append selection", func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, query,
			sel.ID, sel.UserID, strings.Join(sel.Handles, ","), sel.ExportFormat, sel.CreatedAt.Unix())
		return err
	})
}

// ListProfiles returns the profile rows written for a user, oldest first.
func (s *SQLiteStore) ListProfiles(ctx context.Context, userID string) ([]domain.Profile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, name, company, industry, position, phone, created_at
		FROM profiles WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer rows.Close()

	var out []domain.Profile
	for rows.Next() {
		var p domain.Profile
		var createdAt int64
		if err := rows.Scan(&p.UserID, &p.Name, &p.Company, &p.Industry, &p.Position, &p.Phone, &createdAt); err != nil {
			return nil, fmt.Errorf("scan profile row: %w", err)
		}
		p.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListSelections returns the selection rows written for a user, oldest first.
func (s *SQLiteStore) ListSelections(ctx context.Context, userID string) ([]domain.Selection, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, handles, export_format, created_at
		FROM selections WHERE user_id = ? ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query selections: %w", err)
	}
	defer rows.Close()

	var out []domain.Selection
	for rows.Next() {
		var sel domain.Selection
		var handles string
		var createdAt int64
		if err := rows.Scan(&sel.ID, &sel.UserID, &handles, &sel.ExportFormat, &createdAt); err != nil {
			return nil, fmt.Errorf("scan selection row: %w", err)
		}
		if handles != "" {
			sel.Handles = strings.Split(handles, ",")
		}
		sel.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, sel)
	}
	return out, rows.Err()
}

// InsertRecords appends raw influencer rows in one transaction.
func (s *SQLiteStore) InsertRecords(ctx context.Context, rows []Row) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(Columns)), ", ")
	query := `INSERT INTO influencers (` + strings.Join(Columns, ", ") + `) VALUES (` + placeholders + `)`

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	err := shared.RetryOnConflict(ctx, s.retry, "insert records", func(ctx context.Context) error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("prepare: %w", err)
		}
		defer stmt.Close()

		args := make([]any, len(Columns))
		for _, row := range rows {
			for i, c := range Columns {
				args[i] = strings.TrimSpace(row[c])
			}
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return fmt.Errorf("insert row: %w", err)
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// ListRecords reads every influencer row in insertion order.
func (s *SQLiteStore) ListRecords(ctx context.Context) ([]domain.Record, error) {
	query := `SELECT ` + strings.Join(Columns, ", ") + ` FROM influencers ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query influencers: %w", err)
	}
	defer rows.Close()

	cells := make([]sql.NullString, len(Columns))
	dest := make([]any, len(Columns))
	for i := range cells {
		dest[i] = &cells[i]
	}

	var out []domain.Record
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan influencer row: %w", err)
		}
		raw := make(Row, len(Columns))
		for i, c := range Columns {
			raw[c] = cells[i].String
		}
		out = append(out, raw.Record())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate influencers: %w", err)
	}
	return out, nil
}

var _ Repository = (*SQLiteStore)(nil)
