package repo

import (
	"DonorBot/model"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps screenings in a local SQLite file
type SQLiteStore struct {
	conn *sql.DB
}

// NewSQLiteStore opens the database and creates the tables if needed
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("error creating database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err = conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	if err = createTables(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("error creating tables: %w", err)
	}

	return &SQLiteStore{conn: conn}, nil
}

func createTables(ctx context.Context, conn *sql.DB) error {
	_, err := conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS screenings (
			id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			verdict TEXT NOT NULL,
			age_parsed BOOLEAN NOT NULL,
			answers TEXT NOT NULL,
			completed_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	_, err = conn.ExecContext(ctx,
		"CREATE INDEX IF NOT EXISTS idx_screenings_user ON screenings (user_id, completed_at)")
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

// Consume records a finished screening. Saving the same session twice
// replaces the earlier row.
func (s *SQLiteStore) Consume(ctx context.Context, sc model.Screening) error {
	answers, err := json.Marshal(sc.Answers)
	if err != nil {
		return fmt.Errorf("error encoding answers: %w", err)
	}

	_, err = s.conn.ExecContext(ctx,
		`INSERT OR REPLACE INTO screenings (id, user_id, verdict, age_parsed, answers, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sc.ID, sc.UserID, string(sc.Verdict), sc.AgeParsed, string(answers), sc.CompletedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("error saving screening: %w", err)
	}
	return nil
}

// ReadScreening reads a screening by its id
func (s *SQLiteStore) ReadScreening(ctx context.Context, id string) (*model.Screening, error) {
	row := s.conn.QueryRowContext(ctx,
		"SELECT id, user_id, verdict, age_parsed, answers, completed_at FROM screenings WHERE id = ?", id)

	sc, err := scanScreening(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrScreeningNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error reading screening: %w", err)
	}
	return sc, nil
}

// ListScreenings lists the screenings of one user, newest first
func (s *SQLiteStore) ListScreenings(ctx context.Context, userID int64, limit int) ([]model.Screening, error) {
	query := "SELECT id, user_id, verdict, age_parsed, answers, completed_at FROM screenings WHERE user_id = ? ORDER BY completed_at DESC"
	args := []any{userID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing screenings: %w", err)
	}
	defer rows.Close()

	var list []model.Screening
	for rows.Next() {
		sc, err := scanScreening(rows)
		if err != nil {
			return nil, fmt.Errorf("error listing screenings: %w", err)
		}
		list = append(list, *sc)
	}
	return list, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanScreening(row scanner) (*model.Screening, error) {
	var (
		sc          model.Screening
		verdict     string
		answers     string
		completedAt int64
	)
	if err := row.Scan(&sc.ID, &sc.UserID, &verdict, &sc.AgeParsed, &answers, &completedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(answers), &sc.Answers); err != nil {
		return nil, fmt.Errorf("error decoding answers: %w", err)
	}
	sc.Verdict = model.Verdict(verdict)
	sc.CompletedAt = time.Unix(0, completedAt).UTC()
	return &sc, nil
}
