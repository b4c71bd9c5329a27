// internal/storage/sqlite.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"mcp-nutrition-log/internal/models"
)

var ErrNotFound = errors.New("log entry not found")

// Filter narrows ListEntries. Dates are inclusive YYYY-MM-DD strings; empty
// fields are ignored. Limit <= 0 means no limit.
type Filter struct {
	Date      string
	StartDate string
	EndDate   string
	Limit     int
}

type SQLiteStorage struct {
	db *sql.DB
}

func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	storage := &SQLiteStorage{db: db}
	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// NewWithDB wraps an existing handle. The schema is assumed to exist.
func NewWithDB(db *sql.DB) *SQLiteStorage {
	return &SQLiteStorage{db: db}
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS food_logs (
        id TEXT PRIMARY KEY,
        food TEXT NOT NULL,
        quantity TEXT NOT NULL,
        meal TEXT NOT NULL,
        date TEXT NOT NULL,
        created_at TEXT NOT NULL
    );

    CREATE INDEX IF NOT EXISTS idx_food_logs_date ON food_logs(date);

    CREATE TABLE IF NOT EXISTS symptom_logs (
        id TEXT PRIMARY KEY,
        symptom TEXT NOT NULL,
        severity TEXT NOT NULL,
        notes TEXT NOT NULL DEFAULT '',
        date TEXT NOT NULL,
        created_at TEXT NOT NULL
    );

    CREATE INDEX IF NOT EXISTS idx_symptom_logs_date ON symptom_logs(date);
    `

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

func (s *SQLiteStorage) SaveEntry(ctx context.Context, entry *models.FoodLogEntry) error {
	query := `
        INSERT INTO food_logs (id, food, quantity, meal, date, created_at)
        VALUES (?, ?, ?, ?, ?, ?)
    `
	_, err := s.db.ExecContext(ctx, query,
		entry.ID, entry.Food, entry.Quantity, string(entry.Meal),
		entry.Day(), entry.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to insert food log: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) UpdateEntry(ctx context.Context, entry *models.FoodLogEntry) error {
	query := `
        UPDATE food_logs SET food = ?, quantity = ?, meal = ?, date = ?
        WHERE id = ?
    `
	res, err := s.db.ExecContext(ctx, query,
		entry.Food, entry.Quantity, string(entry.Meal), entry.Day(), entry.ID)
	if err != nil {
		return fmt.Errorf("failed to update food log: %w", err)
	}
	return expectOneRow(res, entry.ID)
}

func (s *SQLiteStorage) DeleteEntry(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM food_logs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete food log: %w", err)
	}
	return expectOneRow(res, id)
}

func expectOneRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (s *SQLiteStorage) GetEntry(ctx context.Context, id string) (*models.FoodLogEntry, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT id, food, quantity, meal, date, created_at
        FROM food_logs
        WHERE id = ?
    `, id)

	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *SQLiteStorage) ListEntries(ctx context.Context, f Filter) ([]models.FoodLogEntry, error) {
	query := `
        SELECT id, food, quantity, meal, date, created_at
        FROM food_logs
        WHERE 1=1
    `
	args := []interface{}{}

	if f.Date != "" {
		query += " AND date = ?"
		args = append(args, f.Date)
	}
	if f.StartDate != "" {
		query += " AND date >= ?"
		args = append(args, f.StartDate)
	}
	if f.EndDate != "" {
		query += " AND date <= ?"
		args = append(args, f.EndDate)
	}

	query += " ORDER BY date DESC, created_at DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query food logs: %w", err)
	}
	defer rows.Close()

	entries := []models.FoodLogEntry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate food logs: %w", err)
	}

	return entries, nil
}

// EntriesForDate returns every entry logged on day's calendar date.
func (s *SQLiteStorage) EntriesForDate(ctx context.Context, day time.Time) ([]models.FoodLogEntry, error) {
	return s.ListEntries(ctx, Filter{Date: day.Format(models.DateLayout)})
}

// LogDates returns each distinct date with at least one entry, newest first.
func (s *SQLiteStorage) LogDates(ctx context.Context) ([]time.Time, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT date FROM food_logs ORDER BY date DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query log dates: %w", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan log date: %w", err)
		}
		d, err := time.Parse(models.DateLayout, raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse log date %q: %w", raw, err)
		}
		dates = append(dates, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate log dates: %w", err)
	}

	return dates, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row scanner) (*models.FoodLogEntry, error) {
	entry := &models.FoodLogEntry{}
	var meal, dateStr, createdAtStr string

	err := row.Scan(&entry.ID, &entry.Food, &entry.Quantity, &meal, &dateStr, &createdAtStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan food log: %w", err)
	}

	if entry.Date, err = time.Parse(models.DateLayout, dateStr); err != nil {
		return nil, fmt.Errorf("failed to parse date: %w", err)
	}
	if entry.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAtStr); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	entry.Meal = models.MealSlot(meal)

	return entry, nil
}
