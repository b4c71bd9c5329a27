// internal/storage/symptoms.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"mcp-nutrition-log/internal/models"
)

const symptomColumns = `id, symptom, severity, notes, date, created_at`

func (s *SQLiteStorage) SaveSymptom(ctx context.Context, entry *models.SymptomLogEntry) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO symptom_logs (id, symptom, severity, notes, date, created_at)
        VALUES (?, ?, ?, ?, ?, ?)
    `, entry.ID, entry.Symptom, string(entry.Severity), entry.Notes,
		entry.Day(), entry.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to insert symptom log: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) UpdateSymptom(ctx context.Context, entry *models.SymptomLogEntry) error {
	res, err := s.db.ExecContext(ctx, `
        UPDATE symptom_logs SET symptom = ?, severity = ?, notes = ?, date = ?
        WHERE id = ?
    `, entry.Symptom, string(entry.Severity), entry.Notes, entry.Day(), entry.ID)
	if err != nil {
		return fmt.Errorf("failed to update symptom log: %w", err)
	}
	return expectOneRow(res, entry.ID)
}

func (s *SQLiteStorage) DeleteSymptom(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM symptom_logs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete symptom log: %w", err)
	}
	return expectOneRow(res, id)
}

func (s *SQLiteStorage) GetSymptom(ctx context.Context, id string) (*models.SymptomLogEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+symptomColumns+` FROM symptom_logs WHERE id = ?`, id)

	entry, err := scanSymptom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// ListSymptoms applies the same filter semantics as ListEntries.
func (s *SQLiteStorage) ListSymptoms(ctx context.Context, f Filter) ([]models.SymptomLogEntry, error) {
	query := `SELECT ` + symptomColumns + ` FROM symptom_logs WHERE 1=1`
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
		return nil, fmt.Errorf("failed to query symptom logs: %w", err)
	}
	defer rows.Close()

	entries := []models.SymptomLogEntry{}
	for rows.Next() {
		entry, err := scanSymptom(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate symptom logs: %w", err)
	}

	return entries, nil
}

func scanSymptom(row scanner) (*models.SymptomLogEntry, error) {
	entry := &models.SymptomLogEntry{}
	var severity, dateStr, createdAtStr string

	err := row.Scan(&entry.ID, &entry.Symptom, &severity, &entry.Notes, &dateStr, &createdAtStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan symptom log: %w", err)
	}

	if entry.Date, err = time.Parse(models.DateLayout, dateStr); err != nil {
		return nil, fmt.Errorf("failed to parse date: %w", err)
	}
	if entry.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAtStr); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	entry.Severity = models.Severity(severity)

	return entry, nil
}
