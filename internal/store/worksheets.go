package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pavelanni/mathpro/internal/model"
)

const worksheetColumns = `id, name, grade, category, content_json, created_by, created_at`

// InsertWorksheet stores a library entry and returns its id. A zero
// CreatedAt is set to now.
func (s *Store) InsertWorksheet(ctx context.Context, e model.LibraryEntry) (int64, error) {
	content, err := marshalContent(e.Content)
	if err != nil {
		return 0, err
	}
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	var id int64
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO worksheets (name, grade, category, content_json, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		e.Name, e.Grade, string(e.Category), content, e.CreatedBy, created.Unix(),
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// GetWorksheet returns a library entry by id, or nil if it does not exist.
func (s *Store) GetWorksheet(ctx context.Context, id int64) (*model.LibraryEntry, error) {
	e, err := scanWorksheet(s.db.QueryRowContext(ctx,
		`SELECT `+worksheetColumns+` FROM worksheets WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

// ListWorksheets returns entries newest first. An empty grade lists all.
func (s *Store) ListWorksheets(ctx context.Context, grade string) ([]model.LibraryEntry, error) {
	query := `SELECT ` + worksheetColumns + ` FROM worksheets`
	var args []any
	if grade != "" {
		query += ` WHERE grade = $1`
		args = append(args, grade)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []model.LibraryEntry
	for rows.Next() {
		e, err := scanWorksheet(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// DeleteWorksheet removes an entry. It reports whether a row was deleted.
func (s *Store) DeleteWorksheet(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM worksheets WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CountWorksheets returns entry counts grouped by grade and stored category
// label, without loading any content.
func (s *Store) CountWorksheets(ctx context.Context) ([]model.CategoryCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT grade, category, COUNT(*) FROM worksheets GROUP BY grade, category ORDER BY grade, category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var counts []model.CategoryCount
	for rows.Next() {
		var c model.CategoryCount
		if err := rows.Scan(&c.Grade, &c.Category, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

func scanWorksheet(row rowScanner) (*model.LibraryEntry, error) {
	var e model.LibraryEntry
	var category, content string
	var created int64
	if err := row.Scan(&e.ID, &e.Name, &e.Grade, &category, &content, &e.CreatedBy, &created); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(content), &e.Content); err != nil {
		return nil, fmt.Errorf("decode content of worksheet %d: %w", e.ID, err)
	}
	// Older rows carry legacy labels such as "Củng cố".
	if c, ok := model.ParseCategory(category); ok {
		e.Category = c
	} else {
		e.Category = model.Category(category)
	}
	e.CreatedAt = time.Unix(created, 0)
	return &e, nil
}

func marshalContent(c model.Content) (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode content: %w", err)
	}
	return string(b), nil
}
