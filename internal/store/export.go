package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pavelanni/mathpro/internal/model"
)

// ExportLibrary builds an export document with every library entry.
func (s *Store) ExportLibrary(ctx context.Context) (model.LibraryExport, error) {
	entries, err := s.ListWorksheets(ctx, "")
	if err != nil {
		return model.LibraryExport{}, fmt.Errorf("list worksheets: %w", err)
	}

	out := model.LibraryExport{
		ExportedAt: time.Now().UTC(),
		Count:      len(entries),
		Worksheets: make([]model.WorksheetImport, 0, len(entries)),
	}
	for _, e := range entries {
		out.Worksheets = append(out.Worksheets, model.WorksheetImport{
			Name:      e.Name,
			Grade:     e.Grade,
			Category:  string(e.Category),
			Content:   e.Content,
			CreatedAt: e.CreatedAt.UTC(),
		})
	}
	return out, nil
}

// ImportWorksheets inserts worksheets in one transaction. Entries with an
// unknown category or empty content are skipped and logged.
func (s *Store) ImportWorksheets(ctx context.Context, items []model.WorksheetImport, createdBy int64) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	imported := 0
	for i, item := range items {
		category, ok := model.ParseCategory(item.Category)
		if !ok {
			slog.Warn("skipping worksheet with unknown category", "index", i, "name", item.Name, "category", item.Category)
			continue
		}
		if item.Content.Kind() == model.KindEmpty {
			slog.Warn("skipping worksheet with empty content", "index", i, "name", item.Name)
			continue
		}
		name := strings.TrimSpace(item.Name)
		if name == "" {
			name = item.Content.LessonName
		}
		created := item.CreatedAt
		if created.IsZero() {
			created = time.Now()
		}

		content, err := marshalContent(item.Content)
		if err != nil {
			return 0, fmt.Errorf("worksheet %d: %w", i, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO worksheets (name, grade, category, content_json, created_by, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			name, item.Grade, string(category), content, createdBy, created.Unix(),
		)
		if err != nil {
			return 0, fmt.Errorf("insert worksheet %d: %w", i, err)
		}
		imported++
	}
	return imported, tx.Commit()
}
