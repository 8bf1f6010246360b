// Package library is the worksheet library: saving, listing, uploading,
// deleting and exporting worksheets over the store.
package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/pavelanni/mathpro/internal/model"
)

// DefaultTimeout bounds every store call made by a Gateway.
const DefaultTimeout = 10 * time.Second

// Store is the persistence a Gateway needs. *store.Store implements it.
type Store interface {
	InsertWorksheet(ctx context.Context, e model.LibraryEntry) (int64, error)
	GetWorksheet(ctx context.Context, id int64) (*model.LibraryEntry, error)
	ListWorksheets(ctx context.Context, grade string) ([]model.LibraryEntry, error)
	DeleteWorksheet(ctx context.Context, id int64) (bool, error)
	CountWorksheets(ctx context.Context) ([]model.CategoryCount, error)
}

// Gateway mediates all library access.
type Gateway struct {
	store   Store
	timeout time.Duration
}

// New creates a Gateway. A zero timeout means DefaultTimeout.
func New(s Store, timeout time.Duration) *Gateway {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Gateway{store: s, timeout: timeout}
}

// UploadRequest is a teacher-supplied document stored without grading.
type UploadRequest struct {
	Name      string
	Grade     string
	Category  model.Category
	FileName  string
	FileType  string
	Data      []byte
	CreatedBy int64
}

// Save stores an entry and returns its id.
func (g *Gateway) Save(ctx context.Context, entry model.LibraryEntry) (int64, error) {
	entry.Name = strings.TrimSpace(entry.Name)
	if err := validate(entry); err != nil {
		return 0, err
	}
	var id int64
	err := g.call(ctx, "save", func(ctx context.Context) error {
		var err error
		id, err = g.store.InsertWorksheet(ctx, entry)
		return err
	})
	if err != nil {
		return 0, err
	}
	slog.Info("worksheet stored", "id", id, "name", entry.Name, "grade", entry.Grade, "category", entry.Category, "kind", entry.Content.Kind())
	return id, nil
}

// Upload stores a document as-is. The name defaults to the file name
// without its extension.
func (g *Gateway) Upload(ctx context.Context, req UploadRequest) (int64, error) {
	if len(req.Data) == 0 {
		return 0, fmt.Errorf("%w: empty file", ErrInvalidEntry)
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = strings.TrimSuffix(req.FileName, path.Ext(req.FileName))
	}
	fileType := req.FileType
	if fileType == "" {
		fileType = "application/octet-stream"
	}
	return g.Save(ctx, model.LibraryEntry{
		Name:     name,
		Grade:    req.Grade,
		Category: req.Category,
		Content: model.Content{
			Type:       model.SourceUploaded,
			LessonName: name,
			FileName:   req.FileName,
			FileType:   fileType,
			FileSize:   int64(len(req.Data)),
			Data:       req.Data,
		},
		CreatedBy: req.CreatedBy,
	})
}

// List returns entries matching f, newest first. Category matching accepts
// legacy labels; Search is a case-insensitive substring of the name.
func (g *Gateway) List(ctx context.Context, f model.LibraryFilter) ([]model.LibraryEntry, error) {
	var entries []model.LibraryEntry
	err := g.call(ctx, "list", func(ctx context.Context) error {
		var err error
		entries, err = g.store.ListWorksheets(ctx, f.Grade)
		return err
	})
	if err != nil {
		return nil, err
	}

	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := entries[:0]
	for _, e := range entries {
		if f.Category != "" && !f.Category.Matches(string(e.Category)) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(e.Name), search) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Get returns one entry or ErrNotFound.
func (g *Gateway) Get(ctx context.Context, id int64) (*model.LibraryEntry, error) {
	var entry *model.LibraryEntry
	err := g.call(ctx, "get", func(ctx context.Context) error {
		var err error
		entry, err = g.store.GetWorksheet(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("worksheet %d: %w", id, ErrNotFound)
	}
	return entry, nil
}

// Delete removes an entry. Nothing is deleted unless confirmed is true.
func (g *Gateway) Delete(ctx context.Context, id int64, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}
	var deleted bool
	err := g.call(ctx, "delete", func(ctx context.Context) error {
		var err error
		deleted, err = g.store.DeleteWorksheet(ctx, id)
		return err
	})
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("worksheet %d: %w", id, ErrNotFound)
	}
	slog.Info("worksheet deleted", "id", id)
	return nil
}

// CountByGrade returns how many entries of a category each grade holds.
// Every grade in grades is present in the result, possibly with zero.
func (g *Gateway) CountByGrade(ctx context.Context, category model.Category, grades []string) (map[string]int, error) {
	var rows []model.CategoryCount
	err := g.call(ctx, "count", func(ctx context.Context) error {
		var err error
		rows, err = g.store.CountWorksheets(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(grades))
	for _, grade := range grades {
		counts[grade] = 0
	}
	for _, r := range rows {
		if _, ok := counts[r.Grade]; ok && (category == "" || category.Matches(r.Category)) {
			counts[r.Grade] += r.Count
		}
	}
	return counts, nil
}

func (g *Gateway) call(ctx context.Context, op string, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn(ctx) }()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		err = ErrTimeout
	}
	slog.Error("library operation failed", "op", op, "error", err)
	return &PersistenceError{Op: op, Err: err}
}

func validate(e model.LibraryEntry) error {
	switch {
	case e.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidEntry)
	case e.Grade == "":
		return fmt.Errorf("%w: grade is required", ErrInvalidEntry)
	case !e.Category.Valid():
		return fmt.Errorf("%w: unknown category %q", ErrInvalidEntry, e.Category)
	case e.Content.Kind() == model.KindEmpty:
		return fmt.Errorf("%w: content is empty", ErrInvalidEntry)
	}
	return nil
}
