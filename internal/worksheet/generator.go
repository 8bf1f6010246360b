package worksheet

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/pavelanni/mathpro/internal/llm"
	"github.com/pavelanni/mathpro/internal/model"
)

// Author produces raw worksheet JSON. *llm.Author implements it.
type Author interface {
	GenerateWorksheet(ctx context.Context, req llm.WorksheetRequest) (string, error)
}

// Generator turns an authoring request into validated worksheet content.
type Generator struct {
	author  Author
	timeout time.Duration
}

// NewGenerator wraps author. A zero timeout leaves the caller's deadline alone.
func NewGenerator(author Author, timeout time.Duration) *Generator {
	return &Generator{author: author, timeout: timeout}
}

// Generate asks the author for a worksheet and parses the result. Every
// failure is returned as a *GenerationError. It is not retried.
func (g *Generator) Generate(ctx context.Context, req llm.WorksheetRequest) (model.Content, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := g.author.GenerateWorksheet(ctx, req)
	if err != nil {
		genErr := classify(ctx, err)
		slog.Warn("worksheet generation failed", "reason", genErr.Reason, "error", err)
		return model.Content{}, genErr
	}

	content, err := ParseGenerated(raw)
	if err != nil {
		slog.Warn("rejected generated worksheet", "error", err, "raw_len", len(raw))
		slog.Debug("rejected worksheet body", "raw", raw)
		return model.Content{}, err
	}
	if content.LessonName == "" {
		content.LessonName = strings.TrimSpace(req.LessonName)
	}

	slog.Info("worksheet generated",
		"lesson", content.LessonName,
		"questions", len(content.Questions),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return content, nil
}

func classify(ctx context.Context, err error) *GenerationError {
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return genErr
	}
	var blocked *llm.ErrBlocked
	switch {
	case errors.As(err, &blocked):
		return &GenerationError{Reason: ReasonBlocked, Err: err}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &GenerationError{Reason: ReasonTimeout, Err: err}
	default:
		var invalid *llm.ErrInvalidResponse
		if errors.As(err, &invalid) {
			return &GenerationError{Reason: ReasonMalformed, Err: err}
		}
		return &GenerationError{Reason: ReasonUnavailable, Err: err}
	}
}
