package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/pavelanni/mathpro/internal/llm/prompts"
	"github.com/pavelanni/mathpro/internal/model"
)

// WorksheetSchema asks the provider for the worksheet JSON shape.
var WorksheetSchema = &Schema{
	Name:        "worksheet",
	Description: "A math worksheet with typed questions and answer keys",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"lessonName": map[string]any{"type": "string"},
			"questions": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id":            map[string]any{"type": "integer"},
						"type":          map[string]any{"type": "string", "enum": []any{"multiple_choice", "true_false", "short_answer", "application"}},
						"level":         map[string]any{"type": "string"},
						"question":      map[string]any{"type": "string"},
						"options":       map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "nullable": true},
						"correctAnswer": map[string]any{"type": "string"},
						"explanation":   map[string]any{"type": "string"},
					},
					"required": []any{"id", "type", "level", "question", "correctAnswer", "explanation"},
				},
			},
		},
		"required": []any{"lessonName", "questions"},
	},
}

// Attachment is a file a teacher or student sends along with a request.
type Attachment struct {
	Name     string
	MIMEType string
	Data     []byte
}

// WorksheetRequest describes one worksheet to author.
type WorksheetRequest struct {
	LessonName string
	Grade      string
	Category   model.Category
	Attachment *Attachment
}

// Author turns worksheet and chat requests into provider calls.
type Author struct {
	provider Provider
}

// NewAuthor loads the prompt templates and wraps p.
func NewAuthor(p Provider) (*Author, error) {
	if err := prompts.Load(prompts.Default); err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}
	return &Author{provider: p}, nil
}

// GenerateWorksheet asks the provider for a worksheet and returns the raw
// JSON text. Parsing and validation belong to the caller.
func (a *Author) GenerateWorksheet(ctx context.Context, req WorksheetRequest) (string, error) {
	data := prompts.NewWorksheetData(req.LessonName, req.Grade, req.Category, req.Attachment != nil)
	prompt, err := prompts.BuildWorksheetPrompt(data)
	if err != nil {
		return "", fmt.Errorf("build worksheet prompt: %w", err)
	}

	var parts []Part
	if req.Attachment != nil {
		parts = append(parts, attachmentPart(req.Attachment))
	}
	parts = append(parts, TextPart(prompt))

	slog.Info("generating worksheet",
		"model", a.provider.ModelID(),
		"lesson", req.LessonName,
		"grade", req.Grade,
		"category", req.Category,
		"attachment", req.Attachment != nil,
	)

	resp, err := a.provider.Generate(ctx, Request{
		Parts:       parts,
		Schema:      WorksheetSchema,
		Temperature: 0.4,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// Ask answers a student's free-form question, optionally about an image.
func (a *Author) Ask(ctx context.Context, question string, image *Attachment) (string, error) {
	prompt, err := prompts.BuildChatPrompt(question, image != nil)
	if err != nil {
		return "", fmt.Errorf("build chat prompt: %w", err)
	}

	parts := []Part{TextPart(prompt)}
	if image != nil {
		mime := image.MIMEType
		if mime == "" {
			mime = "image/jpeg"
		}
		parts = append(parts, Part{MIMEType: mime, Data: image.Data})
	}

	resp, err := a.provider.Generate(ctx, Request{
		Parts:       parts,
		Temperature: 0.7,
	})
	if err != nil {
		return "", err
	}
	answer := strings.TrimSpace(resp.Text)
	if answer == "" {
		return "", &ErrInvalidResponse{Err: errors.New("empty answer")}
	}
	return answer, nil
}

// attachmentPart sends PDFs and images inline and embeds HTML or plain
// text as prompt text. Anything else goes inline as a PDF.
func attachmentPart(att *Attachment) Part {
	mime := strings.ToLower(att.MIMEType)
	switch {
	case strings.Contains(mime, "pdf"), strings.HasPrefix(mime, "image/"):
		return Part{MIMEType: att.MIMEType, Data: att.Data}
	case strings.Contains(mime, "html"), strings.Contains(mime, "text"):
		if !utf8.Valid(att.Data) {
			return TextPart("Có file đính kèm nhưng không đọc được nội dung văn bản.")
		}
		return TextPart("NỘI DUNG FILE ĐÍNH KÈM (HTML/TEXT):\n\n" + string(att.Data))
	default:
		return Part{MIMEType: "application/pdf", Data: att.Data}
	}
}
