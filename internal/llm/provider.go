// Package llm talks to generative AI services that author worksheets and
// answer students' chat questions.
package llm

import (
	"context"
)

// Provider is a single AI backend.
type Provider interface {
	// Generate sends one request and returns the model's text output.
	Generate(ctx context.Context, req Request) (*Response, error)

	// Ping checks that the backend is reachable with the configured model.
	Ping(ctx context.Context) error

	// ModelID returns the model identifier this provider is configured to use.
	ModelID() string
}

// Request describes one single-turn generation.
type Request struct {
	// System sets the model's role and constraints.
	System string

	// Parts is the user turn. Text and inline binary parts keep their order.
	Parts []Part

	// Schema, when set, asks the provider for JSON output shaped like it.
	// Providers do not validate the response; callers own that boundary.
	Schema *Schema

	MaxTokens   int
	Temperature float64
}

// Part is one piece of the user turn: either Text or inline Data.
type Part struct {
	Text     string
	MIMEType string
	Data     []byte
}

// TextPart returns a text-only part.
func TextPart(s string) Part { return Part{Text: s} }

// IsInline reports whether p carries binary data.
func (p Part) IsInline() bool { return len(p.Data) > 0 }

// Schema defines the JSON structure expected from the model.
type Schema struct {
	Name        string
	Description string
	Definition  map[string]any
}

// Response holds the model's output.
type Response struct {
	Text       string
	Model      string
	StopReason string
}
