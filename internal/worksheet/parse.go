package worksheet

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/pavelanni/mathpro/internal/model"
)

const schemaURL = "schema://generated-worksheet.json"

// generatedSchema is the acceptance boundary for AI output. It is looser than
// the schema sent to the provider: ids may be strings and optional fields may
// be null.
var generatedSchema = map[string]any{
	"type":     "object",
	"required": []any{"questions"},
	"properties": map[string]any{
		"lessonName": map[string]any{"type": []any{"string", "null"}},
		"questions": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []any{"type", "question", "correctAnswer"},
				"properties": map[string]any{
					"id":            map[string]any{"type": []any{"integer", "string", "null"}},
					"type":          map[string]any{"enum": []any{"multiple_choice", "true_false", "short_answer", "application"}},
					"level":         map[string]any{"type": []any{"string", "null"}},
					"question":      map[string]any{"type": "string", "minLength": 1},
					"options":       map[string]any{"type": []any{"array", "null"}, "items": map[string]any{"type": "string"}},
					"correctAnswer": map[string]any{"type": "string"},
					"explanation":   map[string]any{"type": []any{"string", "null"}},
				},
			},
		},
	},
}

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	// The compiler wants values shaped the way its own decoder produces them.
	defBytes, err := json.Marshal(generatedSchema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema definition: %w", err)
	}
	def, err := jsonschema.UnmarshalJSON(bytes.NewReader(defBytes))
	if err != nil {
		return nil, fmt.Errorf("parse schema definition: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, def); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}
	return c.Compile(schemaURL)
})

type generated struct {
	LessonName *string          `json:"lessonName"`
	Questions  []model.Question `json:"questions"`
}

// ParseGenerated converts raw AI output into structured worksheet content.
// Markdown code fences are stripped, the JSON is validated against the
// acceptance schema, and every question must carry a correct answer. Any
// failure is a *GenerationError; no partial content is returned.
func ParseGenerated(raw string) (model.Content, error) {
	text := stripFences(raw)
	if text == "" {
		return model.Content{}, malformed("empty response")
	}

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(text))
	if err != nil {
		return model.Content{}, malformed("invalid JSON: %w", err)
	}

	sch, err := compiledSchema()
	if err != nil {
		return model.Content{}, fmt.Errorf("compile worksheet schema: %w", err)
	}
	if err := sch.Validate(doc); err != nil {
		return model.Content{}, malformed("schema validation failed: %w", err)
	}

	var g generated
	if err := json.Unmarshal([]byte(text), &g); err != nil {
		return model.Content{}, malformed("decode worksheet: %w", err)
	}

	if len(g.Questions) == 0 {
		return model.Content{}, &GenerationError{Reason: ReasonEmpty, Err: ErrNoQuestions}
	}

	for i := range g.Questions {
		q := &g.Questions[i]
		q.CorrectAnswer = strings.TrimSpace(q.CorrectAnswer)
		if q.CorrectAnswer == "" {
			return model.Content{}, malformed("question %d has no correct answer", i+1)
		}
		if q.Type == model.QuestionMultipleChoice && len(q.Options) == 0 {
			return model.Content{}, malformed("multiple choice question %d has no options", i+1)
		}
		if q.Type != model.QuestionMultipleChoice {
			q.Options = nil
		}
	}
	renumber(g.Questions)

	content := model.Content{
		Type:      model.SourceGenerated,
		Questions: g.Questions,
	}
	if g.LessonName != nil {
		content.LessonName = strings.TrimSpace(*g.LessonName)
	}
	return content, nil
}

// stripFences removes markdown code fences around JSON.
func stripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// renumber assigns positional ids when any id is missing or repeated, so
// session tracking never conflates two questions.
func renumber(questions []model.Question) {
	seen := make(map[model.QuestionID]bool, len(questions))
	clean := true
	for _, q := range questions {
		if q.ID == "" || seen[q.ID] {
			clean = false
			break
		}
		seen[q.ID] = true
	}
	if clean {
		return
	}
	for i := range questions {
		questions[i].ID = model.QuestionID(strconv.Itoa(i + 1))
	}
}
