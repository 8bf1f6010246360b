package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// QuestionType determines how a question is presented and graded.
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionTrueFalse      QuestionType = "true_false"
	QuestionShortAnswer    QuestionType = "short_answer"
	QuestionApplication    QuestionType = "application"
)

// Valid reports whether t is one of the known question types.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionMultipleChoice, QuestionTrueFalse, QuestionShortAnswer, QuestionApplication:
		return true
	}
	return false
}

// FreeText reports whether answers are typed rather than selected.
// short_answer and application share grading behavior.
func (t QuestionType) FreeText() bool {
	return t == QuestionShortAnswer || t == QuestionApplication
}

// QuestionID identifies a question within one worksheet. Generated content
// carries integer ids; stored content may carry strings. Both decode here.
type QuestionID string

// UnmarshalJSON accepts a JSON number or string.
func (id *QuestionID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = QuestionID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("question id must be a number or string: %w", err)
	}
	if i, err := n.Int64(); err == nil {
		*id = QuestionID(strconv.FormatInt(i, 10))
		return nil
	}
	*id = QuestionID(n.String())
	return nil
}

// Question is a single worksheet item.
type Question struct {
	ID            QuestionID   `json:"id"`
	Type          QuestionType `json:"type"`
	Level         string       `json:"level"`
	Question      string       `json:"question"` // markup, rendered as-is
	Options       []string     `json:"options,omitempty"`
	CorrectAnswer string       `json:"correctAnswer"`
	Explanation   string       `json:"explanation"`
}

// OptionLabel returns the letter label (A, B, ...) for the option at index i.
func OptionLabel(i int) string {
	return string(rune('A' + i))
}

// Category classifies a worksheet in the library.
type Category string

const (
	CategoryPractice      Category = "practice"
	CategoryConsolidation Category = "consolidation"
	CategoryEssay         Category = "essay"
)

// Categories lists every category in display order.
var Categories = []Category{CategoryPractice, CategoryConsolidation, CategoryEssay}

// categoryLabels holds the canonical tag first, then legacy labels that
// older library rows were saved with.
var categoryLabels = map[Category][]string{
	CategoryPractice:      {"practice", "Luyện tập", "Toán"},
	CategoryConsolidation: {"consolidation", "Tự luyện", "Củng cố"},
	CategoryEssay:         {"essay", "Tự luận"},
}

// Labels returns the canonical tag and all legacy synonyms for c.
func (c Category) Labels() []string {
	return categoryLabels[c]
}

// Matches reports whether a stored category label belongs to c.
func (c Category) Matches(label string) bool {
	label = strings.TrimSpace(label)
	for _, l := range categoryLabels[c] {
		if strings.EqualFold(l, label) {
			return true
		}
	}
	return false
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// ParseCategory maps a canonical or legacy label to its category.
func ParseCategory(label string) (Category, bool) {
	for _, c := range Categories {
		if c.Matches(label) {
			return c, true
		}
	}
	return "", false
}

// HintsFirst reports whether explanations are offered as hints before a
// question is answered. Other categories reveal them after grading.
func (c Category) HintsFirst() bool {
	return c == CategoryConsolidation
}

// QuestionPlan describes how many questions of each type a generated
// worksheet of a category should contain.
type QuestionPlan struct {
	MultipleChoice int
	TrueFalse      int
	ShortAnswer    int
}

// Total returns the planned question count.
func (p QuestionPlan) Total() int {
	return p.MultipleChoice + p.TrueFalse + p.ShortAnswer
}

// Plan returns the generation plan for c.
func (c Category) Plan() QuestionPlan {
	switch c {
	case CategoryConsolidation:
		return QuestionPlan{MultipleChoice: 8, TrueFalse: 6, ShortAnswer: 6}
	case CategoryEssay:
		return QuestionPlan{ShortAnswer: 10}
	default:
		return QuestionPlan{MultipleChoice: 4, TrueFalse: 3, ShortAnswer: 3}
	}
}

// Source tags how a worksheet's content was authored.
type Source string

const (
	SourceGenerated Source = "ai_generated"
	SourceUploaded  Source = "uploaded_file"
)

// ContentKind is the result of dispatching on a Content value.
type ContentKind int

const (
	KindEmpty ContentKind = iota
	KindStructured
	KindDocument
)

func (k ContentKind) String() string {
	switch k {
	case KindStructured:
		return "structured"
	case KindDocument:
		return "document"
	}
	return "empty"
}

// Content is the persisted worksheet blob. Exactly one shape is meaningful:
// a structured question list, or an uploaded document shown verbatim.
type Content struct {
	Type       Source     `json:"type,omitempty"`
	LessonName string     `json:"lessonName"`
	Questions  []Question `json:"questions,omitempty"`

	FileName string `json:"fileName,omitempty"`
	FileType string `json:"fileType,omitempty"`
	FileSize int64  `json:"fileSize,omitempty"`
	Data     []byte `json:"data,omitempty"`
}

// Kind decides which renderer the content routes to. An uploaded marker
// always wins, so a document is never graded.
func (c Content) Kind() ContentKind {
	switch {
	case c.Type == SourceUploaded:
		return KindDocument
	case len(c.Questions) > 0:
		return KindStructured
	case len(c.Data) > 0:
		return KindDocument
	}
	return KindEmpty
}

// IsImage reports whether an uploaded document is an image.
func (c Content) IsImage() bool {
	return strings.HasPrefix(c.FileType, "image/")
}

// LibraryEntry is the persisted form of a worksheet.
type LibraryEntry struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Grade     string    `json:"grade"`
	Category  Category  `json:"category"`
	Content   Content   `json:"content"`
	CreatedBy int64     `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CategoryCount is how many library entries share a grade and a stored
// category label. Labels may be legacy synonyms.
type CategoryCount struct {
	Grade    string
	Category string
	Count    int
}

// LibraryFilter selects library entries. Empty Grade and Search do not filter.
type LibraryFilter struct {
	Grade    string
	Category Category
	Search   string
}
