// Package prompts renders the AI prompts from text templates.
package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"

	"github.com/pavelanni/mathpro/internal/model"
)

//go:embed templates/*.txt
var embedded embed.FS

// Default is the embedded template set.
var Default fs.FS = embedded

const maxQuestionRunes = 4000

var (
	studentQuestionRegex    = regexp.MustCompile(`(?i)</?\s*student-question\b[^>]*>`)
	systemInstructionsRegex = regexp.MustCompile(`(?i)</?\s*system-instructions\b[^>]*>`)
)

var (
	loadOnce          sync.Once
	loadErr           error
	worksheetTemplate *template.Template
	chatTemplate      *template.Template
)

// WorksheetData holds template data for worksheet generation prompts.
type WorksheetData struct {
	LessonName     string
	Grade          string
	CategoryLabel  string
	Plan           model.QuestionPlan
	Total          int
	Essay          bool
	FromAttachment bool
}

// NewWorksheetData fills template data for one generation request.
func NewWorksheetData(lessonName, grade string, category model.Category, fromAttachment bool) WorksheetData {
	plan := category.Plan()
	label := string(category)
	if labels := category.Labels(); len(labels) > 1 {
		label = labels[1]
	}
	return WorksheetData{
		LessonName:     sanitize(lessonName),
		Grade:          strings.TrimSpace(grade),
		CategoryLabel:  label,
		Plan:           plan,
		Total:          plan.Total(),
		Essay:          category == model.CategoryEssay,
		FromAttachment: fromAttachment,
	}
}

// ChatData holds template data for chat prompts.
type ChatData struct {
	Question string
	HasImage bool
}

// Load parses prompt templates from fsys.
// It uses sync.Once to ensure templates are loaded only once.
func Load(fsys fs.FS) error {
	loadOnce.Do(func() {
		worksheetTemplate, loadErr = parse(fsys, "templates/worksheet.txt")
		if loadErr != nil {
			return
		}
		chatTemplate, loadErr = parse(fsys, "templates/chat.txt")
	})
	return loadErr
}

func parse(fsys fs.FS, name string) (*template.Template, error) {
	content, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read prompt file %s: %w", name, err)
	}
	tmpl, err := template.New(name).Option("missingkey=error").Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("parse prompt template %s: %w", name, err)
	}
	return tmpl, nil
}

// BuildWorksheetPrompt renders the worksheet generation prompt.
func BuildWorksheetPrompt(data WorksheetData) (string, error) {
	if worksheetTemplate == nil {
		return "", notLoaded()
	}
	var buf bytes.Buffer
	if err := worksheetTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// BuildChatPrompt renders the chat prompt around a student's question.
func BuildChatPrompt(question string, hasImage bool) (string, error) {
	if chatTemplate == nil {
		return "", notLoaded()
	}
	var buf bytes.Buffer
	data := ChatData{Question: sanitize(question), HasImage: hasImage}
	if err := chatTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func notLoaded() error {
	if loadErr != nil {
		return fmt.Errorf("templates load failed: %w", loadErr)
	}
	return errors.New("templates not initialized: call Load first")
}

// sanitize strips delimiter tags a student could use to escape the
// question block and caps the length.
func sanitize(s string) string {
	s = studentQuestionRegex.ReplaceAllString(s, "")
	s = systemInstructionsRegex.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)

	if utf8.RuneCountInString(s) > maxQuestionRunes {
		runes := []rune(s)
		s = string(runes[:maxQuestionRunes]) + "\n\n[...]"
	}
	return s
}
