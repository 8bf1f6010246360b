package library

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/pavelanni/mathpro/internal/i18n"
	"github.com/pavelanni/mathpro/internal/model"
)

const mathJaxURL = "https://cdn.jsdelivr.net/npm/mathjax@3/es5/tex-mml-chtml.js"

// Document is a downloadable export.
type Document struct {
	FileName    string
	ContentType string
	Data        []byte
}

// Export renders an entry for download. Uploaded documents come back as
// stored; structured worksheets become a self-contained HTML file with the
// exam followed by the answer key.
func (g *Gateway) Export(ctx context.Context, entry model.LibraryEntry) (*Document, error) {
	switch entry.Content.Kind() {
	case model.KindDocument:
		name := entry.Content.FileName
		if name == "" {
			name = entry.Name
		}
		ct := entry.Content.FileType
		if ct == "" {
			ct = "application/octet-stream"
		}
		return &Document{FileName: name, ContentType: ct, Data: entry.Content.Data}, nil
	case model.KindStructured:
		var buf bytes.Buffer
		if err := WorksheetHTML(entry).Render(ctx, &buf); err != nil {
			return nil, fmt.Errorf("render worksheet %d: %w", entry.ID, err)
		}
		return &Document{
			FileName:    entry.Name + ".html",
			ContentType: "text/html; charset=utf-8",
			Data:        buf.Bytes(),
		}, nil
	}
	return nil, fmt.Errorf("export worksheet %d: %w: content is empty", entry.ID, ErrInvalidEntry)
}

// WorksheetHTML renders a printable worksheet. Question text is emitted as
// markup so MathJax can typeset it.
func WorksheetHTML(entry model.LibraryEntry) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		title := entry.Content.LessonName
		if title == "" {
			title = entry.Name
		}
		ew := &errWriter{w: w}

		ew.printf(`<!DOCTYPE html><html lang="vi"><head><meta charset="UTF-8"><title>%s</title>`, templ.EscapeString(entry.Name))
		ew.printf(`<script src="%s"></script>`, mathJaxURL)
		ew.print(`<style>body{font-family:'Times New Roman',serif;line-height:1.5;padding:40px;max-width:800px;margin:0 auto}` +
			`h1{text-align:center;color:#2563eb}.header-info{text-align:center;margin-bottom:30px;font-style:italic;color:#555}` +
			`.section-title{border-bottom:2px solid #2563eb;padding-bottom:5px;margin-top:40px;margin-bottom:20px;color:#2563eb}` +
			`.options{margin-left:20px;display:grid;grid-template-columns:1fr 1fr;gap:10px}.question{margin-bottom:20px;page-break-inside:avoid}` +
			`.explanation{color:#666}</style></head><body>`)

		ew.printf(`<h1>%s</h1>`, templ.EscapeString(title))
		ew.printf(`<div class="header-info">%s - %s<br/>%s</div>`,
			templ.EscapeString(i18n.T(ctx, "Category_"+string(entry.Category))),
			templ.EscapeString(i18n.Td(ctx, "GradeN", map[string]any{"Grade": entry.Grade})),
			templ.EscapeString(i18n.Td(ctx, "CreatedOn", map[string]any{"Date": i18n.FormatDate(ctx, entry.CreatedAt)})))

		ew.printf(`<h2 class="section-title">%s</h2>`, templ.EscapeString(i18n.T(ctx, "ExportExamHeading")))
		for i, q := range entry.Content.Questions {
			ew.print(`<div class="question"><p><strong>`)
			ew.print(templ.EscapeString(i18n.Td(ctx, "QuestionN", map[string]any{"N": i + 1})))
			if q.Level != "" {
				ew.printf(" (%s)", templ.EscapeString(q.Level))
			}
			ew.printf(`:</strong> %s</p>`, q.Question)
			switch q.Type {
			case model.QuestionMultipleChoice:
				ew.print(`<div class="options">`)
				for j, opt := range q.Options {
					ew.printf(`<div><strong>%s.</strong> %s</div>`, model.OptionLabel(j), opt)
				}
				ew.print(`</div>`)
			case model.QuestionTrueFalse:
				ew.printf(`<div style="margin-left:20px">[ %s ] / [ %s ]</div>`,
					templ.EscapeString(i18n.T(ctx, "True")), templ.EscapeString(i18n.T(ctx, "False")))
			}
			ew.print(`</div>`)
		}

		ew.print(`<div style="page-break-before:always"></div>`)
		ew.printf(`<h2 class="section-title">%s</h2>`, templ.EscapeString(i18n.T(ctx, "ExportAnswerHeading")))
		for i, q := range entry.Content.Questions {
			ew.printf(`<p><strong>%s:</strong> %s`,
				templ.EscapeString(i18n.Td(ctx, "QuestionN", map[string]any{"N": i + 1})), q.CorrectAnswer)
			if strings.TrimSpace(q.Explanation) != "" {
				ew.printf(`<br/><i class="explanation">%s: %s</i>`,
					templ.EscapeString(i18n.T(ctx, "Explanation")), q.Explanation)
			}
			ew.print(`</p>`)
		}
		ew.print(`</body></html>`)
		return ew.err
	})
}

// errWriter keeps the first write error so rendering code stays linear.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) print(s string) {
	if e.err != nil {
		return
	}
	_, e.err = io.WriteString(e.w, s)
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
