package views

import (
	"fmt"
	"net/url"

	"github.com/a-h/templ"

	"github.com/pavelanni/mathpro/internal/grading"
	"github.com/pavelanni/mathpro/internal/i18n"
	"github.com/pavelanni/mathpro/internal/model"
	"github.com/pavelanni/mathpro/internal/worksheet"
)

func viewPath(vs worksheet.ViewState, suffix string) string {
	return "/worksheets/" + url.PathEscape(vs.ID) + suffix
}

// WorksheetInputPage is the lesson form that starts AI generation.
func WorksheetInputPage(vs worksheet.ViewState, errMsg string) templ.Component {
	return page(titled("NewWorksheet"), func(h *html) {
		h.raw(`<div class="card"><h1>`)
		h.t("NewWorksheet")
		h.raw(`</h1><p class="muted">`)
		h.text(categoryLabel(h.ctx, vs.Category))
		h.raw(` · `)
		h.td("GradeN", map[string]any{"Grade": vs.Grade})
		h.raw(`</p>`)
		if errMsg != "" {
			h.raw(`<p class="error">`)
			h.text(errMsg)
			h.raw(`</p>`)
		}
		h.rawf(`<form method="post" action="%s" enctype="multipart/form-data">`, h.url(viewPath(vs, "/generate")))
		h.csrfField()
		h.raw(`<p><label>`)
		h.t("LessonName")
		h.raw(`<br><input name="lesson_name" size="50" placeholder="`)
		h.t("LessonNameHint")
		h.raw(`"></label></p><p><label>`)
		h.t("Attachment")
		h.raw(`<br><input type="file" name="attachment" accept=".pdf,.html,.htm,.txt,image/*"></label></p>`)
		h.raw(`<button type="submit" class="primary">`)
		h.t("Generate")
		h.raw(`</button></form></div>`)
		h.postButton(viewPath(vs, "/close"), tr(h.ctx, "Close"), "")
	})
}

// WorksheetPage renders a graded worksheet with its score summary.
func WorksheetPage(vs worksheet.ViewState, canSave bool, notice string) templ.Component {
	return page(fixed(vs.LessonName), func(h *html) {
		h.raw(`<div class="card"><h1>`)
		h.text(vs.LessonName)
		h.raw(`</h1><p class="muted">`)
		h.text(categoryLabel(h.ctx, vs.Category))
		h.raw(` · `)
		h.td("GradeN", map[string]any{"Grade": vs.Grade})
		h.raw(`</p>`)
		if notice != "" {
			h.raw(`<p class="notice">`)
			h.text(notice)
			h.raw(`</p>`)
		}
		summary(h, vs.Summary)
		h.raw(`<p>`)
		h.postButton(viewPath(vs, "/reset"), tr(h.ctx, "Retry"), "")
		h.raw(` `)
		switch {
		case vs.Saved:
			h.raw(`<span class="notice">`)
			h.t("Saved")
			h.raw(`</span> `)
		case canSave:
			h.postButton(viewPath(vs, "/save"), tr(h.ctx, "SaveToLibrary"), "primary")
			h.raw(` `)
		}
		h.postButton(viewPath(vs, "/close"), tr(h.ctx, "Close"), "")
		h.raw(`</p></div>`)

		for i, q := range vs.Questions {
			question(h, vs, i, q)
		}
	})
}

func summary(h *html, s *worksheet.Snapshot) {
	if s == nil {
		return
	}
	h.raw(`<p><strong>`)
	h.td("ScoreLine", map[string]any{
		"Score": i18n.FormatNumber(h.ctx, s.Score),
		"Max":   i18n.FormatNumber(h.ctx, s.MaxScore),
	})
	h.raw(`</strong> · `)
	h.td("CorrectWrong", map[string]any{"Correct": s.Correct, "Wrong": s.Wrong})
	h.raw(` · `)
	h.td("AnsweredOf", map[string]any{"Answered": s.Answered, "Total": s.Total})
	h.raw(`</p>`)
	if s.Completed {
		h.raw(`<p class="notice">`)
		h.t("Completed")
		h.raw(`</p>`)
	}
}

func question(h *html, vs worksheet.ViewState, i int, q worksheet.QuestionView) {
	class := "card"
	switch q.State.Verdict {
	case worksheet.VerdictCorrect:
		class += " correct"
	case worksheet.VerdictWrong:
		class += " wrong"
	}
	qpath := url.PathEscape(string(q.ID))
	h.rawf(`<div class="%s" id="q-%s"><p><strong>`, class, templ.EscapeString(string(q.ID)))
	h.td("QuestionN", map[string]any{"N": i + 1})
	if q.Level != "" {
		h.raw(` (`)
		h.text(q.Level)
		h.raw(`)`)
	}
	// Question text carries MathJax markup.
	h.rawf(`:</strong> %s</p>`, q.Question.Question)

	switch q.Type {
	case model.QuestionMultipleChoice:
		h.raw(`<div class="options">`)
		for j, opt := range q.Options {
			label := model.OptionLabel(j)
			if q.State.Locked {
				cls := ""
				if grading.IsCorrect(label, q.CorrectAnswer, q.Type, q.Options) {
					cls = "correct"
				}
				if q.State.Value == label {
					cls += " chosen"
				}
				h.rawf(`<div class="%s"><strong>%s.</strong> %s</div>`, cls, label, opt)
				continue
			}
			answerForm(h, vs, qpath, label, fmt.Sprintf(`<strong>%s.</strong> %s`, label, opt))
		}
		h.raw(`</div>`)
	case model.QuestionTrueFalse:
		if q.State.Locked {
			h.raw(`<p>`)
			h.t("YourAnswer")
			h.raw(`: <strong>`)
			h.text(q.State.Value)
			h.raw(`</strong></p>`)
		} else {
			for _, id := range []string{"True", "False"} {
				v := tr(h.ctx, id)
				answerForm(h, vs, qpath, v, templ.EscapeString(v))
			}
		}
	default:
		if q.State.Locked {
			h.raw(`<p>`)
			h.t("YourAnswer")
			h.raw(`: <strong>`)
			h.text(q.State.Value)
			h.raw(`</strong></p>`)
		} else {
			h.rawf(`<form method="post" action="%s">`, h.url(viewPath(vs, "/confirm/"+qpath)))
			h.csrfField()
			h.rawf(`<input name="value" value="%s" required autocomplete="off"> `, templ.EscapeString(q.State.Draft))
			h.raw(`<button type="submit" class="primary">`)
			h.t("Confirm")
			h.raw(`</button></form>`)
		}
	}

	switch {
	case q.State.Locked:
		h.raw(`<p>`)
		if q.State.Verdict == worksheet.VerdictCorrect {
			h.t("Correct")
		} else {
			h.t("Wrong")
			h.raw(` · `)
			h.t("CorrectAnswer")
			h.rawf(`: <strong>%s</strong>`, q.CorrectAnswer)
		}
		h.raw(`</p>`)
		explanation(h, q.Explanation)
	case vs.HintsFirst && q.Explanation != "":
		h.raw(`<details><summary>`)
		h.t("Hint")
		h.rawf(`</summary>%s</details>`, q.Explanation)
	}
	h.raw(`</div>`)
}

func answerForm(h *html, vs worksheet.ViewState, qpath, value, label string) {
	h.rawf(`<form method="post" action="%s" class="inline">`, h.url(viewPath(vs, "/answer/"+qpath)))
	h.csrfField()
	h.rawf(`<input type="hidden" name="value" value="%s"><button type="submit">%s</button></form>`, templ.EscapeString(value), label)
}

func explanation(h *html, text string) {
	if text == "" {
		return
	}
	h.raw(`<p class="muted"><em>`)
	h.t("Explanation")
	h.rawf(`:</em> %s</p>`, text)
}

// DocumentPage shows an uploaded worksheet without grading.
func DocumentPage(vs worksheet.ViewState) templ.Component {
	return page(fixed(vs.LessonName), func(h *html) {
		h.raw(`<div class="card"><h1>`)
		h.text(vs.LessonName)
		h.raw(`</h1>`)
		src := h.url(viewPath(vs, "/document"))
		doc := vs.Document
		switch {
		case doc != nil && doc.IsImage():
			h.rawf(`<img src="%s" alt="%s" style="max-width:100%%">`, src, templ.EscapeString(doc.FileName))
		case doc != nil && doc.FileType == "application/pdf":
			h.rawf(`<iframe src="%s" style="width:100%%;height:80vh;border:0"></iframe>`, src)
		default:
			h.raw(`<p class="muted">`)
			h.t("NoPreview")
			h.raw(`</p>`)
		}
		h.rawf(`<p><a href="%s" download>`, src)
		h.t("Download")
		h.raw(`</a></p></div>`)
		h.postButton(viewPath(vs, "/close"), tr(h.ctx, "Close"), "")
	})
}
