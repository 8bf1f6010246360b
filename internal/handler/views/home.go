package views

import (
	"github.com/a-h/templ"

	"github.com/pavelanni/mathpro/internal/model"
)

// IndexPage is the landing page: start a worksheet, browse the library or
// ask the tutor.
func IndexPage(user *model.User, grades []string) templ.Component {
	return page(titled("Home"), func(h *html) {
		h.raw(`<div class="card"><h1>`)
		h.td("Welcome", map[string]any{"Name": user.DisplayName})
		h.raw(`</h1><p class="muted">`)
		h.t("WelcomeHint")
		h.raw(`</p></div>`)

		h.raw(`<div class="card"><h2>`)
		h.t("NewWorksheet")
		h.raw(`</h2>`)
		h.rawf(`<form method="get" action="%s">`, h.url("/worksheets/new"))
		h.raw(`<p><label>`)
		h.t("Category")
		h.raw(` <select name="category">`)
		for _, c := range model.Categories {
			h.rawf(`<option value="%s">`, string(c))
			h.text(categoryLabel(h.ctx, c))
			h.raw(`</option>`)
		}
		h.raw(`</select></label> <label>`)
		h.t("Grade")
		h.raw(` <select name="grade">`)
		for _, g := range grades {
			selected := ""
			if g == user.Grade {
				selected = " selected"
			}
			h.rawf(`<option value="%s"%s>`, templ.EscapeString(g), selected)
			h.text(g)
			h.raw(`</option>`)
		}
		h.raw(`</select></label></p><button type="submit" class="primary">`)
		h.t("Start")
		h.raw(`</button></form></div>`)

		h.raw(`<div class="card"><h2>`)
		h.t("Library")
		h.raw(`</h2><ul>`)
		for _, c := range model.Categories {
			h.rawf(`<li><a href="%s">`, h.url("/library?category="+string(c)))
			h.text(categoryLabel(h.ctx, c))
			h.raw(`</a></li>`)
		}
		h.raw(`</ul></div>`)
	})
}
