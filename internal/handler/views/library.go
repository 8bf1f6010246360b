package views

import (
	"net/url"
	"strconv"

	"github.com/a-h/templ"

	"github.com/pavelanni/mathpro/internal/i18n"
	"github.com/pavelanni/mathpro/internal/model"
)

func libraryPath(category model.Category, grade string) string {
	q := url.Values{}
	q.Set("category", string(category))
	if grade != "" {
		q.Set("grade", grade)
	}
	return "/library?" + q.Encode()
}

func entryPath(id int64, suffix string) string {
	return "/library/" + strconv.FormatInt(id, 10) + suffix
}

// LibraryFoldersPage shows one folder per grade with its worksheet count.
func LibraryFoldersPage(category model.Category, grades []string, counts map[string]int, canManage bool) templ.Component {
	return page(titled("Library"), func(h *html) {
		h.raw(`<div class="card"><h1>`)
		h.t("Library")
		h.raw(` · `)
		h.text(categoryLabel(h.ctx, category))
		h.raw(`</h1>`)
		if canManage {
			h.rawf(`<p><a href="%s">`, h.url("/library/upload?category="+url.QueryEscape(string(category))))
			h.t("UploadDocument")
			h.rawf(`</a> · <a href="%s">`, h.url("/worksheets/new?category="+url.QueryEscape(string(category))))
			h.t("NewWorksheet")
			h.raw(`</a></p>`)
		}
		h.raw(`</div><div class="folders">`)
		for _, g := range grades {
			h.rawf(`<a class="card" href="%s"><h2>`, h.url(libraryPath(category, g)))
			h.td("GradeN", map[string]any{"Grade": g})
			h.raw(`</h2><p class="muted">`)
			h.tp("WorksheetCount", counts[g])
			h.raw(`</p></a>`)
		}
		h.raw(`</div>`)
	})
}

// LibraryListPage lists the worksheets of one grade, filtered by search.
func LibraryListPage(category model.Category, grade, search string, entries []model.LibraryEntry, canManage bool) templ.Component {
	return page(titled("Library"), func(h *html) {
		h.raw(`<div class="card"><h1>`)
		h.text(categoryLabel(h.ctx, category))
		h.raw(` · `)
		h.td("GradeN", map[string]any{"Grade": grade})
		h.raw(`</h1>`)
		h.rawf(`<form method="get" action="%s">`, h.url("/library"))
		h.rawf(`<input type="hidden" name="category" value="%s"><input type="hidden" name="grade" value="%s">`,
			templ.EscapeString(string(category)), templ.EscapeString(grade))
		h.rawf(`<input name="q" value="%s" placeholder="`, templ.EscapeString(search))
		h.t("Search")
		h.raw(`"> <button type="submit">`)
		h.t("Search")
		h.raw(`</button></form></div>`)

		if len(entries) == 0 {
			h.raw(`<p class="muted">`)
			h.t("LibraryEmpty")
			h.raw(`</p>`)
			return
		}
		h.raw(`<div class="card"><table>`)
		for _, e := range entries {
			h.raw(`<tr><td><a href="`)
			h.raw(h.url(entryPath(e.ID, "/open")))
			h.raw(`">`)
			h.text(e.Name)
			h.raw(`</a></td><td class="muted">`)
			if e.Content.Kind() == model.KindDocument {
				h.t("KindDocument")
			} else {
				h.tp("QuestionCount", len(e.Content.Questions))
			}
			h.raw(`</td><td class="muted">`)
			h.text(i18n.FormatDate(h.ctx, e.CreatedAt))
			h.rawf(`</td><td><a href="%s">`, h.url(entryPath(e.ID, "/download")))
			h.t("Download")
			h.raw(`</a>`)
			if canManage {
				h.rawf(` · <a href="%s">`, h.url(entryPath(e.ID, "/delete")))
				h.t("Delete")
				h.raw(`</a>`)
			}
			h.raw(`</td></tr>`)
		}
		h.raw(`</table></div>`)
	})
}

// UploadPage is the teacher form for storing a document in the library.
func UploadPage(category model.Category, grades []string, errMsg string) templ.Component {
	return page(titled("UploadDocument"), func(h *html) {
		h.raw(`<div class="card"><h1>`)
		h.t("UploadDocument")
		h.raw(`</h1>`)
		if errMsg != "" {
			h.raw(`<p class="error">`)
			h.text(errMsg)
			h.raw(`</p>`)
		}
		h.rawf(`<form method="post" action="%s" enctype="multipart/form-data">`, h.url("/library/upload"))
		h.csrfField()
		h.raw(`<p><label>`)
		h.t("WorksheetName")
		h.raw(`<br><input name="name" size="50"></label></p><p><select name="category">`)
		for _, c := range model.Categories {
			selected := ""
			if c == category {
				selected = " selected"
			}
			h.rawf(`<option value="%s"%s>`, string(c), selected)
			h.text(categoryLabel(h.ctx, c))
			h.raw(`</option>`)
		}
		h.raw(`</select> <select name="grade">`)
		for _, g := range grades {
			h.rawf(`<option value="%s">`, templ.EscapeString(g))
			h.td("GradeN", map[string]any{"Grade": g})
			h.raw(`</option>`)
		}
		h.raw(`</select></p><p><input type="file" name="file" required></p><button type="submit" class="primary">`)
		h.t("Upload")
		h.raw(`</button></form></div>`)
	})
}

// DeleteConfirmPage asks before a library entry is removed.
func DeleteConfirmPage(entry model.LibraryEntry) templ.Component {
	return page(titled("Delete"), func(h *html) {
		h.raw(`<div class="card"><h1>`)
		h.t("Delete")
		h.raw(`</h1><p>`)
		h.td("DeleteConfirm", map[string]any{"Name": entry.Name})
		h.raw(`</p>`)
		h.rawf(`<form method="post" action="%s" class="inline">`, h.url(entryPath(entry.ID, "/delete")))
		h.csrfField()
		h.raw(`<input type="hidden" name="confirm" value="yes"><button type="submit" class="danger">`)
		h.t("Delete")
		h.rawf(`</button></form> <a href="%s">`, h.url(libraryPath(entry.Category, entry.Grade)))
		h.t("Cancel")
		h.raw(`</a></div>`)
	})
}
