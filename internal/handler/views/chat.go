package views

import "github.com/a-h/templ"

// ChatPage shows the question form and, after a post, the tutor's answer.
func ChatPage(question, answer string, failed bool) templ.Component {
	return page(titled("Chat"), func(h *html) {
		h.raw(`<div class="card"><h1>`)
		h.t("Chat")
		h.raw(`</h1><p class="muted">`)
		h.t("ChatHint")
		h.raw(`</p>`)
		h.rawf(`<form method="post" action="%s" enctype="multipart/form-data">`, h.url("/chat"))
		h.csrfField()
		h.raw(`<p><textarea name="question" rows="4" cols="70" required>`)
		h.text(question)
		h.raw(`</textarea></p><p><input type="file" name="image" accept="image/*"></p><button type="submit" class="primary">`)
		h.t("Ask")
		h.raw(`</button></form></div>`)

		switch {
		case failed:
			h.raw(`<div class="card error">`)
			h.t("ChatApology")
			h.raw(`</div>`)
		case answer != "":
			h.raw(`<div class="card" style="white-space:pre-wrap">`)
			h.text(answer)
			h.raw(`</div>`)
		}
	})
}
