package views

import "github.com/a-h/templ"

// LoginPage renders the sign-in form with an optional error message.
func LoginPage(errMsg string) templ.Component {
	return page(titled("Login"), func(h *html) {
		h.raw(`<div class="card"><h1>`)
		h.t("AppTitle")
		h.raw(`</h1>`)
		if errMsg != "" {
			h.raw(`<p class="error">`)
			h.text(errMsg)
			h.raw(`</p>`)
		}
		h.rawf(`<form method="post" action="%s">`, h.url("/login"))
		h.csrfField()
		h.raw(`<p><label>`)
		h.t("Username")
		h.raw(`<br><input name="username" autocomplete="username" required></label></p><p><label>`)
		h.t("Password")
		h.raw(`<br><input type="password" name="password" autocomplete="current-password" required></label></p>`)
		h.raw(`<button type="submit" class="primary">`)
		h.t("Login")
		h.raw(`</button></form></div>`)
	})
}
