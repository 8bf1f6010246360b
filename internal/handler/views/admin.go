package views

import (
	"strconv"

	"github.com/a-h/templ"

	"github.com/pavelanni/mathpro/internal/model"
)

var roles = []model.UserRole{model.UserRoleStudent, model.UserRoleTeacher, model.UserRoleAdmin}

// AdminUsersPage lists accounts and offers a create form.
func AdminUsersPage(users []model.User, grades []string, msg string) templ.Component {
	return page(titled("Users"), func(h *html) {
		h.raw(`<div class="card"><h1>`)
		h.t("Users")
		h.raw(`</h1>`)
		if msg != "" {
			h.raw(`<p class="notice">`)
			h.text(msg)
			h.raw(`</p>`)
		}
		h.raw(`<table><tr><th>`)
		h.t("Username")
		h.raw(`</th><th>`)
		h.t("DisplayName")
		h.raw(`</th><th>`)
		h.t("Role")
		h.raw(`</th><th>`)
		h.t("Grade")
		h.raw(`</th><th></th></tr>`)
		for _, u := range users {
			h.raw(`<tr><td>`)
			h.text(u.Username)
			h.raw(`</td><td>`)
			h.text(u.DisplayName)
			h.raw(`</td><td>`)
			h.t("Role_" + string(u.Role))
			h.raw(`</td><td>`)
			h.text(u.Grade)
			h.raw(`</td><td>`)
			label := "Deactivate"
			if !u.Active {
				label = "Activate"
			}
			h.postButton("/admin/users/"+strconv.FormatInt(u.ID, 10)+"/toggle", tr(h.ctx, label), "")
			h.raw(`</td></tr>`)
		}
		h.raw(`</table></div>`)

		h.raw(`<div class="card"><h2>`)
		h.t("CreateUser")
		h.raw(`</h2>`)
		h.rawf(`<form method="post" action="%s">`, h.url("/admin/users"))
		h.csrfField()
		h.raw(`<p><input name="username" required placeholder="`)
		h.t("Username")
		h.raw(`"> <input name="display_name" placeholder="`)
		h.t("DisplayName")
		h.raw(`"> <input type="password" name="password" required placeholder="`)
		h.t("Password")
		h.raw(`"></p><p><select name="role">`)
		for _, r := range roles {
			h.rawf(`<option value="%s">`, string(r))
			h.t("Role_" + string(r))
			h.raw(`</option>`)
		}
		h.raw(`</select> <select name="grade"><option value=""></option>`)
		for _, g := range grades {
			h.rawf(`<option value="%s">`, templ.EscapeString(g))
			h.text(g)
			h.raw(`</option>`)
		}
		h.raw(`</select></p><button type="submit" class="primary">`)
		h.t("Create")
		h.raw(`</button></form></div>`)
	})
}
