package views

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/pavelanni/mathpro/internal/i18n"
	"github.com/pavelanni/mathpro/internal/model"
)

const mathJaxURL = "https://cdn.jsdelivr.net/npm/mathjax@3/es5/tex-mml-chtml.js"

const styles = `body{font-family:system-ui,sans-serif;margin:0;background:#f8fafc;color:#1e293b}
nav{background:#0f9d86;color:#fff;padding:12px 24px;display:flex;gap:16px;align-items:center}
nav a{color:#fff;text-decoration:none;font-weight:600}nav .spacer{flex:1}
footer{padding:12px 24px;text-align:center}
main{max-width:900px;margin:24px auto;padding:0 16px}
.card{background:#fff;border-radius:16px;padding:20px;margin-bottom:16px;box-shadow:0 1px 3px rgba(0,0,0,.08)}
.inline{display:inline}.error{color:#e11d48}.notice{color:#0f9d86}
.correct{background:#dcfce7}.wrong{background:#ffe4e6}.chosen{outline:2px solid #2563eb}
.options{display:grid;grid-template-columns:1fr 1fr;gap:8px}.muted{color:#64748b}
.folders{display:grid;grid-template-columns:repeat(4,1fr);gap:16px}
button{cursor:pointer;border-radius:10px;border:1px solid #cbd5e1;padding:8px 14px;background:#fff}
button.primary{background:#0f9d86;color:#fff;border-color:#0f9d86}button.danger{background:#e11d48;color:#fff;border-color:#e11d48}
table{width:100%;border-collapse:collapse}td,th{padding:6px;border-bottom:1px solid #e2e8f0;text-align:left}`

// Layout wraps page content with the document shell and navigation.
func Layout(title string, content templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTML(ctx, w)
		h.rawf(`<!DOCTYPE html><html lang="%s"><head>`, i18n.Language(ctx).String())
		h.raw(`<meta charset="UTF-8"><meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.raw(`<title>`)
		h.text(title)
		h.raw(` · `)
		h.t("AppTitle")
		h.raw(`</title><style>` + styles + `</style>`)
		h.rawf(`<script src="%s" async></script></head><body>`, mathJaxURL)

		if u := model.UserFromContext(ctx); u != nil {
			h.raw(`<nav>`)
			h.rawf(`<a href="%s">`, h.url("/"))
			h.t("AppTitle")
			h.raw(`</a>`)
			for _, c := range model.Categories {
				h.rawf(`<a href="%s">`, h.url("/library?category="+string(c)))
				h.text(categoryLabel(ctx, c))
				h.raw(`</a>`)
			}
			h.rawf(`<a href="%s">`, h.url("/chat"))
			h.t("Chat")
			h.raw(`</a>`)
			if u.Role == model.UserRoleAdmin {
				h.rawf(`<a href="%s">`, h.url("/admin/users"))
				h.t("Users")
				h.raw(`</a>`)
			}
			h.raw(`<span class="spacer"></span><span>`)
			h.text(u.DisplayName)
			h.raw(`</span>`)
			h.postButton("/logout", tr(ctx, "Logout"), "")
			h.raw(`</nav>`)
		}

		h.raw(`<main>`)
		h.component(content)
		h.raw(`</main><footer class="muted">`)
		for i, lang := range i18n.Languages() {
			if i > 0 {
				h.raw(` · `)
			}
			h.rawf(`<a href="%s">%s</a>`, h.url("/lang/"+lang), templ.EscapeString(lang))
		}
		h.raw(`</footer></body></html>`)
		return h.err
	})
}

// page builds a full page whose title is resolved at render time.
func page(title func(context.Context) string, body func(h *html)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		content := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
			h := newHTML(ctx, w)
			body(h)
			return h.err
		})
		return Layout(title(ctx), content).Render(ctx, w)
	})
}

func titled(msgID string) func(context.Context) string {
	return func(ctx context.Context) string { return tr(ctx, msgID) }
}

func fixed(title string) func(context.Context) string {
	return func(context.Context) string { return title }
}
