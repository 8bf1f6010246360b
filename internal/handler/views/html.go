// Package views renders the server-side pages as templ components.
package views

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"github.com/pavelanni/mathpro/internal/i18n"
	"github.com/pavelanni/mathpro/internal/model"
)

// html accumulates output and keeps the first write error.
type html struct {
	ctx context.Context
	w   io.Writer
	err error
}

func newHTML(ctx context.Context, w io.Writer) *html {
	return &html{ctx: ctx, w: w}
}

// raw writes trusted markup.
func (h *html) raw(s string) {
	if h.err != nil {
		return
	}
	_, h.err = io.WriteString(h.w, s)
}

// rawf formats trusted markup. Arguments are not escaped.
func (h *html) rawf(format string, args ...any) {
	if h.err != nil {
		return
	}
	_, h.err = fmt.Fprintf(h.w, format, args...)
}

// text writes escaped text.
func (h *html) text(s string) {
	h.raw(templ.EscapeString(s))
}

// t writes an escaped translation.
func (h *html) t(msgID string) {
	h.text(i18n.T(h.ctx, msgID))
}

func (h *html) td(msgID string, data map[string]any) {
	h.text(i18n.Td(h.ctx, msgID, data))
}

func (h *html) tp(msgID string, count int) {
	h.text(i18n.Tp(h.ctx, msgID, count))
}

// url returns an escaped, base-path prefixed URL.
func (h *html) url(path string) string {
	return templ.EscapeString(model.BasePathFromContext(h.ctx) + path)
}

func (h *html) csrfField() {
	h.rawf(`<input type="hidden" name="csrf_token" value="%s">`, templ.EscapeString(model.CSRFTokenFromContext(h.ctx)))
}

// postButton renders a one-button form.
func (h *html) postButton(action, label, class string) {
	h.rawf(`<form method="post" action="%s" class="inline">`, h.url(action))
	h.csrfField()
	h.rawf(`<button type="submit" class="%s">`, class)
	h.text(label)
	h.raw(`</button></form>`)
}

func (h *html) component(c templ.Component) {
	if h.err != nil {
		return
	}
	h.err = c.Render(h.ctx, h.w)
}

func categoryLabel(ctx context.Context, c model.Category) string {
	return i18n.T(ctx, "Category_"+string(c))
}

func tr(ctx context.Context, msgID string) string {
	return i18n.T(ctx, msgID)
}
