package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pavelanni/mathpro/internal/handler/views"
)

func (h *Handler) handleChatPage(w http.ResponseWriter, r *http.Request) {
	render(w, r, http.StatusOK, views.ChatPage("", "", false))
}

// handleChat forwards a question to the tutor. Any failure is shown as a
// localized apology.
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	question := strings.TrimSpace(r.FormValue("question"))
	if question == "" {
		render(w, r, http.StatusBadRequest, views.ChatPage("", "", false))
		return
	}
	image, err := formAttachment(r, "image")
	if err != nil {
		slog.Warn("failed to read chat image", "error", err)
		image = nil
	}

	ctx := r.Context()
	if h.config.ChatTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.ChatTimeout)
		defer cancel()
	}
	answer, err := h.tutor.Ask(ctx, question, image)
	if err != nil {
		slog.Error("chat failed", "error", err)
		render(w, r, http.StatusOK, views.ChatPage(question, "", true))
		return
	}
	render(w, r, http.StatusOK, views.ChatPage(question, answer, false))
}
