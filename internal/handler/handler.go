package handler

import (
	"context"
	"log/slog"
	"net/http"
	"slices"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/mathpro/internal/handler/views"
	appI18n "github.com/pavelanni/mathpro/internal/i18n"
	"github.com/pavelanni/mathpro/internal/library"
	"github.com/pavelanni/mathpro/internal/llm"
	"github.com/pavelanni/mathpro/internal/model"
	"github.com/pavelanni/mathpro/internal/store"
	"github.com/pavelanni/mathpro/internal/worksheet"
)

// Tutor answers free-form student questions. *llm.Author implements it.
type Tutor interface {
	Ask(ctx context.Context, question string, image *llm.Attachment) (string, error)
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store   *store.Store
	library *library.Gateway
	driver  *worksheet.Driver
	tutor   Tutor
	config  model.AppConfig
}

// New creates a new Handler.
func New(s *store.Store, lib *library.Gateway, d *worksheet.Driver, tutor Tutor, cfg model.AppConfig) (*Handler, error) {
	if len(cfg.Grades) == 0 {
		cfg.Grades = []string{"6", "7", "8", "9"}
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 20 << 20
	}
	return &Handler{store: s, library: lib, driver: d, tutor: tutor, config: cfg}, nil
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api", h.apiRoutes)

	r.Group(func(r chi.Router) {
		r.Use(h.limitBody)
		r.Use(h.csrfMiddleware)

		r.Get("/lang/{lang}", h.handleSetLanguage)
		r.Get("/login", h.handleLoginPage)
		r.Post("/login", h.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)

			r.Post("/logout", h.handleLogout)
			r.Get("/", h.handleIndex)

			r.Get("/worksheets/new", h.handleNewWorksheet)
			r.Get("/worksheets/{viewID}", h.handleWorksheetPage)
			r.Get("/worksheets/{viewID}/document", h.handleDocument)
			r.Post("/worksheets/{viewID}/generate", h.handleGenerate)
			r.Post("/worksheets/{viewID}/answer/{questionID}", h.handleAnswer)
			r.Post("/worksheets/{viewID}/confirm/{questionID}", h.handleConfirm)
			r.Post("/worksheets/{viewID}/reset", h.handleReset)
			r.Post("/worksheets/{viewID}/close", h.handleClose)

			r.Get("/library", h.handleLibrary)
			r.Get("/library/{entryID}/open", h.handleOpenEntry)
			r.Get("/library/{entryID}/download", h.handleDownload)

			r.Get("/chat", h.handleChatPage)
			r.Post("/chat", h.handleChat)

			r.Group(func(r chi.Router) {
				r.Use(requireRole(model.UserRoleTeacher, model.UserRoleAdmin))
				r.Post("/worksheets/{viewID}/save", h.handleSave)
				r.Get("/library/upload", h.handleUploadPage)
				r.Post("/library/upload", h.handleUpload)
				r.Get("/library/{entryID}/delete", h.handleDeletePage)
				r.Post("/library/{entryID}/delete", h.handleDelete)
			})

			r.Group(func(r chi.Router) {
				r.Use(requireRole(model.UserRoleAdmin))
				r.Get("/admin/users", h.handleAdminUsersPage)
				r.Post("/admin/users", h.handleCreateUser)
				r.Post("/admin/users/{userID}/toggle", h.handleToggleUserActive)
			})
		})
	})
}

// BasePathMiddleware stores the configured base path in the request context.
func (h *Handler) BasePathMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := model.ContextWithBasePath(r.Context(), h.config.BasePath)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// limitBody caps request bodies at the upload limit plus room for form fields.
func (h *Handler) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadBytes+1<<20)
		next.ServeHTTP(w, r)
	})
}

// path prefixes an absolute application path with the base path.
func (h *Handler) path(p string) string {
	return h.config.BasePath + p
}

func (h *Handler) cookiePath() string {
	if h.config.BasePath != "" {
		return h.config.BasePath + "/"
	}
	return "/"
}

func render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	if err := c.Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}

// handleSetLanguage remembers a UI language for this browser.
func (h *Handler) handleSetLanguage(w http.ResponseWriter, r *http.Request) {
	lang := chi.URLParam(r, "lang")
	if !slices.Contains(appI18n.Languages(), lang) {
		http.NotFound(w, r)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     appI18n.LangCookie,
		Value:    lang,
		Path:     h.cookiePath(),
		MaxAge:   365 * 24 * 60 * 60,
		Secure:   h.config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.path("/"), http.StatusSeeOther)
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	render(w, r, http.StatusOK, views.IndexPage(user, h.config.Grades))
}

func (h *Handler) validGrade(grade string) bool {
	for _, g := range h.config.Grades {
		if g == grade {
			return true
		}
	}
	return false
}

// gradeFor picks the grade a request works in. Students with an assigned
// grade are pinned to it.
func (h *Handler) gradeFor(user *model.User, requested string) string {
	if user != nil && user.Role == model.UserRoleStudent && user.Grade != "" {
		return user.Grade
	}
	return requested
}

func categoryParam(r *http.Request) model.Category {
	if c, ok := model.ParseCategory(r.URL.Query().Get("category")); ok {
		return c
	}
	return model.CategoryPractice
}
