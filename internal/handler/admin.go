package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/mathpro/internal/handler/views"
	appI18n "github.com/pavelanni/mathpro/internal/i18n"
	"github.com/pavelanni/mathpro/internal/model"
)

func (h *Handler) handleAdminUsersPage(w http.ResponseWriter, r *http.Request) {
	h.renderUsers(w, r, http.StatusOK, "")
}

func (h *Handler) renderUsers(w http.ResponseWriter, r *http.Request, status int, msg string) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		slog.Error("failed to list users", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	render(w, r, status, views.AdminUsersPage(users, h.config.Grades, msg))
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.FormValue("username"))
	displayName := strings.TrimSpace(r.FormValue("display_name"))
	password := r.FormValue("password")
	role := model.UserRole(r.FormValue("role"))
	grade := r.FormValue("grade")

	if username == "" || password == "" {
		http.Error(w, "username and password required", http.StatusBadRequest)
		return
	}
	switch role {
	case model.UserRoleStudent, model.UserRoleTeacher, model.UserRoleAdmin:
	default:
		http.Error(w, "invalid role", http.StatusBadRequest)
		return
	}
	if grade != "" && !h.validGrade(grade) {
		http.Error(w, "invalid grade", http.StatusBadRequest)
		return
	}
	if role != model.UserRoleStudent {
		grade = ""
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if displayName == "" {
		displayName = username
	}

	_, err = h.store.CreateUser(r.Context(), model.User{
		Username:     username,
		DisplayName:  displayName,
		PasswordHash: string(hash),
		Role:         role,
		Grade:        grade,
		Active:       true,
	})
	if err != nil {
		slog.Error("failed to create user", "error", err)
		h.renderUsers(w, r, http.StatusConflict, appI18n.T(r.Context(), "CreateUserFailed"))
		return
	}
	slog.Info("user created", "username", username, "role", role, "grade", grade)

	http.Redirect(w, r, h.path("/admin/users"), http.StatusSeeOther)
}

func (h *Handler) handleToggleUserActive(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "userID")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		http.Error(w, "invalid user ID", http.StatusBadRequest)
		return
	}
	if current := model.UserFromContext(r.Context()); current != nil && current.ID == id {
		http.Error(w, "cannot deactivate yourself", http.StatusBadRequest)
		return
	}

	active, err := h.store.ToggleUserActive(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("failed to toggle user active", "id", id, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !active {
		n, err := h.store.DeleteUserSessions(r.Context(), id)
		if err != nil {
			slog.Error("failed to revoke sessions", "id", id, "error", err)
		}
		slog.Info("user deactivated", "id", id, "sessions_revoked", n)
	}

	http.Redirect(w, r, h.path("/admin/users"), http.StatusSeeOther)
}
