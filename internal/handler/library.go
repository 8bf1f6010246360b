package handler

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/mathpro/internal/handler/views"
	appI18n "github.com/pavelanni/mathpro/internal/i18n"
	"github.com/pavelanni/mathpro/internal/library"
	"github.com/pavelanni/mathpro/internal/model"
)

func entryParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "entryID"), 10, 64)
}

func (h *Handler) libraryURL(category model.Category, grade string) string {
	q := url.Values{"category": {string(category)}}
	if grade != "" {
		q.Set("grade", grade)
	}
	return h.path("/library?" + q.Encode())
}

// handleLibrary shows grade folders, or one grade's worksheets when a grade
// is selected.
func (h *Handler) handleLibrary(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	category := categoryParam(r)
	grade := h.gradeFor(user, r.URL.Query().Get("grade"))
	canManage := user.Role.CanManageLibrary()

	if grade == "" {
		counts, err := h.library.CountByGrade(r.Context(), category, h.config.Grades)
		if err != nil {
			httpError(w, r, err)
			return
		}
		render(w, r, http.StatusOK, views.LibraryFoldersPage(category, h.config.Grades, counts, canManage))
		return
	}

	search := r.URL.Query().Get("q")
	entries, err := h.library.List(r.Context(), model.LibraryFilter{Grade: grade, Category: category, Search: search})
	if err != nil {
		httpError(w, r, err)
		return
	}
	render(w, r, http.StatusOK, views.LibraryListPage(category, grade, search, entries, canManage))
}

// entryFor loads a library entry, hiding other grades from pinned students.
func (h *Handler) entryFor(r *http.Request) (*model.LibraryEntry, error) {
	id, err := entryParam(r)
	if err != nil {
		return nil, library.ErrNotFound
	}
	entry, err := h.library.Get(r.Context(), id)
	if err != nil {
		return nil, err
	}
	user := model.UserFromContext(r.Context())
	if g := h.gradeFor(user, ""); g != "" && g != entry.Grade {
		return nil, library.ErrNotFound
	}
	return entry, nil
}

func (h *Handler) handleOpenEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := h.entryFor(r)
	if err != nil {
		httpError(w, r, err)
		return
	}
	user := model.UserFromContext(r.Context())
	vs, err := h.driver.Open(r.Context(), user.ID, entry.ID)
	if err != nil {
		httpError(w, r, err)
		return
	}
	http.Redirect(w, r, h.viewURL(vs.ID, ""), http.StatusSeeOther)
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	entry, err := h.entryFor(r)
	if err != nil {
		httpError(w, r, err)
		return
	}
	doc, err := h.library.Export(r.Context(), *entry)
	if err != nil {
		httpError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.FileName}))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Data)))
	_, _ = w.Write(doc.Data)
}

func (h *Handler) handleUploadPage(w http.ResponseWriter, r *http.Request) {
	render(w, r, http.StatusOK, views.UploadPage(categoryParam(r), h.config.Grades, ""))
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.config.MaxUploadBytes); err != nil {
		render(w, r, http.StatusRequestEntityTooLarge, views.UploadPage(model.CategoryPractice, h.config.Grades, appI18n.T(r.Context(), "FileTooLarge")))
		return
	}
	category, ok := model.ParseCategory(r.FormValue("category"))
	if !ok {
		http.Error(w, "invalid category", http.StatusBadRequest)
		return
	}
	grade := r.FormValue("grade")
	if !h.validGrade(grade) {
		http.Error(w, "invalid grade", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		render(w, r, http.StatusBadRequest, views.UploadPage(category, h.config.Grades, appI18n.T(r.Context(), "FileRequired")))
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "failed to read file", http.StatusInternalServerError)
		return
	}

	user := model.UserFromContext(r.Context())
	id, err := h.library.Upload(r.Context(), library.UploadRequest{
		Name:      strings.TrimSpace(r.FormValue("name")),
		Grade:     grade,
		Category:  category,
		FileName:  header.Filename,
		FileType:  fileType(header, data),
		Data:      data,
		CreatedBy: user.ID,
	})
	if err != nil {
		render(w, r, errorStatus(err), views.UploadPage(category, h.config.Grades, errorMessage(r, err)))
		return
	}
	slog.Info("document uploaded", "id", id, "file", header.Filename, "size", len(data), "user", user.Username)
	http.Redirect(w, r, h.libraryURL(category, grade), http.StatusSeeOther)
}

func (h *Handler) handleDeletePage(w http.ResponseWriter, r *http.Request) {
	entry, err := h.entryFor(r)
	if err != nil {
		httpError(w, r, err)
		return
	}
	render(w, r, http.StatusOK, views.DeleteConfirmPage(*entry))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	entry, err := h.entryFor(r)
	if err != nil {
		httpError(w, r, err)
		return
	}
	err = h.library.Delete(r.Context(), entry.ID, r.FormValue("confirm") == "yes")
	switch {
	case errors.Is(err, library.ErrNotConfirmed):
		http.Redirect(w, r, h.path("/library/"+strconv.FormatInt(entry.ID, 10)+"/delete"), http.StatusSeeOther)
	case err != nil:
		httpError(w, r, err)
	default:
		http.Redirect(w, r, h.libraryURL(entry.Category, entry.Grade), http.StatusSeeOther)
	}
}
