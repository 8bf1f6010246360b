package handler

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/mathpro/internal/handler/views"
	appI18n "github.com/pavelanni/mathpro/internal/i18n"
	"github.com/pavelanni/mathpro/internal/library"
	"github.com/pavelanni/mathpro/internal/llm"
	"github.com/pavelanni/mathpro/internal/model"
	"github.com/pavelanni/mathpro/internal/worksheet"
)

func (h *Handler) viewURL(viewID, fragment string) string {
	u := h.path("/worksheets/" + url.PathEscape(viewID))
	if fragment != "" {
		u += "#" + fragment
	}
	return u
}

// ownedView returns the view named in the URL if it belongs to the current user.
func (h *Handler) ownedView(r *http.Request) (worksheet.ViewState, error) {
	vs, err := h.driver.View(chi.URLParam(r, "viewID"))
	if err != nil {
		return worksheet.ViewState{}, err
	}
	if user := model.UserFromContext(r.Context()); user == nil || user.ID != vs.Owner {
		return worksheet.ViewState{}, worksheet.ErrUnknownView
	}
	return vs, nil
}

func questionParam(r *http.Request) model.QuestionID {
	raw := chi.URLParam(r, "questionID")
	if s, err := url.PathUnescape(raw); err == nil {
		raw = s
	}
	return model.QuestionID(raw)
}

// errorStatus maps engine and library errors to HTTP status codes.
func errorStatus(err error) int {
	var pe *library.PersistenceError
	switch {
	case errors.Is(err, worksheet.ErrUnknownView),
		errors.Is(err, worksheet.ErrUnknownQuestion),
		errors.Is(err, library.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, worksheet.ErrNotGraded),
		errors.Is(err, worksheet.ErrAlreadySaved),
		errors.Is(err, worksheet.ErrEmptyContent):
		return http.StatusConflict
	case errors.Is(err, worksheet.ErrEmptyAnswer),
		errors.Is(err, library.ErrInvalidEntry),
		errors.Is(err, library.ErrNotConfirmed):
		return http.StatusBadRequest
	case errors.Is(err, library.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.As(err, &pe):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// errorMessage is the localized text shown for err.
func errorMessage(r *http.Request, err error) string {
	ctx := r.Context()
	var ge *worksheet.GenerationError
	switch {
	case errors.As(err, &ge):
		return appI18n.T(ctx, "GenerationFailed_"+string(ge.Reason))
	case errors.Is(err, worksheet.ErrUnknownView):
		return appI18n.T(ctx, "ViewNotFound")
	case errors.Is(err, library.ErrNotFound):
		return appI18n.T(ctx, "WorksheetNotFound")
	case errors.Is(err, library.ErrTimeout):
		return appI18n.T(ctx, "LibraryTimeout")
	case errors.Is(err, library.ErrInvalidEntry):
		return appI18n.T(ctx, "InvalidEntry")
	case errors.Is(err, worksheet.ErrEmptyContent):
		return appI18n.T(ctx, "EmptyContent")
	}
	var pe *library.PersistenceError
	if errors.As(err, &pe) {
		return appI18n.T(ctx, "LibraryUnavailable")
	}
	return appI18n.T(ctx, "SomethingWentWrong")
}

func httpError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "path", r.URL.Path, "error", err)
	}
	http.Error(w, errorMessage(r, err), status)
}

func (h *Handler) handleNewWorksheet(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	grade := h.gradeFor(user, r.URL.Query().Get("grade"))
	if grade == "" {
		grade = h.config.Grades[0]
	}
	if !h.validGrade(grade) {
		http.Error(w, "invalid grade", http.StatusBadRequest)
		return
	}
	vs := h.driver.Start(user.ID, grade, categoryParam(r))
	http.Redirect(w, r, h.viewURL(vs.ID, ""), http.StatusSeeOther)
}

func (h *Handler) handleWorksheetPage(w http.ResponseWriter, r *http.Request) {
	vs, err := h.ownedView(r)
	if err != nil {
		httpError(w, r, err)
		return
	}
	h.renderView(w, r, http.StatusOK, vs, "")
}

func (h *Handler) renderView(w http.ResponseWriter, r *http.Request, status int, vs worksheet.ViewState, msg string) {
	switch vs.Step {
	case worksheet.StepWorksheet:
		user := model.UserFromContext(r.Context())
		canSave := user != nil && user.Role.CanManageLibrary()
		render(w, r, status, views.WorksheetPage(vs, canSave, msg))
	case worksheet.StepDocument:
		render(w, r, status, views.DocumentPage(vs))
	default:
		render(w, r, status, views.WorksheetInputPage(vs, msg))
	}
}

func (h *Handler) handleDocument(w http.ResponseWriter, r *http.Request) {
	vs, err := h.ownedView(r)
	if err != nil {
		httpError(w, r, err)
		return
	}
	if vs.Step != worksheet.StepDocument || vs.Document == nil {
		http.NotFound(w, r)
		return
	}
	ct := vs.Document.FileType
	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	// Uploaded files never run scripts with the app's origin. Only images
	// and PDFs are previewed inline.
	w.Header().Set("Content-Security-Policy", "sandbox")
	if !vs.Document.IsImage() && vs.Document.FileType != "application/pdf" {
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": vs.Document.FileName}))
	}
	_, _ = w.Write(vs.Document.Data)
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	vs, err := h.ownedView(r)
	if err != nil {
		httpError(w, r, err)
		return
	}
	if err := r.ParseMultipartForm(h.config.MaxUploadBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		h.renderView(w, r, http.StatusRequestEntityTooLarge, vs, appI18n.T(r.Context(), "FileTooLarge"))
		return
	}

	req := worksheet.GenerateRequest{LessonName: strings.TrimSpace(r.FormValue("lesson_name"))}
	att, err := formAttachment(r, "attachment")
	if err != nil {
		slog.Warn("failed to read attachment", "error", err)
		h.renderView(w, r, http.StatusBadRequest, vs, appI18n.T(r.Context(), "AttachmentUnreadable"))
		return
	}
	req.Attachment = att
	if req.LessonName == "" && att == nil {
		h.renderView(w, r, http.StatusBadRequest, vs, appI18n.T(r.Context(), "LessonRequired"))
		return
	}

	next, err := h.driver.Generate(r.Context(), vs.ID, req)
	if err != nil {
		var ge *worksheet.GenerationError
		if errors.As(err, &ge) {
			slog.Warn("worksheet generation failed", "view", vs.ID, "reason", ge.Reason, "error", ge.Err)
			h.renderView(w, r, http.StatusBadGateway, vs, errorMessage(r, err))
			return
		}
		httpError(w, r, err)
		return
	}
	http.Redirect(w, r, h.viewURL(next.ID, ""), http.StatusSeeOther)
}

// formAttachment reads an optional uploaded file. It returns nil when the
// field is absent or empty.
func formAttachment(r *http.Request, field string) (*llm.Attachment, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	return &llm.Attachment{Name: header.Filename, MIMEType: fileType(header, data), Data: data}, nil
}

func fileType(header *multipart.FileHeader, data []byte) string {
	if ct := header.Header.Get("Content-Type"); ct != "" && ct != "application/octet-stream" {
		return ct
	}
	return http.DetectContentType(data)
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	vs, err := h.ownedView(r)
	if err != nil {
		httpError(w, r, err)
		return
	}
	qid := questionParam(r)
	if _, err := h.driver.Answer(vs.ID, qid, r.FormValue("value")); err != nil {
		httpError(w, r, err)
		return
	}
	http.Redirect(w, r, h.viewURL(vs.ID, "q-"+string(qid)), http.StatusSeeOther)
}

// handleConfirm stores the posted draft and grades it. Blank answers stay
// ungraded.
func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	vs, err := h.ownedView(r)
	if err != nil {
		httpError(w, r, err)
		return
	}
	qid := questionParam(r)
	value := r.FormValue("value")
	if _, posted := r.PostForm["value"]; posted {
		if _, err := h.driver.Answer(vs.ID, qid, value); err != nil {
			httpError(w, r, err)
			return
		}
	}
	if _, err := h.driver.Confirm(vs.ID, qid); err != nil && !errors.Is(err, worksheet.ErrEmptyAnswer) {
		httpError(w, r, err)
		return
	}
	http.Redirect(w, r, h.viewURL(vs.ID, "q-"+string(qid)), http.StatusSeeOther)
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	vs, err := h.ownedView(r)
	if err != nil {
		httpError(w, r, err)
		return
	}
	if _, err := h.driver.Reset(vs.ID); err != nil {
		httpError(w, r, err)
		return
	}
	http.Redirect(w, r, h.viewURL(vs.ID, ""), http.StatusSeeOther)
}

func (h *Handler) handleClose(w http.ResponseWriter, r *http.Request) {
	vs, err := h.ownedView(r)
	if err != nil {
		// Closing a view that is already gone is not an error.
		http.Redirect(w, r, h.path("/"), http.StatusSeeOther)
		return
	}
	h.driver.Close(vs.ID)
	target := h.path("/")
	if vs.EntryID != 0 {
		target = h.path("/library?" + url.Values{"category": {string(vs.Category)}, "grade": {vs.Grade}}.Encode())
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	vs, err := h.ownedView(r)
	if err != nil {
		httpError(w, r, err)
		return
	}
	user := model.UserFromContext(r.Context())
	next, err := h.driver.Save(r.Context(), vs.ID, strings.TrimSpace(r.FormValue("name")), user.ID)
	switch {
	case err == nil, errors.Is(err, worksheet.ErrAlreadySaved):
		http.Redirect(w, r, h.viewURL(vs.ID, ""), http.StatusSeeOther)
	case errors.Is(err, worksheet.ErrNotGraded), errors.Is(err, worksheet.ErrUnknownView):
		httpError(w, r, err)
	default:
		slog.Error("failed to save worksheet", "view", vs.ID, "error", err)
		h.renderView(w, r, errorStatus(err), next, errorMessage(r, err))
	}
}
