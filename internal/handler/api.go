package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/pavelanni/mathpro/internal/model"
	"github.com/pavelanni/mathpro/internal/worksheet"
)

// apiQuestion hides the answer key until the question is locked.
type apiQuestion struct {
	ID            model.QuestionID           `json:"id"`
	Type          model.QuestionType         `json:"type"`
	Level         string                     `json:"level"`
	Question      string                     `json:"question"`
	Options       []string                   `json:"options,omitempty"`
	Policy        worksheet.SubmissionPolicy `json:"policy"`
	State         worksheet.QuestionState    `json:"state"`
	CorrectAnswer string                     `json:"correct_answer,omitempty"`
	Explanation   string                     `json:"explanation,omitempty"`
}

type apiView struct {
	ID         string              `json:"id"`
	Step       worksheet.Step      `json:"step"`
	Grade      string              `json:"grade"`
	Category   model.Category      `json:"category"`
	LessonName string              `json:"lesson_name"`
	Saved      bool                `json:"saved"`
	HintsFirst bool                `json:"hints_first"`
	Questions  []apiQuestion       `json:"questions,omitempty"`
	Summary    *worksheet.Snapshot `json:"summary,omitempty"`
}

func newAPIView(vs worksheet.ViewState) apiView {
	out := apiView{
		ID:         vs.ID,
		Step:       vs.Step,
		Grade:      vs.Grade,
		Category:   vs.Category,
		LessonName: vs.LessonName,
		Saved:      vs.Saved,
		HintsFirst: vs.HintsFirst,
		Summary:    vs.Summary,
	}
	for _, q := range vs.Questions {
		aq := apiQuestion{
			ID:       q.ID,
			Type:     q.Type,
			Level:    q.Level,
			Question: q.Question.Question,
			Options:  q.Options,
			Policy:   q.Policy,
			State:    q.State,
		}
		if q.State.Locked {
			aq.CorrectAnswer = q.CorrectAnswer
		}
		if q.State.Locked || vs.HintsFirst {
			aq.Explanation = q.Explanation
		}
		out.Questions = append(out.Questions, aq)
	}
	return out
}

func (h *Handler) apiRoutes(r chi.Router) {
	opts := cors.Options{
		AllowedOrigins:   h.config.CORSAllowOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", csrfHeaderName},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if len(opts.AllowedOrigins) == 0 {
		// Same-origin only.
		opts.AllowOriginFunc = func(*http.Request, string) bool { return false }
	}
	r.Use(cors.Handler(opts))
	r.Use(h.limitBody)
	r.Use(h.csrfMiddleware)
	r.Use(h.requireAPIAuth)

	r.Get("/views/{viewID}", h.apiGetView)
	r.Post("/views/{viewID}/answers/{questionID}", h.apiAnswer)
	r.Post("/views/{viewID}/confirm/{questionID}", h.apiConfirm)
	r.Post("/views/{viewID}/reset", h.apiReset)
}

func (h *Handler) requireAPIAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := h.authenticate(r)
		if user == nil {
			respondJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r.WithContext(model.ContextWithUser(r.Context(), user)))
	})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func apiError(w http.ResponseWriter, r *http.Request, err error) {
	respondJSON(w, errorStatus(err), map[string]string{"error": errorMessage(r, err)})
}

func (h *Handler) apiGetView(w http.ResponseWriter, r *http.Request) {
	vs, err := h.ownedView(r)
	if err != nil {
		apiError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newAPIView(vs))
}

type answerRequest struct {
	Value string `json:"value"`
}

func (h *Handler) apiAnswer(w http.ResponseWriter, r *http.Request) {
	vs, err := h.ownedView(r)
	if err != nil {
		apiError(w, r, err)
		return
	}
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	next, err := h.driver.Answer(vs.ID, questionParam(r), req.Value)
	if err != nil {
		apiError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newAPIView(next))
}

func (h *Handler) apiConfirm(w http.ResponseWriter, r *http.Request) {
	vs, err := h.ownedView(r)
	if err != nil {
		apiError(w, r, err)
		return
	}
	next, err := h.driver.Confirm(vs.ID, questionParam(r))
	if err != nil {
		apiError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newAPIView(next))
}

func (h *Handler) apiReset(w http.ResponseWriter, r *http.Request) {
	vs, err := h.ownedView(r)
	if err != nil {
		apiError(w, r, err)
		return
	}
	next, err := h.driver.Reset(vs.ID)
	if err != nil {
		apiError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newAPIView(next))
}
