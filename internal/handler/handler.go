// Package handler exposes the exam lifecycle over a JSON HTTP API.
package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"examforge/internal/exam"
	"examforge/internal/grading"
	"examforge/internal/i18n"
	"examforge/internal/llm"
	"examforge/internal/model"
	"examforge/internal/store"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	service *exam.Service
	store   *store.Store
	gateway llm.Gateway
	logger  *slog.Logger
}

// New creates a new Handler.
func New(svc *exam.Service, s *store.Store, gw llm.Gateway, logger *slog.Logger) *Handler {
	return &Handler{service: svc, store: s, gateway: gw, logger: logger}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/exams", h.handleStartExam)
	r.Get("/exams/{examID}", h.handleExamStatus)
	r.Get("/exams/{examID}/question", h.handleCurrentQuestion)
	r.Post("/exams/{examID}/complete", h.handleCompleteExam)
	r.Post("/exams/{examID}/dispute", h.handleDisputeExam)
	r.Get("/exams/{examID}/notifications", h.handleNotifications)
	r.Post("/questions/{questionID}/answer", h.handleSubmitAnswer)
	r.Post("/questions/{questionID}/regrade", h.handleRegrade)
}

type startExamRequest struct {
	StudentName string `json:"student_name"`
}

type examResponse struct {
	*model.Exam
	GradeCategory string `json:"grade_category,omitempty"`
	Message       string `json:"message,omitempty"`
}

type statusResponse struct {
	*model.ExamProgress
	Progress string `json:"progress"`
}

type questionResponse struct {
	*model.Question
	GradingNotice string `json:"grading_notice,omitempty"`
}

func (h *Handler) handleStartExam(w http.ResponseWriter, r *http.Request) {
	var req startExamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.StudentName == "" {
		h.writeError(w, http.StatusBadRequest, "student_name is required")
		return
	}

	e, err := h.service.StartExam(r.Context(), req.StudentName)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, examResponse{Exam: e})
}

func (h *Handler) handleExamStatus(w http.ResponseWriter, r *http.Request) {
	examID, ok := h.pathID(w, r, "examID")
	if !ok {
		return
	}

	progress, err := h.service.Status(r.Context(), examID)
	if err != nil {
		h.lookupError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, statusResponse{
		ExamProgress: progress,
		Progress:     i18n.Tp(r.Context(), "QuestionsAnswered", progress.QuestionsCompleted),
	})
}

func (h *Handler) handleCurrentQuestion(w http.ResponseWriter, r *http.Request) {
	examID, ok := h.pathID(w, r, "examID")
	if !ok {
		return
	}

	q, err := h.service.CurrentQuestion(r.Context(), examID)
	if errors.Is(err, exam.ErrNoCurrentQuestion) {
		h.writeError(w, http.StatusNotFound, "all questions have been answered")
		return
	}
	if err != nil {
		h.lookupError(w, r, err)
		return
	}

	resp := questionResponse{Question: q}
	if !h.gateway.Available() {
		resp.GradingNotice = i18n.T(r.Context(), "GradingDegraded")
	}
	h.writeJSON(w, http.StatusOK, resp)
}

type answerRequest struct {
	Answer string `json:"answer"`
}

func (h *Handler) handleSubmitAnswer(w http.ResponseWriter, r *http.Request) {
	questionID, ok := h.pathID(w, r, "questionID")
	if !ok {
		return
	}

	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	q, err := h.service.SubmitAnswer(r.Context(), questionID, req.Answer)
	if err != nil {
		h.lookupError(w, r, err)
		return
	}

	resp := questionResponse{Question: q}
	if q.NeedsFollowup {
		resp.GradingNotice = i18n.T(r.Context(), "FollowupSuggested")
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleRegrade(w http.ResponseWriter, r *http.Request) {
	questionID, ok := h.pathID(w, r, "questionID")
	if !ok {
		return
	}

	q, err := h.service.RegradeAnswer(r.Context(), questionID)
	if errors.Is(err, exam.ErrNotAnswered) {
		h.writeError(w, http.StatusBadRequest, "question has no answer to regrade")
		return
	}
	if err != nil {
		h.lookupError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, questionResponse{Question: q})
}

func (h *Handler) handleCompleteExam(w http.ResponseWriter, r *http.Request) {
	examID, ok := h.pathID(w, r, "examID")
	if !ok {
		return
	}

	e, err := h.service.CompleteExam(r.Context(), examID)
	if err != nil {
		h.lookupError(w, r, err)
		return
	}

	resp := examResponse{Exam: e}
	if e.FinalGrade != nil {
		resp.GradeCategory = categoryLabel(r, grading.GradeCategory(*e.FinalGrade))
		resp.Message = i18n.Td(r.Context(), "ExamCompleted", map[string]any{
			"Grade": fmt.Sprintf("%.1f", *e.FinalGrade),
		})
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleDisputeExam(w http.ResponseWriter, r *http.Request) {
	examID, ok := h.pathID(w, r, "examID")
	if !ok {
		return
	}

	e, err := h.service.DisputeExam(r.Context(), examID)
	if errors.Is(err, exam.ErrNotCompleted) {
		h.writeError(w, http.StatusConflict, "only a completed exam can be disputed")
		return
	}
	if err != nil {
		h.lookupError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, examResponse{Exam: e})
}

func (h *Handler) handleNotifications(w http.ResponseWriter, r *http.Request) {
	examID, ok := h.pathID(w, r, "examID")
	if !ok {
		return
	}
	if _, err := h.store.GetExam(examID); err != nil {
		h.lookupError(w, r, err)
		return
	}

	notifications, err := h.store.ListNotifications(examID)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	if notifications == nil {
		notifications = []model.Notification{}
	}
	h.writeJSON(w, http.StatusOK, notifications)
}

// categoryLabel localizes a grade category for the response.
func categoryLabel(r *http.Request, c grading.Category) string {
	var id string
	switch c {
	case grading.CategoryExcellent:
		id = "GradeExcellent"
	case grading.CategoryGood:
		id = "GradeGood"
	case grading.CategoryAcceptable:
		id = "GradeAcceptable"
	default:
		id = "GradeNeedsImprovement"
	}
	return i18n.T(r.Context(), id)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, http.StatusBadRequest, "invalid "+param)
		return 0, false
	}
	return id, true
}

// lookupError maps missing rows to 404 and everything else to 500.
func (h *Handler) lookupError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, sql.ErrNoRows) {
		h.writeError(w, http.StatusNotFound, "not found")
		return
	}
	h.serverError(w, r, err)
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	h.writeError(w, http.StatusInternalServerError, "internal error")
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}
