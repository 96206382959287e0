package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/St1cky1/tasklist/internal/entity"
	"github.com/St1cky1/tasklist/internal/infrastructure/auth"
	"github.com/St1cky1/tasklist/internal/usecase"
	"github.com/St1cky1/tasklist/internal/validation"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
)

type TaskHandler struct {
	taskService *usecase.TaskService
	validator   *validation.Validator
}

func NewTaskHandler(taskService *usecase.TaskService, validator *validation.Validator) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		validator:   validator,
	}
}

// ListTasks handles GET /tasks?filter=&search=
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	query := r.URL.Query()
	tasks, err := h.taskService.ListForUser(r.Context(), userID, entity.ParseFilter(query.Get("filter")), query.Get("search"))
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	var req validation.CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		h.invalid(w, r, err)
		return
	}

	task, err := h.taskService.Create(r.Context(), req.ToTask(userID))
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	userID, taskID, ok := h.target(w, r)
	if !ok {
		return
	}

	task, found, err := h.taskService.GetByID(r.Context(), taskID, userID)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, entity.ErrTaskNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// UpdateTask answers 204 whether or not the caller owns the task.
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	userID, taskID, ok := h.target(w, r)
	if !ok {
		return
	}

	var req validation.UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		h.invalid(w, r, err)
		return
	}

	if err := h.taskService.Update(r.Context(), req.ToTask(taskID, userID)); err != nil {
		h.internalError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	userID, taskID, ok := h.target(w, r)
	if !ok {
		return
	}

	if err := h.taskService.Delete(r.Context(), taskID, userID); err != nil {
		h.internalError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) ToggleComplete(w http.ResponseWriter, r *http.Request) {
	userID, taskID, ok := h.target(w, r)
	if !ok {
		return
	}

	if err := h.taskService.ToggleComplete(r.Context(), taskID, userID); err != nil {
		h.internalError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// target resolves the caller and the {id} path parameter, writing the
// error response itself when either is unusable.
func (h *TaskHandler) target(w http.ResponseWriter, r *http.Request) (string, int, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return "", 0, false
	}

	taskID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || !entity.ValidTaskID(taskID) {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return "", 0, false
	}
	return userID, taskID, true
}

func (h *TaskHandler) invalid(w http.ResponseWriter, r *http.Request, err error) {
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": verrs})
		return
	}
	h.internalError(w, r, err)
}

func (h *TaskHandler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	log.WithFields(log.Fields{
		"request_id": middleware.GetReqID(r.Context()),
		"path":       r.URL.Path,
	}).WithError(err).Error("task request failed")
	writeError(w, http.StatusInternalServerError, "internal server error")
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Warn("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
