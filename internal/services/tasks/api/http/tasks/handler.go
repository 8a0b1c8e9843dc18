// Package tasks exposes task storage over HTTP/JSON.
//
// Write endpoints answer 404 when the task id is unknown and 422 for every
// other failure, whether the request was malformed or the store rejected the
// write. Reads answer 500 on any failure.
package tasks

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	apperrors "github.com/louisbranch/tasks/internal/platform/errors"
	"github.com/louisbranch/tasks/internal/platform/requestctx"
	"github.com/louisbranch/tasks/internal/services/tasks/storage"
)

const (
	msgTaskAdded   = "Task added successfully"
	msgTaskUpdated = "Task updated successfully"
	msgTaskDeleted = "Task deleted successfully"
	msgNotFound    = "Task not found"
)

// Handler serves the /tasks routes.
type Handler struct {
	store    storage.TaskStore
	validate *validator.Validate
}

// NewHandler creates a handler backed by store.
func NewHandler(store storage.TaskStore) *Handler {
	return &Handler{
		store:    store,
		validate: newValidator(),
	}
}

// RegisterRoutes mounts the task routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	if mux == nil {
		return
	}
	mux.HandleFunc("GET /tasks", h.List)
	mux.HandleFunc("POST /tasks", h.Create)
	mux.HandleFunc("PUT /tasks/{id}", h.Update)
	mux.HandleFunc("DELETE /tasks/{id}", h.Delete)
	mux.HandleFunc("GET /healthz", h.Health)
}

// List handles GET /tasks.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeDetail(w, http.StatusInternalServerError, "Failed to retrieve tasks: task store is not configured")
		return
	}
	tasks, err := h.store.ListTasks(r.Context())
	if err != nil {
		logFailure(r, "list tasks", err)
		writeDetail(w, http.StatusInternalServerError, "Failed to retrieve tasks: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponses(tasks))
}

// Create handles POST /tasks.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	description, completed, err := h.decodeTaskRequest(r)
	if err == nil {
		err = h.requireStore()
	}
	if err == nil {
		_, err = h.store.InsertTask(r.Context(), description, completed)
	}
	if err != nil {
		logFailure(r, "add task", err)
		writeDetail(w, http.StatusUnprocessableEntity, "Failed to add task: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: msgTaskAdded})
}

// Update handles PUT /tasks/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseTaskID(r)
	var (
		description string
		completed   bool
	)
	if err == nil {
		description, completed, err = h.decodeTaskRequest(r)
	}
	if err == nil {
		err = h.requireStore()
	}
	if err == nil {
		err = h.store.UpdateTask(r.Context(), id, description, completed)
	}
	if err != nil {
		h.writeWriteFailure(w, r, "update task", "Failed to update task: ", err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: msgTaskUpdated})
}

// Delete handles DELETE /tasks/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseTaskID(r)
	if err == nil {
		err = h.requireStore()
	}
	if err == nil {
		err = h.store.DeleteTask(r.Context(), id)
	}
	if err != nil {
		h.writeWriteFailure(w, r, "delete task", "Failed to delete task: ", err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: msgTaskDeleted})
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) requireStore() error {
	if h == nil || h.store == nil {
		return apperrors.New(apperrors.CodeStorageUnavailable, "task store is not configured")
	}
	return nil
}

func (h *Handler) writeWriteFailure(w http.ResponseWriter, r *http.Request, op, prefix string, err error) {
	status := writeFailureStatus(err)
	if status == http.StatusNotFound {
		writeDetail(w, status, msgNotFound)
		return
	}
	logFailure(r, op, err)
	writeDetail(w, status, prefix+err.Error())
}

// writeFailureStatus maps a write error code to a response status. Only
// CodeNotFound is surfaced; validation and storage codes all answer 422.
func writeFailureStatus(err error) int {
	switch apperrors.CodeOf(err) {
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusUnprocessableEntity
	}
}

func parseTaskID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, apperrors.New(apperrors.CodeValidationFailed, "task id must be an integer")
	}
	return id, nil
}

func logFailure(r *http.Request, op string, err error) {
	log.Printf("%s failed (code=%s request_id=%s): %v",
		op, apperrors.CodeOf(err), requestctx.RequestIDFromContext(r.Context()), err)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode response: %v", err)
	}
}
