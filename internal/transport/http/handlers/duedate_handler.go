package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/admintrivedigroup/DKTASKMANAGER-sub000/internal/service"
	"github.com/admintrivedigroup/DKTASKMANAGER-sub000/internal/transport/http/middleware"
)

type DueDateHandler struct {
	dueDateService *service.DueDateService
}

func NewDueDateHandler(dueDateService *service.DueDateService) *DueDateHandler {
	return &DueDateHandler{dueDateService: dueDateService}
}

func (h *DueDateHandler) Open(w http.ResponseWriter, r *http.Request) {
	ident := middleware.GetIdentity(r.Context())
	taskID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Task not found")
		return
	}

	var input service.OpenRequestInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	msg, err := h.dueDateService.OpenRequest(r.Context(), ident, taskID, input)
	if err != nil {
		writeServiceError(w, err, "open due date request")
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (h *DueDateHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, true)
}

func (h *DueDateHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, false)
}

func (h *DueDateHandler) decide(w http.ResponseWriter, r *http.Request, approve bool) {
	ident := middleware.GetIdentity(r.Context())
	messageID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Due date request not found")
		return
	}

	msg, err := h.dueDateService.Decide(r.Context(), ident, messageID, approve)
	if err != nil {
		writeServiceError(w, err, "decide due date request")
		return
	}
	writeJSON(w, http.StatusOK, msg)
}
