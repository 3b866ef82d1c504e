package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/admintrivedigroup/DKTASKMANAGER-sub000/internal/service"
	"github.com/admintrivedigroup/DKTASKMANAGER-sub000/internal/transport/http/middleware"
)

type NotificationHandler struct {
	notificationService *service.NotificationService
}

func NewNotificationHandler(notificationService *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	ident := middleware.GetIdentity(r.Context())

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 200 {
			limit = l
		}
	}

	notifications, err := h.notificationService.List(r.Context(), ident.UserID, limit)
	if err != nil {
		log.Error().Err(err).Msg("list notifications failed")
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": notifications})
}

type markReadInput struct {
	TaskID uuid.UUID `json:"task_id"`
	Type   string    `json:"type"`
}

// MarkRead clears every unread notification for one (task, type) pair
// belonging to the caller.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	ident := middleware.GetIdentity(r.Context())

	var input markReadInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}
	if input.Type == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION", "Notification type is required")
		return
	}

	if err := h.notificationService.MarkRead(r.Context(), ident.UserID, input.TaskID, input.Type); err != nil {
		log.Error().Err(err).Msg("mark notifications read failed")
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ident := middleware.GetIdentity(r.Context())
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Notification not found")
		return
	}

	if err := h.notificationService.Delete(r.Context(), ident.UserID, id); err != nil {
		log.Error().Err(err).Msg("delete notification failed")
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
