package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/admintrivedigroup/DKTASKMANAGER-sub000/internal/service"
	"github.com/admintrivedigroup/DKTASKMANAGER-sub000/internal/transport/http/middleware"
)

type ChannelHandler struct {
	channelService *service.ChannelService
}

func NewChannelHandler(channelService *service.ChannelService) *ChannelHandler {
	return &ChannelHandler{channelService: channelService}
}

func (h *ChannelHandler) Send(w http.ResponseWriter, r *http.Request) {
	ident := middleware.GetIdentity(r.Context())
	taskID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Task not found")
		return
	}

	var input service.SendMessageInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	msg, err := h.channelService.Send(r.Context(), ident, taskID, input)
	if err != nil {
		writeServiceError(w, err, "send message")
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (h *ChannelHandler) List(w http.ResponseWriter, r *http.Request) {
	ident := middleware.GetIdentity(r.Context())
	taskID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Task not found")
		return
	}

	var before *uuid.UUID
	if beforeStr := r.URL.Query().Get("before"); beforeStr != "" {
		id, err := uuid.Parse(beforeStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid before cursor")
			return
		}
		before = &id
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	resp, err := h.channelService.List(r.Context(), ident, taskID, before, limit)
	if err != nil {
		writeServiceError(w, err, "list messages")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ChannelHandler) Edit(w http.ResponseWriter, r *http.Request) {
	ident := middleware.GetIdentity(r.Context())
	messageID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Message not found")
		return
	}

	var input service.EditMessageInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	msg, err := h.channelService.Edit(r.Context(), ident, messageID, input)
	if err != nil {
		writeServiceError(w, err, "edit message")
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (h *ChannelHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ident := middleware.GetIdentity(r.Context())
	messageID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Message not found")
		return
	}

	if err := h.channelService.Delete(r.Context(), ident, messageID); err != nil {
		writeServiceError(w, err, "delete message")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeServiceError maps the service error taxonomy onto HTTP responses.
func writeServiceError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, service.ErrTaskNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Task not found")
	case errors.Is(err, service.ErrMessageNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Message not found")
	case errors.Is(err, service.ErrNotARequest):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Due date request not found")
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "FORBIDDEN", "You do not have access to this task channel")
	case errors.Is(err, service.ErrNotAssignee):
		writeError(w, http.StatusForbidden, "FORBIDDEN", "Only an assigned user can perform this action")
	case errors.Is(err, service.ErrEmptyText):
		writeError(w, http.StatusBadRequest, "VALIDATION", "Message text is required")
	case errors.Is(err, service.ErrEmptyReason):
		writeError(w, http.StatusBadRequest, "VALIDATION", "A reason for the extension is required")
	case errors.Is(err, service.ErrBadDate):
		writeError(w, http.StatusBadRequest, "VALIDATION", "Proposed due date is not a valid date")
	case errors.Is(err, service.ErrBadReply):
		writeError(w, http.StatusBadRequest, "INVALID_REFERENCE", "Reply target does not belong to this task")
	case errors.Is(err, service.ErrMessageDeleted):
		writeError(w, http.StatusConflict, "INVALID_STATE", "Message has been deleted")
	case errors.Is(err, service.ErrNotEditable):
		writeError(w, http.StatusConflict, "INVALID_STATE", "Only plain messages can be edited or deleted")
	case errors.Is(err, service.ErrRequestDecided):
		writeError(w, http.StatusConflict, "INVALID_STATE", "Due date request has already been decided")
	default:
		log.Error().Err(err).Str("op", op).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
	}
}
