package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"aula-backend/internal/middleware"
	"aula-backend/internal/services"
)

type RosterHandler struct {
	roster   *services.RosterService
	controls *services.ControlService
}

func NewRosterHandler(roster *services.RosterService, controls *services.ControlService) *RosterHandler {
	return &RosterHandler{roster: roster, controls: controls}
}

func (h *RosterHandler) Join(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetIdentity(r.Context())
	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid session ID", r))
		return
	}

	participant, err := h.roster.Join(r.Context(), actor, sessionID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"participant": participant})
}

func (h *RosterHandler) Leave(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetIdentity(r.Context())
	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid session ID", r))
		return
	}

	if err := h.roster.Leave(r.Context(), actor, sessionID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Left session"})
}

func (h *RosterHandler) List(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetIdentity(r.Context())
	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid session ID", r))
		return
	}

	activeOnly := r.URL.Query().Get("active") == "true"

	participants, err := h.roster.List(r.Context(), actor, sessionID, activeOnly)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"participants": participants})
}

type controlRequest struct {
	Action services.ControlAction `json:"action"`
}

// HostControl applies a host/admin action to a target participant.
func (h *RosterHandler) HostControl(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetIdentity(r.Context())
	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid session ID", r))
		return
	}
	targetID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid user ID", r))
		return
	}

	var req controlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	participant, err := h.controls.HostAction(r.Context(), actor, sessionID, targetID, req.Action)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"participant": participant})
}

// SelfControl applies one of the caller's own actions (hand raise, mute,
// camera) to their participant row.
func (h *RosterHandler) SelfControl(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetIdentity(r.Context())
	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid session ID", r))
		return
	}

	var req controlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	participant, err := h.controls.SelfAction(r.Context(), actor, sessionID, req.Action)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"participant": participant})
}
