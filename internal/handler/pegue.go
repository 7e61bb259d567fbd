package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/keep-bouncing-back/internal/auth"
	"github.com/sakif/keep-bouncing-back/internal/service"
)

// PegueHandler serves /pegues.
type PegueHandler struct {
	pegues *service.PegueService
	logger *slog.Logger
}

func NewPegueHandler(pegues *service.PegueService, logger *slog.Logger) *PegueHandler {
	return &PegueHandler{pegues: pegues, logger: logger}
}

type pegueRequest struct {
	UserID    *int64       `json:"user_id"`
	Equipment string       `json:"equipment"`
	Date      flexibleTime `json:"date"`
	Duration  int          `json:"duration"`
	Notes     string       `json:"notes"`
	TrickIDs  []int64      `json:"tricks_ids"`
}

// HandleCreate logs a session for the caller.
//
// HTTP: POST /pegues (RequireAuth)
// REQUEST BODY:
//
//	{"equipment": "Longline 80m", "date": "2026-05-01T16:30:00Z",
//	 "duration": 90, "notes": "...", "tricks_ids": [1, 4]}
//
// user_id may be sent for compatibility but must be the caller's own id.
func (h *PegueHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req pegueRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	current, _ := auth.AccountFromContext(r.Context())
	pegue, err := h.pegues.Create(r.Context(), current, service.PegueInput{
		UserID:    req.UserID,
		Equipment: req.Equipment,
		Date:      req.Date.Time,
		Duration:  req.Duration,
		Notes:     req.Notes,
		TrickIDs:  req.TrickIDs,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, pegue)
}

// HandleList: GET /pegues?user_id=&limit=&offset=
func (h *PegueHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var userID *int64
	if n, ok, err := queryInt(r, "user_id"); err != nil {
		writeError(w, h.logger, err)
		return
	} else if ok {
		id := int64(n)
		userID = &id
	}

	pegues, err := h.pegues.List(r.Context(), userID, limit, offset)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, pegues)
}

// HandleGet: GET /pegues/{id}
func (h *PegueHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	pegue, err := h.pegues.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, pegue)
}

// HandleDelete: DELETE /pegues/{id} (RequireAuth) → 204
func (h *PegueHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	current, _ := auth.AccountFromContext(r.Context())
	if err := h.pegues.Delete(r.Context(), current, id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
