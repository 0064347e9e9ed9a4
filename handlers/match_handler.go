package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/GaburaisuVGC/fumble-bot-reloaded/services"
)

type MatchHandler struct {
	matches *services.MatchService
	rounds  *services.RoundService
}

func NewMatchHandler(matches *services.MatchService, rounds *services.RoundService) *MatchHandler {
	return &MatchHandler{matches: matches, rounds: rounds}
}

func (h *MatchHandler) Report(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(r)
	if !ok {
		unauthorizedResponse(w, "authentication required")
		return
	}
	seq, err := strconv.Atoi(chi.URLParam(r, "seq"))
	if err != nil || seq <= 0 {
		errorResponse(w, http.StatusBadRequest, "match seq must be a positive integer")
		return
	}

	var input struct {
		WinnerID *int `json:"winner_id"`
		IsDraw   bool `json:"is_draw"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}

	err = h.matches.Report(r.Context(), chi.URLParam(r, "id"), seq, actor, services.ReportResultInput{
		WinnerID: input.WinnerID,
		IsDraw:   input.IsDraw,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"reported": true}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *MatchHandler) ValidateRound(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(r)
	if !ok {
		unauthorizedResponse(w, "authentication required")
		return
	}

	result, err := h.rounds.ValidateRound(r.Context(), chi.URLParam(r, "id"), actor)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"result": result}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *MatchHandler) Drop(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(r)
	if !ok {
		unauthorizedResponse(w, "authentication required")
		return
	}
	userID, err := strconv.Atoi(chi.URLParam(r, "userID"))
	if err != nil || userID <= 0 {
		errorResponse(w, http.StatusBadRequest, "user id must be a positive integer")
		return
	}

	if err := h.matches.Drop(r.Context(), chi.URLParam(r, "id"), actor, userID); err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *MatchHandler) ResetRound(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(r)
	if !ok {
		unauthorizedResponse(w, "authentication required")
		return
	}
	round, err := strconv.Atoi(chi.URLParam(r, "round"))
	if err != nil || round <= 0 {
		errorResponse(w, http.StatusBadRequest, "round must be a positive integer")
		return
	}

	if err := h.matches.ResetRound(r.Context(), chi.URLParam(r, "id"), actor, round); err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"reset_round": round}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}
