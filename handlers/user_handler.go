package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/GaburaisuVGC/fumble-bot-reloaded/repositories"
	"github.com/GaburaisuVGC/fumble-bot-reloaded/services"
)

type UserHandler struct {
	users *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		errorResponse(w, http.StatusBadRequest, "user id must be a positive integer")
		return
	}

	user, err := h.users.GetProfile(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"user": user}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	id, ok := actorID(r)
	if !ok {
		unauthorizedResponse(w, "authentication required")
		return
	}

	user, err := h.users.GetProfile(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"user": user}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *UserHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	filter := repositories.LeaderboardFilter{}
	if guild := r.URL.Query().Get("guild_id"); guild != "" {
		filter.GuildID = &guild
	}
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil {
		filter.Offset = offset
	}

	users, err := h.users.Leaderboard(r.Context(), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"leaderboard": users}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}
