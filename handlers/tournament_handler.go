package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/GaburaisuVGC/fumble-bot-reloaded/models"
	"github.com/GaburaisuVGC/fumble-bot-reloaded/repositories"
	"github.com/GaburaisuVGC/fumble-bot-reloaded/services"
)

const maxLogoSize = 5 << 20 // 5MB

type TournamentHandler struct {
	tournaments *services.TournamentService
}

func NewTournamentHandler(tournaments *services.TournamentService) *TournamentHandler {
	return &TournamentHandler{tournaments: tournaments}
}

func (h *TournamentHandler) Create(w http.ResponseWriter, r *http.Request) {
	organizerID, ok := actorID(r)
	if !ok {
		unauthorizedResponse(w, "authentication required")
		return
	}

	var input struct {
		GuildID        string `json:"guild_id"`
		Stake          int    `json:"stake"`
		PrizeMode      string `json:"prize_mode"`
		CutMethod      string `json:"cut_method"`
		PointsRequired int    `json:"points_required"`
		MaxPlayers     int    `json:"max_players"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}

	tournament, err := h.tournaments.Create(r.Context(), services.CreateTournamentInput{
		GuildID:        input.GuildID,
		OrganizerID:    organizerID,
		Stake:          input.Stake,
		PrizeMode:      models.PrizeMode(input.PrizeMode),
		CutMethod:      models.CutMethod(input.CutMethod),
		PointsRequired: input.PointsRequired,
		MaxPlayers:     input.MaxPlayers,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *TournamentHandler) Get(w http.ResponseWriter, r *http.Request) {
	tournament, err := h.tournaments.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *TournamentHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := repositories.ListTournamentsFilter{}
	if guild := r.URL.Query().Get("guild_id"); guild != "" {
		filter.GuildID = &guild
	}
	if status := r.URL.Query().Get("status"); status != "" {
		s := models.TournamentStatus(status)
		filter.Status = &s
	}
	if organizer, err := strconv.Atoi(r.URL.Query().Get("organizer_id")); err == nil {
		filter.OrganizerID = &organizer
	}
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil {
		filter.Offset = offset
	}

	tournaments, err := h.tournaments.List(r.Context(), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournaments": tournaments}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *TournamentHandler) Join(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(r)
	if !ok {
		unauthorizedResponse(w, "authentication required")
		return
	}

	var input struct {
		UserID int    `json:"user_id"` // 0 = сам актор
		Tag    string `json:"tag"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}
	if input.UserID == 0 {
		input.UserID = actor
	}

	err := h.tournaments.Join(r.Context(), chi.URLParam(r, "id"), actor, input.UserID, input.Tag)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"joined": true}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *TournamentHandler) Leave(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(r)
	if !ok {
		unauthorizedResponse(w, "authentication required")
		return
	}

	userID := actor
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			errorResponse(w, http.StatusBadRequest, "user_id must be a positive integer")
			return
		}
		userID = parsed
	}

	err := h.tournaments.Leave(r.Context(), chi.URLParam(r, "id"), actor, userID)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TournamentHandler) Start(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(r)
	if !ok {
		unauthorizedResponse(w, "authentication required")
		return
	}

	tournament, err := h.tournaments.Start(r.Context(), chi.URLParam(r, "id"), actor)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *TournamentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(r)
	if !ok {
		unauthorizedResponse(w, "authentication required")
		return
	}

	if err := h.tournaments.Cancel(r.Context(), chi.URLParam(r, "id"), actor); err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TournamentHandler) GetStandings(w http.ResponseWriter, r *http.Request) {
	standings, err := h.tournaments.GetStandings(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"standings": standings}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *TournamentHandler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(r)
	if !ok {
		unauthorizedResponse(w, "authentication required")
		return
	}

	if err := r.ParseMultipartForm(maxLogoSize); err != nil {
		badRequestResponse(w, err)
		return
	}
	file, header, err := r.FormFile("logo")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	url, err := h.tournaments.UploadLogo(r.Context(), chi.URLParam(r, "id"), actor, contentType, file)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"logo_url": url}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}
