package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/GaburaisuVGC/fumble-bot-reloaded/handlers"
	"github.com/GaburaisuVGC/fumble-bot-reloaded/middleware"
)

type Handlers struct {
	Auth        *handlers.AuthHandler
	Users       *handlers.UserHandler
	Tournaments *handlers.TournamentHandler
	Matches     *handlers.MatchHandler
	WebSocket   *handlers.WebSocketHandler
}

func SetupRoutes(h Handlers, jwtSecret string) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(jwtSecret)

	router.Post("/auth/register", h.Auth.Register)
	router.Post("/auth/login", h.Auth.Login)

	router.Get("/users/{id}", h.Users.GetProfile)
	router.Get("/leaderboard", h.Users.Leaderboard)
	router.Group(func(r chi.Router) {
		r.Use(authenticate)
		r.Get("/me", h.Users.GetMe)
	})

	router.Route("/tournaments", func(r chi.Router) {
		// Публичные чтения
		r.Get("/", h.Tournaments.List)
		r.Get("/{id}", h.Tournaments.Get)
		r.Get("/{id}/standings", h.Tournaments.GetStandings)
		r.Get("/{id}/events", h.WebSocket.Subscribe)

		// Действия игроков и организатора
		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Post("/", h.Tournaments.Create)
			r.Post("/{id}/join", h.Tournaments.Join)
			r.Delete("/{id}/join", h.Tournaments.Leave)
			r.Post("/{id}/start", h.Tournaments.Start)
			r.Post("/{id}/cancel", h.Tournaments.Cancel)
			r.Post("/{id}/logo", h.Tournaments.UploadLogo)

			r.Post("/{id}/matches/{seq}/report", h.Matches.Report)
			r.Post("/{id}/rounds/validate", h.Matches.ValidateRound)
			r.Post("/{id}/rounds/{round}/reset", h.Matches.ResetRound)
			r.Post("/{id}/drop/{userID}", h.Matches.Drop)
		})
	})

	return router
}
