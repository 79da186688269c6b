package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"aula-backend/internal/handlers"
	"aula-backend/internal/middleware"
	"aula-backend/internal/websocket"
)

func New(
	jwtAuth *middleware.JWTAuth,
	sessionHandler *handlers.SessionHandler,
	rosterHandler *handlers.RosterHandler,
	invitationHandler *handlers.InvitationHandler,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Join attempts and control actions are the hot paths (60 req/min per caller)
	actionLimiter := middleware.NewRateLimiter(60, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Session Routes ────
		r.Route("/sessions", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)

			r.Post("/", sessionHandler.Create)
			r.Get("/", sessionHandler.List)
			r.Get("/{id}", sessionHandler.Get)
			r.Patch("/{id}", sessionHandler.UpdateSettings)
			r.Delete("/{id}", sessionHandler.Delete)

			// Lifecycle transitions
			r.Post("/{id}/start", sessionHandler.Start)
			r.Post("/{id}/end", sessionHandler.End)
			r.Post("/{id}/cancel", sessionHandler.Cancel)

			// Roster
			r.Group(func(r chi.Router) {
				r.Use(actionLimiter.Middleware)
				r.Post("/{id}/join", rosterHandler.Join)
				r.Post("/{id}/leave", rosterHandler.Leave)
				r.Post("/{id}/controls", rosterHandler.SelfControl)
				r.Post("/{id}/participants/{userID}/controls", rosterHandler.HostControl)
			})
			r.Get("/{id}/participants", rosterHandler.List)

			// Invitations
			r.Post("/{id}/invitations", invitationHandler.Invite)
			r.Get("/{id}/invitations", invitationHandler.List)
			r.Delete("/{id}/invitations/{userID}", invitationHandler.Remove)
			r.Post("/{id}/invitations/decline", invitationHandler.Decline)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
