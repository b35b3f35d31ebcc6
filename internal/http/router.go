package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MrJamesThe3rd/receivables/internal/http/auth"
	"github.com/MrJamesThe3rd/receivables/internal/http/reminder"
	"github.com/MrJamesThe3rd/receivables/internal/http/report"
	"github.com/MrJamesThe3rd/receivables/internal/http/unit"
)

func New(
	allowedOrigins []string,
	authV1 *auth.Handler,
	unitsV1 *unit.Handler,
	reportsV1 *report.Handler,
	remindersV1 *reminder.Handler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			authV1.Routes(r)
		})

		r.Route("/units", unitsV1.Routes)
		r.Route("/portal", unitsV1.PortalRoutes)
		r.Route("/reports", reportsV1.Routes)
		r.Route("/reminders", remindersV1.Routes)
	})

	return router
}
