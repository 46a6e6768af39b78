package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/PeterUlb/layeringtst/internal/middleware"
)

// NewRouter constructs the HTTP handler serving the registration API.
//
// Routes:
//
//	GET  /healthz           → 200
//	GET  /user/{username}   → userHandler.GetUser
//	POST /user/{username}   → userHandler.CreateUser
//	POST /users/{amount}    → userHandler.CreateUsers
func NewRouter(userHandler *UserHandler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(
		chiMiddleware.RequestID,
		chiMiddleware.RealIP,
		middleware.WithRequestLogging(logger),
		chiMiddleware.Recoverer,
		chiMiddleware.Timeout(30*time.Second),
	)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/user", func(r chi.Router) {
		r.Get("/{username}", userHandler.GetUser)
		r.Post("/{username}", userHandler.CreateUser)
	})
	r.Post("/users/{amount}", userHandler.CreateUsers)

	return r
}
