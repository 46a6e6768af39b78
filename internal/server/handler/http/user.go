// Package http provides HTTP handlers for username lookup and registration.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/PeterUlb/layeringtst/internal/db"
	"github.com/PeterUlb/layeringtst/internal/models"
	"github.com/PeterUlb/layeringtst/internal/service"
)

// RegistrationService defines the operations required by the UserHandler.
type RegistrationService interface {
	// GetUser returns the user registered under username, or nil.
	GetUser(ctx context.Context, client db.Client, username string) (*models.User, error)
	// RegisterUser registers a single username.
	RegisterUser(ctx context.Context, client db.Client, username string) (uint64, error)
	// RegisterUsers registers amount generated usernames atomically.
	RegisterUsers(ctx context.Context, client db.Client, amount uint64) (uint64, error)
}

// ConnPool hands out connections for the duration of a request.
type ConnPool interface {
	Acquire(ctx context.Context) (*db.Conn, error)
}

// UserHandler handles HTTP requests for user lookup and registration.
type UserHandler struct {
	Service RegistrationService
	Pool    ConnPool
	Log     *zap.Logger
}

func (h *UserHandler) logger() *zap.Logger {
	if h.Log == nil {
		return zap.NewNop()
	}
	return h.Log
}

// withConn borrows a connection, runs fn on it and returns it to the pool.
// It writes a 500 response if no connection is available.
func (h *UserHandler) withConn(w http.ResponseWriter, r *http.Request, fn func(*db.Conn)) {
	conn, err := h.Pool.Acquire(r.Context())
	if err != nil {
		h.logger().Error("acquire connection", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer func() {
		if err := conn.Close(); err != nil {
			h.logger().Warn("release connection", zap.Error(err))
		}
	}()
	fn(conn)
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// GetUser handles GET /user/{username}.
// It responds with the user as JSON, or 404 if the username is not registered.
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	h.withConn(w, r, func(conn *db.Conn) {
		user, err := h.Service.GetUser(r.Context(), conn, username)
		if err != nil {
			h.logger().Error("get user", zap.String("username", username), zap.Error(err))
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if user == nil {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, user)
	})
}

// CreateUser handles POST /user/{username}.
// It responds 201 with the number of created rows, 409 if the username is
// already taken and 500 on any other failure.
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	h.withConn(w, r, func(conn *db.Conn) {
		count, err := h.Service.RegisterUser(r.Context(), conn, username)
		switch {
		case errors.Is(err, service.ErrUsernameAlreadyExists):
			http.Error(w, "already exists", http.StatusConflict)
		case err != nil:
			h.logger().Error("register user", zap.String("username", username), zap.Error(err))
			http.Error(w, "internal error", http.StatusInternalServerError)
		default:
			writeJSON(w, http.StatusCreated, count)
		}
	})
}

// CreateUsers handles POST /users/{amount}.
// It registers amount generated usernames in one transaction and responds
// 201 with the amount, 400 for a malformed amount and 500 on failure.
func (h *UserHandler) CreateUsers(w http.ResponseWriter, r *http.Request) {
	amount, err := strconv.ParseUint(chi.URLParam(r, "amount"), 10, 64)
	if err != nil {
		http.Error(w, "invalid amount", http.StatusBadRequest)
		return
	}

	h.withConn(w, r, func(conn *db.Conn) {
		count, err := h.Service.RegisterUsers(r.Context(), conn, amount)
		if err != nil {
			h.logger().Error("register users", zap.Uint64("amount", amount), zap.Error(err))
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, count)
	})
}
