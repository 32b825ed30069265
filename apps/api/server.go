package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/mahaj/carechat/pkg/auth"
	"github.com/mahaj/carechat/pkg/errs"
	"github.com/mahaj/carechat/pkg/model"
	"github.com/mahaj/carechat/pkg/snowflake"
	"github.com/mahaj/carechat/pkg/store"
)

type messagePublisher interface {
	PublishMessageCreated(ctx context.Context, ev model.MessageCreated) error
}

type presenceWriter interface {
	Set(ctx context.Context, userID string, online bool) (model.StatusUpdated, error)
	Clear(ctx context.Context, userID string) (model.StatusUpdated, error)
}

type server struct {
	rooms    store.RoomStore
	messages store.MessageStore
	tokens   store.TokenStore
	statuses store.StatusStore
	presence presenceWriter
	events   messagePublisher
	ids      *snowflake.Node
	auth     *auth.Issuer
	log      *zap.Logger
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()

	// Public endpoint
	mux.HandleFunc("POST /login", s.handleLogin)

	mux.Handle("GET /rooms", s.authMiddleware(http.HandlerFunc(s.handleListRooms)))
	mux.Handle("POST /rooms", s.authMiddleware(http.HandlerFunc(s.handleCreateRoom)))
	mux.Handle("GET /rooms/{roomId}/messages", s.authMiddleware(http.HandlerFunc(s.handleHistory)))
	mux.Handle("POST /rooms/{roomId}/messages", s.authMiddleware(http.HandlerFunc(s.handleCreateMessage)))
	mux.Handle("PUT /status", s.authMiddleware(http.HandlerFunc(s.handleSetStatus)))
	mux.Handle("DELETE /status", s.authMiddleware(http.HandlerFunc(s.handleClearStatus)))
	mux.Handle("GET /users/{userId}/status", s.authMiddleware(http.HandlerFunc(s.handleGetStatus)))
	mux.Handle("PUT /tokens", s.authMiddleware(http.HandlerFunc(s.handleSetToken)))
	return mux
}

func (s *server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			http.Error(w, "Authorization header required", http.StatusUnauthorized)
			return
		}
		claims, err := s.auth.FromRequest(r)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps store and validation errors onto status codes. Anything
// unexpected is logged and hidden behind a 500.
func (s *server) writeError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	switch {
	case errors.Is(err, errs.ErrBadRequest):
		http.Error(w, msg+": "+err.Error(), http.StatusBadRequest)
	case errors.Is(err, errs.ErrUnauthorized):
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	case errors.Is(err, errs.ErrNotFound):
		http.Error(w, msg+": not found", http.StatusNotFound)
	case errors.Is(err, errs.ErrUnavailable):
		s.log.Warn(msg, zap.String("path", r.URL.Path), zap.Error(err))
		http.Error(w, msg, http.StatusServiceUnavailable)
	default:
		s.log.Error(msg, zap.String("path", r.URL.Path), zap.Error(err))
		http.Error(w, msg, http.StatusInternalServerError)
	}
}

func userID(r *http.Request) string {
	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		return ""
	}
	return claims.UserID
}
