// Package server wires the EcoTrack handlers into an HTTP router and runs it.
package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	apihandlers "github.com/jghoshh/ecotrack/backend/server/handlers"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-ID"

// recoveryMiddleware recovers from panics and provides a generic error message to the client.
func recoveryMiddleware(log *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.Error("panic recovered",
						zap.Any("panic", err),
						zap.String("method", r.Method),
						zap.String("path", r.URL.Path),
						zap.String("requestId", w.Header().Get(requestIDHeader)))
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_, _ = w.Write([]byte(`{"message":"Internal server error"}`))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// requestIDMiddleware echoes the caller's X-Request-ID or assigns a new one.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// NewRouter registers every route of the API on a mux router and wraps it
// with the CORS and access log middleware.
func NewRouter(h *apihandlers.Handler, metrics *Metrics, log *zap.Logger) http.Handler {
	r := mux.NewRouter()
	r.Use(requestIDMiddleware, recoveryMiddleware(log), metrics.Middleware)

	r.HandleFunc("/", h.Root).Methods(http.MethodGet)
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/users", h.ListUsers).Methods(http.MethodGet)
	r.HandleFunc("/users", h.CreateUser).Methods(http.MethodPost)
	r.HandleFunc("/users/{id}", h.GetUser).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}", h.UpdateUser).Methods(http.MethodPut)
	r.HandleFunc("/users/{id}", h.DeleteUser).Methods(http.MethodDelete)

	r.HandleFunc("/api/challenges", h.ListChallenges).Methods(http.MethodGet)
	r.HandleFunc("/api/challenges", h.CreateChallenge).Methods(http.MethodPost)
	r.HandleFunc("/api/challenges/{id}", h.GetChallenge).Methods(http.MethodGet)
	r.HandleFunc("/api/challenges/{id}", h.UpdateChallenge).Methods(http.MethodPatch)
	r.HandleFunc("/api/challenges/{id}", h.DeleteChallenge).Methods(http.MethodDelete)

	r.HandleFunc("/api/user-challenges", h.ListUserChallenges).Methods(http.MethodGet)
	r.HandleFunc("/api/user-challenges", h.CreateUserChallenge).Methods(http.MethodPost)
	r.HandleFunc("/api/user-challenges/{id}", h.GetUserChallenge).Methods(http.MethodGet)
	r.HandleFunc("/api/user-challenges/{id}", h.UpdateUserChallenge).Methods(http.MethodPatch)
	r.HandleFunc("/api/user-challenges/{id}", h.DeleteUserChallenge).Methods(http.MethodDelete)

	r.HandleFunc("/api/tips", h.ListTips).Methods(http.MethodGet)
	r.HandleFunc("/api/tips", h.CreateTip).Methods(http.MethodPost)
	r.HandleFunc("/api/tips/{id}", h.GetTip).Methods(http.MethodGet)
	r.HandleFunc("/api/tips/{id}", h.DeleteTip).Methods(http.MethodDelete)

	r.HandleFunc("/api/events", h.ListEvents).Methods(http.MethodGet)
	r.HandleFunc("/api/events", h.CreateEvent).Methods(http.MethodPost)
	r.HandleFunc("/api/events/{id}", h.GetEvent).Methods(http.MethodGet)
	r.HandleFunc("/api/events/{id}", h.DeleteEvent).Methods(http.MethodDelete)

	r.NotFoundHandler = http.HandlerFunc(h.NotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(h.NotFound)

	corsOrigins := handlers.AllowedOrigins([]string{"*"})
	corsMethods := handlers.AllowedMethods([]string{"GET", "HEAD", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	corsHeaders := handlers.AllowedHeaders([]string{"X-Requested-With", "Content-Type", "Authorization", requestIDHeader})

	corsRouter := handlers.CORS(corsOrigins, corsMethods, corsHeaders)(r)

	return handlers.LoggingHandler(os.Stdout, corsRouter)
}

// Start serves handler on addr until ctx is cancelled, then shuts the server
// down, waiting at most shutdownTimeout for in-flight requests.
func Start(ctx context.Context, addr string, handler http.Handler, shutdownTimeout time.Duration, log *zap.Logger) error {
	srv := &http.Server{
		Handler:      handler,
		Addr:         addr,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
