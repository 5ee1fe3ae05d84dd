// Package handlers implements the REST resources of the EcoTrack API.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jghoshh/ecotrack/backend/queue"
	storage "github.com/jghoshh/ecotrack/backend/storage/persistent"
	"go.uber.org/zap"
)

// Handler serves every resource over a single store handle.
type Handler struct {
	store     storage.StorageInterface
	publisher queue.Publisher
	validate  *validator.Validate
	log       *zap.Logger
	now       func() time.Time
}

// New creates a Handler. A nil publisher disables the activity feed.
func New(store storage.StorageInterface, publisher queue.Publisher, v *validator.Validate, log *zap.Logger) *Handler {
	if publisher == nil {
		publisher = queue.NopPublisher{}
	}
	return &Handler{
		store:     store,
		publisher: publisher,
		validate:  v,
		log:       log,
		now:       time.Now,
	}
}

// Root is the liveness text response.
func (h *Handler) Root(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("EcoTrack API is running"))
}

// Health reports whether the store answers a ping.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.log.Warn("health check failed", zap.Error(err))
		respondWithJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  "database connection failed",
		})
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// NotFound answers unmatched routes, including known paths with an unsupported method.
func (h *Handler) NotFound(w http.ResponseWriter, _ *http.Request) {
	respondWithMessage(w, http.StatusNotFound, "Route not found")
}
