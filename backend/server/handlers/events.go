package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jghoshh/ecotrack/backend/models"
	"github.com/jghoshh/ecotrack/backend/query"
	"github.com/jghoshh/ecotrack/backend/queue"
	"github.com/jghoshh/ecotrack/backend/server/apperror"
)

// ListEvents returns the next few events that have not started yet.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.store.ListUpcomingEvents(r.Context(), h.now())
	if err != nil {
		h.respondWithError(w, err, eventResource, "Error fetching events")
		return
	}
	respondWithJSON(w, http.StatusOK, events)
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.store.FindEvent(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.respondWithError(w, err, eventResource, "Error fetching event")
		return
	}
	respondWithJSON(w, http.StatusOK, event)
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req models.CreateEventRequest
	if err := decode(w, r, &req); err != nil {
		h.respondWithError(w, err, eventResource, "Error creating event")
		return
	}
	if err := h.check(req); err != nil {
		h.respondWithError(w, err, eventResource, "Error creating event")
		return
	}

	date, err := query.ParseDate(req.Date)
	if err != nil {
		h.respondWithError(w, apperror.Invalid("date must be a date"), eventResource, "Error creating event")
		return
	}

	event := &models.Event{
		Title:       req.Title,
		Description: req.Description,
		Date:        date,
		Location:    req.Location,
		Organizer:   req.Organizer,
	}
	if req.MaxParticipants != nil {
		event.MaxParticipants = *req.MaxParticipants
	}
	if req.CurrentParticipants != nil {
		event.CurrentParticipants = *req.CurrentParticipants
	}

	event, err = h.store.AddEvent(r.Context(), event)
	if err != nil {
		h.respondWithError(w, err, eventResource, "Error creating event")
		return
	}

	h.publisher.PublishActivity(r.Context(), eventResource.entity, queue.ActionCreated, event.ID.Hex())
	respondWithJSON(w, http.StatusCreated, event)
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.store.DeleteEvent(r.Context(), id); err != nil {
		h.respondWithError(w, err, eventResource, "Error deleting event")
		return
	}

	h.publisher.PublishActivity(r.Context(), eventResource.entity, queue.ActionDeleted, id)
	respondWithMessage(w, http.StatusOK, "Event deleted successfully")
}
