package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/jghoshh/ecotrack/backend/models"
	"github.com/jghoshh/ecotrack/backend/query"
	"github.com/jghoshh/ecotrack/backend/queue"
	"github.com/jghoshh/ecotrack/backend/server/apperror"
)

// ListChallenges returns the challenges matching the category,
// participants and start date filters, newest first.
func (h *Handler) ListChallenges(w http.ResponseWriter, r *http.Request) {
	filter, err := query.ParseChallengeFilter(r.URL.Query())
	if err != nil {
		h.respondWithError(w, err, challengeResource, "Error fetching challenges")
		return
	}

	challenges, err := h.store.ListChallenges(r.Context(), filter)
	if err != nil {
		h.respondWithError(w, err, challengeResource, "Error fetching challenges")
		return
	}
	respondWithJSON(w, http.StatusOK, challenges)
}

func (h *Handler) GetChallenge(w http.ResponseWriter, r *http.Request) {
	challenge, err := h.store.FindChallenge(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.respondWithError(w, err, challengeResource, "Error fetching challenge")
		return
	}
	respondWithJSON(w, http.StatusOK, challenge)
}

func (h *Handler) CreateChallenge(w http.ResponseWriter, r *http.Request) {
	var req models.CreateChallengeRequest
	if err := decode(w, r, &req); err != nil {
		h.respondWithError(w, err, challengeResource, "Error creating challenge")
		return
	}
	if err := h.check(req); err != nil {
		h.respondWithError(w, err, challengeResource, "Error creating challenge")
		return
	}

	challenge, err := newChallenge(req)
	if err != nil {
		h.respondWithError(w, err, challengeResource, "Error creating challenge")
		return
	}

	challenge, err = h.store.AddChallenge(r.Context(), challenge)
	if err != nil {
		h.respondWithError(w, err, challengeResource, "Error creating challenge")
		return
	}

	h.publisher.PublishActivity(r.Context(), challengeResource.entity, queue.ActionCreated, challenge.ID.Hex())
	respondWithJSON(w, http.StatusCreated, challenge)
}

func newChallenge(req models.CreateChallengeRequest) (*models.Challenge, error) {
	c := &models.Challenge{
		Title:        req.Title,
		Category:     req.Category,
		Description:  req.Description,
		Target:       req.Target,
		ImpactMetric: req.ImpactMetric,
		CreatedBy:    req.CreatedBy,
		ImageURL:     req.ImageURL,
	}
	if req.Duration != nil {
		c.Duration = *req.Duration
	}
	if req.Participants != nil {
		c.Participants = *req.Participants
	}

	var err error
	if c.StartDate, err = bodyDate("startDate", req.StartDate); err != nil {
		return nil, err
	}
	if c.EndDate, err = bodyDate("endDate", req.EndDate); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateChallenge merges the fields present in the body into the challenge.
func (h *Handler) UpdateChallenge(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateChallengeRequest
	if err := decode(w, r, &req); err != nil {
		h.respondWithError(w, err, challengeResource, "Error updating challenge")
		return
	}
	if err := h.check(req); err != nil {
		h.respondWithError(w, err, challengeResource, "Error updating challenge")
		return
	}

	patch := models.ChallengePatch{
		Title:        req.Title,
		Category:     req.Category,
		Description:  req.Description,
		Duration:     req.Duration,
		Target:       req.Target,
		Participants: req.Participants,
		ImpactMetric: req.ImpactMetric,
		CreatedBy:    req.CreatedBy,
		ImageURL:     req.ImageURL,
	}
	var err error
	if patch.StartDate, err = bodyDate("startDate", req.StartDate); err != nil {
		h.respondWithError(w, err, challengeResource, "Error updating challenge")
		return
	}
	if patch.EndDate, err = bodyDate("endDate", req.EndDate); err != nil {
		h.respondWithError(w, err, challengeResource, "Error updating challenge")
		return
	}

	challenge, err := h.store.UpdateChallenge(r.Context(), mux.Vars(r)["id"], patch)
	if err != nil {
		h.respondWithError(w, err, challengeResource, "Error updating challenge")
		return
	}

	h.publisher.PublishActivity(r.Context(), challengeResource.entity, queue.ActionUpdated, challenge.ID.Hex())
	respondWithJSON(w, http.StatusOK, challenge)
}

func (h *Handler) DeleteChallenge(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.store.DeleteChallenge(r.Context(), id); err != nil {
		h.respondWithError(w, err, challengeResource, "Error deleting challenge")
		return
	}

	h.publisher.PublishActivity(r.Context(), challengeResource.entity, queue.ActionDeleted, id)
	respondWithMessage(w, http.StatusOK, "Challenge deleted successfully")
}

// bodyDate parses an optional date field from a request body.
func bodyDate(field string, raw *string) (*time.Time, error) {
	if raw == nil {
		return nil, nil
	}
	t, err := query.ParseDate(*raw)
	if err != nil {
		return nil, apperror.Invalid("%s must be a date", field)
	}
	return &t, nil
}
