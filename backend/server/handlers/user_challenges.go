package handlers

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jghoshh/ecotrack/backend/models"
	"github.com/jghoshh/ecotrack/backend/query"
	"github.com/jghoshh/ecotrack/backend/queue"
	"github.com/jghoshh/ecotrack/backend/server/apperror"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ListUserChallenges returns enrollments, optionally for one userId, with
// the referenced challenge embedded.
func (h *Handler) ListUserChallenges(w http.ResponseWriter, r *http.Request) {
	filter := query.ParseUserChallengeFilter(r.URL.Query())

	enrollments, err := h.store.ListUserChallenges(r.Context(), filter)
	if err != nil {
		h.respondWithError(w, err, userChallengeResource, "Error fetching user challenges")
		return
	}
	respondWithJSON(w, http.StatusOK, enrollments)
}

func (h *Handler) GetUserChallenge(w http.ResponseWriter, r *http.Request) {
	enrollment, err := h.store.FindUserChallenge(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.respondWithError(w, err, userChallengeResource, "Error fetching user challenge")
		return
	}
	respondWithJSON(w, http.StatusOK, enrollment)
}

// CreateUserChallenge enrolls a user in an existing challenge.
func (h *Handler) CreateUserChallenge(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserChallengeRequest
	if err := decode(w, r, &req); err != nil {
		h.respondWithError(w, err, userChallengeResource, "Error creating user challenge")
		return
	}
	if err := h.check(req); err != nil {
		h.respondWithError(w, err, userChallengeResource, "Error creating user challenge")
		return
	}

	uc := &models.UserChallenge{UserID: req.UserID}
	if req.Status != nil {
		status, ok := models.ParseStatus(*req.Status)
		if !ok {
			h.respondWithError(w, invalidStatus(*req.Status), userChallengeResource, "Error creating user challenge")
			return
		}
		uc.Status = status
	}
	if req.Progress != nil {
		uc.Progress = *req.Progress
	}

	challengeID, err := primitive.ObjectIDFromHex(req.ChallengeID)
	if err != nil {
		h.respondWithError(w, apperror.Invalid("challengeId must be a valid id"), userChallengeResource, "Error creating user challenge")
		return
	}
	uc.ChallengeID = challengeID
	if _, err := h.store.FindChallenge(r.Context(), req.ChallengeID); err != nil {
		h.respondWithError(w, err, challengeResource, "Error creating user challenge")
		return
	}

	uc, err = h.store.AddUserChallenge(r.Context(), uc)
	if err != nil {
		h.respondWithError(w, err, userChallengeResource, "Error creating user challenge")
		return
	}

	h.publisher.PublishActivity(r.Context(), userChallengeResource.entity, queue.ActionCreated, uc.ID.Hex())
	respondWithJSON(w, http.StatusCreated, uc)
}

// UpdateUserChallenge changes status and progress. Progress is applied only
// when it is sent as a JSON number. A patch that changes nothing is not
// published on the activity feed.
func (h *Handler) UpdateUserChallenge(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateUserChallengeRequest
	if err := decode(w, r, &req); err != nil {
		h.respondWithError(w, err, userChallengeResource, "Error updating user challenge")
		return
	}

	patch, err := userChallengePatch(req)
	if err != nil {
		h.respondWithError(w, err, userChallengeResource, "Error updating user challenge")
		return
	}

	uc, err := h.store.UpdateUserChallenge(r.Context(), mux.Vars(r)["id"], patch)
	if err != nil {
		h.respondWithError(w, err, userChallengeResource, "Error updating user challenge")
		return
	}

	if !patch.Empty() {
		h.publisher.PublishActivity(r.Context(), userChallengeResource.entity, queue.ActionUpdated, uc.ID.Hex())
	}
	respondWithJSON(w, http.StatusOK, uc)
}

func userChallengePatch(req models.UpdateUserChallengeRequest) (models.UserChallengePatch, error) {
	var patch models.UserChallengePatch

	if req.Status != "" {
		status, ok := models.ParseStatus(req.Status)
		if !ok {
			return patch, invalidStatus(req.Status)
		}
		patch.Status = &status
	}

	progress, ok, err := numericProgress(req.Progress)
	if err != nil {
		return patch, err
	}
	if ok {
		patch.Progress = &progress
	}
	return patch, nil
}

// numericProgress extracts progress from a raw JSON value. Values that are
// not JSON numbers are ignored.
func numericProgress(raw json.RawMessage) (int, bool, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || (raw[0] != '-' && (raw[0] < '0' || raw[0] > '9')) {
		return 0, false, nil
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, false, nil
	}

	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || f < 0 || f > 100 {
		return 0, false, apperror.Invalid("progress must be between 0 and 100")
	}
	return int(f), true, nil
}

func invalidStatus(s string) error {
	return apperror.Invalid("status must be one of %s, %s, %s (got %q)",
		models.StatusNotStarted, models.StatusOngoing, models.StatusFinished, s)
}

func (h *Handler) DeleteUserChallenge(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.store.DeleteUserChallenge(r.Context(), id); err != nil {
		h.respondWithError(w, err, userChallengeResource, "Error deleting user challenge")
		return
	}

	h.publisher.PublishActivity(r.Context(), userChallengeResource.entity, queue.ActionDeleted, id)
	respondWithMessage(w, http.StatusOK, "User challenge deleted successfully")
}
