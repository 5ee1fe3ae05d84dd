package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jghoshh/ecotrack/backend/models"
	"github.com/jghoshh/ecotrack/backend/queue"
)

// ListTips returns the most recent tips.
func (h *Handler) ListTips(w http.ResponseWriter, r *http.Request) {
	tips, err := h.store.ListLatestTips(r.Context())
	if err != nil {
		h.respondWithError(w, err, tipResource, "Error fetching tips")
		return
	}
	respondWithJSON(w, http.StatusOK, tips)
}

func (h *Handler) GetTip(w http.ResponseWriter, r *http.Request) {
	tip, err := h.store.FindTip(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.respondWithError(w, err, tipResource, "Error fetching tip")
		return
	}
	respondWithJSON(w, http.StatusOK, tip)
}

func (h *Handler) CreateTip(w http.ResponseWriter, r *http.Request) {
	var req models.CreateTipRequest
	if err := decode(w, r, &req); err != nil {
		h.respondWithError(w, err, tipResource, "Error creating tip")
		return
	}
	req.Normalize()
	if err := h.check(req); err != nil {
		h.respondWithError(w, err, tipResource, "Error creating tip")
		return
	}

	tip, err := h.store.AddTip(r.Context(), &models.Tip{
		Title:      req.Title,
		Content:    req.Content,
		Category:   req.Category,
		Author:     req.Author,
		AuthorName: req.AuthorName,
	})
	if err != nil {
		h.respondWithError(w, err, tipResource, "Error creating tip")
		return
	}

	h.publisher.PublishActivity(r.Context(), tipResource.entity, queue.ActionCreated, tip.ID.Hex())
	respondWithJSON(w, http.StatusCreated, tip)
}

func (h *Handler) DeleteTip(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.store.DeleteTip(r.Context(), id); err != nil {
		h.respondWithError(w, err, tipResource, "Error deleting tip")
		return
	}

	h.publisher.PublishActivity(r.Context(), tipResource.entity, queue.ActionDeleted, id)
	respondWithMessage(w, http.StatusOK, "Tip deleted successfully")
}
