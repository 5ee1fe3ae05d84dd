package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jghoshh/ecotrack/backend/models"
	"github.com/jghoshh/ecotrack/backend/queue"
)

// ListUsers returns every user, newest first.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		h.respondWithError(w, err, userResource, "Error fetching users")
		return
	}
	respondWithJSON(w, http.StatusOK, users)
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.store.FindUser(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.respondWithError(w, err, userResource, "Error fetching user")
		return
	}
	respondWithJSON(w, http.StatusOK, user)
}

// CreateUser stores a new user. Name is trimmed and email lower-cased first.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if err := decode(w, r, &req); err != nil {
		h.respondWithError(w, err, userResource, "Error creating user")
		return
	}
	req.Normalize()
	if err := h.check(req); err != nil {
		h.respondWithError(w, err, userResource, "Error creating user")
		return
	}

	user, err := h.store.AddUser(r.Context(), &models.User{Name: req.Name, Email: req.Email})
	if err != nil {
		h.respondWithError(w, err, userResource, "Error creating user")
		return
	}

	h.publisher.PublishActivity(r.Context(), userResource.entity, queue.ActionCreated, user.ID.Hex())
	respondWithJSON(w, http.StatusCreated, user)
}

// UpdateUser replaces the user's name and email.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateUserRequest
	if err := decode(w, r, &req); err != nil {
		h.respondWithError(w, err, userResource, "Error updating user")
		return
	}
	req.Normalize()
	if err := h.check(req); err != nil {
		h.respondWithError(w, err, userResource, "Error updating user")
		return
	}

	user, err := h.store.UpdateUser(r.Context(), mux.Vars(r)["id"], req.Name, req.Email)
	if err != nil {
		h.respondWithError(w, err, userResource, "Error updating user")
		return
	}

	h.publisher.PublishActivity(r.Context(), userResource.entity, queue.ActionUpdated, user.ID.Hex())
	respondWithJSON(w, http.StatusOK, user)
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.store.DeleteUser(r.Context(), id); err != nil {
		h.respondWithError(w, err, userResource, "Error deleting user")
		return
	}

	h.publisher.PublishActivity(r.Context(), userResource.entity, queue.ActionDeleted, id)
	respondWithMessage(w, http.StatusOK, "User deleted successfully")
}
