package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/jghoshh/ecotrack/backend/query"
	"github.com/jghoshh/ecotrack/backend/server/apperror"
	storage "github.com/jghoshh/ecotrack/backend/storage/persistent"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

type messageResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// resource names an entity in responses and activity messages.
type resource struct {
	entity   string // activity feed name
	label    string // capitalised, for messages
	conflict string // message for a unique index violation
}

var (
	userResource          = resource{entity: "user", label: "User", conflict: "Email already exists"}
	challengeResource     = resource{entity: "challenge", label: "Challenge"}
	userChallengeResource = resource{entity: "userChallenge", label: "User challenge"}
	tipResource           = resource{entity: "tip", label: "Tip"}
	eventResource         = resource{entity: "event", label: "Event"}
)

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

func respondWithMessage(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, messageResponse{Message: message})
}

// respondWithError maps err onto the response taxonomy: caller mistakes are
// 400, missing documents 404 and everything else 500 with the detail attached.
func (h *Handler) respondWithError(w http.ResponseWriter, err error, res resource, failure string) {
	var (
		validationErr *apperror.ValidationError
		paramErr      *query.ParamError
	)

	switch {
	case errors.As(err, &validationErr):
		h.log.Warn("validation failed", zap.String("entity", res.entity), zap.String("reason", validationErr.Message))
		respondWithMessage(w, http.StatusBadRequest, validationErr.Message)
	case errors.As(err, &paramErr):
		h.log.Warn("invalid query parameter", zap.String("entity", res.entity), zap.Error(err))
		respondWithMessage(w, http.StatusBadRequest, paramErr.Error())
	case errors.Is(err, storage.ErrNotFound):
		respondWithMessage(w, http.StatusNotFound, res.label+" not found")
	case errors.Is(err, storage.ErrDuplicateKey) && res.conflict != "":
		h.log.Warn("duplicate key", zap.String("entity", res.entity), zap.Error(err))
		respondWithMessage(w, http.StatusBadRequest, res.conflict)
	default:
		h.log.Error(failure, zap.String("entity", res.entity), zap.Error(err))
		respondWithJSON(w, http.StatusInternalServerError, messageResponse{Message: failure, Error: err.Error()})
	}
}

// decode reads a JSON body into dst. An empty body leaves dst untouched.
func decode(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return apperror.Invalid("invalid request payload")
}

// check runs struct validation and converts failures into a ValidationError.
func (h *Handler) check(req interface{}) error {
	if err := h.validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return apperror.Invalid("%s", apperror.Message(err))
		}
		return fmt.Errorf("validating request: %w", err)
	}
	return nil
}
