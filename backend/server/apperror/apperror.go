// Package apperror maps request validation failures to client-facing messages.
package apperror

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jghoshh/ecotrack/lib/utils"
)

// ValidationError is a request that failed validation before reaching the store.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Invalid builds a ValidationError from a format string.
func Invalid(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

var customMessages = map[string]string{
	"CreateUserRequest.Name.required":                 "name and email are required",
	"CreateUserRequest.Email.required":                "name and email are required",
	"CreateUserRequest.Email.emailaddr":               "email must be a valid email address",
	"UpdateUserRequest.Name.required":                 "name and email are required",
	"UpdateUserRequest.Email.required":                "name and email are required",
	"UpdateUserRequest.Email.emailaddr":               "email must be a valid email address",
	"CreateChallengeRequest.Title.required":           "title and category are required",
	"CreateChallengeRequest.Category.required":        "title and category are required",
	"CreateUserChallengeRequest.UserID.required":      "userId and challengeId are required",
	"CreateUserChallengeRequest.ChallengeID.required": "userId and challengeId are required",
	"CreateUserChallengeRequest.ChallengeID.mongodb":  "challengeId must be a valid id",
	"CreateUserChallengeRequest.Progress.gte":         "progress must be between 0 and 100",
	"CreateUserChallengeRequest.Progress.lte":         "progress must be between 0 and 100",
	"CreateTipRequest.Title.required":                 "title and content are required",
	"CreateTipRequest.Content.required":               "title and content are required",
	"CreateEventRequest.Title.required":               "title and date are required",
	"CreateEventRequest.Date.required":                "title and date are required",
}

// NewValidator returns a validator with the custom tags the request models use.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("emailaddr", func(fl validator.FieldLevel) bool {
		return utils.ValidateEmail(fl.Field().String())
	})
	return v
}

// Message converts validator errors into one readable sentence. Repeated
// messages (e.g. both required fields missing) are reported once.
func Message(err error) string {
	var validationErr validator.ValidationErrors
	if !errors.As(err, &validationErr) {
		return err.Error()
	}

	seen := make(map[string]bool)
	var msgs []string
	for _, e := range validationErr {
		key := e.StructNamespace() + "." + e.Tag()
		msg, ok := customMessages[key]
		if !ok {
			msg = fmt.Sprintf("%s is invalid", lowerFirst(e.Field()))
		}
		if !seen[msg] {
			seen[msg] = true
			msgs = append(msgs, msg)
		}
	}
	return strings.Join(msgs, "; ")
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
