package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/jghoshh/ecotrack/lib/utils"
)

// Request payloads accepted by the HTTP handlers. Dates travel as strings so
// that both calendar dates and RFC 3339 timestamps are accepted.

type CreateUserRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,emailaddr"`
}

// Normalize trims the name and lower-cases the email.
func (r *CreateUserRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = utils.NormalizeEmail(r.Email)
}

type UpdateUserRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,emailaddr"`
}

func (r *UpdateUserRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = utils.NormalizeEmail(r.Email)
}

type CreateChallengeRequest struct {
	Title        string  `json:"title" validate:"required"`
	Category     string  `json:"category" validate:"required"`
	Description  string  `json:"description"`
	Duration     *int    `json:"duration" validate:"omitempty,gte=0"`
	Target       string  `json:"target"`
	Participants *int    `json:"participants" validate:"omitempty,gte=0"`
	ImpactMetric string  `json:"impactMetric"`
	CreatedBy    string  `json:"createdBy"`
	StartDate    *string `json:"startDate"`
	EndDate      *string `json:"endDate"`
	ImageURL     string  `json:"imageUrl"`
}

// UpdateChallengeRequest carries only the fields the caller sent.
type UpdateChallengeRequest struct {
	Title        *string `json:"title" validate:"omitempty,min=1"`
	Category     *string `json:"category" validate:"omitempty,min=1"`
	Description  *string `json:"description"`
	Duration     *int    `json:"duration" validate:"omitempty,gte=0"`
	Target       *string `json:"target"`
	Participants *int    `json:"participants" validate:"omitempty,gte=0"`
	ImpactMetric *string `json:"impactMetric"`
	CreatedBy    *string `json:"createdBy"`
	StartDate    *string `json:"startDate"`
	EndDate      *string `json:"endDate"`
	ImageURL     *string `json:"imageUrl"`
}

type CreateUserChallengeRequest struct {
	UserID      string  `json:"userId" validate:"required"`
	ChallengeID string  `json:"challengeId" validate:"required,mongodb"`
	Status      *string `json:"status"`
	Progress    *int    `json:"progress" validate:"omitempty,gte=0,lte=100"`
}

// UpdateUserChallengeRequest keeps progress raw: it is applied only when the
// caller sent a JSON number.
type UpdateUserChallengeRequest struct {
	Status   string          `json:"status"`
	Progress json.RawMessage `json:"progress"`
}

type CreateTipRequest struct {
	Title      string `json:"title" validate:"required"`
	Content    string `json:"content" validate:"required"`
	Category   string `json:"category"`
	Author     string `json:"author"`
	AuthorName string `json:"authorName"`
}

func (r *CreateTipRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
}

type CreateEventRequest struct {
	Title               string `json:"title" validate:"required"`
	Description         string `json:"description"`
	Date                string `json:"date" validate:"required"`
	Location            string `json:"location"`
	Organizer           string `json:"organizer"`
	MaxParticipants     *int   `json:"maxParticipants" validate:"omitempty,gte=0"`
	CurrentParticipants *int   `json:"currentParticipants" validate:"omitempty,gte=0"`
}

// ChallengePatch is a partial update of a challenge; nil fields are left untouched.
type ChallengePatch struct {
	Title        *string
	Category     *string
	Description  *string
	Duration     *int
	Target       *string
	Participants *int
	ImpactMetric *string
	CreatedBy    *string
	StartDate    *time.Time
	EndDate      *time.Time
	ImageURL     *string
}

// UserChallengePatch is a partial update of an enrollment.
type UserChallengePatch struct {
	Status   *UserChallengeStatus
	Progress *int
}

// Empty reports whether the patch changes nothing.
func (p UserChallengePatch) Empty() bool {
	return p.Status == nil && p.Progress == nil
}
