package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserChallengeStatus is the progress state of a user's enrollment in a challenge.
type UserChallengeStatus string

const (
	StatusNotStarted UserChallengeStatus = "Not Started"
	StatusOngoing    UserChallengeStatus = "Ongoing"
	StatusFinished   UserChallengeStatus = "Finished"
)

// ParseStatus accepts the stored spellings and the space-less "NotStarted".
func ParseStatus(s string) (UserChallengeStatus, bool) {
	if s == "NotStarted" {
		return StatusNotStarted, true
	}
	status := UserChallengeStatus(s)
	return status, status.Valid()
}

// Valid reports whether s is one of the known enrollment states.
func (s UserChallengeStatus) Valid() bool {
	switch s {
	case StatusNotStarted, StatusOngoing, StatusFinished:
		return true
	}
	return false
}

type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name      string             `bson:"name" json:"name"`
	Email     string             `bson:"email" json:"email"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

type Challenge struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Title        string             `bson:"title" json:"title"`
	Category     string             `bson:"category" json:"category"`
	Description  string             `bson:"description,omitempty" json:"description,omitempty"`
	Duration     int                `bson:"duration,omitempty" json:"duration,omitempty"` // days
	Target       string             `bson:"target,omitempty" json:"target,omitempty"`
	Participants int                `bson:"participants" json:"participants"`
	ImpactMetric string             `bson:"impactMetric,omitempty" json:"impactMetric,omitempty"`
	CreatedBy    string             `bson:"createdBy,omitempty" json:"createdBy,omitempty"`
	StartDate    *time.Time         `bson:"startDate,omitempty" json:"startDate,omitempty"`
	EndDate      *time.Time         `bson:"endDate,omitempty" json:"endDate,omitempty"`
	ImageURL     string             `bson:"imageUrl,omitempty" json:"imageUrl,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// UserChallenge is a user's enrollment in a challenge. UserID is an opaque
// owner key, usually the user's email.
type UserChallenge struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"_id"`
	UserID      string              `bson:"userId" json:"userId"`
	ChallengeID primitive.ObjectID  `bson:"challengeId" json:"challengeId"`
	Status      UserChallengeStatus `bson:"status" json:"status"`
	Progress    int                 `bson:"progress" json:"progress"` // percent
	JoinDate    time.Time           `bson:"joinDate" json:"joinDate"`
	CreatedAt   time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// UserChallengeWithChallenge is an enrollment with its challenge resolved in
// place of the reference. Challenge is nil when the referenced challenge no
// longer exists.
type UserChallengeWithChallenge struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"_id"`
	UserID    string              `bson:"userId" json:"userId"`
	Challenge *Challenge          `bson:"challenge,omitempty" json:"challengeId"`
	Status    UserChallengeStatus `bson:"status" json:"status"`
	Progress  int                 `bson:"progress" json:"progress"`
	JoinDate  time.Time           `bson:"joinDate" json:"joinDate"`
	CreatedAt time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time           `bson:"updatedAt" json:"updatedAt"`
}

type Tip struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Title      string             `bson:"title" json:"title"`
	Content    string             `bson:"content" json:"content"`
	Category   string             `bson:"category,omitempty" json:"category,omitempty"`
	Author     string             `bson:"author,omitempty" json:"author,omitempty"` // email
	AuthorName string             `bson:"authorName,omitempty" json:"authorName,omitempty"`
	Upvotes    int                `bson:"upvotes" json:"upvotes"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
}

type Event struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Title               string             `bson:"title" json:"title"`
	Description         string             `bson:"description,omitempty" json:"description,omitempty"`
	Date                time.Time          `bson:"date" json:"date"`
	Location            string             `bson:"location,omitempty" json:"location,omitempty"`
	Organizer           string             `bson:"organizer,omitempty" json:"organizer,omitempty"` // email
	MaxParticipants     int                `bson:"maxParticipants" json:"maxParticipants"`
	CurrentParticipants int                `bson:"currentParticipants" json:"currentParticipants"`
	CreatedAt           time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt           time.Time          `bson:"updatedAt" json:"updatedAt"`
}
