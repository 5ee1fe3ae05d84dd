package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jghoshh/ecotrack/backend/models"
	"github.com/jghoshh/ecotrack/backend/query"
)

var (
	// ErrNotFound is returned when no document matches the given identifier.
	ErrNotFound = errors.New("document not found")
	// ErrDuplicateKey is returned when a write violates a unique index.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrInvalidID is returned when an identifier is not a valid ObjectID.
	ErrInvalidID = errors.New("invalid id")
	// ErrNotConnected is returned when the storage has no database handle.
	ErrNotConnected = errors.New("storage is not connected")
)

const (
	// LatestTipsLimit caps the tip listing.
	LatestTipsLimit = 5
	// UpcomingEventsLimit caps the upcoming event listing.
	UpcomingEventsLimit = 4
)

// StorageInterface defines the set of methods that any persistent storage
// backend needs to implement. Identifiers are the hex form of the document id.
// Implementations assign ids and the createdAt/updatedAt timestamps.
type StorageInterface interface {
	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
	// Disconnect releases the connection to the backend.
	Disconnect(ctx context.Context) error

	ListUsers(ctx context.Context) ([]models.User, error)
	FindUser(ctx context.Context, id string) (*models.User, error)
	AddUser(ctx context.Context, user *models.User) (*models.User, error)
	// UpdateUser replaces the user's name and email.
	UpdateUser(ctx context.Context, id, name, email string) (*models.User, error)
	DeleteUser(ctx context.Context, id string) error

	ListChallenges(ctx context.Context, filter query.ChallengeFilter) ([]models.Challenge, error)
	FindChallenge(ctx context.Context, id string) (*models.Challenge, error)
	AddChallenge(ctx context.Context, challenge *models.Challenge) (*models.Challenge, error)
	// UpdateChallenge merges the non-nil patch fields into the challenge.
	UpdateChallenge(ctx context.Context, id string, patch models.ChallengePatch) (*models.Challenge, error)
	DeleteChallenge(ctx context.Context, id string) error

	// ListUserChallenges returns enrollments with their challenge embedded.
	ListUserChallenges(ctx context.Context, filter query.UserChallengeFilter) ([]models.UserChallengeWithChallenge, error)
	FindUserChallenge(ctx context.Context, id string) (*models.UserChallengeWithChallenge, error)
	AddUserChallenge(ctx context.Context, uc *models.UserChallenge) (*models.UserChallenge, error)
	UpdateUserChallenge(ctx context.Context, id string, patch models.UserChallengePatch) (*models.UserChallenge, error)
	DeleteUserChallenge(ctx context.Context, id string) error

	// ListLatestTips returns the LatestTipsLimit most recently created tips.
	ListLatestTips(ctx context.Context) ([]models.Tip, error)
	FindTip(ctx context.Context, id string) (*models.Tip, error)
	AddTip(ctx context.Context, tip *models.Tip) (*models.Tip, error)
	DeleteTip(ctx context.Context, id string) error

	// ListUpcomingEvents returns up to UpcomingEventsLimit events dated at or
	// after now, soonest first.
	ListUpcomingEvents(ctx context.Context, now time.Time) ([]models.Event, error)
	FindEvent(ctx context.Context, id string) (*models.Event, error)
	AddEvent(ctx context.Context, event *models.Event) (*models.Event, error)
	DeleteEvent(ctx context.Context, id string) error
}

// NewStorage creates a MongoDB backed storage and connects it to uri.
// The returned storage is usable even when err is non-nil and reports a
// failed ping: the driver keeps trying to reach the server, and operations
// fail individually until it does.
func NewStorage(dbName, uri string, timeout time.Duration) (*MongoStorage, error) {
	storage := NewMongoStorage()
	err := storage.Connect(dbName, uri, timeout)
	if err != nil {
		return storage, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return storage, nil
}
