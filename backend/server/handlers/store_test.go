package handlers_test

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jghoshh/ecotrack/backend/models"
	"github.com/jghoshh/ecotrack/backend/query"
	storage "github.com/jghoshh/ecotrack/backend/storage/persistent"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memStore is an in-memory StorageInterface with the same ordering, limits
// and error semantics as the MongoDB storage.
type memStore struct {
	mu sync.Mutex

	clock   time.Time
	pingErr error
	failErr error

	users          []models.User
	challenges     []models.Challenge
	userChallenges []models.UserChallenge
	tips           []models.Tip
	events         []models.Event
}

func newMemStore() *memStore {
	return &memStore{clock: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

// tick returns strictly increasing timestamps so creation order is observable.
func (s *memStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", storage.ErrInvalidID, id)
	}
	return oid, nil
}

func indexOf[T any](items []T, id string, key func(T) primitive.ObjectID) (int, error) {
	oid, err := parseID(id)
	if err != nil {
		return -1, err
	}
	for i, item := range items {
		if key(item) == oid {
			return i, nil
		}
	}
	return -1, storage.ErrNotFound
}

func newestFirst[T any](items []T, createdAt func(T) time.Time) []T {
	out := append(make([]T, 0, len(items)), items...)
	sort.SliceStable(out, func(i, j int) bool { return createdAt(out[i]).After(createdAt(out[j])) })
	return out
}

func userID(u models.User) primitive.ObjectID                   { return u.ID }
func challengeID(c models.Challenge) primitive.ObjectID         { return c.ID }
func userChallengeID(c models.UserChallenge) primitive.ObjectID { return c.ID }
func tipID(t models.Tip) primitive.ObjectID                     { return t.ID }
func eventID(e models.Event) primitive.ObjectID                 { return e.ID }

func (s *memStore) Ping(context.Context) error { return s.pingErr }

func (s *memStore) Disconnect(context.Context) error { return nil }

func (s *memStore) ListUsers(context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return nil, s.failErr
	}
	return newestFirst(s.users, func(u models.User) time.Time { return u.CreatedAt }), nil
}

func (s *memStore) FindUser(_ context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := indexOf(s.users, id, userID)
	if err != nil {
		return nil, err
	}
	u := s.users[i]
	return &u, nil
}

func (s *memStore) emailTaken(email string, except primitive.ObjectID) bool {
	for _, u := range s.users {
		if u.Email == email && u.ID != except {
			return true
		}
	}
	return false
}

func (s *memStore) AddUser(_ context.Context, user *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.emailTaken(user.Email, primitive.NilObjectID) {
		return nil, fmt.Errorf("%w: email", storage.ErrDuplicateKey)
	}
	now := s.tick()
	user.ID = primitive.NewObjectID()
	user.CreatedAt, user.UpdatedAt = now, now
	s.users = append(s.users, *user)
	return user, nil
}

func (s *memStore) UpdateUser(_ context.Context, id, name, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := indexOf(s.users, id, userID)
	if err != nil {
		return nil, err
	}
	if s.emailTaken(email, s.users[i].ID) {
		return nil, fmt.Errorf("%w: email", storage.ErrDuplicateKey)
	}
	s.users[i].Name, s.users[i].Email, s.users[i].UpdatedAt = name, email, s.tick()
	u := s.users[i]
	return &u, nil
}

func (s *memStore) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := indexOf(s.users, id, userID)
	if err != nil {
		return err
	}
	s.users = append(s.users[:i], s.users[i+1:]...)
	return nil
}

func matchesChallenge(f query.ChallengeFilter, c models.Challenge) bool {
	if len(f.Categories) > 0 {
		found := false
		for _, cat := range f.Categories {
			found = found || cat == c.Category
		}
		if !found {
			return false
		}
	}
	if f.MinParticipants != nil && float64(c.Participants) < *f.MinParticipants {
		return false
	}
	if f.MaxParticipants != nil && float64(c.Participants) > *f.MaxParticipants {
		return false
	}
	if f.StartFrom != nil && (c.StartDate == nil || c.StartDate.Before(*f.StartFrom)) {
		return false
	}
	if f.StartTo != nil && (c.StartDate == nil || c.StartDate.After(*f.StartTo)) {
		return false
	}
	return true
}

func (s *memStore) ListChallenges(_ context.Context, filter query.ChallengeFilter) ([]models.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matched := make([]models.Challenge, 0)
	for _, c := range s.challenges {
		if matchesChallenge(filter, c) {
			matched = append(matched, c)
		}
	}
	return newestFirst(matched, func(c models.Challenge) time.Time { return c.CreatedAt }), nil
}

func (s *memStore) FindChallenge(_ context.Context, id string) (*models.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := indexOf(s.challenges, id, challengeID)
	if err != nil {
		return nil, err
	}
	c := s.challenges[i]
	return &c, nil
}

func (s *memStore) AddChallenge(_ context.Context, challenge *models.Challenge) (*models.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.tick()
	challenge.ID = primitive.NewObjectID()
	challenge.CreatedAt, challenge.UpdatedAt = now, now
	s.challenges = append(s.challenges, *challenge)
	return challenge, nil
}

func (s *memStore) UpdateChallenge(_ context.Context, id string, p models.ChallengePatch) (*models.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := indexOf(s.challenges, id, challengeID)
	if err != nil {
		return nil, err
	}
	c := &s.challenges[i]
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setString(&c.Title, p.Title)
	setString(&c.Category, p.Category)
	setString(&c.Description, p.Description)
	setString(&c.Target, p.Target)
	setString(&c.ImpactMetric, p.ImpactMetric)
	setString(&c.CreatedBy, p.CreatedBy)
	setString(&c.ImageURL, p.ImageURL)
	if p.Duration != nil {
		c.Duration = *p.Duration
	}
	if p.Participants != nil {
		c.Participants = *p.Participants
	}
	if p.StartDate != nil {
		c.StartDate = p.StartDate
	}
	if p.EndDate != nil {
		c.EndDate = p.EndDate
	}
	c.UpdatedAt = s.tick()
	out := *c
	return &out, nil
}

func (s *memStore) DeleteChallenge(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := indexOf(s.challenges, id, challengeID)
	if err != nil {
		return err
	}
	s.challenges = append(s.challenges[:i], s.challenges[i+1:]...)
	return nil
}

func (s *memStore) embed(uc models.UserChallenge) models.UserChallengeWithChallenge {
	out := models.UserChallengeWithChallenge{
		ID:        uc.ID,
		UserID:    uc.UserID,
		Status:    uc.Status,
		Progress:  uc.Progress,
		JoinDate:  uc.JoinDate,
		CreatedAt: uc.CreatedAt,
		UpdatedAt: uc.UpdatedAt,
	}
	for _, c := range s.challenges {
		if c.ID == uc.ChallengeID {
			c := c
			out.Challenge = &c
		}
	}
	return out
}

func (s *memStore) ListUserChallenges(_ context.Context, filter query.UserChallengeFilter) ([]models.UserChallengeWithChallenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.UserChallengeWithChallenge, 0)
	for _, uc := range newestFirst(s.userChallenges, func(uc models.UserChallenge) time.Time { return uc.CreatedAt }) {
		if filter.UserID != "" && uc.UserID != filter.UserID {
			continue
		}
		out = append(out, s.embed(uc))
	}
	return out, nil
}

func (s *memStore) FindUserChallenge(_ context.Context, id string) (*models.UserChallengeWithChallenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := indexOf(s.userChallenges, id, userChallengeID)
	if err != nil {
		return nil, err
	}
	out := s.embed(s.userChallenges[i])
	return &out, nil
}

func (s *memStore) AddUserChallenge(_ context.Context, uc *models.UserChallenge) (*models.UserChallenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.tick()
	uc.ID = primitive.NewObjectID()
	uc.CreatedAt, uc.UpdatedAt = now, now
	if uc.Status == "" {
		uc.Status = models.StatusOngoing
	}
	if uc.JoinDate.IsZero() {
		uc.JoinDate = now
	}
	s.userChallenges = append(s.userChallenges, *uc)
	return uc, nil
}

func (s *memStore) UpdateUserChallenge(_ context.Context, id string, p models.UserChallengePatch) (*models.UserChallenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := indexOf(s.userChallenges, id, userChallengeID)
	if err != nil {
		return nil, err
	}
	uc := &s.userChallenges[i]
	if p.Status != nil {
		uc.Status = *p.Status
	}
	if p.Progress != nil {
		uc.Progress = *p.Progress
	}
	uc.UpdatedAt = s.tick()
	out := *uc
	return &out, nil
}

func (s *memStore) DeleteUserChallenge(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := indexOf(s.userChallenges, id, userChallengeID)
	if err != nil {
		return err
	}
	s.userChallenges = append(s.userChallenges[:i], s.userChallenges[i+1:]...)
	return nil
}

func (s *memStore) ListLatestTips(context.Context) ([]models.Tip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tips := newestFirst(s.tips, func(t models.Tip) time.Time { return t.CreatedAt })
	if len(tips) > storage.LatestTipsLimit {
		tips = tips[:storage.LatestTipsLimit]
	}
	return tips, nil
}

func (s *memStore) FindTip(_ context.Context, id string) (*models.Tip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := indexOf(s.tips, id, tipID)
	if err != nil {
		return nil, err
	}
	t := s.tips[i]
	return &t, nil
}

func (s *memStore) AddTip(_ context.Context, tip *models.Tip) (*models.Tip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.tick()
	tip.ID = primitive.NewObjectID()
	tip.CreatedAt, tip.UpdatedAt = now, now
	s.tips = append(s.tips, *tip)
	return tip, nil
}

func (s *memStore) DeleteTip(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := indexOf(s.tips, id, tipID)
	if err != nil {
		return err
	}
	s.tips = append(s.tips[:i], s.tips[i+1:]...)
	return nil
}

func (s *memStore) ListUpcomingEvents(_ context.Context, now time.Time) ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	upcoming := make([]models.Event, 0)
	for _, e := range s.events {
		if !e.Date.Before(now) {
			upcoming = append(upcoming, e)
		}
	}
	sort.SliceStable(upcoming, func(i, j int) bool { return upcoming[i].Date.Before(upcoming[j].Date) })
	if len(upcoming) > storage.UpcomingEventsLimit {
		upcoming = upcoming[:storage.UpcomingEventsLimit]
	}
	return upcoming, nil
}

func (s *memStore) FindEvent(_ context.Context, id string) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := indexOf(s.events, id, eventID)
	if err != nil {
		return nil, err
	}
	e := s.events[i]
	return &e, nil
}

func (s *memStore) AddEvent(_ context.Context, event *models.Event) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.tick()
	event.ID = primitive.NewObjectID()
	event.CreatedAt, event.UpdatedAt = now, now
	s.events = append(s.events, *event)
	return event, nil
}

func (s *memStore) DeleteEvent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := indexOf(s.events, id, eventID)
	if err != nil {
		return err
	}
	s.events = append(s.events[:i], s.events[i+1:]...)
	return nil
}

// counts reports how many documents each collection holds.
func (s *memStore) counts() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.Join([]string{
		fmt.Sprint(len(s.users)),
		fmt.Sprint(len(s.challenges)),
		fmt.Sprint(len(s.userChallenges)),
		fmt.Sprint(len(s.tips)),
		fmt.Sprint(len(s.events)),
	}, "/")
}

var _ storage.StorageInterface = (*memStore)(nil)
