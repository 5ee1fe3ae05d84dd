package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jghoshh/ecotrack/backend/models"
	"github.com/jghoshh/ecotrack/backend/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collection names match the ones the service has always written to.
const (
	usersCollection          = "users"
	challengesCollection     = "challenges"
	userChallengesCollection = "userchallenges"
	tipsCollection           = "tips"
	eventsCollection         = "events"
)

// MongoStorage is a struct representing a MongoDB storage.
// It provides an interface to perform CRUD operations on the EcoTrack collections.
type MongoStorage struct {
	client *mongo.Client
	db     *mongo.Database
	now    func() time.Time

	indexMu sync.Mutex
	indexed bool
}

// NewMongoStorage creates a new instance of MongoStorage.
// This function doesn't establish a connection to the MongoDB server.
// To connect to the server, use the Connect method of the returned MongoStorage instance.
func NewMongoStorage() *MongoStorage {
	return &MongoStorage{now: time.Now}
}

// Connect establishes a connection to the MongoDB server at the given URI and selects dbName.
// Server selection is bounded by timeout. After a successful ping the indexes are created;
// when the ping fails they are created by the first user write instead.
// The database handle is kept even when the ping fails, so later requests can
// succeed once the server becomes reachable.
func (m *MongoStorage) Connect(dbName, uri string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(timeout).
		SetConnectTimeout(timeout)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("error connecting to MongoDB: %w", err)
	}

	m.client = client
	m.db = client.Database(dbName)

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("error pinging MongoDB: %w", err)
	}

	return m.ensureIndexed(ctx)
}

// EnsureIndexes creates the indexes the service relies on. The unique index
// on users.email is what enforces email uniqueness.
func (m *MongoStorage) EnsureIndexes(ctx context.Context) error {
	if m.db == nil {
		return ErrNotConnected
	}

	indexes := []struct {
		collection string
		model      mongo.IndexModel
	}{
		{usersCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		{challengesCollection, mongo.IndexModel{Keys: bson.D{{Key: "category", Value: 1}}}},
		{userChallengesCollection, mongo.IndexModel{Keys: bson.D{{Key: "userId", Value: 1}}}},
		{eventsCollection, mongo.IndexModel{Keys: bson.D{{Key: "date", Value: 1}}}},
	}

	for _, idx := range indexes {
		if _, err := m.db.Collection(idx.collection).Indexes().CreateOne(ctx, idx.model); err != nil {
			return fmt.Errorf("error creating index on %s: %w", idx.collection, err)
		}
	}
	return nil
}

// ensureIndexed runs EnsureIndexes until it succeeds once.
func (m *MongoStorage) ensureIndexed(ctx context.Context) error {
	m.indexMu.Lock()
	defer m.indexMu.Unlock()

	if m.indexed {
		return nil
	}
	if err := m.EnsureIndexes(ctx); err != nil {
		return err
	}
	m.indexed = true
	return nil
}

// Disconnect closes the connection to the MongoDB server.
func (m *MongoStorage) Disconnect(ctx context.Context) error {
	if m.client == nil {
		return nil
	}
	if err := m.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("error disconnecting from MongoDB: %w", err)
	}
	return nil
}

// Ping checks that the primary is reachable.
func (m *MongoStorage) Ping(ctx context.Context) error {
	if m.client == nil {
		return ErrNotConnected
	}
	return m.client.Ping(ctx, readpref.Primary())
}

func (m *MongoStorage) collection(name string) (*mongo.Collection, error) {
	if m.db == nil {
		return nil, ErrNotConnected
	}
	return m.db.Collection(name), nil
}

// timestamp returns the current time at the millisecond precision BSON stores.
func (m *MongoStorage) timestamp() time.Time {
	return m.now().UTC().Truncate(time.Millisecond)
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return oid, nil
}

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", ErrDuplicateKey, err)
	}
	return err
}

func findMany[T any](ctx context.Context, coll *mongo.Collection, filter interface{}, opts ...*options.FindOptions) ([]T, error) {
	cursor, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := make([]T, 0)
	for cursor.Next(ctx) {
		var item T
		if err := cursor.Decode(&item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (m *MongoStorage) findByID(ctx context.Context, name, id string, out interface{}) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	coll, err := m.collection(name)
	if err != nil {
		return err
	}
	return translate(coll.FindOne(ctx, bson.M{"_id": oid}).Decode(out))
}

func (m *MongoStorage) insert(ctx context.Context, name string, doc interface{}) (primitive.ObjectID, error) {
	coll, err := m.collection(name)
	if err != nil {
		return primitive.NilObjectID, err
	}
	result, err := coll.InsertOne(ctx, doc)
	if err != nil {
		return primitive.NilObjectID, translate(err)
	}
	oid, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, fmt.Errorf("unexpected inserted id type %T", result.InsertedID)
	}
	return oid, nil
}

func (m *MongoStorage) updateByID(ctx context.Context, name, id string, set bson.M, out interface{}) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	coll, err := m.collection(name)
	if err != nil {
		return err
	}
	set["updatedAt"] = m.timestamp()
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	return translate(coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(out))
}

func (m *MongoStorage) deleteByID(ctx context.Context, name, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	coll, err := m.collection(name)
	if err != nil {
		return err
	}
	result, err := coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

var newestFirst = bson.D{{Key: "createdAt", Value: -1}}

// ListUsers returns every user, newest first.
func (m *MongoStorage) ListUsers(ctx context.Context) ([]models.User, error) {
	coll, err := m.collection(usersCollection)
	if err != nil {
		return nil, err
	}
	return findMany[models.User](ctx, coll, bson.M{}, options.Find().SetSort(newestFirst))
}

func (m *MongoStorage) FindUser(ctx context.Context, id string) (*models.User, error) {
	user := &models.User{}
	if err := m.findByID(ctx, usersCollection, id, user); err != nil {
		return nil, err
	}
	return user, nil
}

// AddUser inserts user and returns it with its generated id and timestamps.
// A second user with the same email yields ErrDuplicateKey.
func (m *MongoStorage) AddUser(ctx context.Context, user *models.User) (*models.User, error) {
	if err := m.ensureIndexed(ctx); err != nil {
		return nil, err
	}

	now := m.timestamp()
	user.ID = primitive.NilObjectID
	user.CreatedAt, user.UpdatedAt = now, now

	oid, err := m.insert(ctx, usersCollection, user)
	if err != nil {
		return nil, err
	}
	user.ID = oid
	return user, nil
}

func (m *MongoStorage) UpdateUser(ctx context.Context, id, name, email string) (*models.User, error) {
	if err := m.ensureIndexed(ctx); err != nil {
		return nil, err
	}

	user := &models.User{}
	if err := m.updateByID(ctx, usersCollection, id, bson.M{"name": name, "email": email}, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (m *MongoStorage) DeleteUser(ctx context.Context, id string) error {
	return m.deleteByID(ctx, usersCollection, id)
}

// ListChallenges returns the challenges matching filter, newest first.
func (m *MongoStorage) ListChallenges(ctx context.Context, filter query.ChallengeFilter) ([]models.Challenge, error) {
	coll, err := m.collection(challengesCollection)
	if err != nil {
		return nil, err
	}
	return findMany[models.Challenge](ctx, coll, filter.BSON(), options.Find().SetSort(newestFirst))
}

func (m *MongoStorage) FindChallenge(ctx context.Context, id string) (*models.Challenge, error) {
	challenge := &models.Challenge{}
	if err := m.findByID(ctx, challengesCollection, id, challenge); err != nil {
		return nil, err
	}
	return challenge, nil
}

func (m *MongoStorage) AddChallenge(ctx context.Context, challenge *models.Challenge) (*models.Challenge, error) {
	now := m.timestamp()
	challenge.ID = primitive.NilObjectID
	challenge.CreatedAt, challenge.UpdatedAt = now, now

	oid, err := m.insert(ctx, challengesCollection, challenge)
	if err != nil {
		return nil, err
	}
	challenge.ID = oid
	return challenge, nil
}

// UpdateChallenge sets only the fields present in patch.
func (m *MongoStorage) UpdateChallenge(ctx context.Context, id string, patch models.ChallengePatch) (*models.Challenge, error) {
	challenge := &models.Challenge{}
	if err := m.updateByID(ctx, challengesCollection, id, challengeSet(patch), challenge); err != nil {
		return nil, err
	}
	return challenge, nil
}

func challengeSet(p models.ChallengePatch) bson.M {
	set := bson.M{}
	if p.Title != nil {
		set["title"] = *p.Title
	}
	if p.Category != nil {
		set["category"] = *p.Category
	}
	if p.Description != nil {
		set["description"] = *p.Description
	}
	if p.Duration != nil {
		set["duration"] = *p.Duration
	}
	if p.Target != nil {
		set["target"] = *p.Target
	}
	if p.Participants != nil {
		set["participants"] = *p.Participants
	}
	if p.ImpactMetric != nil {
		set["impactMetric"] = *p.ImpactMetric
	}
	if p.CreatedBy != nil {
		set["createdBy"] = *p.CreatedBy
	}
	if p.StartDate != nil {
		set["startDate"] = *p.StartDate
	}
	if p.EndDate != nil {
		set["endDate"] = *p.EndDate
	}
	if p.ImageURL != nil {
		set["imageUrl"] = *p.ImageURL
	}
	return set
}

func (m *MongoStorage) DeleteChallenge(ctx context.Context, id string) error {
	return m.deleteByID(ctx, challengesCollection, id)
}

// withChallenge resolves challengeId into an embedded "challenge" document.
// Enrollments whose challenge was deleted are kept with no challenge.
func withChallenge(match bson.M) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: newestFirst}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: challengesCollection},
			{Key: "localField", Value: "challengeId"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "challenge"},
		}}},
		{{Key: "$unwind", Value: bson.D{
			{Key: "path", Value: "$challenge"},
			{Key: "preserveNullAndEmptyArrays", Value: true},
		}}},
	}
}

func (m *MongoStorage) aggregateUserChallenges(ctx context.Context, match bson.M) ([]models.UserChallengeWithChallenge, error) {
	coll, err := m.collection(userChallengesCollection)
	if err != nil {
		return nil, err
	}
	cursor, err := coll.Aggregate(ctx, withChallenge(match))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := make([]models.UserChallengeWithChallenge, 0)
	for cursor.Next(ctx) {
		var item models.UserChallengeWithChallenge
		if err := cursor.Decode(&item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// ListUserChallenges returns enrollments matching filter, newest first, each
// carrying its challenge.
func (m *MongoStorage) ListUserChallenges(ctx context.Context, filter query.UserChallengeFilter) ([]models.UserChallengeWithChallenge, error) {
	return m.aggregateUserChallenges(ctx, filter.BSON())
}

func (m *MongoStorage) FindUserChallenge(ctx context.Context, id string) (*models.UserChallengeWithChallenge, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	items, err := m.aggregateUserChallenges(ctx, bson.M{"_id": oid})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNotFound
	}
	return &items[0], nil
}

// AddUserChallenge inserts an enrollment. Empty status defaults to Ongoing and
// a zero join date to now.
func (m *MongoStorage) AddUserChallenge(ctx context.Context, uc *models.UserChallenge) (*models.UserChallenge, error) {
	now := m.timestamp()
	uc.ID = primitive.NilObjectID
	uc.CreatedAt, uc.UpdatedAt = now, now
	if uc.Status == "" {
		uc.Status = models.StatusOngoing
	}
	if uc.JoinDate.IsZero() {
		uc.JoinDate = now
	}

	oid, err := m.insert(ctx, userChallengesCollection, uc)
	if err != nil {
		return nil, err
	}
	uc.ID = oid
	return uc, nil
}

func (m *MongoStorage) UpdateUserChallenge(ctx context.Context, id string, patch models.UserChallengePatch) (*models.UserChallenge, error) {
	set := bson.M{}
	if patch.Status != nil {
		set["status"] = *patch.Status
	}
	if patch.Progress != nil {
		set["progress"] = *patch.Progress
	}

	uc := &models.UserChallenge{}
	if err := m.updateByID(ctx, userChallengesCollection, id, set, uc); err != nil {
		return nil, err
	}
	return uc, nil
}

func (m *MongoStorage) DeleteUserChallenge(ctx context.Context, id string) error {
	return m.deleteByID(ctx, userChallengesCollection, id)
}

func (m *MongoStorage) ListLatestTips(ctx context.Context) ([]models.Tip, error) {
	coll, err := m.collection(tipsCollection)
	if err != nil {
		return nil, err
	}
	opts := options.Find().SetSort(newestFirst).SetLimit(LatestTipsLimit)
	return findMany[models.Tip](ctx, coll, bson.M{}, opts)
}

func (m *MongoStorage) FindTip(ctx context.Context, id string) (*models.Tip, error) {
	tip := &models.Tip{}
	if err := m.findByID(ctx, tipsCollection, id, tip); err != nil {
		return nil, err
	}
	return tip, nil
}

func (m *MongoStorage) AddTip(ctx context.Context, tip *models.Tip) (*models.Tip, error) {
	now := m.timestamp()
	tip.ID = primitive.NilObjectID
	tip.CreatedAt, tip.UpdatedAt = now, now

	oid, err := m.insert(ctx, tipsCollection, tip)
	if err != nil {
		return nil, err
	}
	tip.ID = oid
	return tip, nil
}

func (m *MongoStorage) DeleteTip(ctx context.Context, id string) error {
	return m.deleteByID(ctx, tipsCollection, id)
}

func (m *MongoStorage) ListUpcomingEvents(ctx context.Context, now time.Time) ([]models.Event, error) {
	coll, err := m.collection(eventsCollection)
	if err != nil {
		return nil, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "date", Value: 1}}).
		SetLimit(UpcomingEventsLimit)
	return findMany[models.Event](ctx, coll, query.UpcomingEvents(now), opts)
}

func (m *MongoStorage) FindEvent(ctx context.Context, id string) (*models.Event, error) {
	event := &models.Event{}
	if err := m.findByID(ctx, eventsCollection, id, event); err != nil {
		return nil, err
	}
	return event, nil
}

func (m *MongoStorage) AddEvent(ctx context.Context, event *models.Event) (*models.Event, error) {
	now := m.timestamp()
	event.ID = primitive.NilObjectID
	event.CreatedAt, event.UpdatedAt = now, now

	oid, err := m.insert(ctx, eventsCollection, event)
	if err != nil {
		return nil, err
	}
	event.ID = oid
	return event, nil
}

func (m *MongoStorage) DeleteEvent(ctx context.Context, id string) error {
	return m.deleteByID(ctx, eventsCollection, id)
}
