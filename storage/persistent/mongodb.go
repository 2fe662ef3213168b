package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/masteryflow/masteryflow/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when a single-document lookup matches nothing.
var ErrNotFound = errors.New("document not found")

// ErrDuplicate is returned when an insert violates a unique index, e.g. a
// second mission for the same (user, date).
var ErrDuplicate = errors.New("duplicate document")

// MongoStorage is a struct representing a MongoDB storage.
// It provides an interface to perform CRUD operations on various collections in the MongoDB database.
type MongoStorage struct {
	client *mongo.Client
	dbName string
}

// NewMongoStorage creates a new instance of MongoStorage.
// This function doesn't establish a connection to the MongoDB server.
// To connect to the server, use the Connect method of the returned MongoStorage instance.
func NewMongoStorage() *MongoStorage {
	return &MongoStorage{}
}

// Connect establishes a connection to the MongoDB server at the given URI and database name.
// Sets up indexes and unique constraints as necessary. In particular, the unique compound
// index on daily_missions (user_id, mission_date) is what makes the "at most one mission
// per user per day" check-then-insert safe under concurrent triggers.
// Returns an error if any issues are encountered.
func (m *MongoStorage) Connect(dbName, uri string) error {

	// Set a timeout for the connection
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("error connecting to MongoDB: %v", err)
	}

	m.client = client
	m.dbName = dbName

	// Initializing users collection
	usersCollection := m.client.Database(m.dbName).Collection("users")

	// Create an index on the "email" field. This is to ensure that every user has a unique email.
	emailIndexModel := mongo.IndexModel{
		Keys: bson.M{
			"email": 1, // 1 for ascending order
		},
		Options: options.Index().SetUnique(true),
	}
	_, err = usersCollection.Indexes().CreateOne(ctx, emailIndexModel)
	if err != nil {
		return fmt.Errorf("error creating email index: %v", err)
	}

	// Create an index on the "username" field. This is to ensure that every user has a unique username.
	usernameIndexModel := mongo.IndexModel{
		Keys: bson.M{
			"username": 1,
		},
		Options: options.Index().SetUnique(true),
	}
	_, err = usersCollection.Indexes().CreateOne(ctx, usernameIndexModel)
	if err != nil {
		return fmt.Errorf("error creating username index: %v", err)
	}

	// Initializing tracks collection
	tracksCollection := m.client.Database(m.dbName).Collection("tracks")

	// Create an index on the "user_id" field. This will speed up per-user track queries.
	trackUserIdIndexModel := mongo.IndexModel{
		Keys: bson.M{
			"user_id": 1,
		},
		Options: options.Index(),
	}
	_, err = tracksCollection.Indexes().CreateOne(ctx, trackUserIdIndexModel)
	if err != nil {
		return fmt.Errorf("error creating user_id index on tracks: %v", err)
	}

	// Create a compound index on the "user_id" and "name" fields.
	// This will ensure that a user can't have two tracks with the same name.
	trackUserIdNameIndexModel := mongo.IndexModel{
		Keys: bson.D{
			{Key: "user_id", Value: 1},
			{Key: "name", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	}
	_, err = tracksCollection.Indexes().CreateOne(ctx, trackUserIdNameIndexModel)
	if err != nil {
		return fmt.Errorf("error creating user_id and name index on tracks: %v", err)
	}

	// Initializing track_items collection
	itemsCollection := m.client.Database(m.dbName).Collection("track_items")

	// Create a compound unique index on "track_id" and "order_index".
	// Order indexes define the resume order and must be unique within a track.
	itemOrderIndexModel := mongo.IndexModel{
		Keys: bson.D{
			{Key: "track_id", Value: 1},
			{Key: "order_index", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	}
	_, err = itemsCollection.Indexes().CreateOne(ctx, itemOrderIndexModel)
	if err != nil {
		return fmt.Errorf("error creating track_id and order_index index on track_items: %v", err)
	}

	// Initializing daily_missions collection
	missionsCollection := m.client.Database(m.dbName).Collection("daily_missions")

	// Create a compound unique index on "user_id" and "mission_date".
	// This is the atomicity guarantee for "at most one mission per user per day":
	// concurrent duplicate assembly triggers race on the insert, and the loser
	// gets a duplicate key error instead of creating a second mission.
	missionDateIndexModel := mongo.IndexModel{
		Keys: bson.D{
			{Key: "user_id", Value: 1},
			{Key: "mission_date", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	}
	_, err = missionsCollection.Indexes().CreateOne(ctx, missionDateIndexModel)
	if err != nil {
		return fmt.Errorf("error creating user_id and mission_date index on daily_missions: %v", err)
	}

	// Initializing mission_tasks collection
	tasksCollection := m.client.Database(m.dbName).Collection("mission_tasks")

	// Create an index on the "mission_id" field. This will speed up per-mission task queries.
	taskMissionIdIndexModel := mongo.IndexModel{
		Keys: bson.M{
			"mission_id": 1,
		},
		Options: options.Index(),
	}
	_, err = tasksCollection.Indexes().CreateOne(ctx, taskMissionIdIndexModel)
	if err != nil {
		return fmt.Errorf("error creating mission_id index on mission_tasks: %v", err)
	}

	// Initializing streaks collection
	streaksCollection := m.client.Database(m.dbName).Collection("streaks")

	// Create a compound unique index on "user_id" and "track_id".
	// A user has exactly one streak row per track, plus one global row whose
	// track_id is the zero ObjectID.
	streakIndexModel := mongo.IndexModel{
		Keys: bson.D{
			{Key: "user_id", Value: 1},
			{Key: "track_id", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	}
	_, err = streaksCollection.Indexes().CreateOne(ctx, streakIndexModel)
	if err != nil {
		return fmt.Errorf("error creating user_id and track_id index on streaks: %v", err)
	}

	// Initializing xp_transactions collection
	xpCollection := m.client.Database(m.dbName).Collection("xp_transactions")

	// Create an index on the "user_id" field. This will speed up ledger sums per user.
	xpUserIdIndexModel := mongo.IndexModel{
		Keys: bson.M{
			"user_id": 1,
		},
		Options: options.Index(),
	}
	_, err = xpCollection.Indexes().CreateOne(ctx, xpUserIdIndexModel)
	if err != nil {
		return fmt.Errorf("error creating user_id index on xp_transactions: %v", err)
	}

	return nil
}

// Disconnect closes the connection to the MongoDB server.
func (m *MongoStorage) Disconnect() error {
	if m.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

// wrapFindErr maps the driver's no-documents error onto ErrNotFound.
func wrapFindErr(err error) error {
	if err == mongo.ErrNoDocuments {
		return ErrNotFound
	}
	return err
}

// isDuplicateKey reports whether an insert failed because of a unique index violation.
func isDuplicateKey(err error) bool {
	var writeException mongo.WriteException
	if errors.As(err, &writeException) {
		for _, writeError := range writeException.WriteErrors {
			if writeError.Code == 11000 {
				return true
			}
		}
	}
	return mongo.IsDuplicateKeyError(err)
}

// AddUser adds a new user document to the 'users' collection.
// Returns the added user instance and an error if the insert operation fails.
func (m *MongoStorage) AddUser(ctx context.Context, user *models.User) (*models.User, error) {
	collection := m.client.Database(m.dbName).Collection("users")
	result, err := collection.InsertOne(ctx, user)
	if err != nil {
		if isDuplicateKey(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	user.ID = result.InsertedID.(primitive.ObjectID)
	return user, nil
}

// FindUser finds a user document in the 'users' collection that matches the given filter.
func (m *MongoStorage) FindUser(ctx context.Context, filter interface{}) (*models.User, error) {
	collection := m.client.Database(m.dbName).Collection("users")
	user := &models.User{}
	if err := collection.FindOne(ctx, filter).Decode(user); err != nil {
		return nil, wrapFindErr(err)
	}
	return user, nil
}

// FindUsersByParameter finds all user documents matching the given filter.
func (m *MongoStorage) FindUsersByParameter(ctx context.Context, filter interface{}) ([]models.User, error) {
	collection := m.client.Database(m.dbName).Collection("users")
	cursor, err := collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateUser updates a user document in the 'users' collection that matches the given filter.
// Returns the updated user as a User instance and an error if the update operation fails.
func (m *MongoStorage) UpdateUser(ctx context.Context, filter interface{}, update interface{}) (*models.User, error) {
	collection := m.client.Database(m.dbName).Collection("users")
	result, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return nil, err
	}
	if result.MatchedCount == 0 {
		return nil, ErrNotFound
	}
	return m.FindUser(ctx, filter)
}

// DeleteUser deletes a user document from the 'users' collection that matches the given filter.
// It also deletes all documents owned by the user: tracks, track items, missions, mission
// tasks, streaks, XP transactions, and confirmations.
func (m *MongoStorage) DeleteUser(ctx context.Context, filter interface{}) (*DeleteResult, error) {
	collection := m.client.Database(m.dbName).Collection("users")
	userResult := collection.FindOne(ctx, filter)
	if err := userResult.Err(); err != nil {
		return nil, wrapFindErr(err)
	}

	user := &models.User{}
	if err := userResult.Decode(user); err != nil {
		return nil, err
	}

	db := m.client.Database(m.dbName)

	// Collect the user's track and mission ids so the child collections can be cleaned up.
	tracks, err := m.FindTracksByParameter(ctx, bson.M{"user_id": user.ID})
	if err != nil {
		return nil, err
	}
	trackIDs := make([]primitive.ObjectID, 0, len(tracks))
	for _, track := range tracks {
		trackIDs = append(trackIDs, track.ID)
	}

	missions, err := m.FindMissionsByParameter(ctx, bson.M{"user_id": user.ID})
	if err != nil {
		return nil, err
	}
	missionIDs := make([]primitive.ObjectID, 0, len(missions))
	for _, mission := range missions {
		missionIDs = append(missionIDs, mission.ID)
	}

	if len(trackIDs) > 0 {
		if _, err := db.Collection("track_items").DeleteMany(ctx, bson.M{"track_id": bson.M{"$in": trackIDs}}); err != nil {
			return nil, err
		}
	}
	if len(missionIDs) > 0 {
		if _, err := db.Collection("mission_tasks").DeleteMany(ctx, bson.M{"mission_id": bson.M{"$in": missionIDs}}); err != nil {
			return nil, err
		}
	}
	for _, name := range []string{"tracks", "daily_missions", "streaks", "xp_transactions", "confirmations"} {
		if _, err := db.Collection(name).DeleteMany(ctx, bson.M{"user_id": user.ID}); err != nil {
			return nil, err
		}
	}

	result, err := collection.DeleteOne(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &DeleteResult{DeletedCount: result.DeletedCount}, nil
}

// AddTrack adds a new track document to the 'tracks' collection.
// Returns the added track instance and an error if the insert operation fails.
func (m *MongoStorage) AddTrack(ctx context.Context, track *models.Track) (*models.Track, error) {
	collection := m.client.Database(m.dbName).Collection("tracks")
	result, err := collection.InsertOne(ctx, track)
	if err != nil {
		if isDuplicateKey(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	track.ID = result.InsertedID.(primitive.ObjectID)
	return track, nil
}

// FindTrack finds a track document in the 'tracks' collection that matches the given filter.
func (m *MongoStorage) FindTrack(ctx context.Context, filter interface{}) (*models.Track, error) {
	collection := m.client.Database(m.dbName).Collection("tracks")
	track := &models.Track{}
	if err := collection.FindOne(ctx, filter).Decode(track); err != nil {
		return nil, wrapFindErr(err)
	}
	return track, nil
}

// FindTracksByParameter finds track documents matching the given filter,
// ordered by ascending rotation priority. The track selector depends on this
// ordering being stable to keep its tie-breaking deterministic.
func (m *MongoStorage) FindTracksByParameter(ctx context.Context, filter interface{}) ([]models.Track, error) {
	collection := m.client.Database(m.dbName).Collection("tracks")
	opts := options.Find().SetSort(bson.D{{Key: "rotation_priority", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var tracks []models.Track
	if err := cursor.All(ctx, &tracks); err != nil {
		return nil, err
	}
	return tracks, nil
}

// UpdateTrack updates a track document matching the given filter.
func (m *MongoStorage) UpdateTrack(ctx context.Context, filter interface{}, update interface{}) (*UpdateResult, error) {
	collection := m.client.Database(m.dbName).Collection("tracks")
	result, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return nil, err
	}
	return &UpdateResult{MatchedCount: result.MatchedCount, ModifiedCount: result.ModifiedCount}, nil
}

// DeleteTrack deletes a track document matching the given filter, along with its items.
func (m *MongoStorage) DeleteTrack(ctx context.Context, filter interface{}) (*DeleteResult, error) {
	collection := m.client.Database(m.dbName).Collection("tracks")
	track := &models.Track{}
	if err := collection.FindOne(ctx, filter).Decode(track); err != nil {
		return nil, wrapFindErr(err)
	}
	if _, err := m.client.Database(m.dbName).Collection("track_items").DeleteMany(ctx, bson.M{"track_id": track.ID}); err != nil {
		return nil, err
	}
	result, err := collection.DeleteOne(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &DeleteResult{DeletedCount: result.DeletedCount}, nil
}

// AddTrackItems inserts a batch of track item documents.
// Returns the inserted items with their assigned ids.
func (m *MongoStorage) AddTrackItems(ctx context.Context, items []models.TrackItem) ([]models.TrackItem, error) {
	if len(items) == 0 {
		return nil, nil
	}
	collection := m.client.Database(m.dbName).Collection("track_items")
	docs := make([]interface{}, len(items))
	for i := range items {
		docs[i] = items[i]
	}
	result, err := collection.InsertMany(ctx, docs)
	if err != nil {
		if isDuplicateKey(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	for i, id := range result.InsertedIDs {
		items[i].ID = id.(primitive.ObjectID)
	}
	return items, nil
}

// FindTrackItemsByParameter finds track item documents matching the given filter,
// ordered by ascending order index. The item picker depends on this ordering.
func (m *MongoStorage) FindTrackItemsByParameter(ctx context.Context, filter interface{}) ([]models.TrackItem, error) {
	collection := m.client.Database(m.dbName).Collection("track_items")
	opts := options.Find().SetSort(bson.D{{Key: "order_index", Value: 1}})
	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var items []models.TrackItem
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// DeleteTrackItems deletes track item documents matching the given filter.
func (m *MongoStorage) DeleteTrackItems(ctx context.Context, filter interface{}) (*DeleteResult, error) {
	collection := m.client.Database(m.dbName).Collection("track_items")
	result, err := collection.DeleteMany(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &DeleteResult{DeletedCount: result.DeletedCount}, nil
}

// AddMission inserts a daily mission document. A duplicate (user_id, mission_date)
// pair violates the unique index and surfaces as ErrDuplicate.
func (m *MongoStorage) AddMission(ctx context.Context, mission *models.DailyMission) (*models.DailyMission, error) {
	collection := m.client.Database(m.dbName).Collection("daily_missions")
	result, err := collection.InsertOne(ctx, mission)
	if err != nil {
		if isDuplicateKey(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	mission.ID = result.InsertedID.(primitive.ObjectID)
	return mission, nil
}

// FindMission finds a mission document matching the given filter.
func (m *MongoStorage) FindMission(ctx context.Context, filter interface{}) (*models.DailyMission, error) {
	collection := m.client.Database(m.dbName).Collection("daily_missions")
	mission := &models.DailyMission{}
	if err := collection.FindOne(ctx, filter).Decode(mission); err != nil {
		return nil, wrapFindErr(err)
	}
	return mission, nil
}

// FindMissionsByParameter finds mission documents matching the given filter.
func (m *MongoStorage) FindMissionsByParameter(ctx context.Context, filter interface{}) ([]models.DailyMission, error) {
	collection := m.client.Database(m.dbName).Collection("daily_missions")
	cursor, err := collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	var missions []models.DailyMission
	if err := cursor.All(ctx, &missions); err != nil {
		return nil, err
	}
	return missions, nil
}

// UpdateMission updates a mission document matching the given filter.
func (m *MongoStorage) UpdateMission(ctx context.Context, filter interface{}, update interface{}) (*UpdateResult, error) {
	collection := m.client.Database(m.dbName).Collection("daily_missions")
	result, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return nil, err
	}
	return &UpdateResult{MatchedCount: result.MatchedCount, ModifiedCount: result.ModifiedCount}, nil
}

// AddMissionTasks inserts a batch of mission task documents.
func (m *MongoStorage) AddMissionTasks(ctx context.Context, tasks []models.MissionTask) ([]models.MissionTask, error) {
	if len(tasks) == 0 {
		return nil, nil
	}
	collection := m.client.Database(m.dbName).Collection("mission_tasks")
	docs := make([]interface{}, len(tasks))
	for i := range tasks {
		docs[i] = tasks[i]
	}
	result, err := collection.InsertMany(ctx, docs)
	if err != nil {
		return nil, err
	}
	for i, id := range result.InsertedIDs {
		tasks[i].ID = id.(primitive.ObjectID)
	}
	return tasks, nil
}

// FindMissionTask finds a mission task document matching the given filter.
func (m *MongoStorage) FindMissionTask(ctx context.Context, filter interface{}) (*models.MissionTask, error) {
	collection := m.client.Database(m.dbName).Collection("mission_tasks")
	task := &models.MissionTask{}
	if err := collection.FindOne(ctx, filter).Decode(task); err != nil {
		return nil, wrapFindErr(err)
	}
	return task, nil
}

// FindMissionTasksByParameter finds mission task documents matching the given filter.
func (m *MongoStorage) FindMissionTasksByParameter(ctx context.Context, filter interface{}) ([]models.MissionTask, error) {
	collection := m.client.Database(m.dbName).Collection("mission_tasks")
	cursor, err := collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	var tasks []models.MissionTask
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// UpdateMissionTask updates a mission task document matching the given filter.
func (m *MongoStorage) UpdateMissionTask(ctx context.Context, filter interface{}, update interface{}) (*UpdateResult, error) {
	collection := m.client.Database(m.dbName).Collection("mission_tasks")
	result, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return nil, err
	}
	return &UpdateResult{MatchedCount: result.MatchedCount, ModifiedCount: result.ModifiedCount}, nil
}

// AddStreak inserts a streak document. A duplicate (user_id, track_id) pair
// violates the unique index and surfaces as ErrDuplicate.
func (m *MongoStorage) AddStreak(ctx context.Context, streak *models.Streak) (*models.Streak, error) {
	collection := m.client.Database(m.dbName).Collection("streaks")
	result, err := collection.InsertOne(ctx, streak)
	if err != nil {
		if isDuplicateKey(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	streak.ID = result.InsertedID.(primitive.ObjectID)
	return streak, nil
}

// FindStreak finds a streak document matching the given filter.
func (m *MongoStorage) FindStreak(ctx context.Context, filter interface{}) (*models.Streak, error) {
	collection := m.client.Database(m.dbName).Collection("streaks")
	streak := &models.Streak{}
	if err := collection.FindOne(ctx, filter).Decode(streak); err != nil {
		return nil, wrapFindErr(err)
	}
	return streak, nil
}

// FindStreaksByParameter finds streak documents matching the given filter.
func (m *MongoStorage) FindStreaksByParameter(ctx context.Context, filter interface{}) ([]models.Streak, error) {
	collection := m.client.Database(m.dbName).Collection("streaks")
	cursor, err := collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	var streaks []models.Streak
	if err := cursor.All(ctx, &streaks); err != nil {
		return nil, err
	}
	return streaks, nil
}

// UpdateStreak updates a streak document matching the given filter.
func (m *MongoStorage) UpdateStreak(ctx context.Context, filter interface{}, update interface{}) (*UpdateResult, error) {
	collection := m.client.Database(m.dbName).Collection("streaks")
	result, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return nil, err
	}
	if result.MatchedCount == 0 {
		return nil, ErrNotFound
	}
	return &UpdateResult{MatchedCount: result.MatchedCount, ModifiedCount: result.ModifiedCount}, nil
}

// AddXPTransaction appends an entry to the XP ledger.
func (m *MongoStorage) AddXPTransaction(ctx context.Context, tx *models.XPTransaction) (*models.XPTransaction, error) {
	collection := m.client.Database(m.dbName).Collection("xp_transactions")
	result, err := collection.InsertOne(ctx, tx)
	if err != nil {
		return nil, err
	}
	tx.ID = result.InsertedID.(primitive.ObjectID)
	return tx, nil
}

// SumXPTransactions sums the amounts of all XP transactions matching the given
// filter using a $group aggregation. Returns 0 when nothing matches.
func (m *MongoStorage) SumXPTransactions(ctx context.Context, filter interface{}) (int64, error) {
	collection := m.client.Database(m.dbName).Collection("xp_transactions")
	pipeline := []bson.M{
		{"$match": filter},
		{"$group": bson.M{"_id": nil, "total": bson.M{"$sum": "$amount"}}},
	}
	cursor, err := collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	var results []struct {
		Total int64 `bson:"total"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return 0, err
	}
	if len(results) == 0 {
		return 0, nil
	}
	return results[0].Total, nil
}

// AddConfirmation adds a new confirmation document to the 'confirmations' collection.
func (m *MongoStorage) AddConfirmation(ctx context.Context, confirmation *models.Confirmation) (*models.Confirmation, error) {
	collection := m.client.Database(m.dbName).Collection("confirmations")
	result, err := collection.InsertOne(ctx, confirmation)
	if err != nil {
		return nil, err
	}
	confirmation.ID = result.InsertedID.(primitive.ObjectID)
	return confirmation, nil
}

// FindConfirmation finds a confirmation document matching the given filter.
func (m *MongoStorage) FindConfirmation(ctx context.Context, filter interface{}) (*models.Confirmation, error) {
	collection := m.client.Database(m.dbName).Collection("confirmations")
	confirmation := &models.Confirmation{}
	if err := collection.FindOne(ctx, filter).Decode(confirmation); err != nil {
		return nil, wrapFindErr(err)
	}
	return confirmation, nil
}

// DeleteConfirmation deletes a confirmation document matching the given filter.
func (m *MongoStorage) DeleteConfirmation(ctx context.Context, filter interface{}) (*DeleteResult, error) {
	collection := m.client.Database(m.dbName).Collection("confirmations")
	result, err := collection.DeleteOne(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &DeleteResult{DeletedCount: result.DeletedCount}, nil
}
