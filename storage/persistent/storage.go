package storage

import (
	"context"
	"fmt"

	"github.com/masteryflow/masteryflow/models"
)

// DeleteResult represents the result of a deletion operation in MongoDB,
// specifically the count of documents deleted.
type DeleteResult struct {
	DeletedCount int64
}

// UpdateResult represents the result of an update operation in MongoDB,
// specifically the count of documents matched and modified.
type UpdateResult struct {
	MatchedCount  int64
	ModifiedCount int64
}

// StorageInterface defines the set of methods that any persistent storage
// backend needs to implement. Filters and updates use the same shape the
// MongoDB driver accepts (bson.M), so callers state every cross-entity read
// explicitly; there is no implicit relation loading.
type StorageInterface interface {
	// Establishes a connection to the storage backend.
	Connect(dbName, uri string) error
	// Disconnects from the storage backend.
	Disconnect() error

	// Adds a new user to the storage backend.
	AddUser(ctx context.Context, user *models.User) (*models.User, error)
	// Finds a single user in the storage backend using a filter.
	FindUser(ctx context.Context, filter interface{}) (*models.User, error)
	// Finds all users matching a filter.
	FindUsersByParameter(ctx context.Context, filter interface{}) ([]models.User, error)
	// Updates an existing user in the storage backend using a filter and update instructions.
	UpdateUser(ctx context.Context, filter interface{}, update interface{}) (*models.User, error)
	// Deletes a user in the storage backend using a filter.
	DeleteUser(ctx context.Context, filter interface{}) (*DeleteResult, error)

	// Adds a new track to the storage backend.
	AddTrack(ctx context.Context, track *models.Track) (*models.Track, error)
	// Finds a single track using a filter.
	FindTrack(ctx context.Context, filter interface{}) (*models.Track, error)
	// Finds tracks using a filter, ordered by ascending rotation priority.
	FindTracksByParameter(ctx context.Context, filter interface{}) ([]models.Track, error)
	// Updates an existing track using a filter and update instructions.
	UpdateTrack(ctx context.Context, filter interface{}, update interface{}) (*UpdateResult, error)
	// Deletes a track using a filter.
	DeleteTrack(ctx context.Context, filter interface{}) (*DeleteResult, error)

	// Adds a batch of track items to the storage backend.
	AddTrackItems(ctx context.Context, items []models.TrackItem) ([]models.TrackItem, error)
	// Finds track items using a filter, ordered by ascending order index.
	FindTrackItemsByParameter(ctx context.Context, filter interface{}) ([]models.TrackItem, error)
	// Deletes track items using a filter.
	DeleteTrackItems(ctx context.Context, filter interface{}) (*DeleteResult, error)

	// Adds a new daily mission. The storage backend enforces uniqueness of
	// (user_id, mission_date); a duplicate insert fails with ErrDuplicate.
	AddMission(ctx context.Context, mission *models.DailyMission) (*models.DailyMission, error)
	// Finds a single mission using a filter.
	FindMission(ctx context.Context, filter interface{}) (*models.DailyMission, error)
	// Finds missions using a filter.
	FindMissionsByParameter(ctx context.Context, filter interface{}) ([]models.DailyMission, error)
	// Updates an existing mission using a filter and update instructions.
	UpdateMission(ctx context.Context, filter interface{}, update interface{}) (*UpdateResult, error)

	// Adds a batch of mission tasks.
	AddMissionTasks(ctx context.Context, tasks []models.MissionTask) ([]models.MissionTask, error)
	// Finds a single mission task using a filter.
	FindMissionTask(ctx context.Context, filter interface{}) (*models.MissionTask, error)
	// Finds mission tasks using a filter.
	FindMissionTasksByParameter(ctx context.Context, filter interface{}) ([]models.MissionTask, error)
	// Updates a single mission task using a filter and update instructions.
	UpdateMissionTask(ctx context.Context, filter interface{}, update interface{}) (*UpdateResult, error)

	// Adds a new streak row.
	AddStreak(ctx context.Context, streak *models.Streak) (*models.Streak, error)
	// Finds a single streak using a filter.
	FindStreak(ctx context.Context, filter interface{}) (*models.Streak, error)
	// Finds streaks using a filter.
	FindStreaksByParameter(ctx context.Context, filter interface{}) ([]models.Streak, error)
	// Updates a streak using a filter and update instructions.
	UpdateStreak(ctx context.Context, filter interface{}, update interface{}) (*UpdateResult, error)

	// Appends an XP ledger entry. Entries are never updated or deleted.
	AddXPTransaction(ctx context.Context, tx *models.XPTransaction) (*models.XPTransaction, error)
	// Sums XP transaction amounts matching a filter.
	SumXPTransactions(ctx context.Context, filter interface{}) (int64, error)

	// Adds a new confirmation to the storage backend.
	AddConfirmation(ctx context.Context, confirmation *models.Confirmation) (*models.Confirmation, error)
	// Finds a confirmation in the storage backend using a filter.
	FindConfirmation(ctx context.Context, filter interface{}) (*models.Confirmation, error)
	// Deletes a confirmation in the storage backend using a filter.
	DeleteConfirmation(ctx context.Context, filter interface{}) (*DeleteResult, error)
}

// NewStorage creates a new StorageInterface with a MongoDB backend,
// using the provided URI to connect to the MongoDB server.
func NewStorage(dbName, uri string) (StorageInterface, error) {
	storage := NewMongoStorage()
	err := storage.Connect(dbName, uri)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return storage, nil
}
