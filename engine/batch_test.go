package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/masteryflow/masteryflow/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func seedUserWithTrack(t *testing.T, store *memStore, email string) *models.User {
	t.Helper()
	user, err := store.AddUser(context.Background(), &models.User{
		Username: email,
		Email:    email,
		Timezone: "UTC",
	})
	require.NoError(t, err)
	track := seedTrack(t, store, user.ID, 5, 2, 0, true)
	seedItems(t, store, track.ID, []string{"EASY", "EASY"}, []int{20, 20})
	return user
}

func TestAssembleAllUsersCountsOutcomes(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()

	seedUserWithTrack(t, store, "a@example.com")
	seedUserWithTrack(t, store, "b@example.com")

	// Already has today's mission: skipped.
	existing := seedUserWithTrack(t, store, "c@example.com")
	_, err := store.AddMission(ctx, &models.DailyMission{
		UserID:      existing.ID,
		MissionDate: testNow.Format(dateLayout),
		Status:      models.MissionPending,
	})
	require.NoError(t, err)

	// No tracks at all: skipped.
	idle, err := store.AddUser(ctx, &models.User{
		Username: "idle", Email: "idle@example.com", Timezone: "UTC",
	})
	require.NoError(t, err)

	// Storage failure for this user's tracks: failed, batch continues.
	broken := seedUserWithTrack(t, store, "broken@example.com")
	store.failTracksFor[broken.ID] = true

	eng := newTestEngine(store)
	var mu sync.Mutex
	notified := map[primitive.ObjectID]bool{}
	result, err := eng.AssembleAllUsers(ctx, testNow, 3, func(user models.User, r *MissionResult) {
		mu.Lock()
		notified[user.ID] = true
		mu.Unlock()
		assert.NotNil(t, r)
	})
	require.NoError(t, err)

	assert.Equal(t, 5, result.TotalUsers)
	assert.Equal(t, 2, result.Generated)
	assert.Equal(t, 2, result.Skipped)
	assert.Equal(t, 1, result.Failed)

	assert.Len(t, notified, 2)
	assert.False(t, notified[existing.ID])
	assert.False(t, notified[idle.ID])
	assert.False(t, notified[broken.ID])
}

func TestAssembleAllUsersIsIdempotentAcrossRuns(t *testing.T) {
	store := newMemStore()
	seedUserWithTrack(t, store, "a@example.com")
	eng := newTestEngine(store)

	first, err := eng.AssembleAllUsers(context.Background(), testNow, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Generated)

	second, err := eng.AssembleAllUsers(context.Background(), testNow, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Generated)
	assert.Equal(t, 1, second.Skipped)
	assert.Len(t, store.missions, 1)
}

func TestExpireMissions(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()
	user := seedUser(t, store, "UTC", 5)

	overduePending, err := store.AddMission(ctx, &models.DailyMission{
		UserID: user.ID, MissionDate: "2024-03-10",
		Status:   models.MissionPending,
		Deadline: testNow.Add(-36 * time.Hour),
	})
	require.NoError(t, err)
	overdueStarted, err := store.AddMission(ctx, &models.DailyMission{
		UserID: user.ID, MissionDate: "2024-03-11",
		Status:   models.MissionInProgress,
		Deadline: testNow.Add(-12 * time.Hour),
	})
	require.NoError(t, err)
	current, err := store.AddMission(ctx, &models.DailyMission{
		UserID: user.ID, MissionDate: "2024-03-12",
		Status:   models.MissionPending,
		Deadline: testNow.Add(16 * time.Hour),
	})
	require.NoError(t, err)
	done, err := store.AddMission(ctx, &models.DailyMission{
		UserID: user.ID, MissionDate: "2024-03-09",
		Status:   models.MissionCompleted,
		Deadline: testNow.Add(-60 * time.Hour),
	})
	require.NoError(t, err)

	expired, err := newTestEngine(store).ExpireMissions(ctx, testNow)
	require.NoError(t, err)
	assert.Equal(t, 2, expired)

	for id, want := range map[primitive.ObjectID]string{
		overduePending.ID: models.MissionFailed,
		overdueStarted.ID: models.MissionFailed,
		current.ID:        models.MissionPending,
		done.ID:           models.MissionCompleted,
	} {
		mission, err := store.FindMission(ctx, bson.M{"_id": id})
		require.NoError(t, err)
		assert.Equal(t, want, mission.Status)
	}
}

func TestStreakWarningCandidates(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()
	yesterday := testNow.AddDate(0, 0, -1).Format(dateLayout)

	addGlobalStreak := func(user *models.User, current int, lastActivity string) {
		_, err := store.AddStreak(ctx, &models.Streak{
			UserID:           user.ID,
			TrackID:          primitive.NilObjectID,
			CurrentStreak:    current,
			LongestStreak:    current,
			LastActivityDate: lastActivity,
		})
		require.NoError(t, err)
	}

	atRisk, err := store.AddUser(ctx, &models.User{Username: "risk", Email: "risk@example.com", Timezone: "UTC"})
	require.NoError(t, err)
	addGlobalStreak(atRisk, 7, yesterday)

	activeToday, err := store.AddUser(ctx, &models.User{Username: "safe", Email: "safe@example.com", Timezone: "UTC"})
	require.NoError(t, err)
	addGlobalStreak(activeToday, 7, testNow.Format(dateLayout))

	tooShort, err := store.AddUser(ctx, &models.User{Username: "short", Email: "short@example.com", Timezone: "UTC"})
	require.NoError(t, err)
	addGlobalStreak(tooShort, 2, yesterday)

	warnings, err := newTestEngine(store).StreakWarningCandidates(ctx, testNow)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, atRisk.ID, warnings[0].User.ID)
	assert.Equal(t, 7, warnings[0].Streak.CurrentStreak)
}
