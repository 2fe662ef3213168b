package engine

import (
	"context"
	"testing"
	"time"

	"github.com/masteryflow/masteryflow/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// settlementFixture seeds a user, a track with a two-task mission for the
// clock's current date, and returns everything a settlement test needs.
type settlementFixture struct {
	store   *memStore
	engine  *Engine
	user    *models.User
	track   *models.Track
	mission *models.DailyMission
	tasks   []models.MissionTask
}

func newSettlementFixture(t *testing.T, taskSpecs []models.MissionTask) *settlementFixture {
	t.Helper()
	ctx := context.Background()
	store := newMemStore()
	user := seedUser(t, store, "UTC", 5)
	track := seedTrack(t, store, user.ID, 5, len(taskSpecs), 0, true)

	mission, err := store.AddMission(ctx, &models.DailyMission{
		UserID:      user.ID,
		MissionDate: testNow.Format(dateLayout),
		Status:      models.MissionPending,
		Deadline:    time.Date(2024, 3, 12, 23, 59, 59, 0, time.UTC),
	})
	require.NoError(t, err)

	for i := range taskSpecs {
		taskSpecs[i].MissionID = mission.ID
		taskSpecs[i].TrackID = track.ID
		taskSpecs[i].TaskType = models.TaskTypeTrackItem
		if taskSpecs[i].Status == "" {
			taskSpecs[i].Status = models.TaskPending
		}
	}
	tasks, err := store.AddMissionTasks(ctx, taskSpecs)
	require.NoError(t, err)

	return &settlementFixture{
		store:   store,
		engine:  newTestEngine(store),
		user:    user,
		track:   track,
		mission: mission,
		tasks:   tasks,
	}
}

func mediumTask(minutes int) models.MissionTask {
	return models.MissionTask{Difficulty: models.DifficultyMedium, EstimatedMinutes: minutes}
}

func (f *settlementFixture) findStreak(t *testing.T, trackID primitive.ObjectID) *models.Streak {
	t.Helper()
	streak, err := f.store.FindStreak(context.Background(),
		bson.M{"user_id": f.user.ID, "track_id": trackID})
	require.NoError(t, err)
	return streak
}

func TestCompleteTaskAwardsXPAndRecordsActuals(t *testing.T) {
	f := newSettlementFixture(t, []models.MissionTask{mediumTask(40), mediumTask(30)})

	result, err := f.engine.CompleteTask(context.Background(), f.tasks[0].ID, 35, 4, 3)
	require.NoError(t, err)

	assert.Equal(t, 100, result.XPAwarded)
	assert.Equal(t, models.TaskCompleted, result.Task.Status)
	assert.Equal(t, 35, result.Task.ActualMinutes)
	assert.Equal(t, 4, result.Task.DifficultyRating)
	assert.Equal(t, 3, result.Task.EffortRating)

	total, err := f.store.SumXPTransactions(context.Background(), bson.M{"user_id": f.user.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 100, total)
}

func TestCompleteTaskSpeedBonus(t *testing.T) {
	// 40 estimated over 30 actual is a 1.33 ratio, past the bonus threshold.
	f := newSettlementFixture(t, []models.MissionTask{mediumTask(40)})

	result, err := f.engine.CompleteTask(context.Background(), f.tasks[0].ID, 30, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 120, result.XPAwarded)
}

func TestCompleteTaskZeroMinutesDefaultsToEstimate(t *testing.T) {
	f := newSettlementFixture(t, []models.MissionTask{mediumTask(40)})

	result, err := f.engine.CompleteTask(context.Background(), f.tasks[0].ID, 0, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 40, result.Task.ActualMinutes)
	// Estimate equals actual, so no bonus.
	assert.Equal(t, 100, result.XPAwarded)
}

func TestCompleteTaskRejectsBadInput(t *testing.T) {
	f := newSettlementFixture(t, []models.MissionTask{mediumTask(40)})
	ctx := context.Background()

	_, err := f.engine.CompleteTask(ctx, f.tasks[0].ID, -1, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.engine.CompleteTask(ctx, f.tasks[0].ID, 10, 6, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.engine.CompleteTask(ctx, f.tasks[0].ID, 10, 0, 6)
	assert.ErrorIs(t, err, ErrInvalidInput)

	// Nothing settled along the way.
	task, err := f.store.FindMissionTask(ctx, bson.M{"_id": f.tasks[0].ID})
	require.NoError(t, err)
	assert.Equal(t, models.TaskPending, task.Status)
}

func TestCompleteTaskIsOneWay(t *testing.T) {
	f := newSettlementFixture(t, []models.MissionTask{mediumTask(40), mediumTask(30)})
	ctx := context.Background()

	_, err := f.engine.CompleteTask(ctx, f.tasks[0].ID, 40, 0, 0)
	require.NoError(t, err)

	_, err = f.engine.CompleteTask(ctx, f.tasks[0].ID, 40, 0, 0)
	assert.ErrorIs(t, err, ErrTaskAlreadyCompleted)

	// A single award, not two.
	total, err := f.store.SumXPTransactions(ctx, bson.M{"user_id": f.user.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 100, total)
}

func TestCompleteUnknownTask(t *testing.T) {
	f := newSettlementFixture(t, []models.MissionTask{mediumTask(40)})
	_, err := f.engine.CompleteTask(context.Background(), primitive.NewObjectID(), 10, 0, 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCompleteTaskAdvancesTrackProgress(t *testing.T) {
	f := newSettlementFixture(t, []models.MissionTask{mediumTask(40)})
	ctx := context.Background()

	_, err := f.engine.CompleteTask(ctx, f.tasks[0].ID, 40, 0, 0)
	require.NoError(t, err)

	track, err := f.store.FindTrack(ctx, bson.M{"_id": f.track.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, track.CompletedItems)
}

func TestCompleteTaskCreatesTrackAndGlobalStreaks(t *testing.T) {
	f := newSettlementFixture(t, []models.MissionTask{mediumTask(40)})

	_, err := f.engine.CompleteTask(context.Background(), f.tasks[0].ID, 40, 0, 0)
	require.NoError(t, err)

	today := testNow.Format(dateLayout)
	for _, trackID := range []primitive.ObjectID{f.track.ID, primitive.NilObjectID} {
		streak := f.findStreak(t, trackID)
		assert.Equal(t, 1, streak.CurrentStreak)
		assert.Equal(t, 1, streak.LongestStreak)
		assert.Equal(t, today, streak.LastActivityDate)
	}
}

func TestCompleteTaskContinuesStreakFromYesterday(t *testing.T) {
	f := newSettlementFixture(t, []models.MissionTask{mediumTask(40)})
	ctx := context.Background()
	yesterday := testNow.AddDate(0, 0, -1).Format(dateLayout)

	_, err := f.store.AddStreak(ctx, &models.Streak{
		UserID:           f.user.ID,
		TrackID:          primitive.NilObjectID,
		CurrentStreak:    4,
		LongestStreak:    4,
		LastActivityDate: yesterday,
	})
	require.NoError(t, err)

	_, err = f.engine.CompleteTask(ctx, f.tasks[0].ID, 40, 0, 0)
	require.NoError(t, err)

	global := f.findStreak(t, primitive.NilObjectID)
	assert.Equal(t, 5, global.CurrentStreak)
	assert.Equal(t, 5, global.LongestStreak)
	assert.Equal(t, testNow.Format(dateLayout), global.LastActivityDate)
}

func TestCompleteTaskResetsStreakAfterGap(t *testing.T) {
	f := newSettlementFixture(t, []models.MissionTask{mediumTask(40)})
	ctx := context.Background()
	threeDaysAgo := testNow.AddDate(0, 0, -3).Format(dateLayout)

	_, err := f.store.AddStreak(ctx, &models.Streak{
		UserID:           f.user.ID,
		TrackID:          primitive.NilObjectID,
		CurrentStreak:    3,
		LongestStreak:    9,
		LastActivityDate: threeDaysAgo,
	})
	require.NoError(t, err)

	_, err = f.engine.CompleteTask(ctx, f.tasks[0].ID, 40, 0, 0)
	require.NoError(t, err)

	global := f.findStreak(t, primitive.NilObjectID)
	assert.Equal(t, 1, global.CurrentStreak)
	assert.Equal(t, 9, global.LongestStreak)
}

func TestCompleteTaskSameDayIsStreakIdempotent(t *testing.T) {
	f := newSettlementFixture(t, []models.MissionTask{mediumTask(40), mediumTask(30)})
	ctx := context.Background()

	_, err := f.engine.CompleteTask(ctx, f.tasks[0].ID, 40, 0, 0)
	require.NoError(t, err)
	_, err = f.engine.CompleteTask(ctx, f.tasks[1].ID, 30, 0, 0)
	require.NoError(t, err)

	global := f.findStreak(t, primitive.NilObjectID)
	assert.Equal(t, 1, global.CurrentStreak)
}

func TestMissionRollUp(t *testing.T) {
	f := newSettlementFixture(t, []models.MissionTask{mediumTask(40), mediumTask(30)})
	ctx := context.Background()

	_, err := f.engine.CompleteTask(ctx, f.tasks[0].ID, 40, 0, 0)
	require.NoError(t, err)

	mission, err := f.store.FindMission(ctx, bson.M{"_id": f.mission.ID})
	require.NoError(t, err)
	assert.Equal(t, models.MissionInProgress, mission.Status)
	assert.Equal(t, 40, mission.ActualMinutesSpent)

	_, err = f.engine.CompleteTask(ctx, f.tasks[1].ID, 35, 0, 0)
	require.NoError(t, err)

	mission, err = f.store.FindMission(ctx, bson.M{"_id": f.mission.ID})
	require.NoError(t, err)
	assert.Equal(t, models.MissionCompleted, mission.Status)
	assert.NotNil(t, mission.CompletedAt)
	assert.Equal(t, 75, mission.ActualMinutesSpent)
}

func TestMissionCompletesWhenRemainderSkipped(t *testing.T) {
	f := newSettlementFixture(t, []models.MissionTask{mediumTask(40), mediumTask(30)})
	ctx := context.Background()

	_, err := f.engine.CompleteTask(ctx, f.tasks[0].ID, 40, 0, 0)
	require.NoError(t, err)
	_, err = f.engine.SkipTask(ctx, f.tasks[1].ID)
	require.NoError(t, err)

	mission, err := f.store.FindMission(ctx, bson.M{"_id": f.mission.ID})
	require.NoError(t, err)
	assert.Equal(t, models.MissionCompleted, mission.Status)
}

func TestSkipTask(t *testing.T) {
	f := newSettlementFixture(t, []models.MissionTask{mediumTask(40)})
	ctx := context.Background()

	task, err := f.engine.SkipTask(ctx, f.tasks[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskSkipped, task.Status)

	// No XP, no streak, and the skipped task cannot be completed.
	total, err := f.store.SumXPTransactions(ctx, bson.M{"user_id": f.user.ID})
	require.NoError(t, err)
	assert.Zero(t, total)
	_, err = f.store.FindStreak(ctx, bson.M{"user_id": f.user.ID, "track_id": primitive.NilObjectID})
	assert.Error(t, err)

	_, err = f.engine.CompleteTask(ctx, f.tasks[0].ID, 40, 0, 0)
	assert.ErrorIs(t, err, ErrTaskAlreadyCompleted)
	_, err = f.engine.SkipTask(ctx, f.tasks[0].ID)
	assert.ErrorIs(t, err, ErrTaskAlreadyCompleted)

	// An all-skipped mission stays put for the deadline sweep.
	mission, err := f.store.FindMission(ctx, bson.M{"_id": f.mission.ID})
	require.NoError(t, err)
	assert.Equal(t, models.MissionPending, mission.Status)
}
