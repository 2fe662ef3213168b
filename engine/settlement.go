package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/masteryflow/masteryflow/models"
	storage "github.com/masteryflow/masteryflow/storage/persistent"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SettlementResult is the outcome of completing one mission task.
type SettlementResult struct {
	Task      *models.MissionTask
	XPAwarded int
}

// CompleteTask settles a task completion: the task moves to COMPLETED with
// its recorded actuals, an XP award is appended to the ledger, the source
// track's progress counter advances, and the track-scoped and global streaks
// are updated under the user's streak lock. Completion is a one-way
// transition; re-completing a task returns ErrTaskAlreadyCompleted.
//
// actualMinutes defaults to the task's estimate when zero. Ratings are
// optional; when present they must be in 1..5 or the call fails with
// ErrInvalidInput before any state changes.
func (e *Engine) CompleteTask(ctx context.Context, taskID primitive.ObjectID, actualMinutes, difficultyRating, effortRating int) (*SettlementResult, error) {
	if actualMinutes < 0 {
		return nil, fmt.Errorf("actual minutes must not be negative: %w", ErrInvalidInput)
	}
	if difficultyRating != 0 && (difficultyRating < 1 || difficultyRating > 5) {
		return nil, fmt.Errorf("difficulty rating must be between 1 and 5: %w", ErrInvalidInput)
	}
	if effortRating != 0 && (effortRating < 1 || effortRating > 5) {
		return nil, fmt.Errorf("effort rating must be between 1 and 5: %w", ErrInvalidInput)
	}

	task, err := e.store.FindMissionTask(ctx, bson.M{"_id": taskID})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("task %s: %w", taskID.Hex(), ErrNotFound)
		}
		return nil, err
	}

	switch task.Status {
	case models.TaskCompleted:
		return nil, ErrTaskAlreadyCompleted
	case models.TaskSkipped:
		return nil, fmt.Errorf("skipped task cannot be completed: %w", ErrTaskAlreadyCompleted)
	}

	mission, err := e.store.FindMission(ctx, bson.M{"_id": task.MissionID})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("mission %s: %w", task.MissionID.Hex(), ErrNotFound)
		}
		return nil, err
	}

	user, err := e.store.FindUser(ctx, bson.M{"_id": mission.UserID})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("user %s: %w", mission.UserID.Hex(), ErrNotFound)
		}
		return nil, err
	}

	if actualMinutes == 0 {
		actualMinutes = task.EstimatedMinutes
	}

	now := e.clock.Now()
	completedAt := now.UTC()

	update := bson.M{"$set": bson.M{
		"status":            models.TaskCompleted,
		"completed_at":      completedAt,
		"actual_minutes":    actualMinutes,
		"difficulty_rating": difficultyRating,
		"effort_rating":     effortRating,
	}}
	if _, err := e.store.UpdateMissionTask(ctx, bson.M{"_id": taskID}, update); err != nil {
		return nil, err
	}
	task.Status = models.TaskCompleted
	task.CompletedAt = &completedAt
	task.ActualMinutes = actualMinutes
	task.DifficultyRating = difficultyRating
	task.EffortRating = effortRating

	xp := TaskXP(task.Difficulty, task.EstimatedMinutes, actualMinutes)
	_, err = e.store.AddXPTransaction(ctx, &models.XPTransaction{
		UserID:      user.ID,
		Amount:      xp,
		Source:      models.XPSourceTaskCompletion,
		SourceID:    task.ID,
		Description: fmt.Sprintf("Completed task from mission %s", mission.MissionDate),
		CreatedAt:   completedAt,
	})
	if err != nil {
		return nil, err
	}

	if !task.TrackID.IsZero() {
		_, err = e.store.UpdateTrack(ctx, bson.M{"_id": task.TrackID}, bson.M{
			"$inc": bson.M{"completed_items": 1},
			"$set": bson.M{"updated_at": completedAt},
		})
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
	}

	loc := userLocation(user)
	localNow := now.In(loc)
	today := localNow.Format(dateLayout)
	yesterday := localNow.AddDate(0, 0, -1).Format(dateLayout)

	lock := e.userLock(user.ID)
	lock.Lock()
	if !task.TrackID.IsZero() {
		if err := e.touchStreak(ctx, user.ID, task.TrackID, today, yesterday, completedAt); err != nil {
			lock.Unlock()
			return nil, err
		}
	}
	// The global streak (zero track id) follows the identical continuity
	// rule, independent of the per-track state.
	if err := e.touchStreak(ctx, user.ID, primitive.NilObjectID, today, yesterday, completedAt); err != nil {
		lock.Unlock()
		return nil, err
	}
	lock.Unlock()

	if err := e.rollUpMission(ctx, mission, actualMinutes, completedAt); err != nil {
		return nil, err
	}

	return &SettlementResult{Task: task, XPAwarded: xp}, nil
}

// SkipTask moves a pending or in-progress task to SKIPPED, a terminal state
// with no XP and no streak effect.
func (e *Engine) SkipTask(ctx context.Context, taskID primitive.ObjectID) (*models.MissionTask, error) {
	task, err := e.store.FindMissionTask(ctx, bson.M{"_id": taskID})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("task %s: %w", taskID.Hex(), ErrNotFound)
		}
		return nil, err
	}

	if task.Status == models.TaskCompleted || task.Status == models.TaskSkipped {
		return nil, ErrTaskAlreadyCompleted
	}

	if _, err := e.store.UpdateMissionTask(ctx, bson.M{"_id": taskID},
		bson.M{"$set": bson.M{"status": models.TaskSkipped}}); err != nil {
		return nil, err
	}
	task.Status = models.TaskSkipped

	mission, err := e.store.FindMission(ctx, bson.M{"_id": task.MissionID})
	if err == nil {
		if err := e.rollUpMission(ctx, mission, 0, e.clock.Now().UTC()); err != nil {
			return nil, err
		}
	}

	return task, nil
}

// touchStreak applies the continuity rule to one streak row, creating the row
// on first activity. A create racing another settlement loses on the unique
// (user_id, track_id) index and retries as an update.
func (e *Engine) touchStreak(ctx context.Context, userID, trackID primitive.ObjectID, today, yesterday string, now time.Time) error {
	filter := bson.M{"user_id": userID, "track_id": trackID}

	streak, err := e.store.FindStreak(ctx, filter)
	if errors.Is(err, storage.ErrNotFound) {
		_, addErr := e.store.AddStreak(ctx, &models.Streak{
			UserID:           userID,
			TrackID:          trackID,
			CurrentStreak:    1,
			LongestStreak:    1,
			LastActivityDate: today,
			UpdatedAt:        now,
		})
		if addErr == nil {
			return nil
		}
		if !errors.Is(addErr, storage.ErrDuplicate) {
			return addErr
		}
		streak, err = e.store.FindStreak(ctx, filter)
	}
	if err != nil {
		return err
	}

	advanceStreak(streak, today, yesterday)

	_, err = e.store.UpdateStreak(ctx, bson.M{"_id": streak.ID}, bson.M{"$set": bson.M{
		"current_streak":     streak.CurrentStreak,
		"longest_streak":     streak.LongestStreak,
		"last_activity_date": streak.LastActivityDate,
		"updated_at":         now,
	}})
	return err
}

// rollUpMission recomputes the mission's status from its tasks after a task
// reached a terminal state. The first completion moves the mission to
// IN_PROGRESS; when every task is terminal and at least one completed, the
// mission completes. A mission whose tasks were all skipped keeps its status
// and fails at the deadline sweep instead.
func (e *Engine) rollUpMission(ctx context.Context, mission *models.DailyMission, actualMinutes int, now time.Time) error {
	tasks, err := e.store.FindMissionTasksByParameter(ctx, bson.M{"mission_id": mission.ID})
	if err != nil {
		return err
	}

	completed, terminal := 0, 0
	for _, t := range tasks {
		switch t.Status {
		case models.TaskCompleted:
			completed++
			terminal++
		case models.TaskSkipped:
			terminal++
		}
	}

	set := bson.M{}
	if terminal == len(tasks) && completed > 0 {
		set["status"] = models.MissionCompleted
		set["completed_at"] = now
	} else if completed > 0 && mission.Status == models.MissionPending {
		set["status"] = models.MissionInProgress
	}

	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = set
	}
	if actualMinutes > 0 {
		update["$inc"] = bson.M{"actual_minutes_spent": actualMinutes}
	}
	if len(update) == 0 {
		return nil
	}

	_, err = e.store.UpdateMission(ctx, bson.M{"_id": mission.ID}, update)
	return err
}
