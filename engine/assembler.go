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

// MissionResult is the outcome of assembling one user's daily mission.
type MissionResult struct {
	Mission               *models.DailyMission
	Tasks                 []models.MissionTask
	TotalEstimatedMinutes int
}

// AssembleMission builds and persists the daily mission for one user and
// date: resolve preferences, rotate tracks, pick resume items, balance the
// load, then insert the mission and its tasks.
//
// The mission date is the calendar date of `date` in the user's timezone.
// Returns ErrMissionExists when a mission for that (user, date) already
// exists — the pre-insert check catches the common case, and the unique
// storage index on (user_id, mission_date) closes the race when two triggers
// fire concurrently. Returns (nil, nil) when the user has no active tracks or
// no items survive selection: a valid "nothing to assign" day, not a failure.
func (e *Engine) AssembleMission(ctx context.Context, userID primitive.ObjectID, date time.Time) (*MissionResult, error) {
	user, err := e.store.FindUser(ctx, bson.M{"_id": userID})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("user %s: %w", userID.Hex(), ErrNotFound)
		}
		return nil, err
	}

	loc := userLocation(user)
	localDate := date.In(loc)
	missionDate := localDate.Format(dateLayout)

	if _, err := e.store.FindMission(ctx, bson.M{"user_id": userID, "mission_date": missionDate}); err == nil {
		return nil, ErrMissionExists
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	maxTasks := user.CognitiveLoadMax
	if maxTasks <= 0 {
		maxTasks = DefaultMaxTasks
	}

	activeTracks, err := e.store.FindTracksByParameter(ctx, bson.M{"user_id": userID, "is_active": true})
	if err != nil {
		return nil, err
	}
	if len(activeTracks) == 0 {
		return nil, nil // No tracks to assign.
	}

	appearances, err := e.recentTrackAppearances(ctx, userID, localDate)
	if err != nil {
		return nil, err
	}

	selectedTracks := SelectTracksForToday(activeTracks, appearances)
	if len(selectedTracks) == 0 {
		return nil, nil
	}

	itemsByTrack := make(map[primitive.ObjectID][]models.TrackItem, len(selectedTracks))
	for _, track := range selectedTracks {
		items, err := e.store.FindTrackItemsByParameter(ctx, bson.M{"track_id": track.ID})
		if err != nil {
			return nil, err
		}
		itemsByTrack[track.ID] = items
	}

	candidates := NextItemsFromTracks(selectedTracks, itemsByTrack, maxTasks)
	if len(candidates) == 0 {
		return nil, nil // No items available.
	}

	balanced := BalanceCognitiveLoad(candidates, DefaultMinuteBudget, maxTasks)
	if len(balanced) == 0 {
		return nil, nil
	}

	totalEstimatedMinutes := 0
	for _, c := range balanced {
		totalEstimatedMinutes += c.Item.EstimatedMinutes
	}

	// The deadline is the end of the mission's calendar day in the user's
	// reference time.
	deadline := time.Date(localDate.Year(), localDate.Month(), localDate.Day(),
		23, 59, 59, int(999*time.Millisecond), loc)

	mission := &models.DailyMission{
		UserID:                userID,
		MissionDate:           missionDate,
		Status:                models.MissionPending,
		AssignedAt:            e.clock.Now().UTC(),
		Deadline:              deadline,
		TotalEstimatedMinutes: totalEstimatedMinutes,
	}

	mission, err = e.store.AddMission(ctx, mission)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, ErrMissionExists
		}
		return nil, err
	}

	tasks := make([]models.MissionTask, 0, len(balanced))
	for _, c := range balanced {
		tasks = append(tasks, models.MissionTask{
			MissionID:        mission.ID,
			TrackID:          c.TrackID,
			TrackItemID:      c.Item.ID,
			TaskType:         models.TaskTypeTrackItem,
			Status:           models.TaskPending,
			Difficulty:       c.Item.Difficulty,
			EstimatedMinutes: c.Item.EstimatedMinutes,
		})
	}

	tasks, err = e.store.AddMissionTasks(ctx, tasks)
	if err != nil {
		return nil, err
	}

	return &MissionResult{
		Mission:               mission,
		Tasks:                 tasks,
		TotalEstimatedMinutes: totalEstimatedMinutes,
	}, nil
}

// recentTrackAppearances counts, per track, how many missions in the trailing
// seven-day window before the given date contained at least one task from
// that track.
func (e *Engine) recentTrackAppearances(ctx context.Context, userID primitive.ObjectID, localDate time.Time) (map[primitive.ObjectID]int, error) {
	windowStart := localDate.AddDate(0, 0, -RotationWindowDays).Format(dateLayout)
	missionDate := localDate.Format(dateLayout)

	recentMissions, err := e.store.FindMissionsByParameter(ctx, bson.M{
		"user_id":      userID,
		"mission_date": bson.M{"$gte": windowStart, "$lt": missionDate},
	})
	if err != nil {
		return nil, err
	}

	appearances := make(map[primitive.ObjectID]int)
	if len(recentMissions) == 0 {
		return appearances, nil
	}

	missionIDs := make([]primitive.ObjectID, 0, len(recentMissions))
	for _, mission := range recentMissions {
		missionIDs = append(missionIDs, mission.ID)
	}

	tasks, err := e.store.FindMissionTasksByParameter(ctx, bson.M{"mission_id": bson.M{"$in": missionIDs}})
	if err != nil {
		return nil, err
	}

	// A track counts once per mission it appeared in, not once per task.
	tracksByMission := make(map[primitive.ObjectID]map[primitive.ObjectID]bool)
	for _, task := range tasks {
		if task.TrackID.IsZero() {
			continue
		}
		seen := tracksByMission[task.MissionID]
		if seen == nil {
			seen = make(map[primitive.ObjectID]bool)
			tracksByMission[task.MissionID] = seen
		}
		if !seen[task.TrackID] {
			seen[task.TrackID] = true
			appearances[task.TrackID]++
		}
	}

	return appearances, nil
}
