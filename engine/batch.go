package engine

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/masteryflow/masteryflow/models"
	storage "github.com/masteryflow/masteryflow/storage/persistent"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BatchResult reports the outcome of a fan-out assembly run.
type BatchResult struct {
	TotalUsers int `json:"total_users"`
	Generated  int `json:"generated"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

// AssembleAllUsers runs mission assembly for every user on the given date
// with a bounded pool of workers. A user whose mission already exists, or who
// has nothing to assign, counts as skipped; a user whose assembly errors
// counts as failed and never aborts the rest of the batch.
//
// onGenerated, when non-nil, is invoked for each freshly assembled mission
// (e.g. to enqueue a reminder notification); it runs on the worker goroutine.
func (e *Engine) AssembleAllUsers(ctx context.Context, date time.Time, workers int, onGenerated func(user models.User, result *MissionResult)) (*BatchResult, error) {
	if workers <= 0 {
		workers = 4
	}

	users, err := e.store.FindUsersByParameter(ctx, bson.M{})
	if err != nil {
		return nil, err
	}

	result := &BatchResult{TotalUsers: len(users)}
	var mu sync.Mutex
	var wg sync.WaitGroup

	jobs := make(chan models.User)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for user := range jobs {
				missionResult, err := e.AssembleMission(ctx, user.ID, date)

				mu.Lock()
				switch {
				case errors.Is(err, ErrMissionExists):
					result.Skipped++
				case err != nil:
					log.Printf("mission assembly failed for user %s: %v", user.ID.Hex(), err)
					result.Failed++
				case missionResult == nil:
					result.Skipped++ // No tracks or items available.
				default:
					result.Generated++
				}
				mu.Unlock()

				if err == nil && missionResult != nil && onGenerated != nil {
					onGenerated(user, missionResult)
				}
			}
		}()
	}

	for _, user := range users {
		jobs <- user
	}
	close(jobs)
	wg.Wait()

	return result, nil
}

// ExpireMissions fails every mission whose deadline has passed while still
// PENDING or IN_PROGRESS. Returns the number of missions failed.
func (e *Engine) ExpireMissions(ctx context.Context, now time.Time) (int, error) {
	missions, err := e.store.FindMissionsByParameter(ctx, bson.M{
		"status":   bson.M{"$in": []string{models.MissionPending, models.MissionInProgress}},
		"deadline": bson.M{"$lt": now},
	})
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, mission := range missions {
		_, err := e.store.UpdateMission(ctx, bson.M{"_id": mission.ID},
			bson.M{"$set": bson.M{"status": models.MissionFailed}})
		if err != nil {
			log.Printf("failed to expire mission %s: %v", mission.ID.Hex(), err)
			continue
		}
		expired++
	}
	return expired, nil
}

// StreakWarning identifies a user whose global streak will break unless they
// complete a task before the end of their local day.
type StreakWarning struct {
	User   models.User
	Streak models.Streak
}

// minWarnStreak is the smallest streak worth nagging a user about.
const minWarnStreak = 3

// StreakWarningCandidates finds users whose global streak's last activity was
// yesterday in their own timezone and who have not yet been active today.
// Notification delivery is the caller's concern.
func (e *Engine) StreakWarningCandidates(ctx context.Context, now time.Time) ([]StreakWarning, error) {
	streaks, err := e.store.FindStreaksByParameter(ctx, bson.M{
		"track_id":       primitive.NilObjectID,
		"current_streak": bson.M{"$gte": minWarnStreak},
	})
	if err != nil {
		return nil, err
	}

	var warnings []StreakWarning
	for _, streak := range streaks {
		user, err := e.store.FindUser(ctx, bson.M{"_id": streak.UserID})
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return nil, err
		}

		localNow := now.In(userLocation(user))
		yesterday := localNow.AddDate(0, 0, -1).Format(dateLayout)
		if streak.LastActivityDate == yesterday {
			warnings = append(warnings, StreakWarning{User: *user, Streak: streak})
		}
	}
	return warnings, nil
}
