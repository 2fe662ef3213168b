package server

import (
	"fmt"
	"log"
	"net/http"

	"github.com/masteryflow/masteryflow/engine"
	"github.com/masteryflow/masteryflow/models"
	"github.com/masteryflow/masteryflow/queue"
)

// cronWorkers bounds the fan-out concurrency of the daily assembly run.
const cronWorkers = 4

// handleCronDailyMissions assembles today's mission for every user and
// queues a MISSION_READY notification for each fresh mission.
func handleCronDailyMissions(w http.ResponseWriter, r *http.Request) {
	result, err := eng.AssembleAllUsers(r.Context(), eng.Now(), cronWorkers,
		func(user models.User, mr *engine.MissionResult) {
			notification := &queue.NotificationMessage{
				Id:               mr.Mission.ID.Hex(),
				Kind:             queue.KindMissionReady,
				To:               user.Email,
				Username:         user.Username,
				MissionDate:      mr.Mission.MissionDate,
				TaskCount:        len(mr.Tasks),
				EstimatedMinutes: mr.TotalEstimatedMinutes,
			}
			if err := queue.PublishNotification(notification, notificationQueue); err != nil {
				log.Printf("failed to queue mission notification for %s: %v", user.Email, err)
			}
		})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func handleCronExpireMissions(w http.ResponseWriter, r *http.Request) {
	expired, err := eng.ExpireMissions(r.Context(), eng.Now())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"expired": expired})
}

// handleCronStreakWarnings queues a STREAK_WARNING for every user whose
// streak ends today without activity. The notification id carries the date so
// repeated cron runs on the same day dedupe in the consumer.
func handleCronStreakWarnings(w http.ResponseWriter, r *http.Request) {
	warnings, err := eng.StreakWarningCandidates(r.Context(), eng.Now())
	if err != nil {
		writeError(w, err)
		return
	}

	queued := 0
	for _, warning := range warnings {
		notification := &queue.NotificationMessage{
			Id:            fmt.Sprintf("streak_%s_%s", warning.User.ID.Hex(), warning.Streak.LastActivityDate),
			Kind:          queue.KindStreakWarning,
			To:            warning.User.Email,
			Username:      warning.User.Username,
			CurrentStreak: warning.Streak.CurrentStreak,
		}
		if err := queue.PublishNotification(notification, notificationQueue); err != nil {
			log.Printf("failed to queue streak warning for %s: %v", warning.User.Email, err)
			continue
		}
		queued++
	}

	writeJSON(w, http.StatusOK, map[string]int{"candidates": len(warnings), "queued": queued})
}
