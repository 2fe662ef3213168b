package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/masteryflow/masteryflow/engine"
	"github.com/masteryflow/masteryflow/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func handleGenerateMission(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromRequest(r)
	if err != nil {
		writeUnauthorized(w)
		return
	}

	result, err := eng.AssembleMission(r.Context(), userID, eng.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	if result == nil {
		writeJSON(w, http.StatusOK, map[string]string{
			"result": "no mission generated, no active tracks with remaining items",
		})
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

func handleTodayMission(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromRequest(r)
	if err != nil {
		writeUnauthorized(w)
		return
	}

	user, err := store.FindUser(r.Context(), bson.M{"_id": userID})
	if err != nil {
		writeError(w, err)
		return
	}

	loc := time.UTC
	if user.Timezone != "" {
		if l, err := time.LoadLocation(user.Timezone); err == nil {
			loc = l
		}
	}
	today := eng.Now().In(loc).Format("2006-01-02")

	mission, err := store.FindMission(r.Context(), bson.M{"user_id": userID, "mission_date": today})
	if err != nil {
		writeError(w, err)
		return
	}

	tasks, err := store.FindMissionTasksByParameter(r.Context(), bson.M{"mission_id": mission.ID})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"mission": mission,
		"tasks":   tasks,
	})
}

// taskFromRoute resolves {id}/{taskId} and checks the task belongs to the
// given mission and the mission to the given user.
func taskFromRoute(r *http.Request, userID primitive.ObjectID) (*models.MissionTask, error) {
	vars := mux.Vars(r)
	missionID, err := primitive.ObjectIDFromHex(vars["id"])
	if err != nil {
		return nil, fmt.Errorf("invalid mission id: %w", engine.ErrInvalidInput)
	}
	taskID, err := primitive.ObjectIDFromHex(vars["taskId"])
	if err != nil {
		return nil, fmt.Errorf("invalid task id: %w", engine.ErrInvalidInput)
	}

	if _, err := store.FindMission(r.Context(), bson.M{"_id": missionID, "user_id": userID}); err != nil {
		return nil, err
	}
	return store.FindMissionTask(r.Context(), bson.M{"_id": taskID, "mission_id": missionID})
}

func handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromRequest(r)
	if err != nil {
		writeUnauthorized(w)
		return
	}

	task, err := taskFromRoute(r, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		ActualMinutes    int `json:"actual_minutes"`
		DifficultyRating int `json:"difficulty_rating"`
		EffortRating     int `json:"effort_rating"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	result, err := eng.CompleteTask(r.Context(), task.ID, req.ActualMinutes, req.DifficultyRating, req.EffortRating)
	if err != nil {
		writeError(w, err)
		return
	}

	invalidateStatsCache(r, userID)
	writeJSON(w, http.StatusOK, result)
}

func handleSkipTask(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromRequest(r)
	if err != nil {
		writeUnauthorized(w)
		return
	}

	task, err := taskFromRoute(r, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	skipped, err := eng.SkipTask(r.Context(), task.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	invalidateStatsCache(r, userID)
	writeJSON(w, http.StatusOK, skipped)
}
