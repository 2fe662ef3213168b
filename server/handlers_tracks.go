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

var validCategories = map[string]bool{
	models.CategoryDSA:            true,
	models.CategorySystemDesign:   true,
	models.CategoryAIML:           true,
	models.CategoryCSFundamentals: true,
	models.CategoryOpenSource:     true,
}

var validDifficulties = map[string]bool{
	models.DifficultyEasy:   true,
	models.DifficultyMedium: true,
	models.DifficultyHard:   true,
}

type trackRequest struct {
	Name             string `json:"name"`
	Category         string `json:"category"`
	DifficultyLevel  string `json:"difficulty_level"`
	RotationPriority int    `json:"rotation_priority"`
	EstimatedDays    int    `json:"estimated_days"`
	SourceURL        string `json:"source_url"`
}

type trackItemRequest struct {
	Title            string                `json:"title"`
	Description      string                `json:"description"`
	Difficulty       string                `json:"difficulty"`
	EstimatedMinutes int                   `json:"estimated_minutes"`
	Tags             []string              `json:"tags"`
	ResourceLinks    []models.ResourceLink `json:"resource_links"`
}

// ownedTrack loads the track from the route's {id} and checks it belongs to
// the authenticated user. Tracks of other users read as not found.
func ownedTrack(r *http.Request, userID primitive.ObjectID) (*models.Track, error) {
	trackID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		return nil, fmt.Errorf("invalid track id: %w", engine.ErrInvalidInput)
	}
	return store.FindTrack(r.Context(), bson.M{"_id": trackID, "user_id": userID})
}

func handleListTracks(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromRequest(r)
	if err != nil {
		writeUnauthorized(w)
		return
	}

	tracks, err := store.FindTracksByParameter(r.Context(), bson.M{"user_id": userID})
	if err != nil {
		writeError(w, err)
		return
	}
	if tracks == nil {
		tracks = []models.Track{}
	}
	writeJSON(w, http.StatusOK, tracks)
}

func handleCreateTrack(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromRequest(r)
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req trackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Name == "" {
		writeError(w, fmt.Errorf("track name is required: %w", engine.ErrInvalidInput))
		return
	}
	if !validCategories[req.Category] {
		writeError(w, fmt.Errorf("unknown category %q: %w", req.Category, engine.ErrInvalidInput))
		return
	}
	if req.RotationPriority == 0 {
		req.RotationPriority = 3
	}
	if req.RotationPriority < 1 || req.RotationPriority > 10 {
		writeError(w, fmt.Errorf("rotation priority must be between 1 and 10: %w", engine.ErrInvalidInput))
		return
	}

	now := time.Now().UTC()
	track, err := store.AddTrack(r.Context(), &models.Track{
		UserID:           userID,
		Name:             req.Name,
		Category:         req.Category,
		DifficultyLevel:  req.DifficultyLevel,
		IsActive:         true,
		RotationPriority: req.RotationPriority,
		EstimatedDays:    req.EstimatedDays,
		SourceURL:        req.SourceURL,
		CreatedAt:        now,
		UpdatedAt:        now,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, track)
}

func handleGetTrack(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromRequest(r)
	if err != nil {
		writeUnauthorized(w)
		return
	}

	track, err := ownedTrack(r, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	items, err := store.FindTrackItemsByParameter(r.Context(), bson.M{"track_id": track.ID})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"track": track,
		"items": items,
	})
}

func handleUpdateTrack(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromRequest(r)
	if err != nil {
		writeUnauthorized(w)
		return
	}

	track, err := ownedTrack(r, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		Name             *string `json:"name"`
		DifficultyLevel  *string `json:"difficulty_level"`
		RotationPriority *int    `json:"rotation_priority"`
		IsActive         *bool   `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	set := bson.M{"updated_at": time.Now().UTC()}
	if req.Name != nil {
		if *req.Name == "" {
			writeError(w, fmt.Errorf("track name cannot be empty: %w", engine.ErrInvalidInput))
			return
		}
		set["name"] = *req.Name
	}
	if req.DifficultyLevel != nil {
		set["difficulty_level"] = *req.DifficultyLevel
	}
	if req.RotationPriority != nil {
		if *req.RotationPriority < 1 || *req.RotationPriority > 10 {
			writeError(w, fmt.Errorf("rotation priority must be between 1 and 10: %w", engine.ErrInvalidInput))
			return
		}
		set["rotation_priority"] = *req.RotationPriority
	}
	if req.IsActive != nil {
		set["is_active"] = *req.IsActive
	}

	if _, err := store.UpdateTrack(r.Context(), bson.M{"_id": track.ID}, bson.M{"$set": set}); err != nil {
		writeError(w, err)
		return
	}

	updated, err := store.FindTrack(r.Context(), bson.M{"_id": track.ID})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// handleDeleteTrack removes a track, or soft-disables it when missions
// already reference it so historical missions stay resolvable.
func handleDeleteTrack(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromRequest(r)
	if err != nil {
		writeUnauthorized(w)
		return
	}

	track, err := ownedTrack(r, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	referencing, err := store.FindMissionTasksByParameter(r.Context(), bson.M{"track_id": track.ID})
	if err != nil {
		writeError(w, err)
		return
	}

	if len(referencing) > 0 {
		_, err := store.UpdateTrack(r.Context(), bson.M{"_id": track.ID},
			bson.M{"$set": bson.M{"is_active": false, "updated_at": time.Now().UTC()}})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"result": "disabled"})
		return
	}

	if _, err := store.DeleteTrackItems(r.Context(), bson.M{"track_id": track.ID}); err != nil {
		writeError(w, err)
		return
	}
	if _, err := store.DeleteTrack(r.Context(), bson.M{"_id": track.ID}); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": "deleted"})
}

// handleAddTrackItems appends a batch of items to a track. Order indexes
// continue from the current item count, and the track's total bumps by the
// batch size.
func handleAddTrackItems(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromRequest(r)
	if err != nil {
		writeUnauthorized(w)
		return
	}

	track, err := ownedTrack(r, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	var reqs []trackItemRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		writeError(w, fmt.Errorf("request body must be an array of items: %w", engine.ErrInvalidInput))
		return
	}
	if len(reqs) == 0 {
		writeError(w, fmt.Errorf("at least one item is required: %w", engine.ErrInvalidInput))
		return
	}

	existing, err := store.FindTrackItemsByParameter(r.Context(), bson.M{"track_id": track.ID})
	if err != nil {
		writeError(w, err)
		return
	}
	nextIndex := len(existing)

	now := time.Now().UTC()
	items := make([]models.TrackItem, len(reqs))
	for i, req := range reqs {
		if req.Title == "" {
			writeError(w, fmt.Errorf("item title is required: %w", engine.ErrInvalidInput))
			return
		}
		if !validDifficulties[req.Difficulty] {
			writeError(w, fmt.Errorf("unknown difficulty %q: %w", req.Difficulty, engine.ErrInvalidInput))
			return
		}
		if req.EstimatedMinutes <= 0 {
			writeError(w, fmt.Errorf("estimated minutes must be positive: %w", engine.ErrInvalidInput))
			return
		}
		items[i] = models.TrackItem{
			TrackID:          track.ID,
			Title:            req.Title,
			Description:      req.Description,
			Difficulty:       req.Difficulty,
			EstimatedMinutes: req.EstimatedMinutes,
			OrderIndex:       nextIndex + i,
			Tags:             req.Tags,
			ResourceLinks:    req.ResourceLinks,
			CreatedAt:        now,
		}
	}

	added, err := store.AddTrackItems(r.Context(), items)
	if err != nil {
		writeError(w, err)
		return
	}

	_, err = store.UpdateTrack(r.Context(), bson.M{"_id": track.ID}, bson.M{
		"$inc": bson.M{"total_items": len(added)},
		"$set": bson.M{"updated_at": now},
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, added)
}
