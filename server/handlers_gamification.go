package server

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/masteryflow/masteryflow/engine"
	"github.com/masteryflow/masteryflow/models"
	cache "github.com/masteryflow/masteryflow/storage/cache"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// statsCacheTTL keeps computed stats fresh enough for a dashboard while
// sparing the XP aggregation on every page load.
const statsCacheTTL = 60 * time.Second

func statsCacheKey(userID primitive.ObjectID) string {
	return "stats_" + userID.Hex()
}

// invalidateStatsCache drops the cached stats after a settlement changed
// them. A cache error here only delays freshness until the TTL.
func invalidateStatsCache(r *http.Request, userID primitive.ObjectID) {
	if err := statsCache.Delete(r.Context(), statsCacheKey(userID)); err != nil {
		log.Printf("failed to invalidate stats cache: %v", err)
	}
}

func handleGamificationStats(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromRequest(r)
	if err != nil {
		writeUnauthorized(w)
		return
	}

	if cached, err := statsCache.Get(r.Context(), statsCacheKey(userID)); err == nil && cached != nil {
		writeJSON(w, http.StatusOK, cached)
		return
	} else if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		log.Printf("error reading stats cache: %v", err)
	}

	totalXP, err := store.SumXPTransactions(r.Context(), bson.M{"user_id": userID})
	if err != nil {
		writeError(w, err)
		return
	}

	level := engine.LevelForTotalXP(totalXP)

	streaks, err := store.FindStreaksByParameter(r.Context(), bson.M{"user_id": userID})
	if err != nil {
		writeError(w, err)
		return
	}

	var global *models.Streak
	trackStreaks := make([]models.Streak, 0, len(streaks))
	for i := range streaks {
		if streaks[i].TrackID.IsZero() {
			global = &streaks[i]
		} else {
			trackStreaks = append(trackStreaks, streaks[i])
		}
	}

	stats := map[string]interface{}{
		"total_xp":         totalXP,
		"level":            level,
		"xp_to_next_level": engine.XPToNextLevel(totalXP),
		"track_streaks":    trackStreaks,
	}
	if global != nil {
		stats["current_streak"] = global.CurrentStreak
		stats["longest_streak"] = global.LongestStreak
	} else {
		stats["current_streak"] = 0
		stats["longest_streak"] = 0
	}

	if err := statsCache.Set(r.Context(), statsCacheKey(userID), stats, statsCacheTTL); err != nil {
		log.Printf("failed to cache stats: %v", err)
	}

	writeJSON(w, http.StatusOK, stats)
}
