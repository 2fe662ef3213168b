package engine

import (
	"sort"

	"github.com/masteryflow/masteryflow/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// trackScore pairs a track with its rotation score for sorting.
type trackScore struct {
	track models.Track
	score float64
}

// SelectTracksForToday ranks the user's active tracks and returns the ones
// that should receive attention today, at most MaxTracksPerDay of them.
//
// appearances maps a track id to the number of missions in the trailing
// seven-day window that contained a task from that track. Each track is
// scored as recency + priority + remaining progress:
//
//	recency  = 10 * daysSinceEngagement, where daysSinceEngagement is 7 for
//	           tracks absent from the window, else max(7 - appearances, 0)
//	priority = 5 * rotationPriority (user-set weight, 1-10)
//	progress = 10 * (1 - completedItems/totalItems)
//
// so neglected, high-priority, unfinished tracks float to the top. Ties keep
// the incoming order (the caller supplies tracks sorted by rotation
// priority), which makes the selection reproducible across runs.
//
// An empty input yields an empty selection; the caller treats that as
// "nothing to assign", not an error.
func SelectTracksForToday(tracks []models.Track, appearances map[primitive.ObjectID]int) []models.Track {
	if len(tracks) == 0 {
		return nil
	}

	scored := make([]trackScore, 0, len(tracks))
	for _, track := range tracks {
		count := appearances[track.ID]

		daysSinceEngagement := RotationWindowDays
		if count > 0 {
			daysSinceEngagement = RotationWindowDays - count
			if daysSinceEngagement < 0 {
				daysSinceEngagement = 0
			}
		}

		completionRate := 0.0
		if track.TotalItems > 0 {
			completionRate = float64(track.CompletedItems) / float64(track.TotalItems)
		}

		recencyScore := float64(daysSinceEngagement) * 10
		priorityScore := float64(track.RotationPriority) * 5
		progressScore := (1 - completionRate) * 10

		scored = append(scored, trackScore{
			track: track,
			score: recencyScore + priorityScore + progressScore,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	limit := MaxTracksPerDay
	if len(scored) < limit {
		limit = len(scored)
	}

	selected := make([]models.Track, 0, limit)
	for _, ts := range scored[:limit] {
		selected = append(selected, ts.track)
	}
	return selected
}
