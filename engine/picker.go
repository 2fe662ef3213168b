package engine

import (
	"github.com/masteryflow/masteryflow/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Candidate is a track item proposed for today's mission, annotated with the
// track it came from.
type Candidate struct {
	Item    models.TrackItem
	TrackID primitive.ObjectID
}

// trackCursor walks one track's items forward from its resume point.
type trackCursor struct {
	trackID primitive.ObjectID
	items   []models.TrackItem
	next    int
}

// NextItemsFromTracks picks the next units of work from the selected tracks,
// stopping once maxItems candidates have accumulated.
//
// Each track's resume point is approximated from its aggregate progress
// counter: index = floor(completionRate * itemCount), falling back to the
// first item when that index has no item. A track with zero items contributes
// nothing. The first round-robin pass takes each track's resume item in
// selection order; further passes continue forward through each track's items
// so that remaining capacity is spread across tracks rather than drained from
// the first one.
//
// Per-item completion state is not tracked, so items inserted out of order
// can be re-served or skipped; the aggregate-counter heuristic is kept
// deliberately (see DESIGN.md).
//
// itemsByTrack must hold each track's items ordered by ascending order index.
func NextItemsFromTracks(tracks []models.Track, itemsByTrack map[primitive.ObjectID][]models.TrackItem, maxItems int) []Candidate {
	if maxItems <= 0 {
		return nil
	}

	cursors := make([]trackCursor, 0, len(tracks))
	for _, track := range tracks {
		items := itemsByTrack[track.ID]
		if len(items) == 0 {
			continue
		}

		completionRate := 0.0
		if track.TotalItems > 0 {
			completionRate = float64(track.CompletedItems) / float64(track.TotalItems)
		}

		resumeIndex := int(completionRate * float64(len(items)))
		if resumeIndex < 0 || resumeIndex >= len(items) {
			resumeIndex = 0
		}

		cursors = append(cursors, trackCursor{trackID: track.ID, items: items, next: resumeIndex})
	}

	var candidates []Candidate
	for len(candidates) < maxItems {
		progressed := false
		for i := range cursors {
			if len(candidates) >= maxItems {
				break
			}
			c := &cursors[i]
			if c.next >= len(c.items) {
				continue
			}
			candidates = append(candidates, Candidate{Item: c.items[c.next], TrackID: c.trackID})
			c.next++
			progressed = true
		}
		if !progressed {
			break
		}
	}

	return candidates
}
