package engine

import "github.com/masteryflow/masteryflow/models"

// BalanceCognitiveLoad assembles the final task list from the picked
// candidates under a minute budget and a task-count ceiling, with a mixed
// difficulty profile so a mission is never all-hard.
//
// Candidates are partitioned into difficulty buckets preserving their
// original order. At most one HARD item is admitted, first, if it fits the
// budget; then MEDIUM items in order, then EASY items, each admitted only
// while the running total stays within the budget and the count below the
// ceiling. An item that does not fit is skipped, not deferred; later,
// smaller items may still be admitted.
//
// The result may be empty or shorter than maxTasks when candidates are few
// or large. Invariants: the admitted minutes never exceed maxMinutes, the
// admitted count never exceeds maxTasks, and at most one HARD item appears.
func BalanceCognitiveLoad(candidates []Candidate, maxMinutes, maxTasks int) []Candidate {
	if maxTasks <= 0 || maxMinutes <= 0 {
		return nil
	}

	var easy, medium, hard []Candidate
	for _, c := range candidates {
		switch c.Item.Difficulty {
		case models.DifficultyEasy:
			easy = append(easy, c)
		case models.DifficultyHard:
			hard = append(hard, c)
		default:
			medium = append(medium, c)
		}
	}

	var selected []Candidate
	totalMinutes := 0

	// Start with one hard task to front-load the heavy lifting.
	if len(hard) > 0 && hard[0].Item.EstimatedMinutes <= maxMinutes {
		selected = append(selected, hard[0])
		totalMinutes += hard[0].Item.EstimatedMinutes
	}

	for _, c := range medium {
		if totalMinutes+c.Item.EstimatedMinutes <= maxMinutes && len(selected) < maxTasks {
			selected = append(selected, c)
			totalMinutes += c.Item.EstimatedMinutes
		}
	}

	for _, c := range easy {
		if totalMinutes+c.Item.EstimatedMinutes <= maxMinutes && len(selected) < maxTasks {
			selected = append(selected, c)
			totalMinutes += c.Item.EstimatedMinutes
		}
	}

	return selected
}
