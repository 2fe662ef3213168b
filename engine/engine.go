// Package engine implements the daily-mission core: track rotation, item
// picking, cognitive load balancing, mission assembly, and task-completion
// settlement (XP awards and streak continuity).
package engine

import (
	"sync"
	"time"

	"github.com/masteryflow/masteryflow/models"
	storage "github.com/masteryflow/masteryflow/storage/persistent"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	// DefaultMinuteBudget is the daily cognitive-load budget in minutes.
	DefaultMinuteBudget = 180

	// DefaultMaxTasks is the task-count ceiling used when the user has no
	// cognitive-load preference set.
	DefaultMaxTasks = 5

	// MaxTracksPerDay bounds how many tracks receive attention on one date.
	MaxTracksPerDay = 3

	// RotationWindowDays is the trailing window the track selector inspects
	// for recent engagement.
	RotationWindowDays = 7
)

// dateLayout is the calendar-date format stored on missions and streaks.
const dateLayout = "2006-01-02"

// Engine runs mission assembly and completion settlement against a storage
// backend. Assembly for different users is independent; settlement serializes
// streak read-modify-write per user via a keyed mutex so that two tasks
// completed near-simultaneously cannot lose a streak update.
type Engine struct {
	store       storage.StorageInterface
	clock       Clock
	streakLocks sync.Map // user id hex -> *sync.Mutex
}

// NewEngine creates an engine on top of the given storage backend and clock.
// Pass a fixed clock in tests to make date arithmetic deterministic.
func NewEngine(store storage.StorageInterface, clock Clock) *Engine {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Engine{store: store, clock: clock}
}

// Now reports the engine's current time. Callers that need "today" outside
// the engine draw it from here so a fixed clock steers them too.
func (e *Engine) Now() time.Time {
	return e.clock.Now()
}

// userLock returns the mutex serializing streak updates for one user.
func (e *Engine) userLock(userID primitive.ObjectID) *sync.Mutex {
	lock, _ := e.streakLocks.LoadOrStore(userID.Hex(), &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// userLocation resolves a user's timezone, falling back to UTC when the
// timezone string is empty or unknown.
func userLocation(user *models.User) *time.Location {
	if user.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(user.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
