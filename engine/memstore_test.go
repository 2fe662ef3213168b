package engine

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/masteryflow/masteryflow/models"
	storage "github.com/masteryflow/masteryflow/storage/persistent"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memStore is an in-memory StorageInterface for engine tests. It understands
// the filter and update shapes the engine actually issues (equality, $in,
// $gte, $lt, $set, $inc) and enforces the same uniqueness rules the MongoDB
// indexes do: (user_id, mission_date) on missions and (user_id, track_id) on
// streaks.
type memStore struct {
	mu       sync.Mutex
	users    []*models.User
	tracks   []*models.Track
	items    []*models.TrackItem
	missions []*models.DailyMission
	tasks    []*models.MissionTask
	streaks  []*models.Streak
	xps      []*models.XPTransaction

	// failTracksFor forces FindTracksByParameter to fail for specific users,
	// to exercise partial-failure handling in batch assembly.
	failTracksFor map[primitive.ObjectID]bool
}

func newMemStore() *memStore {
	return &memStore{failTracksFor: make(map[primitive.ObjectID]bool)}
}

func (s *memStore) Connect(dbName, uri string) error { return nil }
func (s *memStore) Disconnect() error                { return nil }

// matchValue evaluates one filter condition against a document value.
func matchValue(cond, val interface{}) bool {
	if ops, ok := cond.(bson.M); ok {
		for op, arg := range ops {
			switch op {
			case "$in":
				if !valueInList(arg, val) {
					return false
				}
			case "$gte":
				if compareValues(val, arg) < 0 {
					return false
				}
			case "$lt":
				if compareValues(val, arg) >= 0 {
					return false
				}
			default:
				panic(fmt.Sprintf("memStore: unsupported operator %q", op))
			}
		}
		return true
	}
	return reflect.DeepEqual(cond, val)
}

func valueInList(list, val interface{}) bool {
	rv := reflect.ValueOf(list)
	for i := 0; i < rv.Len(); i++ {
		if reflect.DeepEqual(rv.Index(i).Interface(), val) {
			return true
		}
	}
	return false
}

func compareValues(a, b interface{}) int {
	switch av := a.(type) {
	case int:
		bv := b.(int)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case string:
		bv := b.(string)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case time.Time:
		bv := b.(time.Time)
		switch {
		case av.Before(bv):
			return -1
		case av.After(bv):
			return 1
		}
		return 0
	}
	panic(fmt.Sprintf("memStore: cannot compare %T", a))
}

// matchDoc checks every filter key against the document via the field getter.
func matchDoc(filter interface{}, get func(string) interface{}) bool {
	for key, cond := range filter.(bson.M) {
		if !matchValue(cond, get(key)) {
			return false
		}
	}
	return true
}

func userField(u *models.User, key string) interface{} {
	switch key {
	case "_id":
		return u.ID
	case "username":
		return u.Username
	case "email":
		return u.Email
	}
	panic("memStore: unknown user field " + key)
}

func trackField(t *models.Track, key string) interface{} {
	switch key {
	case "_id":
		return t.ID
	case "user_id":
		return t.UserID
	case "is_active":
		return t.IsActive
	}
	panic("memStore: unknown track field " + key)
}

func itemField(i *models.TrackItem, key string) interface{} {
	switch key {
	case "_id":
		return i.ID
	case "track_id":
		return i.TrackID
	}
	panic("memStore: unknown track item field " + key)
}

func missionField(m *models.DailyMission, key string) interface{} {
	switch key {
	case "_id":
		return m.ID
	case "user_id":
		return m.UserID
	case "mission_date":
		return m.MissionDate
	case "status":
		return m.Status
	case "deadline":
		return m.Deadline
	}
	panic("memStore: unknown mission field " + key)
}

func taskField(t *models.MissionTask, key string) interface{} {
	switch key {
	case "_id":
		return t.ID
	case "mission_id":
		return t.MissionID
	case "track_id":
		return t.TrackID
	}
	panic("memStore: unknown mission task field " + key)
}

func streakField(s *models.Streak, key string) interface{} {
	switch key {
	case "_id":
		return s.ID
	case "user_id":
		return s.UserID
	case "track_id":
		return s.TrackID
	case "current_streak":
		return s.CurrentStreak
	case "last_activity_date":
		return s.LastActivityDate
	}
	panic("memStore: unknown streak field " + key)
}

func (s *memStore) AddUser(ctx context.Context, user *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	s.users = append(s.users, user)
	return user, nil
}

func (s *memStore) FindUser(ctx context.Context, filter interface{}) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if matchDoc(filter, func(k string) interface{} { return userField(u, k) }) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *memStore) FindUsersByParameter(ctx context.Context, filter interface{}) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.User
	for _, u := range s.users {
		if matchDoc(filter, func(k string) interface{} { return userField(u, k) }) {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (s *memStore) UpdateUser(ctx context.Context, filter, update interface{}) (*models.User, error) {
	return nil, fmt.Errorf("memStore: UpdateUser not supported")
}

func (s *memStore) DeleteUser(ctx context.Context, filter interface{}) (*storage.DeleteResult, error) {
	return nil, fmt.Errorf("memStore: DeleteUser not supported")
}

func (s *memStore) AddTrack(ctx context.Context, track *models.Track) (*models.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if track.ID.IsZero() {
		track.ID = primitive.NewObjectID()
	}
	s.tracks = append(s.tracks, track)
	return track, nil
}

func (s *memStore) FindTrack(ctx context.Context, filter interface{}) (*models.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tracks {
		if matchDoc(filter, func(k string) interface{} { return trackField(t, k) }) {
			copied := *t
			return &copied, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *memStore) FindTracksByParameter(ctx context.Context, filter interface{}) ([]models.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := filter.(bson.M); ok {
		if userID, ok := f["user_id"].(primitive.ObjectID); ok && s.failTracksFor[userID] {
			return nil, fmt.Errorf("memStore: injected track read failure")
		}
	}
	var out []models.Track
	for _, t := range s.tracks {
		if matchDoc(filter, func(k string) interface{} { return trackField(t, k) }) {
			out = append(out, *t)
		}
	}
	// The Mongo implementation sorts by ascending rotation priority.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RotationPriority < out[j].RotationPriority
	})
	return out, nil
}

func (s *memStore) UpdateTrack(ctx context.Context, filter, update interface{}) (*storage.UpdateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tracks {
		if !matchDoc(filter, func(k string) interface{} { return trackField(t, k) }) {
			continue
		}
		u := update.(bson.M)
		if inc, ok := u["$inc"].(bson.M); ok {
			if n, ok := inc["completed_items"].(int); ok {
				t.CompletedItems += n
			}
		}
		if set, ok := u["$set"].(bson.M); ok {
			if v, ok := set["updated_at"].(time.Time); ok {
				t.UpdatedAt = v
			}
			if v, ok := set["is_active"].(bool); ok {
				t.IsActive = v
			}
		}
		return &storage.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
	}
	return nil, storage.ErrNotFound
}

func (s *memStore) DeleteTrack(ctx context.Context, filter interface{}) (*storage.DeleteResult, error) {
	return nil, fmt.Errorf("memStore: DeleteTrack not supported")
}

func (s *memStore) AddTrackItems(ctx context.Context, items []models.TrackItem) ([]models.TrackItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range items {
		if items[i].ID.IsZero() {
			items[i].ID = primitive.NewObjectID()
		}
		copied := items[i]
		s.items = append(s.items, &copied)
	}
	return items, nil
}

func (s *memStore) FindTrackItemsByParameter(ctx context.Context, filter interface{}) ([]models.TrackItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.TrackItem
	for _, i := range s.items {
		if matchDoc(filter, func(k string) interface{} { return itemField(i, k) }) {
			out = append(out, *i)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OrderIndex < out[j].OrderIndex
	})
	return out, nil
}

func (s *memStore) DeleteTrackItems(ctx context.Context, filter interface{}) (*storage.DeleteResult, error) {
	return nil, fmt.Errorf("memStore: DeleteTrackItems not supported")
}

func (s *memStore) AddMission(ctx context.Context, mission *models.DailyMission) (*models.DailyMission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.missions {
		if m.UserID == mission.UserID && m.MissionDate == mission.MissionDate {
			return nil, storage.ErrDuplicate
		}
	}
	if mission.ID.IsZero() {
		mission.ID = primitive.NewObjectID()
	}
	s.missions = append(s.missions, mission)
	return mission, nil
}

func (s *memStore) FindMission(ctx context.Context, filter interface{}) (*models.DailyMission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.missions {
		if matchDoc(filter, func(k string) interface{} { return missionField(m, k) }) {
			copied := *m
			return &copied, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *memStore) FindMissionsByParameter(ctx context.Context, filter interface{}) ([]models.DailyMission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.DailyMission
	for _, m := range s.missions {
		if matchDoc(filter, func(k string) interface{} { return missionField(m, k) }) {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (s *memStore) UpdateMission(ctx context.Context, filter, update interface{}) (*storage.UpdateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.missions {
		if !matchDoc(filter, func(k string) interface{} { return missionField(m, k) }) {
			continue
		}
		u := update.(bson.M)
		if set, ok := u["$set"].(bson.M); ok {
			if v, ok := set["status"].(string); ok {
				m.Status = v
			}
			if v, ok := set["completed_at"].(time.Time); ok {
				m.CompletedAt = &v
			}
		}
		if inc, ok := u["$inc"].(bson.M); ok {
			if n, ok := inc["actual_minutes_spent"].(int); ok {
				m.ActualMinutesSpent += n
			}
		}
		return &storage.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
	}
	return nil, storage.ErrNotFound
}

func (s *memStore) AddMissionTasks(ctx context.Context, tasks []models.MissionTask) ([]models.MissionTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range tasks {
		if tasks[i].ID.IsZero() {
			tasks[i].ID = primitive.NewObjectID()
		}
		copied := tasks[i]
		s.tasks = append(s.tasks, &copied)
	}
	return tasks, nil
}

func (s *memStore) FindMissionTask(ctx context.Context, filter interface{}) (*models.MissionTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if matchDoc(filter, func(k string) interface{} { return taskField(t, k) }) {
			copied := *t
			return &copied, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *memStore) FindMissionTasksByParameter(ctx context.Context, filter interface{}) ([]models.MissionTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.MissionTask
	for _, t := range s.tasks {
		if matchDoc(filter, func(k string) interface{} { return taskField(t, k) }) {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (s *memStore) UpdateMissionTask(ctx context.Context, filter, update interface{}) (*storage.UpdateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if !matchDoc(filter, func(k string) interface{} { return taskField(t, k) }) {
			continue
		}
		u := update.(bson.M)
		if set, ok := u["$set"].(bson.M); ok {
			if v, ok := set["status"].(string); ok {
				t.Status = v
			}
			if v, ok := set["completed_at"].(time.Time); ok {
				t.CompletedAt = &v
			}
			if v, ok := set["actual_minutes"].(int); ok {
				t.ActualMinutes = v
			}
			if v, ok := set["difficulty_rating"].(int); ok {
				t.DifficultyRating = v
			}
			if v, ok := set["effort_rating"].(int); ok {
				t.EffortRating = v
			}
		}
		return &storage.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
	}
	return nil, storage.ErrNotFound
}

func (s *memStore) AddStreak(ctx context.Context, streak *models.Streak) (*models.Streak, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.streaks {
		if existing.UserID == streak.UserID && existing.TrackID == streak.TrackID {
			return nil, storage.ErrDuplicate
		}
	}
	if streak.ID.IsZero() {
		streak.ID = primitive.NewObjectID()
	}
	s.streaks = append(s.streaks, streak)
	return streak, nil
}

func (s *memStore) FindStreak(ctx context.Context, filter interface{}) (*models.Streak, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.streaks {
		if matchDoc(filter, func(k string) interface{} { return streakField(st, k) }) {
			copied := *st
			return &copied, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *memStore) FindStreaksByParameter(ctx context.Context, filter interface{}) ([]models.Streak, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Streak
	for _, st := range s.streaks {
		if matchDoc(filter, func(k string) interface{} { return streakField(st, k) }) {
			out = append(out, *st)
		}
	}
	return out, nil
}

func (s *memStore) UpdateStreak(ctx context.Context, filter, update interface{}) (*storage.UpdateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.streaks {
		if !matchDoc(filter, func(k string) interface{} { return streakField(st, k) }) {
			continue
		}
		u := update.(bson.M)
		if set, ok := u["$set"].(bson.M); ok {
			if v, ok := set["current_streak"].(int); ok {
				st.CurrentStreak = v
			}
			if v, ok := set["longest_streak"].(int); ok {
				st.LongestStreak = v
			}
			if v, ok := set["last_activity_date"].(string); ok {
				st.LastActivityDate = v
			}
			if v, ok := set["updated_at"].(time.Time); ok {
				st.UpdatedAt = v
			}
		}
		return &storage.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
	}
	return nil, storage.ErrNotFound
}

func (s *memStore) AddXPTransaction(ctx context.Context, tx *models.XPTransaction) (*models.XPTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx.ID.IsZero() {
		tx.ID = primitive.NewObjectID()
	}
	s.xps = append(s.xps, tx)
	return tx, nil
}

func (s *memStore) SumXPTransactions(ctx context.Context, filter interface{}) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, tx := range s.xps {
		if matchDoc(filter, func(k string) interface{} {
			switch k {
			case "user_id":
				return tx.UserID
			}
			panic("memStore: unknown xp field " + k)
		}) {
			total += int64(tx.Amount)
		}
	}
	return total, nil
}

func (s *memStore) AddConfirmation(ctx context.Context, confirmation *models.Confirmation) (*models.Confirmation, error) {
	return nil, fmt.Errorf("memStore: AddConfirmation not supported")
}

func (s *memStore) FindConfirmation(ctx context.Context, filter interface{}) (*models.Confirmation, error) {
	return nil, storage.ErrNotFound
}

func (s *memStore) DeleteConfirmation(ctx context.Context, filter interface{}) (*storage.DeleteResult, error) {
	return nil, fmt.Errorf("memStore: DeleteConfirmation not supported")
}
