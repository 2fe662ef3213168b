package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Track categories. A track is a user-defined learning path grouping ordered items.
const (
	CategoryDSA            = "DSA"
	CategorySystemDesign   = "SYSTEM_DESIGN"
	CategoryAIML           = "AI_ML"
	CategoryCSFundamentals = "CS_FUNDAMENTALS"
	CategoryOpenSource     = "OPEN_SOURCE"
)

// Item difficulties, used both for balancing missions and for pricing XP.
const (
	DifficultyEasy   = "EASY"
	DifficultyMedium = "MEDIUM"
	DifficultyHard   = "HARD"
)

// Track difficulty levels (coarse, user-facing metadata).
const (
	LevelBeginner     = "BEGINNER"
	LevelIntermediate = "INTERMEDIATE"
	LevelAdvanced     = "ADVANCED"
)

// Mission statuses. A mission moves PENDING -> IN_PROGRESS -> COMPLETED,
// or to FAILED if its deadline passes unmet.
const (
	MissionPending    = "PENDING"
	MissionInProgress = "IN_PROGRESS"
	MissionCompleted  = "COMPLETED"
	MissionFailed     = "FAILED"
)

// Task statuses. COMPLETED and SKIPPED are terminal.
const (
	TaskPending    = "PENDING"
	TaskInProgress = "IN_PROGRESS"
	TaskCompleted  = "COMPLETED"
	TaskSkipped    = "SKIPPED"
)

// Task types. The assembler only produces TRACK_ITEM tasks; the other kinds
// are reserved for manually injected tasks.
const (
	TaskTypeTrackItem   = "TRACK_ITEM"
	TaskTypeBrainTeaser = "BRAIN_TEASER"
	TaskTypeReflection  = "REFLECTION"
)

// XP transaction sources.
const (
	XPSourceTaskCompletion  = "TASK_COMPLETION"
	XPSourceBrainTeaser     = "BRAIN_TEASER"
	XPSourceOSSContribution = "OSS_CONTRIBUTION"
	XPSourceStreakBonus     = "STREAK_BONUS"
	XPSourcePenalty         = "PENALTY"
)

type User struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username         string             `bson:"username" json:"username"`
	Email            string             `bson:"email" json:"email"`
	PasswordHash     string             `bson:"password_hash" json:"-"`
	EmailConfirmed   bool               `bson:"email_confirmed" json:"email_confirmed"`
	Timezone         string             `bson:"timezone" json:"timezone"`
	CognitiveLoadMax int                `bson:"cognitive_load_max" json:"cognitive_load_max"`
	DailyMissionTime string             `bson:"daily_mission_time,omitempty" json:"daily_mission_time,omitempty"`
	CreatedAt        time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time          `bson:"updated_at" json:"updated_at"`
}

type Confirmation struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID            primitive.ObjectID `bson:"user_id,omitempty" json:"user_id"`
	ConfirmationToken string             `bson:"token" json:"token"`
	ExpiresAt         time.Time          `bson:"expires_at" json:"expires_at"`
}

// Track is a learning path owned by one user. CompletedItems is only ever
// incremented by task settlement, and CompletedItems <= TotalItems holds.
// Tracks referenced by missions are soft-disabled via IsActive, never deleted.
type Track struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID           primitive.ObjectID `bson:"user_id" json:"user_id"`
	Name             string             `bson:"name" json:"name"`
	Category         string             `bson:"category" json:"category"`
	DifficultyLevel  string             `bson:"difficulty_level" json:"difficulty_level"`
	IsActive         bool               `bson:"is_active" json:"is_active"`
	RotationPriority int                `bson:"rotation_priority" json:"rotation_priority"`
	TotalItems       int                `bson:"total_items" json:"total_items"`
	CompletedItems   int                `bson:"completed_items" json:"completed_items"`
	EstimatedDays    int                `bson:"estimated_days,omitempty" json:"estimated_days,omitempty"`
	SourceURL        string             `bson:"source_url,omitempty" json:"source_url,omitempty"`
	CreatedAt        time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time          `bson:"updated_at" json:"updated_at"`
}

// TrackItem is one ordered unit of work inside a track. OrderIndex is unique
// within the track and defines the resume order.
type TrackItem struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TrackID          primitive.ObjectID `bson:"track_id" json:"track_id"`
	Title            string             `bson:"title" json:"title"`
	Description      string             `bson:"description,omitempty" json:"description,omitempty"`
	Difficulty       string             `bson:"difficulty" json:"difficulty"`
	EstimatedMinutes int                `bson:"estimated_minutes" json:"estimated_minutes"`
	OrderIndex       int                `bson:"order_index" json:"order_index"`
	Tags             []string           `bson:"tags,omitempty" json:"tags,omitempty"`
	ResourceLinks    []ResourceLink     `bson:"resource_links,omitempty" json:"resource_links,omitempty"`
	CreatedAt        time.Time          `bson:"created_at" json:"created_at"`
}

type ResourceLink struct {
	Type string `bson:"type" json:"type"`
	URL  string `bson:"url" json:"url"`
}

// DailyMission is the set of tasks assigned to a user for one calendar date.
// MissionDate is a YYYY-MM-DD string in the user's timezone; the pair
// (user_id, mission_date) is unique in storage.
type DailyMission struct {
	ID                    primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID                primitive.ObjectID `bson:"user_id" json:"user_id"`
	MissionDate           string             `bson:"mission_date" json:"mission_date"`
	Status                string             `bson:"status" json:"status"`
	AssignedAt            time.Time          `bson:"assigned_at" json:"assigned_at"`
	Deadline              time.Time          `bson:"deadline" json:"deadline"`
	CompletedAt           *time.Time         `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
	TotalEstimatedMinutes int                `bson:"total_estimated_minutes" json:"total_estimated_minutes"`
	ActualMinutesSpent    int                `bson:"actual_minutes_spent" json:"actual_minutes_spent"`
}

// MissionTask is one assigned unit of work inside a mission. TrackID and
// TrackItemID are zero for tasks that are not track-derived. Difficulty is
// copied from the source item at assembly time so settlement can price XP
// without re-reading the item.
type MissionTask struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	MissionID        primitive.ObjectID `bson:"mission_id" json:"mission_id"`
	TrackID          primitive.ObjectID `bson:"track_id,omitempty" json:"track_id,omitempty"`
	TrackItemID      primitive.ObjectID `bson:"track_item_id,omitempty" json:"track_item_id,omitempty"`
	TaskType         string             `bson:"task_type" json:"task_type"`
	Status           string             `bson:"status" json:"status"`
	Difficulty       string             `bson:"difficulty" json:"difficulty"`
	EstimatedMinutes int                `bson:"estimated_minutes" json:"estimated_minutes"`
	ActualMinutes    int                `bson:"actual_minutes" json:"actual_minutes"`
	StartedAt        *time.Time         `bson:"started_at,omitempty" json:"started_at,omitempty"`
	CompletedAt      *time.Time         `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
	DifficultyRating int                `bson:"difficulty_rating,omitempty" json:"difficulty_rating,omitempty"`
	EffortRating     int                `bson:"effort_rating,omitempty" json:"effort_rating,omitempty"`
}

// Streak counts consecutive days with qualifying activity. TrackID is the
// zero ObjectID for the user's global streak. LongestStreak >= CurrentStreak
// always. LastActivityDate is a YYYY-MM-DD string in the user's timezone.
type Streak struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID           primitive.ObjectID `bson:"user_id" json:"user_id"`
	TrackID          primitive.ObjectID `bson:"track_id" json:"track_id,omitempty"`
	CurrentStreak    int                `bson:"current_streak" json:"current_streak"`
	LongestStreak    int                `bson:"longest_streak" json:"longest_streak"`
	LastActivityDate string             `bson:"last_activity_date,omitempty" json:"last_activity_date,omitempty"`
	FreezeCount      int                `bson:"freeze_count" json:"freeze_count"`
	FreezeUsed       int                `bson:"freeze_used" json:"freeze_used"`
	UpdatedAt        time.Time          `bson:"updated_at" json:"updated_at"`
}

// XPTransaction is an immutable ledger entry. Total XP is always computed by
// summing amounts, never stored as a mutable counter.
type XPTransaction struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      primitive.ObjectID `bson:"user_id" json:"user_id"`
	Amount      int                `bson:"amount" json:"amount"`
	Source      string             `bson:"source" json:"source"`
	SourceID    primitive.ObjectID `bson:"source_id,omitempty" json:"source_id,omitempty"`
	Description string             `bson:"description" json:"description"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}
