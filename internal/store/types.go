package store

import (
	"time"

	"github.com/google/uuid"
)

// Session is a single coding-assistant conversation, created on first
// sighting of its external session id and never destroyed.
type Session struct {
	ID              uuid.UUID
	SessionID       string
	TranscriptPath  string
	WorkspacePath   string
	StartedAt       time.Time
	LastActivityAt  time.Time
	TurnCount       int
	ProjectID       *uuid.UUID
	IsProcessed     bool
	Title           *string
	Summary         *string
}

// Turn is one user message plus the assistant's contiguous response.
type Turn struct {
	ID              uuid.UUID
	SessionID       uuid.UUID
	TurnNumber      int
	UserMessage     string
	AssistantSummary *string
	Title           *string
	ContentHash     string
	ModelName       *string
	ToolNames       []string
	StartedAt       time.Time
	EndedAt         time.Time
}

// TurnContent holds the bulky parts of a turn, split out to keep hot
// queries against Turn itself small.
type TurnContent struct {
	TurnID           uuid.UUID
	RawJSONL         string
	AssistantText    string
	FilesTouched     []string
	CommandsRun      []string
	ErrorsEncountered []string
	ToolCallCount    int
	ContentSize      int
}

// EntityType enumerates the kinds of entity a TurnEntity can reference.
type EntityType string

const (
	EntityProject EntityType = "project"
	EntityPerson  EntityType = "person"
)

// TurnEntity is a project or person mention linked to a turn.
type TurnEntity struct {
	ID         uuid.UUID
	TurnID     uuid.UUID
	EntityType EntityType
	EntityID   *uuid.UUID
	EntityName string
	Confidence float64
}

// ArtifactType enumerates the kinds of artifact extracted from a turn.
type ArtifactType string

const (
	ArtifactFile    ArtifactType = "file"
	ArtifactCommand ArtifactType = "command"
	ArtifactError   ArtifactType = "error"
)

// TurnArtifact is a file, command, or error surfaced by a tool invocation
// within a turn.
type TurnArtifact struct {
	ID           uuid.UUID
	TurnID       uuid.UUID
	ArtifactType ArtifactType
	ArtifactValue string
	Metadata     map[string]any
}

// ProjectTier classifies how much durable attention a project warrants.
type ProjectTier string

const (
	TierFleeting   ProjectTier = "fleeting"
	TierSimple     ProjectTier = "simple"
	TierComplex    ProjectTier = "complex"
	TierLifeThread ProjectTier = "life_thread"
)

// ProjectStatus tracks a project's lifecycle.
type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "active"
	ProjectPaused    ProjectStatus = "paused"
	ProjectCompleted ProjectStatus = "completed"
	ProjectAbandoned ProjectStatus = "abandoned"
)

// Project is a durable unit of work the user's sessions revolve around.
type Project struct {
	ID               uuid.UUID
	Name             string
	Slug             string
	Description      string
	Tier             ProjectTier
	Status           ProjectStatus
	MentionCount     int
	LastActivity     time.Time
	UserPinned       bool
	UserPriority     *string
	UserDeadline     *time.Time
	FirstMentionAt   *time.Time
	SourceDiversity  int
	PeopleCount      int
	AutoArchiveAfter *time.Duration
}

// Person is someone the user's sessions mention by name.
type Person struct {
	ID             uuid.UUID
	Name           string
	Email          *string
	Relationship   string
	Organization   *string
	Phone          *string
	FirstContactAt *time.Time
	LastContactAt  *time.Time
	Notes          *string
}

// TaskStatus tracks a task's lifecycle.
type TaskStatus string

const (
	TaskBacklog    TaskStatus = "backlog"
	TaskInProgress TaskStatus = "in_progress"
	TaskWaiting    TaskStatus = "waiting"
	TaskDone       TaskStatus = "done"
)

// Task is a unit of work, optionally tied to a project.
type Task struct {
	ID         uuid.UUID
	ProjectID  *uuid.UUID
	Title      string
	Status     TaskStatus
	Priority   string
	DueDate    *time.Time
	UserPinned bool
	SourceType *string
	SourceID   *uuid.UUID
}

// CommitmentDirection records who made the commitment to whom.
type CommitmentDirection string

const (
	DirectionFromMe CommitmentDirection = "from_me"
	DirectionToMe   CommitmentDirection = "to_me"
)

// CommitmentStatus tracks a commitment's lifecycle.
type CommitmentStatus string

const (
	CommitmentOpen      CommitmentStatus = "open"
	CommitmentFulfilled CommitmentStatus = "fulfilled"
	CommitmentBroken    CommitmentStatus = "broken"
	CommitmentCancelled CommitmentStatus = "cancelled"
)

// Commitment is a promise made by or to the user.
type Commitment struct {
	ID          uuid.UUID
	PersonID    *uuid.UUID
	ProjectID   *uuid.UUID
	Direction   CommitmentDirection
	Description string
	Deadline    *time.Time
	Status      CommitmentStatus
	SourceType  *string
	SourceID    *uuid.UUID
}

// Sprint is a time-boxed priority boost applied to a project's items.
type Sprint struct {
	ID            uuid.UUID
	ProjectID     uuid.UUID
	PriorityBoost float64
	StartsAt      time.Time
	EndsAt        time.Time
	IsActive      bool
}

// Effective reports whether the sprint's boost currently applies.
func (s Sprint) Effective(now time.Time) bool {
	return s.IsActive && !now.Before(s.StartsAt) && !now.After(s.EndsAt)
}

// SkillSource records how a Skill document came to exist.
type SkillSource string

const (
	SkillSourceAuto     SkillSource = "auto"
	SkillSourceManual   SkillSource = "manual"
	SkillSourceRegistry SkillSource = "registry"
)

// SkillScope distinguishes a personal skill from a project-scoped one.
type SkillScope string

const (
	ScopePersonal SkillScope = "personal"
	ScopeProject  SkillScope = "project"
)

// Skill is a reusable procedure document surfaced into the hot path.
type Skill struct {
	ID              uuid.UUID
	Name            string
	Description     string
	Source          SkillSource
	SourceSessionID *uuid.UUID
	InstalledPath   string
	Scope           SkillScope
	QualityScore    *float64
	ContentHash     string
	IsActive        bool
}

// JobStatus tracks a queued job's lifecycle.
type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobRetry      JobStatus = "retry"
	JobDone       JobStatus = "done"
	JobFailed     JobStatus = "failed"
)

// JobKind enumerates the handler table's keys.
type JobKind string

const (
	JobSessionProcess JobKind = "session_process"
	JobTurnSummary    JobKind = "turn_summary"
	JobEntityExtract  JobKind = "entity_extract"
	JobArtifactExtract JobKind = "artifact_extract"
	JobSessionSummary JobKind = "session_summary"
	JobSkillExtract   JobKind = "skill_extract"
)

// Job is a durable unit of deferred work.
type Job struct {
	ID          uuid.UUID
	Kind        JobKind
	Payload     []byte
	Status      JobStatus
	Priority    int
	DedupeKey   *string
	Attempts    int
	MaxAttempts int
	LockedUntil *time.Time
	LockedBy    *string
	ErrorMessage *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
