package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// TaskType is the closed set of task categories stored for a course task.
type TaskType string

const (
	TaskTypeVocabulary    TaskType = "vocabulary"
	TaskTypeGrammar       TaskType = "grammar"
	TaskTypeConversation  TaskType = "conversation"
	TaskTypeListening     TaskType = "listening"
	TaskTypeReading       TaskType = "reading"
	TaskTypeWriting       TaskType = "writing"
	TaskTypePronunciation TaskType = "pronunciation"
	TaskTypeCultural      TaskType = "cultural"
)

// GeneratedCourse is the curriculum structure returned by the provider.
// TotalLessons and EstimatedDurationWeeks are computed after validation.
type GeneratedCourse struct {
	CourseName             string              `json:"courseName"`
	Modules                []GeneratedModule   `json:"modules"`
	LearningObjectives     *LearningObjectives `json:"learningObjectives"`
	CulturalContext        string              `json:"culturalContext,omitempty"`
	TotalLessons           int                 `json:"totalLessons"`
	EstimatedDurationWeeks int                 `json:"estimatedDurationWeeks"`
}

type LearningObjectives struct {
	ShortTerm    []string           `json:"shortTerm"`
	LongTerm     []string           `json:"longTerm"`
	SkillTargets map[string]float64 `json:"skillTargets"`
}

type GeneratedModule struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Order             int             `json:"order"`
	EstimatedDuration int             `json:"estimatedDuration"` // minutes
	Tasks             []GeneratedTask `json:"tasks"`
	Objectives        []string        `json:"objectives"`
}

type GeneratedTask struct {
	Name              string          `json:"name" validate:"required"`
	TaskType          string          `json:"taskType"`
	DifficultyLevel   int             `json:"difficultyLevel" validate:"min=1,max=10"`
	EstimatedDuration int             `json:"estimatedDuration" validate:"gte=0"` // minutes
	Content           TaskContent     `json:"content"`
	ScoringCriteria   ScoringCriteria `json:"scoringCriteria"`
	Objectives        []string        `json:"objectives"`
	Prerequisites     []string        `json:"prerequisites,omitempty"`
}

type TaskContent struct {
	Instructions string   `json:"instructions"`
	Materials    []string `json:"materials"`
	Examples     []string `json:"examples,omitempty"`
	Hints        []string `json:"hints,omitempty"`
}

type ScoringCriteria struct {
	MaxScore int         `json:"maxScore" validate:"gte=0"`
	Criteria []Criterion `json:"criteria" validate:"dive"`
}

type Criterion struct {
	Aspect      string  `json:"aspect"`
	Weight      float64 `json:"weight" validate:"gte=0"`
	Description string  `json:"description"`
}

// Course is the persisted course header.
type Course struct {
	ID                     int64          `json:"id" db:"id"`
	UserID                 int64          `json:"user_id" db:"user_id"`
	Name                   string         `json:"name" db:"name"`
	NativeLanguage         string         `json:"native_language" db:"native_language"`
	TargetLanguage         string         `json:"target_language" db:"target_language"`
	ProficiencyLevel       string         `json:"proficiency_level" db:"proficiency_level"`
	Structure              types.JSONText `json:"structure" db:"structure"`
	LearningObjectives     types.JSONText `json:"learning_objectives" db:"learning_objectives"`
	CulturalContext        string         `json:"cultural_context,omitempty" db:"cultural_context"`
	TotalLessons           int            `json:"total_lessons" db:"total_lessons"`
	EstimatedDurationWeeks int            `json:"estimated_duration_weeks" db:"estimated_duration_weeks"`
	AIProvider             string         `json:"ai_provider" db:"ai_provider"`
	AIModel                string         `json:"ai_model" db:"ai_model"`
	CreatedAt              time.Time      `json:"created_at" db:"created_at"`
}

// CourseTask is one persisted task. OrderIndex runs 1..N across the whole
// course, it is not reset per module.
type CourseTask struct {
	ID                int64          `json:"id" db:"id"`
	CourseID          int64          `json:"course_id" db:"course_id"`
	ModuleID          string         `json:"module_id" db:"module_id"`
	Name              string         `json:"name" db:"name"`
	TaskType          TaskType       `json:"task_type" db:"task_type"`
	DifficultyLevel   int            `json:"difficulty_level" db:"difficulty_level"`
	EstimatedDuration int            `json:"estimated_duration" db:"estimated_duration"`
	Content           types.JSONText `json:"content" db:"content"`
	ScoringCriteria   types.JSONText `json:"scoring_criteria" db:"scoring_criteria"`
	Objectives        types.JSONText `json:"objectives" db:"objectives"`
	Prerequisites     types.JSONText `json:"prerequisites" db:"prerequisites"`
	OrderIndex        int            `json:"order_index" db:"order_index"`
	CreatedAt         time.Time      `json:"created_at" db:"created_at"`
}

type GenerateCourseRequest struct {
	Goals *LearningGoals `json:"goals,omitempty"`
}

type GenerateCourseResponse struct {
	Success  bool             `json:"success"`
	Status   string           `json:"status"`
	CourseID int64            `json:"course_id,omitempty"`
	Course   *GeneratedCourse `json:"course,omitempty"`
	Error    string           `json:"error,omitempty"`
}

type CourseDetailResponse struct {
	Success bool          `json:"success"`
	Course  *Course       `json:"course"`
	Tasks   []*CourseTask `json:"tasks"`
}
