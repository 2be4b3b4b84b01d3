package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

type User struct {
	ID                  int64          `json:"id" db:"id"`
	Email               string         `json:"email" db:"email"`
	NativeLanguage      string         `json:"native_language" db:"native_language"`
	TargetLanguage      string         `json:"target_language" db:"target_language"`
	ProficiencyLevel    string         `json:"proficiency_level" db:"proficiency_level"`
	Motivation          string         `json:"motivation" db:"motivation"`
	DailyTimeCommitment int            `json:"daily_time_commitment" db:"daily_time_commitment"` // 分
	LearningStyles      types.JSONText `json:"learning_styles" db:"learning_styles"`
	Scenarios           types.JSONText `json:"scenarios" db:"scenarios"`
	CreatedAt           time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at" db:"updated_at"`
}

// LearningGoals is the input of course generation.
type LearningGoals struct {
	NativeLanguage      string   `json:"native_language" validate:"required"`
	TargetLanguage      string   `json:"target_language" validate:"required"`
	ProficiencyLevel    string   `json:"proficiency_level" validate:"required"`
	Motivation          string   `json:"motivation"`
	DailyTimeCommitment int      `json:"daily_time_commitment" validate:"gt=0,lte=1440"`
	LearningStyles      []string `json:"learning_styles"`
	Scenarios           []string `json:"scenarios,omitempty"`
}

// Goals extracts the stored learning goals of the user. Malformed JSON
// columns are treated as empty lists.
func (u *User) Goals() LearningGoals {
	goals := LearningGoals{
		NativeLanguage:      u.NativeLanguage,
		TargetLanguage:      u.TargetLanguage,
		ProficiencyLevel:    u.ProficiencyLevel,
		Motivation:          u.Motivation,
		DailyTimeCommitment: u.DailyTimeCommitment,
	}
	if len(u.LearningStyles) > 0 {
		_ = u.LearningStyles.Unmarshal(&goals.LearningStyles)
	}
	if len(u.Scenarios) > 0 {
		_ = u.Scenarios.Unmarshal(&goals.Scenarios)
	}
	return goals
}
