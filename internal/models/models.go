// Package models holds the gorm entities persisted by the API server.
package models

import "time"

// Conventional roles. Role is stored as an unconstrained string.
const (
	RoleUser    = "user"
	RoleAdmin   = "admin"
	RoleAnalyst = "analyst"
)

type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Username       string    `gorm:"uniqueIndex;size:64;not null" json:"username"`
	HashedPassword string    `gorm:"size:255;not null" json:"-"`
	Role           string    `gorm:"size:32;not null;default:user" json:"role"`
	Age            *int      `json:"age,omitempty"`
	Gender         string    `gorm:"size:32" json:"gender,omitempty"`
	Preferences    string    `gorm:"type:text" json:"preferences,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }

// PredictionLog records one model invocation. UserID is a weak reference;
// anonymous calls store NULL.
type PredictionLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    *uint     `gorm:"index" json:"user_id,omitempty"`
	Disease   string    `gorm:"size:255;index" json:"disease"`
	Drug      string    `gorm:"size:255;index" json:"drug"`
	CreatedAt time.Time `gorm:"index" json:"timestamp"`
}

func (PredictionLog) TableName() string { return "prediction_logs" }

type ActivityLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"index;not null" json:"user_id"`
	ActionType string    `gorm:"size:64;not null" json:"action_type"`
	Details    string    `gorm:"type:text" json:"details"`
	CreatedAt  time.Time `json:"created_at"`
}

func (ActivityLog) TableName() string { return "activity_logs" }

type FeedbackLog struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"index;not null" json:"user_id"`
	PredictionID *uint     `json:"prediction_id,omitempty"`
	Text         string    `gorm:"type:text;not null" json:"text"`
	Sentiment    string    `gorm:"size:16;index" json:"sentiment"`
	Polarity     float64   `json:"polarity"`
	CreatedAt    time.Time `json:"created_at"`
}

func (FeedbackLog) TableName() string { return "feedback_logs" }

// All lists every entity for AutoMigrate.
func All() []any {
	return []any{&User{}, &PredictionLog{}, &ActivityLog{}, &FeedbackLog{}}
}
