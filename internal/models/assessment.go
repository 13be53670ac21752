package models

import "time"

// Assessment is the employer-authored take-home project description that
// candidates are invited to complete.
type Assessment struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	AccountID        uint      `gorm:"not null;index" json:"account_id"`
	Title            string    `gorm:"size:255;not null" json:"title"`
	RoleDescription  string    `gorm:"type:text" json:"role_description"`
	ProjectBrief     string    `gorm:"type:text" json:"project_brief"`
	TimeLimitMinutes int       `gorm:"not null" json:"time_limit_minutes"`
	QuestionCount    int       `gorm:"not null;default:3" json:"question_count"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
