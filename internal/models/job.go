package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type JobStatus string

const (
	JobStatusOpen       JobStatus = "open"        // Menerima proposal
	JobStatusInProgress JobStatus = "in_progress" // Kontrak berjalan
	JobStatusCompleted  JobStatus = "completed"
	JobStatusClosed     JobStatus = "closed" // Ditutup tanpa kontrak
)

type Job struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CompanyID uuid.UUID `gorm:"type:uuid;not null;index" json:"company_id"`

	Title       string  `gorm:"not null" json:"title"`
	Description string  `gorm:"type:text" json:"description"`
	Category    string  `gorm:"type:varchar(80);index" json:"category"`
	Budget      float64 `json:"budget"`

	// JSON array of required skill strings
	Skills   datatypes.JSON `json:"skills"`
	Deadline *time.Time     `json:"deadline,omitempty"`

	Status JobStatus `gorm:"type:varchar(20);default:'open';index" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Company *User `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
}
