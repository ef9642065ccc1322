// internal/models/chat.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Conversation is the single chat thread between a company and a freelancer,
// optionally opened from a job posting.
type Conversation struct {
	ID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`

	CompanyID    uuid.UUID `gorm:"type:uuid;index" json:"company_id"`
	FreelancerID uuid.UUID `gorm:"type:uuid;index" json:"freelancer_id"`

	JobID *uint `gorm:"index" json:"job_id,omitempty"`

	LastMessageAt time.Time `json:"last_message_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Company    *User     `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
	Freelancer *User     `gorm:"foreignKey:FreelancerID" json:"freelancer,omitempty"`
	Job        *Job      `gorm:"foreignKey:JobID" json:"job,omitempty"`
	Messages   []Message `gorm:"foreignKey:ConversationID" json:"messages,omitempty"`
}

// Message represents a message in a conversation
type Message struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ConversationID uuid.UUID  `gorm:"type:uuid;index" json:"conversation_id"`
	SenderID       uuid.UUID  `gorm:"type:uuid;index" json:"sender_id"`
	Type           string     `gorm:"default:'text'" json:"type"` // text, system
	Text           string     `json:"text"`
	IsRead         bool       `gorm:"default:false" json:"is_read"`
	ReadAt         *time.Time `json:"read_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	Sender *User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
}
