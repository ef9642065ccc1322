// internal/models/freelancer_profile.go
package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type FreelancerProfile struct {
	ID     uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`

	DisplayName string `gorm:"type:varchar(120)" json:"display_name"`
	Headline    string `gorm:"type:varchar(160)" json:"headline"`
	About       string `gorm:"type:text" json:"about"`
	PhotoURL    string `gorm:"type:text" json:"photo_url"`

	HourlyRate float64 `json:"hourly_rate"`

	// JSON array of skill strings; decoded through SkillList so callers
	// always get []string, never nil.
	Skills datatypes.JSON `json:"skills"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SkillList decodes the skills column. Malformed or empty JSON yields an
// empty slice, not nil.
func (p *FreelancerProfile) SkillList() []string {
	out := []string{}
	if len(p.Skills) == 0 {
		return out
	}
	if err := json.Unmarshal(p.Skills, &out); err != nil {
		return []string{}
	}
	return out
}
