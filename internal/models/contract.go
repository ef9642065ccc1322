package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ContractStatus string

const (
	ContractStatusActive    ContractStatus = "ACTIVE"
	ContractStatusCompleted ContractStatus = "COMPLETED"
	ContractStatusCancelled ContractStatus = "CANCELLED"
)

// Contract binds one company and one freelancer to one job. Created when a
// proposal is accepted; status only moves forward.
type Contract struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	JobID      uint      `gorm:"not null;uniqueIndex" json:"job_id"` // at most one contract per job
	ProposalID uuid.UUID `gorm:"type:uuid;not null;index" json:"proposal_id"`

	CompanyID    uuid.UUID `gorm:"type:uuid;not null;index" json:"company_id"`
	FreelancerID uuid.UUID `gorm:"type:uuid;not null;index" json:"freelancer_id"`

	TotalAmount float64   `gorm:"not null" json:"total_amount"`
	StartDate   time.Time `gorm:"not null" json:"start_date"`
	Deadline    time.Time `gorm:"not null" json:"deadline"`

	Status ContractStatus `gorm:"type:varchar(20);default:'ACTIVE';index" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Job        *Job        `gorm:"foreignKey:JobID" json:"job,omitempty"`
	Company    *User       `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
	Freelancer *User       `gorm:"foreignKey:FreelancerID" json:"freelancer,omitempty"`
	Milestones []Milestone `gorm:"foreignKey:ContractID" json:"milestones,omitempty"`
}

func (ct *Contract) BeforeCreate(tx *gorm.DB) (err error) {
	if ct.ID == uuid.Nil {
		ct.ID = uuid.New()
	}
	return
}

// IsParty reports whether userID is the contract's company or freelancer.
func (ct *Contract) IsParty(userID uuid.UUID) bool {
	return ct.CompanyID == userID || ct.FreelancerID == userID
}
