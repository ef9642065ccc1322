package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type MilestoneStatus string

const (
	MilestoneStatusPending   MilestoneStatus = "PENDING"
	MilestoneStatusCompleted MilestoneStatus = "COMPLETED" // Dikirim, menunggu review
	MilestoneStatusRevision  MilestoneStatus = "REVISION"  // Dikembalikan untuk revisi
	MilestoneStatusApproved  MilestoneStatus = "APPROVED"
	MilestoneStatusPaid      MilestoneStatus = "PAID"
)

// Milestone is one deliverable-and-payment checkpoint within a contract.
// Amount is fixed at creation; happy-path status progression is
// PENDING -> COMPLETED -> APPROVED -> PAID, with REVISION as the send-back
// branch.
type Milestone struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ContractID uuid.UUID `gorm:"type:uuid;not null;index" json:"contract_id"`

	Title       string  `gorm:"not null" json:"title"`
	Description string  `gorm:"type:text" json:"description"`
	Amount      float64 `gorm:"not null" json:"amount"`

	DueDate   time.Time `gorm:"not null" json:"due_date"`
	SortOrder int       `gorm:"not null;default:0" json:"sort_order"`

	Status MilestoneStatus `gorm:"type:varchar(20);default:'PENDING';index" json:"status"`

	// JSON array of free-text deliverable descriptions, filled on completion
	Deliverables datatypes.JSON `json:"deliverables"`

	CompletedAt *time.Time `json:"completed_at,omitempty"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Contract *Contract `gorm:"foreignKey:ContractID" json:"contract,omitempty"`
}

func (m *Milestone) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return
}

// DeliverableList decodes the deliverables column, defaulting to an empty
// slice.
func (m *Milestone) DeliverableList() []string {
	out := []string{}
	if len(m.Deliverables) == 0 {
		return out
	}
	if err := json.Unmarshal(m.Deliverables, &out); err != nil {
		return []string{}
	}
	return out
}
