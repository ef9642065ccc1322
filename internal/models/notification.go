package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationType string

const (
	NotifProposalReceived  NotificationType = "proposal_received"
	NotifProposalAccepted  NotificationType = "proposal_accepted"
	NotifProposalRejected  NotificationType = "proposal_rejected"
	NotifContractCreated   NotificationType = "contract_created"
	NotifContractCompleted NotificationType = "contract_completed"
	NotifMilestoneDone     NotificationType = "milestone_completed"
	NotifMilestoneRevision NotificationType = "milestone_revision"
	NotifMilestoneApproved NotificationType = "milestone_approved"
	NotifMilestonePaid     NotificationType = "milestone_paid"
	NotifMilestoneOverdue  NotificationType = "milestone_overdue"
)

type Notification struct {
	ID     uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`

	Type  NotificationType `gorm:"type:varchar(40);not null;index" json:"type"`
	Title string           `gorm:"not null" json:"title"`
	Body  string           `gorm:"type:text" json:"body"`

	// ID of the entity that triggered the notification (proposal, contract,
	// milestone)
	ReferenceID *uuid.UUID `gorm:"type:uuid;index" json:"reference_id,omitempty"`

	IsRead    bool       `gorm:"default:false;index" json:"is_read"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return
}
