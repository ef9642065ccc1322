package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fahmirid/backend_lancerhub/internal/models"
	"github.com/fahmirid/backend_lancerhub/internal/realtime"
	"github.com/fahmirid/backend_lancerhub/internal/services/notification"
	"github.com/fahmirid/backend_lancerhub/internal/services/wallet"
)

type MilestoneHandler struct {
	DB       *gorm.DB
	Hub      *realtime.Hub
	Wallet   *wallet.WalletService
	Notifier *notification.NotificationService
}

func NewMilestoneHandler(db *gorm.DB, hub *realtime.Hub, walletService *wallet.WalletService, notifier *notification.NotificationService) *MilestoneHandler {
	return &MilestoneHandler{DB: db, Hub: hub, Wallet: walletService, Notifier: notifier}
}

// loadMilestone fetches the milestone with its contract; callers do the
// party-specific checks.
func (h *MilestoneHandler) loadMilestone(c *fiber.Ctx) (*models.Milestone, error) {
	msUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, fail(c, fiber.StatusBadRequest, "Invalid milestone ID")
	}

	var m models.Milestone
	if err := h.DB.Preload("Contract").First(&m, "id = ?", msUUID).Error; err != nil {
		return nil, fail(c, fiber.StatusNotFound, "Milestone not found")
	}
	if m.Contract == nil {
		return nil, fail(c, fiber.StatusInternalServerError, "Milestone has no contract")
	}
	return &m, nil
}

func (h *MilestoneHandler) broadcast(ct *models.Contract, m *models.Milestone) {
	h.Hub.SendToConversation(ct.CompanyID, ct.FreelancerID, fiber.Map{
		"type":      "milestone_status_update",
		"milestone": m,
	})
}

type CompleteMilestoneReq struct {
	Deliverables []string `json:"deliverables"`
	Note         string   `json:"note"`
}

// Complete is the freelancer marking a milestone as delivered, with the
// deliverables list attached. Allowed from PENDING or REVISION.
func (h *MilestoneHandler) Complete(c *fiber.Ctx) error {
	userID, err := getUserUUID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	m, err := h.loadMilestone(c)
	if err != nil {
		return err
	}
	if m.Contract.FreelancerID != userID {
		return fail(c, fiber.StatusForbidden, "Only the contract freelancer can complete milestones")
	}
	if m.Status != models.MilestoneStatusPending && m.Status != models.MilestoneStatusRevision {
		return fail(c, fiber.StatusBadRequest, "Milestone is not awaiting completion")
	}

	var req CompleteMilestoneReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if len(req.Deliverables) == 0 {
		return fail(c, fiber.StatusBadRequest, "At least one deliverable is required")
	}

	deliverablesJSON, err := json.Marshal(req.Deliverables)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to process deliverables")
	}

	now := time.Now()
	m.Status = models.MilestoneStatusCompleted
	m.Deliverables = datatypes.JSON(deliverablesJSON)
	m.CompletedAt = &now
	m.UpdatedAt = now

	if err := h.DB.Save(m).Error; err != nil {
		log.Println("[Milestones] Error completing milestone:", err)
		return fail(c, fiber.StatusInternalServerError, "Failed to update milestone")
	}

	mid := m.ID
	if err := h.Notifier.Notify(h.DB, m.Contract.CompanyID, models.NotifMilestoneDone,
		"Milestone delivered",
		fmt.Sprintf("\"%s\" was delivered and awaits your review", m.Title),
		&mid); err != nil {
		log.Println("[Milestones] Error creating notification:", err)
	}

	h.broadcast(m.Contract, m)
	return ok(c, m)
}

// RequestRevision sends a delivered milestone back to the freelancer.
func (h *MilestoneHandler) RequestRevision(c *fiber.Ctx) error {
	userID, err := getUserUUID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&req); err != nil || req.Reason == "" {
		return fail(c, fiber.StatusBadRequest, "Revision reason is required")
	}

	m, err := h.loadMilestone(c)
	if err != nil {
		return err
	}
	if m.Contract.CompanyID != userID {
		return fail(c, fiber.StatusForbidden, "Only the contract company can request revisions")
	}
	if m.Status != models.MilestoneStatusCompleted {
		return fail(c, fiber.StatusBadRequest, "Revision can only be requested for delivered milestones")
	}

	m.Status = models.MilestoneStatusRevision
	m.CompletedAt = nil
	m.UpdatedAt = time.Now()

	if err := h.DB.Save(m).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to update milestone")
	}

	mid := m.ID
	if err := h.Notifier.Notify(h.DB, m.Contract.FreelancerID, models.NotifMilestoneRevision,
		"Revision requested",
		fmt.Sprintf("\"%s\" was sent back for revision: %s", m.Title, req.Reason),
		&mid); err != nil {
		log.Println("[Milestones] Error creating notification:", err)
	}

	h.broadcast(m.Contract, m)
	return ok(c, m)
}

// Approve accepts a delivered milestone.
func (h *MilestoneHandler) Approve(c *fiber.Ctx) error {
	userID, err := getUserUUID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	m, err := h.loadMilestone(c)
	if err != nil {
		return err
	}
	if m.Contract.CompanyID != userID {
		return fail(c, fiber.StatusForbidden, "Only the contract company can approve milestones")
	}
	if m.Status != models.MilestoneStatusCompleted {
		return fail(c, fiber.StatusBadRequest, "Only delivered milestones can be approved")
	}

	now := time.Now()
	m.Status = models.MilestoneStatusApproved
	m.ApprovedAt = &now
	m.UpdatedAt = now

	if err := h.DB.Save(m).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to update milestone")
	}

	mid := m.ID
	if err := h.Notifier.Notify(h.DB, m.Contract.FreelancerID, models.NotifMilestoneApproved,
		"Milestone approved",
		fmt.Sprintf("\"%s\" was approved and is ready for payment", m.Title),
		&mid); err != nil {
		log.Println("[Milestones] Error creating notification:", err)
	}

	h.broadcast(m.Contract, m)
	return ok(c, m)
}

// Pay settles an approved milestone: the amount moves from the company
// balance to the freelancer balance inside one transaction, with the
// milestone row locked and an idempotency check so a double click never pays
// twice. Paying the last unpaid milestone completes the contract.
func (h *MilestoneHandler) Pay(c *fiber.Ctx) error {
	userID, err := getUserUUID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	msUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid milestone ID")
	}

	var paid models.Milestone

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		var m models.Milestone
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&m, "id = ?", msUUID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fiber.NewError(fiber.StatusNotFound, "Milestone not found")
			}
			return err
		}

		var ct models.Contract
		if err := tx.First(&ct, "id = ?", m.ContractID).Error; err != nil {
			return err
		}
		if ct.CompanyID != userID {
			return fiber.NewError(fiber.StatusForbidden, "Only the contract company can pay milestones")
		}

		// idempotency: a repeated pay call is a no-op
		if m.Status == models.MilestoneStatusPaid {
			paid = m
			return nil
		}
		if m.Status != models.MilestoneStatusApproved {
			return fiber.NewError(fiber.StatusBadRequest, "Only approved milestones can be paid")
		}

		mid := m.ID
		desc := fmt.Sprintf("Milestone payment: %s", m.Title)
		if err := h.Wallet.Transfer(tx, ct.CompanyID, ct.FreelancerID, m.Amount, &mid, desc); err != nil {
			if err == wallet.ErrInsufficientBalance {
				return fiber.NewError(fiber.StatusBadRequest, "Insufficient balance, top up first")
			}
			return err
		}

		now := time.Now()
		m.Status = models.MilestoneStatusPaid
		m.PaidAt = &now
		m.UpdatedAt = now
		if err := tx.Save(&m).Error; err != nil {
			return err
		}

		if err := h.Notifier.Notify(tx, ct.FreelancerID, models.NotifMilestonePaid,
			"Milestone paid",
			fmt.Sprintf("Payment of %.2f for \"%s\" was released to your balance", m.Amount, m.Title),
			&mid); err != nil {
			return err
		}

		// last milestone paid closes out the contract
		var unpaid int64
		if err := tx.Model(&models.Milestone{}).
			Where("contract_id = ? AND status != ?", ct.ID, models.MilestoneStatusPaid).
			Count(&unpaid).Error; err != nil {
			return err
		}
		if unpaid == 0 && ct.Status == models.ContractStatusActive {
			if err := tx.Model(&models.Contract{}).
				Where("id = ?", ct.ID).
				Update("status", models.ContractStatusCompleted).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.Job{}).
				Where("id = ?", ct.JobID).
				Update("status", models.JobStatusCompleted).Error; err != nil {
				return err
			}
			cid := ct.ID
			if err := h.Notifier.Notify(tx, ct.FreelancerID, models.NotifContractCompleted,
				"Contract completed",
				"All milestones are paid, the contract is complete",
				&cid); err != nil {
				return err
			}
		}

		paid = m
		return nil
	})

	if err != nil {
		if e, ok := err.(*fiber.Error); ok {
			return fail(c, e.Code, e.Message)
		}
		log.Println("[Milestones] Error paying milestone:", err)
		return fail(c, fiber.StatusInternalServerError, "Failed to pay milestone")
	}

	var ct models.Contract
	if err := h.DB.First(&ct, "id = ?", paid.ContractID).Error; err == nil {
		h.broadcast(&ct, &paid)
	}

	return ok(c, paid)
}

// StartOverdueReminderWorker scans hourly for milestones past their due date
// that never reached APPROVED/PAID and notifies both parties once per
// milestone.
func (h *MilestoneHandler) StartOverdueReminderWorker() {
	ticker := time.NewTicker(1 * time.Hour)
	go func() {
		for range ticker.C {
			log.Println("[OverdueReminder] Scanning for overdue milestones...")
			h.scanOverdueMilestones()
		}
	}()
}

func (h *MilestoneHandler) scanOverdueMilestones() {
	var overdue []models.Milestone
	err := h.DB.Preload("Contract").
		Joins("JOIN contracts ON contracts.id = milestones.contract_id").
		Where("milestones.due_date < ?", time.Now()).
		Where("milestones.status NOT IN ?", []models.MilestoneStatus{
			models.MilestoneStatusApproved,
			models.MilestoneStatusPaid,
		}).
		Where("contracts.status = ?", models.ContractStatusActive).
		Find(&overdue).Error
	if err != nil {
		log.Printf("[OverdueReminder] Error fetching milestones: %v", err)
		return
	}

	for _, m := range overdue {
		if m.Contract == nil {
			continue
		}
		mid := m.ID
		for _, userID := range []uuid.UUID{m.Contract.FreelancerID, m.Contract.CompanyID} {
			sent, err := h.Notifier.HasOverdueReminder(userID, m.ID)
			if err != nil {
				log.Printf("[OverdueReminder] Error checking reminder: %v", err)
				continue
			}
			if sent {
				continue
			}
			if err := h.Notifier.Notify(h.DB, userID, models.NotifMilestoneOverdue,
				"Milestone overdue",
				fmt.Sprintf("\"%s\" is past its due date (%s)", m.Title, m.DueDate.Format("2006-01-02")),
				&mid); err != nil {
				log.Printf("[OverdueReminder] Error creating notification: %v", err)
			}
		}
	}
}
