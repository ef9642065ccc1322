package handlers

import (
	"fmt"
	"log"
	"math"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fahmirid/backend_lancerhub/internal/models"
	"github.com/fahmirid/backend_lancerhub/internal/realtime"
	"github.com/fahmirid/backend_lancerhub/internal/services/notification"
)

type ProposalHandler struct {
	DB       *gorm.DB
	Hub      *realtime.Hub
	Notifier *notification.NotificationService
}

func NewProposalHandler(db *gorm.DB, hub *realtime.Hub, notifier *notification.NotificationService) *ProposalHandler {
	return &ProposalHandler{DB: db, Hub: hub, Notifier: notifier}
}

type SubmitProposalReq struct {
	CoverLetter   string  `json:"cover_letter"`
	BidAmount     float64 `json:"bid_amount"`
	EstimatedDays int     `json:"estimated_days"`
}

// Submit files a proposal on an open job.
func (h *ProposalHandler) Submit(c *fiber.Ctx) error {
	freelancerID, err := getUserUUID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	jobID, err := c.ParamsInt("id")
	if err != nil || jobID < 1 {
		return fail(c, fiber.StatusBadRequest, "Invalid job ID")
	}

	var req SubmitProposalReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if req.BidAmount <= 0 {
		return fail(c, fiber.StatusBadRequest, "Bid amount must be positive")
	}

	var job models.Job
	if err := h.DB.First(&job, "id = ?", jobID).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Job not found")
	}
	if job.Status != models.JobStatusOpen {
		return fail(c, fiber.StatusBadRequest, "Job is not accepting proposals")
	}
	if job.CompanyID == freelancerID {
		return fail(c, fiber.StatusBadRequest, "Cannot bid on your own job")
	}

	var existing models.Proposal
	if err := h.DB.Where("job_id = ? AND freelancer_id = ?", jobID, freelancerID).
		First(&existing).Error; err == nil {
		return fail(c, fiber.StatusBadRequest, "You already submitted a proposal for this job")
	}

	p := models.Proposal{
		JobID:         uint(jobID),
		FreelancerID:  freelancerID,
		CoverLetter:   req.CoverLetter,
		BidAmount:     req.BidAmount,
		EstimatedDays: req.EstimatedDays,
		Status:        models.ProposalStatusPending,
	}

	if err := h.DB.Create(&p).Error; err != nil {
		log.Println("[Proposals] Error creating proposal:", err)
		return fail(c, fiber.StatusInternalServerError, "Failed to submit proposal")
	}

	pid := p.ID
	if err := h.Notifier.Notify(h.DB, job.CompanyID, models.NotifProposalReceived,
		"New proposal received",
		fmt.Sprintf("A freelancer submitted a proposal for \"%s\"", job.Title),
		&pid); err != nil {
		log.Println("[Proposals] Error creating notification:", err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    p,
	})
}

// ListForJob returns a job's proposals to its company.
func (h *ProposalHandler) ListForJob(c *fiber.Ctx) error {
	companyID, err := getUserUUID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	jobID, err := c.ParamsInt("id")
	if err != nil || jobID < 1 {
		return fail(c, fiber.StatusBadRequest, "Invalid job ID")
	}

	var job models.Job
	if err := h.DB.First(&job, "id = ?", jobID).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Job not found")
	}
	if job.CompanyID != companyID {
		return fail(c, fiber.StatusForbidden, "Access denied")
	}

	var proposals []models.Proposal
	if err := h.DB.
		Preload("Freelancer").
		Preload("Freelancer.FreelancerProfile").
		Where("job_id = ?", jobID).
		Order("created_at DESC").
		Find(&proposals).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to fetch proposals")
	}

	return ok(c, proposals)
}

// ListMine returns the calling freelancer's proposals.
func (h *ProposalHandler) ListMine(c *fiber.Ctx) error {
	freelancerID, err := getUserUUID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var proposals []models.Proposal
	if err := h.DB.
		Preload("Job").
		Where("freelancer_id = ?", freelancerID).
		Order("created_at DESC").
		Find(&proposals).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to fetch proposals")
	}

	return ok(c, proposals)
}

// Withdraw pulls back a pending proposal.
func (h *ProposalHandler) Withdraw(c *fiber.Ctx) error {
	freelancerID, err := getUserUUID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	propUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid proposal ID")
	}

	var p models.Proposal
	if err := h.DB.First(&p, "id = ?", propUUID).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Proposal not found")
	}
	if p.FreelancerID != freelancerID {
		return fail(c, fiber.StatusForbidden, "Access denied")
	}
	if p.Status != models.ProposalStatusPending {
		return fail(c, fiber.StatusBadRequest, "Only pending proposals can be withdrawn")
	}

	p.Status = models.ProposalStatusWithdrawn
	p.UpdatedAt = time.Now()
	if err := h.DB.Save(&p).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to withdraw proposal")
	}

	return ok(c, p)
}

// Reject declines a pending proposal.
func (h *ProposalHandler) Reject(c *fiber.Ctx) error {
	companyID, err := getUserUUID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	propUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid proposal ID")
	}

	var p models.Proposal
	if err := h.DB.Preload("Job").First(&p, "id = ?", propUUID).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Proposal not found")
	}
	if p.Job == nil || p.Job.CompanyID != companyID {
		return fail(c, fiber.StatusForbidden, "Access denied")
	}
	if p.Status != models.ProposalStatusPending {
		return fail(c, fiber.StatusBadRequest, "Only pending proposals can be rejected")
	}

	p.Status = models.ProposalStatusRejected
	p.UpdatedAt = time.Now()
	if err := h.DB.Save(&p).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to reject proposal")
	}

	pid := p.ID
	if err := h.Notifier.Notify(h.DB, p.FreelancerID, models.NotifProposalRejected,
		"Proposal rejected",
		fmt.Sprintf("Your proposal for \"%s\" was rejected", p.Job.Title),
		&pid); err != nil {
		log.Println("[Proposals] Error creating notification:", err)
	}

	return ok(c, p)
}

// ==== ACCEPT -> CONTRACT + MILESTONES ====

type MilestoneDef struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	DueDate     string  `json:"due_date"` // ISO format: 2026-04-30
}

type AcceptProposalReq struct {
	StartDate  string         `json:"start_date"` // defaults to today
	Deadline   string         `json:"deadline"`   // defaults to start + estimated days
	Milestones []MilestoneDef `json:"milestones"` // empty = generated default split
}

// milestoneSumTolerance is how far (in currency units) the milestone amounts
// may drift from the contract total, to absorb rounding.
const milestoneSumTolerance = 1.0

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// validateMilestoneSum checks caller-supplied milestone amounts against the
// contract total within the rounding tolerance.
func validateMilestoneSum(defs []MilestoneDef, total float64) error {
	var sum float64
	for _, d := range defs {
		if d.Amount <= 0 {
			return fmt.Errorf("milestone %q amount must be positive", d.Title)
		}
		sum += d.Amount
	}
	if math.Abs(sum-total) > milestoneSumTolerance {
		return fmt.Errorf("milestone amounts sum to %.2f, contract total is %.2f", sum, total)
	}
	return nil
}

// defaultMilestoneSplit generates the three-phase 25%/50%/25% plan. The last
// phase absorbs the rounding remainder so the sum is exactly the total, and
// due dates land at the matching fractions of the contract window.
func defaultMilestoneSplit(total float64, start, deadline time.Time) []MilestoneDef {
	first := round2(total * 0.25)
	second := round2(total * 0.50)
	third := round2(total - first - second)

	duration := deadline.Sub(start)
	dueAt := func(fraction float64) string {
		return start.Add(time.Duration(float64(duration) * fraction)).Format("2006-01-02")
	}

	return []MilestoneDef{
		{Title: "Kickoff & planning", Description: "Initial phase deliverables", Amount: first, DueDate: dueAt(0.25)},
		{Title: "Main delivery", Description: "Core phase deliverables", Amount: second, DueDate: dueAt(0.75)},
		{Title: "Final handover", Description: "Final phase deliverables", Amount: third, DueDate: dueAt(1.0)},
	}
}

// Accept turns a pending proposal into a contract with milestones, all in one
// transaction: the proposal is locked, the contract and its milestones are
// created, competing proposals are rejected and the job moves to in_progress.
func (h *ProposalHandler) Accept(c *fiber.Ctx) error {
	companyID, err := getUserUUID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	propUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid proposal ID")
	}

	var req AcceptProposalReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	var p models.Proposal
	if err := h.DB.Preload("Job").First(&p, "id = ?", propUUID).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Proposal not found")
	}
	if p.Job == nil || p.Job.CompanyID != companyID {
		return fail(c, fiber.StatusForbidden, "Access denied")
	}

	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		startDate = time.Now().Truncate(24 * time.Hour)
	}

	deadline, err := time.Parse("2006-01-02", req.Deadline)
	if err != nil {
		days := p.EstimatedDays
		if days < 1 {
			days = 30
		}
		deadline = startDate.AddDate(0, 0, days)
	}
	if !deadline.After(startDate) {
		return fail(c, fiber.StatusBadRequest, "Deadline must be after start date")
	}

	defs := req.Milestones
	if len(defs) == 0 {
		defs = defaultMilestoneSplit(p.BidAmount, startDate, deadline)
	}
	if err := validateMilestoneSum(defs, p.BidAmount); err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	var contract models.Contract

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		// lock the proposal row against a concurrent accept
		var current models.Proposal
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&current, "id = ?", propUUID).Error; err != nil {
			return err
		}
		if current.Status != models.ProposalStatusPending {
			return fiber.NewError(fiber.StatusBadRequest, "Proposal is no longer pending")
		}

		var existing models.Contract
		if err := tx.Where("job_id = ?", current.JobID).First(&existing).Error; err == nil {
			return fiber.NewError(fiber.StatusBadRequest, "Job already has a contract")
		} else if err != gorm.ErrRecordNotFound {
			return err
		}

		contract = models.Contract{
			ID:           uuid.New(),
			JobID:        current.JobID,
			ProposalID:   current.ID,
			CompanyID:    companyID,
			FreelancerID: current.FreelancerID,
			TotalAmount:  current.BidAmount,
			StartDate:    startDate,
			Deadline:     deadline,
			Status:       models.ContractStatusActive,
		}
		if err := tx.Create(&contract).Error; err != nil {
			return err
		}

		for i, def := range defs {
			due, err := time.Parse("2006-01-02", def.DueDate)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Invalid milestone due date: "+def.DueDate)
			}
			m := models.Milestone{
				ID:          uuid.New(),
				ContractID:  contract.ID,
				Title:       def.Title,
				Description: def.Description,
				Amount:      def.Amount,
				DueDate:     due,
				SortOrder:   i,
				Status:      models.MilestoneStatusPending,
			}
			if err := tx.Create(&m).Error; err != nil {
				return err
			}
		}

		current.Status = models.ProposalStatusAccepted
		current.UpdatedAt = time.Now()
		if err := tx.Save(&current).Error; err != nil {
			return err
		}

		// competing pending proposals lose
		if err := tx.Model(&models.Proposal{}).
			Where("job_id = ? AND id != ? AND status = ?",
				current.JobID, current.ID, models.ProposalStatusPending).
			Update("status", models.ProposalStatusRejected).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Job{}).
			Where("id = ?", current.JobID).
			Update("status", models.JobStatusInProgress).Error; err != nil {
			return err
		}

		cid := contract.ID
		if err := h.Notifier.Notify(tx, current.FreelancerID, models.NotifProposalAccepted,
			"Proposal accepted",
			fmt.Sprintf("Your proposal for \"%s\" was accepted and a contract was created", p.Job.Title),
			&cid); err != nil {
			return err
		}

		return h.postContractSystemMessage(tx, &contract, p.Job.Title)
	})

	if err != nil {
		if e, ok := err.(*fiber.Error); ok {
			return fail(c, e.Code, e.Message)
		}
		log.Println("[Proposals] Error accepting proposal:", err)
		return fail(c, fiber.StatusInternalServerError, "Failed to accept proposal")
	}

	h.DB.Preload("Milestones", func(db *gorm.DB) *gorm.DB {
		return db.Order("due_date ASC")
	}).Preload("Job").Preload("Freelancer").First(&contract, "id = ?", contract.ID)

	h.Hub.SendToConversation(contract.CompanyID, contract.FreelancerID, fiber.Map{
		"type":     "contract_created",
		"contract": contract,
	})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    contract,
	})
}

// postContractSystemMessage drops a system message into the parties'
// conversation, creating the conversation when they never chatted before.
func (h *ProposalHandler) postContractSystemMessage(tx *gorm.DB, ct *models.Contract, jobTitle string) error {
	var conv models.Conversation
	err := tx.Where("company_id = ? AND freelancer_id = ?", ct.CompanyID, ct.FreelancerID).
		First(&conv).Error
	if err == gorm.ErrRecordNotFound {
		conv = models.Conversation{
			CompanyID:     ct.CompanyID,
			FreelancerID:  ct.FreelancerID,
			JobID:         &ct.JobID,
			LastMessageAt: time.Now(),
		}
		if err := tx.Create(&conv).Error; err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	msg := models.Message{
		ID:             uuid.New(),
		ConversationID: conv.ID,
		SenderID:       ct.CompanyID,
		Type:           "system",
		Text:           fmt.Sprintf("Contract for \"%s\" has been created. Work can start now.", jobTitle),
	}
	if err := tx.Create(&msg).Error; err != nil {
		return err
	}

	return tx.Model(&models.Conversation{}).
		Where("id = ?", conv.ID).
		Update("last_message_at", msg.CreatedAt).Error
}
