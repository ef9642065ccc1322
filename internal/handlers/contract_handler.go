package handlers

import (
	"math"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fahmirid/backend_lancerhub/internal/models"
	"github.com/fahmirid/backend_lancerhub/internal/progress"
)

type ContractHandler struct {
	DB *gorm.DB
}

func NewContractHandler(db *gorm.DB) *ContractHandler {
	return &ContractHandler{DB: db}
}

// loadContract fetches a contract with milestones in due-date order plus the
// party/job summaries, and enforces that the caller is one of the parties.
func (h *ContractHandler) loadContract(c *fiber.Ctx) (*models.Contract, error) {
	userID, err := getUserUUID(c)
	if err != nil {
		return nil, fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	ctUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, fail(c, fiber.StatusBadRequest, "Invalid contract ID")
	}

	var ct models.Contract
	if err := h.DB.
		Preload("Milestones", func(db *gorm.DB) *gorm.DB {
			return db.Order("due_date ASC")
		}).
		Preload("Job").
		Preload("Company").
		Preload("Freelancer").
		Preload("Freelancer.FreelancerProfile").
		First(&ct, "id = ?", ctUUID).Error; err != nil {
		return nil, fail(c, fiber.StatusNotFound, "Contract not found")
	}

	if !ct.IsParty(userID) {
		return nil, fail(c, fiber.StatusForbidden, "Access denied")
	}

	return &ct, nil
}

// List returns the caller's contracts (either side), newest first.
func (h *ContractHandler) List(c *fiber.Ctx) error {
	userID, err := getUserUUID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit := c.QueryInt("limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}

	q := h.DB.Model(&models.Contract{}).
		Preload("Job").
		Preload("Company").
		Preload("Freelancer").
		Where("company_id = ? OR freelancer_id = ?", userID, userID)

	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	q.Count(&total)

	var contracts []models.Contract
	if err := q.Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&contracts).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to fetch contracts")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    contracts,
		"meta": fiber.Map{
			"page":       page,
			"limit":      limit,
			"total":      total,
			"total_page": int(math.Ceil(float64(total) / float64(limit))),
		},
	})
}

// Get returns one contract with milestones.
func (h *ContractHandler) Get(c *fiber.Ctx) error {
	ct, err := h.loadContract(c)
	if err != nil {
		return err
	}
	return ok(c, ct)
}

func userSummary(u *models.User) fiber.Map {
	if u == nil {
		return nil
	}
	return fiber.Map{
		"id":    u.ID,
		"name":  u.Name,
		"email": u.Email,
	}
}

// GetProgress computes and returns the contract's progress snapshot. The
// snapshot is recomputed from scratch on each call, never stored.
func (h *ContractHandler) GetProgress(c *fiber.Ctx) error {
	ct, err := h.loadContract(c)
	if err != nil {
		return err
	}

	snap := progress.Calculate(ct, ct.Milestones, time.Now())

	jobTitle := ""
	if ct.Job != nil {
		jobTitle = ct.Job.Title
	}

	milestones := make([]fiber.Map, 0, len(ct.Milestones))
	for _, m := range ct.Milestones {
		milestones = append(milestones, fiber.Map{
			"id":           m.ID,
			"title":        m.Title,
			"description":  m.Description,
			"amount":       m.Amount,
			"due_date":     m.DueDate,
			"status":       m.Status,
			"deliverables": m.DeliverableList(),
			"completed_at": m.CompletedAt,
			"approved_at":  m.ApprovedAt,
			"paid_at":      m.PaidAt,
		})
	}

	return c.JSON(fiber.Map{
		"contract": fiber.Map{
			"id":           ct.ID,
			"job_id":       ct.JobID,
			"job_title":    jobTitle,
			"company":      userSummary(ct.Company),
			"freelancer":   userSummary(ct.Freelancer),
			"total_amount": ct.TotalAmount,
			"start_date":   ct.StartDate,
			"deadline":     ct.Deadline,
			"status":       ct.Status,
			"created_at":   ct.CreatedAt,
		},
		"progress":   snap.Progress,
		"milestones": milestones,
		"financial":  snap.Financial,
		"timeline":   snap.Timeline,
		"alerts":     snap.Alerts,
	})
}
