package handlers

import (
	"encoding/json"
	"log"
	"math"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/fahmirid/backend_lancerhub/internal/models"
	"github.com/fahmirid/backend_lancerhub/internal/utils"
)

type JobHandler struct {
	DB           *gorm.DB
	ShareLinkKey string
}

func NewJobHandler(db *gorm.DB, shareLinkKey string) *JobHandler {
	return &JobHandler{DB: db, ShareLinkKey: shareLinkKey}
}

// ==== REQUEST STRUCTS ====

type JobReq struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Budget      float64  `json:"budget"`
	Skills      []string `json:"skills"`
	Deadline    string   `json:"deadline"` // ISO format: 2026-04-30
}

// jobFilter is the typed query-parameter set for the public listing. Only
// non-zero fields are translated into WHERE conditions.
type jobFilter struct {
	Category  string
	Keyword   string
	MinBudget float64
	MaxBudget float64
	Page      int
	Limit     int
}

func parseJobFilter(c *fiber.Ctx) jobFilter {
	f := jobFilter{
		Category:  strings.TrimSpace(c.Query("category")),
		Keyword:   strings.TrimSpace(c.Query("q")),
		MinBudget: c.QueryFloat("min_budget", 0),
		MaxBudget: c.QueryFloat("max_budget", 0),
		Page:      c.QueryInt("page", 1),
		Limit:     c.QueryInt("limit", 20),
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}
	return f
}

func (f jobFilter) apply(q *gorm.DB) *gorm.DB {
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Keyword != "" {
		kw := "%" + f.Keyword + "%"
		q = q.Where("title ILIKE ? OR description ILIKE ?", kw, kw)
	}
	if f.MinBudget > 0 {
		q = q.Where("budget >= ?", f.MinBudget)
	}
	if f.MaxBudget > 0 {
		q = q.Where("budget <= ?", f.MaxBudget)
	}
	return q
}

// ==== HANDLERS ====

// ListPublic returns open jobs for the marketplace feed.
func (h *JobHandler) ListPublic(c *fiber.Ctx) error {
	f := parseJobFilter(c)

	q := f.apply(h.DB.Model(&models.Job{}).Where("status = ?", models.JobStatusOpen))

	var total int64
	q.Count(&total)

	var jobs []models.Job
	if err := q.Preload("Company").
		Order("created_at DESC").
		Limit(f.Limit).
		Offset((f.Page - 1) * f.Limit).
		Find(&jobs).Error; err != nil {
		log.Println("[Jobs] Error listing jobs:", err)
		return fail(c, fiber.StatusInternalServerError, "Failed to fetch jobs")
	}

	data := make([]fiber.Map, 0, len(jobs))
	for _, j := range jobs {
		companyName := ""
		if j.Company != nil {
			companyName = j.Company.Name
		}
		data = append(data, fiber.Map{
			"id":           j.ID,
			"title":        j.Title,
			"description":  j.Description,
			"category":     j.Category,
			"budget":       j.Budget,
			"skills":       j.Skills,
			"deadline":     j.Deadline,
			"status":       j.Status,
			"created_at":   j.CreatedAt,
			"company_name": companyName,
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    data,
		"meta": fiber.Map{
			"page":        f.Page,
			"limit":       f.Limit,
			"total_items": total,
			"total_pages": int(math.Ceil(float64(total) / float64(f.Limit))),
		},
	})
}

// GetDetail returns one job with its company summary.
func (h *JobHandler) GetDetail(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return fail(c, fiber.StatusBadRequest, "Invalid job ID")
	}

	var job models.Job
	if err := h.DB.Preload("Company").First(&job, "id = ?", id).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Job not found")
	}

	return ok(c, job)
}

// GetCategories lists distinct categories across open jobs.
func (h *JobHandler) GetCategories(c *fiber.Ctx) error {
	var categories []string

	err := h.DB.
		Table("jobs").
		Where("status = ?", models.JobStatusOpen).
		Distinct("category").
		Pluck("category", &categories).
		Error

	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to fetch categories")
	}

	return ok(c, categories)
}

// Create posts a new job for the calling company.
func (h *JobHandler) Create(c *fiber.Ctx) error {
	companyID, err := getUserUUID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var req JobReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	errs := FieldErrors{}
	if strings.TrimSpace(req.Title) == "" {
		errs.Add("title", "Title is required")
	}
	if strings.TrimSpace(req.Category) == "" {
		errs.Add("category", "Category is required")
	}
	if req.Budget <= 0 {
		errs.Add("budget", "Budget must be positive")
	}
	if len(errs) > 0 {
		return validationFail(c, errs)
	}

	skillsJSON, err := json.Marshal(req.Skills)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to process skills")
	}

	job := models.Job{
		CompanyID:   companyID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Category:    strings.TrimSpace(req.Category),
		Budget:      req.Budget,
		Skills:      datatypes.JSON(skillsJSON),
		Status:      models.JobStatusOpen,
	}

	if req.Deadline != "" {
		if d, err := time.Parse("2006-01-02", req.Deadline); err == nil {
			job.Deadline = &d
		}
	}

	if err := h.DB.Create(&job).Error; err != nil {
		log.Println("[Jobs] Error creating job:", err)
		return fail(c, fiber.StatusInternalServerError, "Failed to create job")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    job,
	})
}

// ListMine returns the calling company's jobs with proposal counts.
func (h *JobHandler) ListMine(c *fiber.Ctx) error {
	companyID, err := getUserUUID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var jobs []models.Job
	if err := h.DB.Where("company_id = ?", companyID).
		Order("created_at DESC").
		Find(&jobs).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to fetch jobs")
	}

	data := make([]fiber.Map, 0, len(jobs))
	for _, j := range jobs {
		var proposalCount int64
		h.DB.Model(&models.Proposal{}).
			Where("job_id = ? AND status = ?", j.ID, models.ProposalStatusPending).
			Count(&proposalCount)

		data = append(data, fiber.Map{
			"id":                j.ID,
			"title":             j.Title,
			"category":          j.Category,
			"budget":            j.Budget,
			"status":            j.Status,
			"deadline":          j.Deadline,
			"created_at":        j.CreatedAt,
			"pending_proposals": proposalCount,
		})
	}

	return ok(c, data)
}

// Update edits an open job owned by the caller.
func (h *JobHandler) Update(c *fiber.Ctx) error {
	companyID, err := getUserUUID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return fail(c, fiber.StatusBadRequest, "Invalid job ID")
	}

	var job models.Job
	if err := h.DB.First(&job, "id = ?", id).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Job not found")
	}
	if job.CompanyID != companyID {
		return fail(c, fiber.StatusForbidden, "Access denied")
	}
	if job.Status != models.JobStatusOpen {
		return fail(c, fiber.StatusBadRequest, "Only open jobs can be edited")
	}

	var req JobReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	if strings.TrimSpace(req.Title) != "" {
		job.Title = strings.TrimSpace(req.Title)
	}
	if req.Description != "" {
		job.Description = req.Description
	}
	if strings.TrimSpace(req.Category) != "" {
		job.Category = strings.TrimSpace(req.Category)
	}
	if req.Budget > 0 {
		job.Budget = req.Budget
	}
	if req.Skills != nil {
		if b, err := json.Marshal(req.Skills); err == nil {
			job.Skills = datatypes.JSON(b)
		}
	}
	if req.Deadline != "" {
		if d, err := time.Parse("2006-01-02", req.Deadline); err == nil {
			job.Deadline = &d
		}
	}
	job.UpdatedAt = time.Now()

	if err := h.DB.Save(&job).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to update job")
	}

	return ok(c, job)
}

// Close closes an open job without a contract.
func (h *JobHandler) Close(c *fiber.Ctx) error {
	companyID, err := getUserUUID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return fail(c, fiber.StatusBadRequest, "Invalid job ID")
	}

	var job models.Job
	if err := h.DB.First(&job, "id = ?", id).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Job not found")
	}
	if job.CompanyID != companyID {
		return fail(c, fiber.StatusForbidden, "Access denied")
	}
	if job.Status != models.JobStatusOpen {
		return fail(c, fiber.StatusBadRequest, "Only open jobs can be closed")
	}

	job.Status = models.JobStatusClosed
	job.UpdatedAt = time.Now()
	if err := h.DB.Save(&job).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to close job")
	}

	return c.JSON(fiber.Map{"success": true, "message": "Job closed"})
}

// ShareLink mints an opaque share code for a job.
func (h *JobHandler) ShareLink(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return fail(c, fiber.StatusBadRequest, "Invalid job ID")
	}

	var job models.Job
	if err := h.DB.First(&job, "id = ?", id).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Job not found")
	}

	code, err := utils.EncodeShareCode(job.ID, h.ShareLinkKey)
	if err != nil {
		log.Println("[Jobs] Error encoding share code:", err)
		return fail(c, fiber.StatusInternalServerError, "Failed to create share link")
	}

	return ok(c, fiber.Map{"code": code})
}

// ResolveShareLink resolves a share code back to the job.
func (h *JobHandler) ResolveShareLink(c *fiber.Ctx) error {
	code := c.Params("code")

	id, err := utils.DecodeShareCode(code, h.ShareLinkKey)
	if err != nil {
		return fail(c, fiber.StatusNotFound, "Unknown share code")
	}

	var job models.Job
	if err := h.DB.Preload("Company").First(&job, "id = ?", id).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Job not found")
	}

	return ok(c, job)
}
