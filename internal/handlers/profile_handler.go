package handlers

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/fahmirid/backend_lancerhub/internal/models"
)

type ProfileHandler struct {
	DB *gorm.DB
}

func NewProfileHandler(db *gorm.DB) *ProfileHandler {
	return &ProfileHandler{DB: db}
}

// GetMine returns the caller's freelancer profile.
func (h *ProfileHandler) GetMine(c *fiber.Ctx) error {
	userID, err := getUserUUID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var p models.FreelancerProfile
	if err := h.DB.Where("user_id = ?", userID).First(&p).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Profile not found")
	}

	return ok(c, p)
}

// GetPublic returns a freelancer's public profile by user ID.
func (h *ProfileHandler) GetPublic(c *fiber.Ctx) error {
	userUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid user ID")
	}

	var p models.FreelancerProfile
	if err := h.DB.Where("user_id = ?", userUUID).First(&p).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Profile not found")
	}

	return ok(c, fiber.Map{
		"user_id":      p.UserID,
		"display_name": p.DisplayName,
		"headline":     p.Headline,
		"about":        p.About,
		"photo_url":    p.PhotoURL,
		"hourly_rate":  p.HourlyRate,
		"skills":       p.SkillList(),
	})
}

type UpdateProfileRequest struct {
	DisplayName string    `json:"display_name"`
	Headline    string    `json:"headline"`
	About       string    `json:"about"`
	HourlyRate  *float64  `json:"hourly_rate"`
	Skills      *[]string `json:"skills"`
}

// UpdateMine updates the editable fields of the caller's profile. Empty
// strings mean "leave as is"; skills replace the whole list when present.
func (h *ProfileHandler) UpdateMine(c *fiber.Ctx) error {
	userID, err := getUserUUID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var req UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	var p models.FreelancerProfile
	if err := h.DB.Where("user_id = ?", userID).First(&p).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Profile not found")
	}

	if req.DisplayName != "" {
		p.DisplayName = req.DisplayName
	}
	if req.Headline != "" {
		p.Headline = req.Headline
	}
	if req.About != "" {
		p.About = req.About
	}
	if req.HourlyRate != nil {
		if *req.HourlyRate < 0 {
			return fail(c, fiber.StatusBadRequest, "Hourly rate cannot be negative")
		}
		p.HourlyRate = *req.HourlyRate
	}
	if req.Skills != nil {
		b, err := json.Marshal(*req.Skills)
		if err != nil {
			return fail(c, fiber.StatusBadRequest, "Invalid skills list")
		}
		p.Skills = datatypes.JSON(b)
	}
	p.UpdatedAt = time.Now()

	if err := h.DB.Save(&p).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to update profile")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Profile updated successfully",
		"data":    p,
	})
}

// UploadPhoto stores the profile photo under uploads/ and saves its public
// URL.
func (h *ProfileHandler) UploadPhoto(c *fiber.Ctx) error {
	userID, err := getUserUUID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	file, err := c.FormFile("photo")
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Photo is required")
	}

	if file.Size > 2*1024*1024 { // 2MB
		return fail(c, fiber.StatusBadRequest, "File too large (max 2MB)")
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext != ".jpg" && ext != ".jpeg" && ext != ".png" {
		return fail(c, fiber.StatusBadRequest, "Invalid file format (jpg/png only)")
	}

	uploadDir := "uploads/freelancers/" + userID.String()
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to create upload directory")
	}

	filename := fmt.Sprintf("%s%s", uuid.New().String(), ext)
	path := filepath.Join(uploadDir, filename)

	if err := c.SaveFile(file, path); err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to save file")
	}

	publicURL := fmt.Sprintf("/uploads/freelancers/%s/%s", userID.String(), filename)

	var p models.FreelancerProfile
	if err := h.DB.Where("user_id = ?", userID).First(&p).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Profile not found")
	}

	p.PhotoURL = publicURL
	p.UpdatedAt = time.Now()

	if err := h.DB.Save(&p).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to update profile photo")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Photo updated successfully",
		"data":    p,
	})
}
