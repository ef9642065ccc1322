package handlers

import (
	"log"
	"math"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fahmirid/backend_lancerhub/internal/models"
)

type NotificationHandler struct {
	DB *gorm.DB
}

func NewNotificationHandler(db *gorm.DB) *NotificationHandler {
	return &NotificationHandler{DB: db}
}

// List returns the caller's notifications newest first, paginated.
// ?unread=true restricts to unread ones.
func (h *NotificationHandler) List(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
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

	q := h.DB.Model(&models.Notification{}).Where("user_id = ?", userUUID)
	if c.Query("unread") == "true" {
		q = q.Where("is_read = false")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to count notifications")
	}

	var notifs []models.Notification
	if err := q.Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&notifs).Error; err != nil {
		log.Println("[Notifications] Error fetching notifications:", err)
		return fail(c, fiber.StatusInternalServerError, "Failed to fetch notifications")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    notifs,
		"meta": fiber.Map{
			"page":       page,
			"limit":      limit,
			"total":      total,
			"total_page": int(math.Ceil(float64(total) / float64(limit))),
		},
	})
}

// UnreadCount returns how many unread notifications the caller has.
func (h *NotificationHandler) UnreadCount(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var count int64
	if err := h.DB.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = false", userUUID).
		Count(&count).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to count notifications")
	}

	return ok(c, count)
}

// MarkRead marks one notification as read. Only the owner can.
func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	notifUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid notification ID")
	}

	result := h.DB.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notifUUID, userUUID).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": time.Now(),
		})
	if result.Error != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to mark notification as read")
	}
	if result.RowsAffected == 0 {
		return fail(c, fiber.StatusNotFound, "Notification not found")
	}

	return c.JSON(fiber.Map{"success": true})
}

// MarkAllRead marks every unread notification of the caller as read.
func (h *NotificationHandler) MarkAllRead(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	if err := h.DB.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = false", userUUID).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": time.Now(),
		}).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to mark notifications as read")
	}

	return c.JSON(fiber.Map{"success": true})
}
