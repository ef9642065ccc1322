package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/fahmirid/backend_lancerhub/internal/models"
)

type DashboardHandler struct {
	DB *gorm.DB
}

func NewDashboardHandler(db *gorm.DB) *DashboardHandler {
	return &DashboardHandler{DB: db}
}

// GetFreelancerStats returns the summary card numbers for the freelancer
// dashboard.
func (h *DashboardHandler) GetFreelancerStats(c *fiber.Ctx) error {
	userID, err := getUserUUID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var activeContracts int64
	if err := h.DB.Model(&models.Contract{}).
		Where("freelancer_id = ? AND status = ?", userID, models.ContractStatusActive).
		Count(&activeContracts).Error; err != nil {
		log.Printf("[DashboardStats] Error counting active contracts for user %v: %v", userID, err)
	}

	var pendingProposals int64
	h.DB.Model(&models.Proposal{}).
		Where("freelancer_id = ? AND status = ?", userID, models.ProposalStatusPending).
		Count(&pendingProposals)

	var unreadChats int64
	h.DB.Table("messages").
		Joins("JOIN conversations ON messages.conversation_id = conversations.id").
		Where("conversations.freelancer_id = ?", userID).
		Where("messages.sender_id != ?", userID).
		Where("messages.is_read = ?", false).
		Count(&unreadChats)

	var totalEarnings float64
	h.DB.Model(&models.WalletTransaction{}).
		Where("user_id = ?", userID).
		Where("type = ?", models.WalletTrxCredit).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&totalEarnings)

	return ok(c, fiber.Map{
		"active_contracts":  activeContracts,
		"pending_proposals": pendingProposals,
		"unread_chats":      unreadChats,
		"total_earnings":    totalEarnings,
	})
}

// GetCompanyStats returns the summary card numbers for the company dashboard.
func (h *DashboardHandler) GetCompanyStats(c *fiber.Ctx) error {
	userID, err := getUserUUID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var openJobs int64
	if err := h.DB.Model(&models.Job{}).
		Where("company_id = ? AND status = ?", userID, models.JobStatusOpen).
		Count(&openJobs).Error; err != nil {
		log.Printf("[DashboardStats] Error counting open jobs for user %v: %v", userID, err)
	}

	var pendingProposals int64
	h.DB.Model(&models.Proposal{}).
		Joins("JOIN jobs ON jobs.id = proposals.job_id").
		Where("jobs.company_id = ?", userID).
		Where("proposals.status = ?", models.ProposalStatusPending).
		Count(&pendingProposals)

	var activeContracts int64
	h.DB.Model(&models.Contract{}).
		Where("company_id = ? AND status = ?", userID, models.ContractStatusActive).
		Count(&activeContracts)

	var unreadChats int64
	h.DB.Table("messages").
		Joins("JOIN conversations ON messages.conversation_id = conversations.id").
		Where("conversations.company_id = ?", userID).
		Where("messages.sender_id != ?", userID).
		Where("messages.is_read = ?", false).
		Count(&unreadChats)

	var totalSpent float64
	h.DB.Model(&models.WalletTransaction{}).
		Where("user_id = ?", userID).
		Where("type = ?", models.WalletTrxDebit).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&totalSpent)

	var user models.User
	_ = h.DB.First(&user, "id = ?", userID).Error

	return ok(c, fiber.Map{
		"open_jobs":         openJobs,
		"pending_proposals": pendingProposals,
		"active_contracts":  activeContracts,
		"unread_chats":      unreadChats,
		"total_spent":       totalSpent,
		"balance":           user.Balance,
	})
}

// GetEarnings returns the freelancer's net earnings plus the recent ledger.
func (h *DashboardHandler) GetEarnings(c *fiber.Ctx) error {
	userID, err := getUserUUID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var creditTotal float64
	h.DB.Model(&models.WalletTransaction{}).
		Where("user_id = ? AND type = ?", userID, models.WalletTrxCredit).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&creditTotal)

	var debitTotal float64
	h.DB.Model(&models.WalletTransaction{}).
		Where("user_id = ? AND type = ?", userID, models.WalletTrxDebit).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&debitTotal)

	var history []models.WalletTransaction
	if err := h.DB.Where("user_id = ?", userID).Order("created_at desc").Limit(50).Find(&history).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to fetch earnings history")
	}

	return ok(c, fiber.Map{
		"total_earnings": creditTotal - debitTotal,
		"history":        history,
	})
}
