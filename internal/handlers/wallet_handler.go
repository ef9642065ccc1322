package handlers

import (
	"log"
	"math"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/fahmirid/backend_lancerhub/internal/models"
	"github.com/fahmirid/backend_lancerhub/internal/services/wallet"
)

type WalletHandler struct {
	DB     *gorm.DB
	Wallet *wallet.WalletService
}

func NewWalletHandler(db *gorm.DB, walletService *wallet.WalletService) *WalletHandler {
	return &WalletHandler{DB: db, Wallet: walletService}
}

// GetBalance returns the caller's current platform balance.
func (h *WalletHandler) GetBalance(c *fiber.Ctx) error {
	userID, err := getUserUUID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "User not found")
	}

	return ok(c, fiber.Map{"balance": user.Balance})
}

// TopUp credits the company balance. The amount is taken at face value: with
// no payment gateway attached, the deposit is assumed settled out of band.
func (h *WalletHandler) TopUp(c *fiber.Ctx) error {
	userID, err := getUserUUID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var req struct {
		Amount float64 `json:"amount"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if req.Amount <= 0 {
		return fail(c, fiber.StatusBadRequest, "Amount must be greater than zero")
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		return h.Wallet.Credit(tx, userID, req.Amount, nil, models.WalletTrxCredit, "Balance top up")
	})
	if err != nil {
		log.Println("[Wallet] Error topping up balance:", err)
		return fail(c, fiber.StatusInternalServerError, "Failed to top up balance")
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to fetch balance")
	}

	return ok(c, fiber.Map{"balance": user.Balance})
}

// GetTransactions returns the caller's ledger newest first, paginated.
func (h *WalletHandler) GetTransactions(c *fiber.Ctx) error {
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

	q := h.DB.Model(&models.WalletTransaction{}).Where("user_id = ?", userID)
	if trxType := c.Query("type"); trxType != "" {
		q = q.Where("type = ?", trxType)
	}

	var total int64
	q.Count(&total)

	var trxs []models.WalletTransaction
	if err := q.Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&trxs).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to fetch transactions")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    trxs,
		"meta": fiber.Map{
			"page":       page,
			"limit":      limit,
			"total":      total,
			"total_page": int(math.Ceil(float64(total) / float64(limit))),
		},
	})
}
