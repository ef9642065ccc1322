package wallet

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fahmirid/backend_lancerhub/internal/models"
)

func forUpdate() clause.Locking {
	return clause.Locking{Strength: "UPDATE"}
}

// WalletService moves money between platform balances and writes the ledger.
// Every mutating method expects to run inside a caller-owned DB transaction.
type WalletService struct {
	DB *gorm.DB
}

func NewWalletService(db *gorm.DB) *WalletService {
	return &WalletService{DB: db}
}

// Credit adds funds to a user's balance and records a ledger entry.
func (s *WalletService) Credit(tx *gorm.DB, userID uuid.UUID, amount float64, referenceID *uuid.UUID, trxType models.WalletTrxType, description string) error {
	if amount <= 0 {
		return errors.New("amount to credit must be greater than zero")
	}
	if trxType != models.WalletTrxCredit && trxType != models.WalletTrxRefund {
		return fmt.Errorf("invalid credit type: %s", trxType)
	}

	result := tx.Model(&models.User{}).
		Where("id = ?", userID).
		Update("balance", gorm.Expr("balance + ?", amount))

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("user not found for id %s", userID)
	}

	ledger := models.WalletTransaction{
		ID:          uuid.New(),
		UserID:      userID,
		Amount:      amount,
		Type:        trxType,
		Description: description,
		ReferenceID: referenceID,
	}

	return tx.Create(&ledger).Error
}

// Debit deducts funds from a user's balance, failing when the balance would
// go negative, and records a ledger entry.
func (s *WalletService) Debit(tx *gorm.DB, userID uuid.UUID, amount float64, referenceID *uuid.UUID, description string) error {
	if amount <= 0 {
		return errors.New("amount to debit must be greater than zero")
	}

	var user models.User
	if err := tx.Clauses(forUpdate()).First(&user, "id = ?", userID).Error; err != nil {
		return err
	}

	if user.Balance < amount {
		return ErrInsufficientBalance
	}

	result := tx.Model(&models.User{}).
		Where("id = ? AND balance >= ?", userID, amount).
		Update("balance", gorm.Expr("balance - ?", amount))

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("failed to deduct balance: user not found or insufficient balance")
	}

	ledger := models.WalletTransaction{
		ID:          uuid.New(),
		UserID:      userID,
		Amount:      amount,
		Type:        models.WalletTrxDebit,
		Description: description,
		ReferenceID: referenceID,
	}

	return tx.Create(&ledger).Error
}

// Transfer debits from and credits to inside the caller's transaction; used
// for milestone payments (company -> freelancer).
func (s *WalletService) Transfer(tx *gorm.DB, from, to uuid.UUID, amount float64, referenceID *uuid.UUID, description string) error {
	if err := s.Debit(tx, from, amount, referenceID, description); err != nil {
		return err
	}
	return s.Credit(tx, to, amount, referenceID, models.WalletTrxCredit, description)
}

var ErrInsufficientBalance = errors.New("insufficient balance")
