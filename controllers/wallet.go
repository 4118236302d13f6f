package controllers

import (
	"net/http"

	"github.com/bellapacxx/guba-backend/middleware"
	"github.com/bellapacxx/guba-backend/models"
	"github.com/bellapacxx/guba-backend/services"
	"github.com/gin-gonic/gin"
)

type WalletController struct {
	wallet *services.WalletService
}

func NewWalletController(wallet *services.WalletService) *WalletController {
	return &WalletController{wallet: wallet}
}

type amountRequest struct {
	Amount models.Amount `json:"amount"`
}

// GetBalance returns the current wallet balance
func (wc *WalletController) GetBalance(c *gin.Context) {
	balance, err := wc.wallet.Balance(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err, "Wallet")
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": balance})
}

// Deposit handles adding funds to user wallet
func (wc *WalletController) Deposit(c *gin.Context) {
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, services.ErrInvalidAmount.Msg)
		return
	}

	res, err := wc.wallet.Deposit(c.Request.Context(), middleware.UserID(c), req.Amount, c.GetHeader(idempotencyHeader))
	if err != nil {
		respondError(c, err, "Wallet")
		return
	}
	c.JSON(http.StatusOK, res)
}

// Withdraw handles user withdrawal
func (wc *WalletController) Withdraw(c *gin.Context) {
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, services.ErrInvalidAmount.Msg)
		return
	}

	res, err := wc.wallet.Withdraw(c.Request.Context(), middleware.UserID(c), req.Amount, c.GetHeader(idempotencyHeader))
	if err != nil {
		respondError(c, err, "Wallet")
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetTransactionHistory lists ledger entries, newest first
func (wc *WalletController) GetTransactionHistory(c *gin.Context) {
	txs, err := wc.wallet.History(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err, "Wallet")
		return
	}
	if txs == nil {
		txs = []models.Transaction{}
	}
	c.JSON(http.StatusOK, txs)
}
