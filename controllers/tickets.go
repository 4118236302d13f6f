package controllers

import (
	"errors"
	"io"
	"net/http"

	"github.com/bellapacxx/guba-backend/middleware"
	"github.com/bellapacxx/guba-backend/models"
	"github.com/gin-gonic/gin"
)

// BuyTicket purchases tickets for a draw from the caller's wallet
func (pc *PostController) BuyTicket(c *gin.Context) {
	var req struct {
		Quantity int `json:"quantity"`
	}
	// an empty body buys a single ticket
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "Invalid request body")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	res, err := pc.posts.Purchase(c.Request.Context(), middleware.UserID(c), c.Param("id"), req.Quantity, c.GetHeader(idempotencyHeader))
	if err != nil {
		respondError(c, err, "Post")
		return
	}
	c.JSON(http.StatusCreated, res)
}

// GetMyTickets lists the caller's purchases, newest first
func (pc *PostController) GetMyTickets(c *gin.Context) {
	tickets, err := pc.posts.MyTickets(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err, "Ticket")
		return
	}
	if tickets == nil {
		tickets = []models.Ticket{}
	}
	c.JSON(http.StatusOK, tickets)
}
