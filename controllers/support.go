package controllers

import (
	"net/http"

	"github.com/bellapacxx/guba-backend/middleware"
	"github.com/bellapacxx/guba-backend/services"
	"github.com/gin-gonic/gin"
)

type SupportController struct {
	support *services.SupportService
}

func NewSupportController(support *services.SupportService) *SupportController {
	return &SupportController{support: support}
}

// CreateMessage files a support message for the caller
func (sc *SupportController) CreateMessage(c *gin.Context) {
	var req struct {
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	msg, err := sc.support.Create(c.Request.Context(), middleware.UserID(c), req.Message)
	if err != nil {
		respondError(c, err, "User")
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// ListMine returns the caller's own messages
func (sc *SupportController) ListMine(c *gin.Context) {
	msgs, err := sc.support.ListMine(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err, "Message")
		return
	}
	c.JSON(http.StatusOK, msgs)
}

// ListAll returns every message for the admin console
func (sc *SupportController) ListAll(c *gin.Context) {
	msgs, err := sc.support.ListAll(c.Request.Context())
	if err != nil {
		respondError(c, err, "Message")
		return
	}
	c.JSON(http.StatusOK, msgs)
}

// Respond stores the admin's answer
func (sc *SupportController) Respond(c *gin.Context) {
	var req struct {
		Response string `json:"response"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	msg, err := sc.support.Respond(c.Request.Context(), c.Param("id"), req.Response)
	if err != nil {
		respondError(c, err, "Message")
		return
	}
	c.JSON(http.StatusOK, msg)
}
