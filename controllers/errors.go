package controllers

import (
	"errors"
	"net/http"

	"github.com/bellapacxx/guba-backend/middleware"
	"github.com/bellapacxx/guba-backend/models"
	"github.com/bellapacxx/guba-backend/services"
	"github.com/bellapacxx/guba-backend/store"
	"github.com/bellapacxx/guba-backend/utils/logger"
	"github.com/gin-gonic/gin"
)

const idempotencyHeader = "Idempotency-Key"

// respondError maps service and store errors to a status code and an
// error body. what names the resource in "not found" messages.
func respondError(c *gin.Context, err error, what string) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, middleware.ErrorBody(verr.Msg))
	case errors.Is(err, services.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, middleware.ErrorBody("Invalid credentials"))
	case errors.Is(err, services.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, middleware.ErrorBody("Unauthorized"))
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, middleware.ErrorBody(what + " not found"))
	case errors.Is(err, models.ErrAmountOutOfRange):
		c.JSON(http.StatusBadRequest, middleware.ErrorBody("Amount out of range"))
	case errors.Is(err, store.ErrInsufficientFunds):
		c.JSON(http.StatusBadRequest, middleware.ErrorBody("Insufficient balance"))
	case errors.Is(err, store.ErrSoldOut):
		c.JSON(http.StatusConflict, middleware.ErrorBody("Not enough tickets left"))
	case errors.Is(err, store.ErrPostClosed):
		c.JSON(http.StatusConflict, middleware.ErrorBody("Draw is closed"))
	case errors.Is(err, store.ErrConflict):
		c.JSON(http.StatusConflict, middleware.ErrorBody(what + " already exists"))
	case errors.Is(err, services.ErrRequestInProgress):
		c.JSON(http.StatusConflict, middleware.ErrorBody("Request with this idempotency key is in progress"))
	default:
		_ = c.Error(err)
		logger.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, middleware.ErrorBody("Internal server error"))
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, middleware.ErrorBody(msg))
}
