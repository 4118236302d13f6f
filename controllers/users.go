package controllers

import (
	"net/http"

	"github.com/bellapacxx/guba-backend/middleware"
	"github.com/bellapacxx/guba-backend/services"
	"github.com/gin-gonic/gin"
)

type UserController struct {
	users *services.UserService
}

func NewUserController(users *services.UserService) *UserController {
	return &UserController{users: users}
}

// ListUsers returns every account; password hashes are never serialized
func (uc *UserController) ListUsers(c *gin.Context) {
	users, err := uc.users.List(c.Request.Context())
	if err != nil {
		respondError(c, err, "User")
		return
	}
	c.JSON(http.StatusOK, users)
}

// CreateUser lets an admin add an account with a role
func (uc *UserController) CreateUser(c *gin.Context) {
	var in services.RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	user, err := uc.users.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, err, "User")
		return
	}
	c.JSON(http.StatusCreated, user)
}

// UpdateRole changes a user's role
func (uc *UserController) UpdateRole(c *gin.Context) {
	var req struct {
		Role string `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	user, err := uc.users.UpdateRole(c.Request.Context(), c.Param("id"), req.Role)
	if err != nil {
		respondError(c, err, "User")
		return
	}
	c.JSON(http.StatusOK, user)
}

// DeleteUser removes a user by id
func (uc *UserController) DeleteUser(c *gin.Context) {
	id := c.Param("id")
	if id == middleware.UserID(c) {
		badRequest(c, "You cannot delete your own account")
		return
	}
	if err := uc.users.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err, "User")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}
