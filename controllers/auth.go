package controllers

import (
	"net/http"

	"github.com/bellapacxx/guba-backend/middleware"
	"github.com/bellapacxx/guba-backend/services"
	"github.com/gin-gonic/gin"
)

type AuthController struct {
	auth *services.AuthService
}

func NewAuthController(auth *services.AuthService) *AuthController {
	return &AuthController{auth: auth}
}

// Register creates a customer account and returns a token for it
func (ac *AuthController) Register(c *gin.Context) {
	var in services.RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	res, err := ac.auth.Register(c.Request.Context(), in)
	if err != nil {
		respondError(c, err, "User")
		return
	}
	c.JSON(http.StatusCreated, res)
}

// Login exchanges email and password for a token
func (ac *AuthController) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		badRequest(c, "Email and password are required")
		return
	}

	res, err := ac.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err, "User")
		return
	}
	c.JSON(http.StatusOK, res)
}

// Logout revokes the token used for this request
func (ac *AuthController) Logout(c *gin.Context) {
	claims, _ := middleware.Claims(c)
	if err := ac.auth.Logout(c.Request.Context(), claims); err != nil {
		respondError(c, err, "Token")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logout successful"})
}

// Me returns the authenticated user
func (ac *AuthController) Me(c *gin.Context) {
	user, err := ac.auth.Me(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err, "User")
		return
	}
	c.JSON(http.StatusOK, user)
}
