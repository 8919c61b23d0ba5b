// internal/handlers/auth.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/marketua/marketplace-backend/internal/services"
	"github.com/marketua/marketplace-backend/internal/utils"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// POST /user/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	if _, err := h.authService.Register(c.Request.Context(), &req); err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	utils.CreatedEmptyResponse(c)
}

// POST /user/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	tokens, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, tokens)
}

// POST /user/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req services.RefreshRequest
	if !bindJSON(c, &req) {
		return
	}

	tokens, err := h.authService.Refresh(c.Request.Context(), &req)
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, tokens)
}

// POST /user/verify
func (h *AuthHandler) Verify(c *gin.Context) {
	var req services.VerifyRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.authService.Verify(c.Request.Context(), &req); err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	utils.NoContentResponse(c)
}

// POST /user/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	var req services.RefreshRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.authService.Logout(c.Request.Context(), &req); err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	utils.NoContentResponse(c)
}
