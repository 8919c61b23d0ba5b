// internal/handlers/user.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/marketua/marketplace-backend/internal/services"
	"github.com/marketua/marketplace-backend/internal/utils"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// GET /user/retrieve/me
func (h *UserHandler) RetrieveMe(c *gin.Context) {
	user, err := h.userService.GetUserByID(c.Request.Context(), utils.GetUserFromContext(c).ID)
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, user)
}

// PATCH /user/update/me
func (h *UserHandler) UpdateMe(c *gin.Context) {
	var req services.UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), utils.GetUserFromContext(c).ID, &req)
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, user)
}

// PUT /user/set-password/me
func (h *UserHandler) SetPasswordMe(c *gin.Context) {
	var req services.SetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.userService.SetPassword(c.Request.Context(), utils.GetUserFromContext(c).ID, &req); err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	utils.NoContentResponse(c)
}

// POST /user/disable/me
func (h *UserHandler) DisableMe(c *gin.Context) {
	var req services.DisableRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.userService.Disable(c.Request.Context(), utils.GetUserFromContext(c).ID, &req); err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	utils.NoContentResponse(c)
}
