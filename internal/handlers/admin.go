// internal/handlers/admin.go
package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/marketua/marketplace-backend/internal/apperror"
	"github.com/marketua/marketplace-backend/internal/services"
	"github.com/marketua/marketplace-backend/internal/utils"
)

type AdminHandler struct {
	adminService *services.AdminService
	pageSize     int
}

func NewAdminHandler(adminService *services.AdminService, pageSize int) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		pageSize:     pageSize,
	}
}

// GET /admin/stats
func (h *AdminHandler) GetDashboardStats(c *gin.Context) {
	stats, err := h.adminService.GetDashboardStats(c.Request.Context())
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, stats)
}

// GET /admin/users?kind=staff|customer&is_active=&joined_after=&joined_before=
func (h *AdminHandler) GetUsers(c *gin.Context) {
	params := utils.GetPaginationParams(c, h.pageSize)

	// Build filter parameters
	filter := services.AdminUserFilter{
		PaginationParams: params,
		Kind:             c.Query("kind"),
	}

	errs := apperror.Validation()
	if raw := c.Query("is_active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			errs.Add(apperror.CodeInvalid, "Must be a valid boolean.", "is_active")
		} else {
			filter.IsActive = &active
		}
	}
	if raw := c.Query("joined_after"); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			filter.JoinedAfter = &t
		} else {
			errs.Add(apperror.CodeInvalid, "Enter a valid date.", "joined_after")
		}
	}
	if raw := c.Query("joined_before"); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			filter.JoinedBefore = &t
		} else {
			errs.Add(apperror.CodeInvalid, "Enter a valid date.", "joined_before")
		}
	}
	if err := errs.OrNil(); err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	users, total, err := h.adminService.GetUsers(c.Request.Context(), filter)
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(c, users, total, params))
}
