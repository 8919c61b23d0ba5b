// internal/handlers/advert.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/marketua/marketplace-backend/internal/services"
	"github.com/marketua/marketplace-backend/internal/utils"
)

type AdvertHandler struct {
	advertService *services.AdvertService
	pageSize      int
}

func NewAdvertHandler(advertService *services.AdvertService, pageSize int) *AdvertHandler {
	return &AdvertHandler{
		advertService: advertService,
		pageSize:      pageSize,
	}
}

func (h *AdvertHandler) list(c *gin.Context, filter services.AdvertFilter) {
	params := utils.GetPaginationParams(c, h.pageSize)

	adverts, total, err := h.advertService.List(c.Request.Context(), filter, params)
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(c, adverts, total, params))
}

// GET /adverts?category=&owner=
func (h *AdvertHandler) List(c *gin.Context) {
	var (
		filter services.AdvertFilter
		err    error
	)
	if filter.CategoryID, err = queryID(c, "category"); err != nil {
		utils.ErrorResponse(c, err)
		return
	}
	if filter.OwnerID, err = queryID(c, "owner"); err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	h.list(c, filter)
}

// GET /adverts/me
func (h *AdvertHandler) ListMine(c *gin.Context) {
	ownerID := utils.GetUserFromContext(c).ID
	h.list(c, services.AdvertFilter{OwnerID: &ownerID})
}

// GET /adverts/:id
func (h *AdvertHandler) Retrieve(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	advert, err := h.advertService.Retrieve(c.Request.Context(), id)
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, advert)
}

// POST /adverts
func (h *AdvertHandler) Create(c *gin.Context) {
	var req services.CreateAdvertRequest
	if !bindJSON(c, &req) {
		return
	}

	advert, err := h.advertService.Create(c.Request.Context(), utils.GetUserFromContext(c).ID, &req)
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, advert)
}

// PATCH /adverts/:id
func (h *AdvertHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req services.UpdateAdvertRequest
	if !bindJSON(c, &req) {
		return
	}

	advert, err := h.advertService.Update(c.Request.Context(), id, utils.GetUserFromContext(c), &req)
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, advert)
}

// DELETE /adverts/:id
func (h *AdvertHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.advertService.Delete(c.Request.Context(), id, utils.GetUserFromContext(c)); err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	utils.NoContentResponse(c)
}
