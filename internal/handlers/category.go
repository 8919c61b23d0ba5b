// internal/handlers/category.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/marketua/marketplace-backend/internal/services"
	"github.com/marketua/marketplace-backend/internal/utils"
)

type CategoryHandler struct {
	categoryService *services.CategoryService
	pageSize        int
}

func NewCategoryHandler(categoryService *services.CategoryService, pageSize int) *CategoryHandler {
	return &CategoryHandler{
		categoryService: categoryService,
		pageSize:        pageSize,
	}
}

// GET /category
func (h *CategoryHandler) List(c *gin.Context) {
	params := utils.GetPaginationParams(c, h.pageSize)

	roots, total, err := h.categoryService.ListRoots(c.Request.Context(), params)
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(c, roots, total, params))
}

// GET /category/select-list
func (h *CategoryHandler) SelectList(c *gin.Context) {
	params := utils.GetPaginationParams(c, h.pageSize)

	leaves, total, err := h.categoryService.ListLeaves(c.Request.Context(), params)
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(c, leaves, total, params))
}

// GET /category/:id
func (h *CategoryHandler) Retrieve(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	node, err := h.categoryService.Retrieve(c.Request.Context(), id)
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, node)
}

// POST /admin/categories
func (h *CategoryHandler) Create(c *gin.Context) {
	var req services.CreateCategoryRequest
	if !bindJSON(c, &req) {
		return
	}

	node, err := h.categoryService.Create(c.Request.Context(), &req)
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, node)
}

// PATCH /admin/categories/:id
func (h *CategoryHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req services.UpdateCategoryRequest
	if !bindJSON(c, &req) {
		return
	}

	node, err := h.categoryService.Update(c.Request.Context(), id, &req)
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, node)
}

// DELETE /admin/categories/:id
func (h *CategoryHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.categoryService.Delete(c.Request.Context(), id); err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	utils.NoContentResponse(c)
}
