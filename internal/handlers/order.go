// internal/handlers/order.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/marketua/marketplace-backend/internal/services"
	"github.com/marketua/marketplace-backend/internal/utils"
)

type OrderHandler struct {
	orderService *services.OrderService
	pageSize     int
}

func NewOrderHandler(orderService *services.OrderService, pageSize int) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		pageSize:     pageSize,
	}
}

// POST /orders/create
func (h *OrderHandler) Create(c *gin.Context) {
	var req services.CreateOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.orderService.Create(c.Request.Context(), utils.GetUserFromContext(c), &req)
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, order)
}

// GET /orders
func (h *OrderHandler) List(c *gin.Context) {
	params := utils.GetPaginationParams(c, h.pageSize)

	orders, total, err := h.orderService.ListForCustomer(c.Request.Context(), utils.GetUserFromContext(c).ID, params)
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(c, orders, total, params))
}

// GET /orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	order, err := h.orderService.Get(c.Request.Context(), utils.GetUserFromContext(c), c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, order)
}

// PATCH /admin/orders/:id
func (h *OrderHandler) Update(c *gin.Context) {
	var req services.UpdateOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.orderService.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, order)
}
