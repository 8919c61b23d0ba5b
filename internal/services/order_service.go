// internal/services/order_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/marketua/marketplace-backend/internal/apperror"
	"github.com/marketua/marketplace-backend/internal/database"
	"github.com/marketua/marketplace-backend/internal/models"
	"github.com/marketua/marketplace-backend/internal/permissions"
	"github.com/marketua/marketplace-backend/internal/utils"
)

type OrderService struct {
	db *gorm.DB
}

// CreateOrderRequest has no customer field: the customer is always the caller.
type CreateOrderRequest struct {
	ShippingAddress string `json:"shipping_address" validate:"required,max=255"`
	PaymentMethod   string `json:"payment_method" validate:"required,oneof=visa mastercard cash"`
	ShippingMethod  string `json:"shipping_method" validate:"required,oneof=standard express"`
	Notes           string `json:"notes"`
}

type UpdateOrderRequest struct {
	Status *string `json:"status" validate:"omitempty,oneof=pending shipped delivered cancelled"`
	IsPaid *bool   `json:"is_paid"`
}

func NewOrderService(db *gorm.DB) *OrderService {
	return &OrderService{db: db}
}

func (s *OrderService) Create(ctx context.Context, customer *models.User, req *CreateOrderRequest) (*models.Order, error) {
	req.ShippingAddress = strings.TrimSpace(req.ShippingAddress)
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	order := &models.Order{
		CustomerID:      customer.ID,
		Status:          models.OrderStatusPending,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   models.OrderPaymentMethod(req.PaymentMethod),
		ShippingMethod:  models.ShippingMethod(req.ShippingMethod),
		Notes:           req.Notes,
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(order).Error; err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"order_id":    order.ID,
		"customer_id": customer.ID,
	}).Info("Order created")
	return order, nil
}

// ListForCustomer returns the customer's orders, newest first.
func (s *OrderService) ListForCustomer(ctx context.Context, customerID uint, params utils.PaginationParams) ([]models.Order, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Order{}).Where("customer_id = ?", customerID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	var orders []models.Order
	if err := utils.ApplyPagination(query.Order("created_at DESC"), params).Find(&orders).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, total, nil
}

func parseOrderID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperror.NotFound()
	}
	return id, nil
}

// Get returns an order visible to caller: its customer or staff.
func (s *OrderService) Get(ctx context.Context, caller *models.User, rawID string) (*models.Order, error) {
	id, err := parseOrderID(rawID)
	if err != nil {
		return nil, err
	}

	var order models.Order
	if err := s.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound()
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	if err := permissions.IsOwnerOrStaff(caller, order.CustomerID); err != nil {
		return nil, err
	}
	return &order, nil
}

// Update lets staff move an order along its status graph and flip is_paid.
func (s *OrderService) Update(ctx context.Context, rawID string, req *UpdateOrderRequest) (*models.Order, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	id, err := parseOrderID(rawID)
	if err != nil {
		return nil, err
	}

	var order models.Order
	err = database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		if err := tx.First(&order, "id = ?", id).Error; err != nil {
			return err
		}

		if req.Status != nil {
			next := models.OrderStatus(*req.Status)
			if next != order.Status {
				if !order.Status.CanTransitionTo(next) {
					return apperror.Field(apperror.CodeInvalidTransition,
						fmt.Sprintf("Cannot change status from %q to %q.", order.Status, next), "status")
				}
				order.Status = next
			}
		}
		if req.IsPaid != nil {
			order.IsPaid = *req.IsPaid
		}

		return tx.Omit(clause.Associations).Save(&order).Error
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"order_id": order.ID,
		"status":   order.Status,
		"is_paid":  order.IsPaid,
	}).Info("Order updated")
	return &order, nil
}
