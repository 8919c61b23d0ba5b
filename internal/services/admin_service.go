// internal/services/admin_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/marketua/marketplace-backend/internal/apperror"
	"github.com/marketua/marketplace-backend/internal/models"
	"github.com/marketua/marketplace-backend/internal/utils"
)

const (
	UserKindStaff    = "staff"
	UserKindCustomer = "customer"
)

type AdminService struct {
	db *gorm.DB
}

type AdminDashboardStats struct {
	TotalUsers        int64                        `json:"total_users"`
	ActiveUsers       int64                        `json:"active_users"`
	StaffUsers        int64                        `json:"staff_users"`
	NewUsersThisMonth int64                        `json:"new_users_this_month"`
	TotalAdverts      int64                        `json:"total_adverts"`
	NewAdvertsToday   int64                        `json:"new_adverts_today"`
	TotalCategories   int64                        `json:"total_categories"`
	TotalOrders       int64                        `json:"total_orders"`
	OrdersByStatus    map[models.OrderStatus]int64 `json:"orders_by_status"`
	UnpaidOrders      int64                        `json:"unpaid_orders"`
}

// AdminUserFilter splits the single users table into staff and customer
// views.
type AdminUserFilter struct {
	utils.PaginationParams
	Kind         string
	IsActive     *bool
	JoinedAfter  *time.Time
	JoinedBefore *time.Time
}

func NewAdminService(db *gorm.DB) *AdminService {
	return &AdminService{db: db}
}

// Dashboard Statistics
func (s *AdminService) GetDashboardStats(ctx context.Context) (*AdminDashboardStats, error) {
	db := s.db.WithContext(ctx)
	stats := &AdminDashboardStats{OrdersByStatus: map[models.OrderStatus]int64{}}
	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	counts := []struct {
		query *gorm.DB
		dest  *int64
	}{
		{db.Model(&models.User{}), &stats.TotalUsers},
		{db.Model(&models.User{}).Where("is_active = ?", true), &stats.ActiveUsers},
		{db.Model(&models.User{}).Where("is_staff = ?", true), &stats.StaffUsers},
		{db.Model(&models.User{}).Where("joined_at >= ?", monthStart), &stats.NewUsersThisMonth},
		{db.Model(&models.Advert{}), &stats.TotalAdverts},
		{db.Model(&models.Advert{}).Where("created_at >= ?", dayStart), &stats.NewAdvertsToday},
		{db.Model(&models.Category{}), &stats.TotalCategories},
		{db.Model(&models.Order{}), &stats.TotalOrders},
		{db.Model(&models.Order{}).Where("is_paid = ?", false), &stats.UnpaidOrders},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dest).Error; err != nil {
			return nil, fmt.Errorf("failed to collect stats: %w", err)
		}
	}

	var byStatus []struct {
		Status models.OrderStatus
		Count  int64
	}
	if err := db.Model(&models.Order{}).Select("status, COUNT(*) AS count").Group("status").Scan(&byStatus).Error; err != nil {
		return nil, fmt.Errorf("failed to collect order stats: %w", err)
	}
	for _, row := range byStatus {
		stats.OrdersByStatus[row.Status] = row.Count
	}

	return stats, nil
}

// User Management
func (s *AdminService) GetUsers(ctx context.Context, filter AdminUserFilter) ([]models.User, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.User{})

	// Apply filters
	switch filter.Kind {
	case "":
	case UserKindStaff:
		query = query.Where("is_staff = ?", true)
	case UserKindCustomer:
		query = query.Where("is_staff = ?", false)
	default:
		return nil, 0, apperror.Field(apperror.CodeInvalidChoice,
			fmt.Sprintf("\"%s\" is not a valid choice.", filter.Kind), "kind")
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if filter.JoinedAfter != nil {
		query = query.Where("joined_at >= ?", *filter.JoinedAfter)
	}
	if filter.JoinedBefore != nil {
		query = query.Where("joined_at <= ?", *filter.JoinedBefore)
	}

	// Get total count
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	var users []models.User
	err := utils.ApplyPagination(query.Preload("Address").Order("id"), filter.PaginationParams).Find(&users).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch users: %w", err)
	}

	return users, total, nil
}
