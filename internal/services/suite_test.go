package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/marketua/marketplace-backend/internal/config"
	"github.com/marketua/marketplace-backend/internal/database/dbtest"
	"github.com/marketua/marketplace-backend/internal/models"
	"github.com/marketua/marketplace-backend/internal/utils"
)

const testPassword = "rick123!@#"

// serviceSuite wires every service against a fresh in-memory database per test.
type serviceSuite struct {
	suite.Suite
	ctx context.Context
	db  *gorm.DB
	cfg *config.Config

	hasher     *utils.PasswordHasher
	addresses  *AddressService
	storage    *StorageService
	tokens     *TokenService
	users      *UserService
	auth       *AuthService
	categories *CategoryService
	adverts    *AdvertService
	images     *ImageService
	orders     *OrderService
	admin      *AdminService
}

func testConfig(mediaRoot string) *config.Config {
	return &config.Config{
		Environment: "test",
		JWT: config.JWTConfig{
			SecretKey:              "test-secret",
			AccessTokenTTL:         5 * time.Minute,
			RefreshTokenTTL:        time.Hour,
			RotateRefreshTokens:    true,
			BlacklistAfterRotation: true,
		},
		Media:      config.MediaConfig{Root: mediaRoot, URL: "/media"},
		Security:   config.SecurityConfig{PasswordHashIterations: 1000},
		Pagination: config.PaginationConfig{PageSize: 10},
	}
}

func (s *serviceSuite) SetupTest() {
	s.ctx = context.Background()
	s.db = dbtest.Open(s.T())
	s.cfg = testConfig(s.T().TempDir())

	var err error
	s.storage, err = NewStorageService(s.cfg)
	s.Require().NoError(err)

	s.hasher = utils.NewPasswordHasher(s.cfg.Security.PasswordHashIterations)
	s.addresses = NewAddressService()
	s.tokens = NewTokenService(s.db, s.cfg)
	s.users = NewUserService(s.db, s.hasher, s.addresses, s.tokens)
	s.auth = NewAuthService(s.db, s.users, s.addresses, s.tokens, s.hasher)
	s.categories = NewCategoryService(s.db)
	s.adverts = NewAdvertService(s.db, s.addresses, s.storage)
	s.images = NewImageService(s.db, s.storage)
	s.orders = NewOrderService(s.db)
	s.admin = NewAdminService(s.db)
}

func (s *serviceSuite) createUser(email string) *models.User {
	user, err := s.users.CreateUser(s.ctx, NewUser{Email: email, Password: testPassword})
	s.Require().NoError(err)
	return user
}

func (s *serviceSuite) createCategory(name string, parent *models.Category) *models.Category {
	category := &models.Category{Name: name}
	if parent != nil {
		category.ParentID = &parent.ID
	}
	s.Require().NoError(s.db.Create(category).Error)
	return category
}

func (s *serviceSuite) advertRequest(categoryID uint) *CreateAdvertRequest {
	price := decimal.RequireFromString("199.99")
	return &CreateAdvertRequest{
		Category:    &categoryID,
		Name:        "Portal gun",
		Description: "Slightly used",
		Price:       &price,
		Unit:        string(models.UnitPiece),
		Location:    "Kyiv",
		PaymentCard: "1234 5678 9012 3456",
	}
}

func (s *serviceSuite) createAdvert(owner *models.User, category *models.Category) *AdvertResponse {
	advert, err := s.adverts.Create(s.ctx, owner.ID, s.advertRequest(category.ID))
	s.Require().NoError(err)
	return advert
}

func (s *serviceSuite) count(model interface{}) int64 {
	var n int64
	s.Require().NoError(s.db.Model(model).Count(&n).Error)
	return n
}
