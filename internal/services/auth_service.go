// internal/services/auth_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/marketua/marketplace-backend/internal/apperror"
	"github.com/marketua/marketplace-backend/internal/database"
	"github.com/marketua/marketplace-backend/internal/models"
	"github.com/marketua/marketplace-backend/internal/utils"
)

type AuthService struct {
	db        *gorm.DB
	users     *UserService
	addresses *AddressService
	tokens    *TokenService
	hasher    *utils.PasswordHasher
}

type RegisterRequest struct {
	Email              string          `json:"email" validate:"required,email,max=255"`
	Password           string          `json:"password" validate:"required"`
	ConfirmingPassword string          `json:"confirming_password" validate:"omitempty,eqfield=Password"`
	FullName           *string         `json:"full_name" validate:"omitempty,min=2,max=100"`
	Phone              *string         `json:"phone"`
	Address            *AddressRequest `json:"address"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

type VerifyRequest struct {
	Token string `json:"token" validate:"required"`
}

func NewAuthService(db *gorm.DB, users *UserService, addresses *AddressService, tokens *TokenService, hasher *utils.PasswordHasher) *AuthService {
	return &AuthService{
		db:        db,
		users:     users,
		addresses: addresses,
		tokens:    tokens,
		hasher:    hasher,
	}
}

// Register validates the whole payload, reporting every failing field at
// once, then creates the user and its optional address together.
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*models.User, error) {
	errs := apperror.Validation()
	if err := utils.ValidateStruct(req); err != nil {
		appErr := apperror.As(err)
		if appErr == nil {
			return nil, err
		}
		errs.Merge("", appErr)
	}
	if err := validatePhone(req.Phone); err != nil {
		errs.Merge("", apperror.As(err))
	}
	if req.Password != "" {
		if err := utils.ValidatePassword(req.Password, "password", req.Email); err != nil {
			errs.Merge("", apperror.As(err))
		}
	}
	if err := errs.OrNil(); err != nil {
		return nil, err
	}

	var user *models.User
	err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		return s.addresses.saveWithAddress(tx, models.OwnerKindUser, req.Address, func(tx *gorm.DB) (uint, error) {
			var err error
			user, err = s.users.createUser(tx, NewUser{
				Email:    req.Email,
				Password: req.Password,
				FullName: req.FullName,
				Phone:    req.Phone,
			})
			if err != nil {
				return 0, err
			}
			return user.ID, nil
		})
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func noActiveAccount() *apperror.Error {
	return apperror.New(apperror.KindAuthentication, apperror.CodeNoActiveAccount,
		"No active account found with the given credentials")
}

// Login exchanges credentials for a token pair. Unknown emails, wrong
// passwords and disabled accounts all fail the same way.
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*TokenPair, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", NormalizeEmail(req.Email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, noActiveAccount()
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if !user.IsActive || !s.hasher.Check(req.Password, user.PasswordHash) {
		return nil, noActiveAccount()
	}

	pair, err := s.tokens.Issue(ctx, &user)
	if err != nil {
		return nil, err
	}

	// Update last login time
	now := time.Now()
	if err := s.db.WithContext(ctx).Model(&user).UpdateColumn("last_login", now).Error; err != nil {
		return nil, fmt.Errorf("failed to update last login: %w", err)
	}
	return pair, nil
}

func (s *AuthService) Refresh(ctx context.Context, req *RefreshRequest) (*TokenPair, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	return s.tokens.Refresh(ctx, req.Refresh)
}

func (s *AuthService) Verify(ctx context.Context, req *VerifyRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return err
	}
	return s.tokens.Verify(ctx, req.Token)
}

// Logout blacklists the presented refresh token.
func (s *AuthService) Logout(ctx context.Context, req *RefreshRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return err
	}
	return s.tokens.Blacklist(ctx, req.Refresh)
}

// Authenticate resolves an access token to an active user.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*models.User, error) {
	claims, err := s.tokens.ParseAccess(accessToken)
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, tokenError(detailTokenNoUser)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	if !user.IsActive {
		return nil, apperror.New(apperror.KindAuthentication, apperror.CodeTokenNotValid, "User is inactive")
	}
	return &user, nil
}
