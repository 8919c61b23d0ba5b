// internal/services/user_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/marketua/marketplace-backend/internal/apperror"
	"github.com/marketua/marketplace-backend/internal/database"
	"github.com/marketua/marketplace-backend/internal/models"
	"github.com/marketua/marketplace-backend/internal/utils"
)

type UserService struct {
	db        *gorm.DB
	hasher    *utils.PasswordHasher
	addresses *AddressService
	tokens    *TokenService
}

// NewUser carries everything the user manager needs to create an account.
type NewUser struct {
	Email       string
	Password    string
	FullName    *string
	Phone       *string
	IsStaff     bool
	IsSuperuser bool
}

type UpdateProfileRequest struct {
	Email    *string         `json:"email" validate:"omitempty,email,max=255"`
	FullName *string         `json:"full_name" validate:"omitempty,min=2,max=100"`
	Phone    *string         `json:"phone"`
	Address  *AddressRequest `json:"address"`
}

type SetPasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

type DisableRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
}

func NewUserService(db *gorm.DB, hasher *utils.PasswordHasher, addresses *AddressService, tokens *TokenService) *UserService {
	return &UserService{
		db:        db,
		hasher:    hasher,
		addresses: addresses,
		tokens:    tokens,
	}
}

// NormalizeEmail trims the address and lowercases its domain part.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at] + "@" + strings.ToLower(email[at+1:])
}

// CreateUser is the account manager entry point shared by registration, the
// admin and the management CLI.
func (s *UserService) CreateUser(ctx context.Context, in NewUser) (*models.User, error) {
	var user *models.User
	err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		user, err = s.createUser(tx, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// CreateSuperuser creates an active staff superuser.
func (s *UserService) CreateSuperuser(ctx context.Context, email, password string) (*models.User, error) {
	return s.CreateUser(ctx, NewUser{
		Email:       email,
		Password:    password,
		IsStaff:     true,
		IsSuperuser: true,
	})
}

func (s *UserService) createUser(tx *gorm.DB, in NewUser) (*models.User, error) {
	if strings.TrimSpace(in.Email) == "" {
		return nil, apperror.Field(apperror.CodeEmptyEmail, "Users must have an email address.", "email")
	}
	if in.Password == "" {
		return nil, apperror.Field(apperror.CodeEmptyPassword, "Users must have a password.", "password")
	}

	email := NormalizeEmail(in.Email)
	if err := s.ensureEmailFree(tx, email, 0); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		FullName:     in.FullName,
		Phone:        normalizedPhone(in.Phone),
		PasswordHash: hash,
		IsActive:     true,
		IsStaff:      in.IsStaff,
		IsSuperuser:  in.IsSuperuser,
	}
	if err := tx.Omit(clause.Associations).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, emailTaken()
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"is_staff": user.IsStaff,
	}).Info("User created")
	return user, nil
}

func emailTaken() *apperror.Error {
	return apperror.Field(apperror.CodeUnique, "User with this email already exists.", "email")
}

func (s *UserService) ensureEmailFree(tx *gorm.DB, email string, exceptID uint) error {
	var count int64
	q := tx.Model(&models.User{}).Where("LOWER(email) = LOWER(?)", email)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	if count > 0 {
		return emailTaken()
	}
	return nil
}

func normalizedPhone(phone *string) *string {
	if phone == nil || strings.TrimSpace(*phone) == "" {
		return nil
	}
	normalized := utils.NormalizePhone(*phone)
	return &normalized
}

// validatePhone checks an optional phone, leaving nil and blank values alone.
func validatePhone(phone *string) error {
	if phone == nil || strings.TrimSpace(*phone) == "" {
		return nil
	}
	return utils.ValidatePhone(*phone)
}

func (s *UserService) GetUserByID(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Preload("Address").First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound()
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &user, nil
}

// UpdateProfile applies a partial update of the caller's own profile.
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, req *UpdateProfileRequest) (*models.User, error) {
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
	if err := errs.OrNil(); err != nil {
		return nil, err
	}

	err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		return s.addresses.saveWithAddress(tx, models.OwnerKindUser, req.Address, func(tx *gorm.DB) (uint, error) {
			var user models.User
			if err := tx.First(&user, userID).Error; err != nil {
				return 0, err
			}

			if req.Email != nil {
				email := NormalizeEmail(*req.Email)
				if err := s.ensureEmailFree(tx, email, user.ID); err != nil {
					return 0, err
				}
				user.Email = email
			}
			if req.FullName != nil {
				user.FullName = req.FullName
			}
			if req.Phone != nil {
				user.Phone = normalizedPhone(req.Phone)
			}

			if err := tx.Omit(clause.Associations).Save(&user).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return 0, emailTaken()
				}
				return 0, fmt.Errorf("failed to update user: %w", err)
			}
			return user.ID, nil
		})
	})
	if err != nil {
		return nil, err
	}

	return s.GetUserByID(ctx, userID)
}

// SetPassword replaces the password after checking the current one.
func (s *UserService) SetPassword(ctx context.Context, userID uint, req *SetPasswordRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return err
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return err
	}

	if !s.hasher.Check(req.CurrentPassword, user.PasswordHash) {
		return apperror.Field(apperror.CodeInvalidPassword, "Invalid password.", "current_password")
	}
	if err := utils.ValidatePassword(req.NewPassword, "new_password", user.Email); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&user).Update("password_hash", hash).Error; err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	logrus.WithField("user_id", user.ID).Info("Password changed")
	return nil
}

// Disable scrubs the caller's personal data, makes the account unusable and
// revokes all of its refresh tokens, all in one transaction.
func (s *UserService) Disable(ctx context.Context, userID uint, req *DisableRequest) error {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return err
	}

	if !user.CanBeDisabled() {
		return apperror.New(apperror.KindAuthorization, apperror.CodeDisableStaff, "Staff accounts cannot be disabled.")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return err
	}
	if !s.hasher.Check(req.CurrentPassword, user.PasswordHash) {
		return apperror.Field(apperror.CodeInvalidPassword, "Invalid password.", "current_password")
	}

	var revoked []models.OutstandingToken
	err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		fullName := user.DisabledFullName()
		phone := models.DisabledPhone
		user.IsActive = false
		user.Email = user.DisabledEmail()
		user.PasswordHash = models.UnusablePassword
		user.FullName = &fullName
		user.Phone = &phone
		if err := tx.Omit(clause.Associations).Save(&user).Error; err != nil {
			return fmt.Errorf("failed to disable user: %w", err)
		}

		address, err := s.addresses.Get(tx, models.OwnerKindUser, user.ID)
		if err != nil {
			return err
		}
		if address != nil {
			if err := tx.Model(address).Update("number", "-").Error; err != nil {
				return fmt.Errorf("failed to scrub address: %w", err)
			}
		}

		revoked, err = s.tokens.BlacklistAllForUser(tx, user.ID)
		return err
	})
	if err != nil {
		return err
	}

	s.tokens.CacheBlacklisted(ctx, revoked)
	logrus.WithFields(logrus.Fields{
		"user_id":        user.ID,
		"revoked_tokens": len(revoked),
	}).Info("User disabled")
	return nil
}
