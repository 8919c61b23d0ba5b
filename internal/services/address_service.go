// internal/services/address_service.go
package services

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/marketua/marketplace-backend/internal/apperror"
	"github.com/marketua/marketplace-backend/internal/models"
	"github.com/marketua/marketplace-backend/internal/utils"
)

type AddressRequest struct {
	City   string `json:"city" validate:"required,max=100"`
	Street string `json:"street" validate:"required,max=100"`
	Number string `json:"number" validate:"required,max=10"`
}

func (r *AddressRequest) normalize() {
	r.City = strings.TrimSpace(r.City)
	r.Street = strings.TrimSpace(r.Street)
	r.Number = strings.TrimSpace(r.Number)
}

// Validate reports field errors without the "address." prefix.
func (r *AddressRequest) Validate() error {
	r.normalize()
	return utils.ValidateStruct(r)
}

// AddressService manages the single address attached to a user or an advert.
// Every method takes the *gorm.DB to run on so callers can compose it into
// their own transaction.
type AddressService struct{}

func NewAddressService() *AddressService {
	return &AddressService{}
}

// Upsert updates the owner's address or creates one when none exists.
func (s *AddressService) Upsert(tx *gorm.DB, kind models.OwnerKind, ownerID uint, req *AddressRequest) (*models.Address, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	exists, err := models.OwnerExists(tx, kind, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to check address owner: %w", err)
	}
	if !exists {
		return nil, apperror.NotFound()
	}

	address, err := s.Get(tx, kind, ownerID)
	if err != nil {
		return nil, err
	}
	if address == nil {
		address = &models.Address{OwnerKind: kind, OwnerID: ownerID}
	}
	address.City = req.City
	address.Street = req.Street
	address.Number = req.Number

	if err := tx.Save(address).Error; err != nil {
		return nil, fmt.Errorf("failed to save address: %w", err)
	}
	return address, nil
}

// Get returns the owner's address, or nil when it has none.
func (s *AddressService) Get(tx *gorm.DB, kind models.OwnerKind, ownerID uint) (*models.Address, error) {
	var address models.Address
	err := tx.Where("owner_kind = ? AND owner_id = ?", kind, ownerID).Order("id").First(&address).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load address: %w", err)
	}
	return &address, nil
}

func (s *AddressService) DeleteFor(tx *gorm.DB, kind models.OwnerKind, ownerID uint) error {
	if err := models.DeleteAddressFor(tx, kind, ownerID); err != nil {
		return fmt.Errorf("failed to delete address: %w", err)
	}
	return nil
}

// saveWithAddress runs save and then routes the nested address, if any, to
// the entity save returned. Both happen in tx.
func (s *AddressService) saveWithAddress(tx *gorm.DB, kind models.OwnerKind, address *AddressRequest, save func(tx *gorm.DB) (uint, error)) error {
	ownerID, err := save(tx)
	if err != nil {
		return err
	}
	if address == nil {
		return nil
	}
	if _, err := s.Upsert(tx, kind, ownerID, address); err != nil {
		if appErr := apperror.As(err); appErr != nil && appErr.Kind() == apperror.KindValidation {
			return apperror.Validation().Merge("address", appErr)
		}
		return err
	}
	return nil
}
