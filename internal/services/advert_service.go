// internal/services/advert_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/marketua/marketplace-backend/internal/apperror"
	"github.com/marketua/marketplace-backend/internal/database"
	"github.com/marketua/marketplace-backend/internal/models"
	"github.com/marketua/marketplace-backend/internal/permissions"
	"github.com/marketua/marketplace-backend/internal/utils"
)

// maxPrice is the first value that no longer fits numeric(12,2).
var maxPrice = decimal.New(1, 10)

type AdvertService struct {
	db        *gorm.DB
	addresses *AddressService
	storage   *StorageService
}

type CreateAdvertRequest struct {
	Category        *uint            `json:"category" validate:"required"`
	Name            string           `json:"name" validate:"required,max=70"`
	Description     string           `json:"description" validate:"max=1024"`
	Price           *decimal.Decimal `json:"price" validate:"required"`
	Quantity        *int             `json:"quantity" validate:"omitempty,gte=1"`
	Unit            string           `json:"unit" validate:"required,oneof=piece kg g l m pack"`
	Availability    string           `json:"availability" validate:"omitempty,oneof=available on_order unavailable"`
	Location        string           `json:"location" validate:"required,max=100"`
	DeliveryMethods []string         `json:"delivery_methods" validate:"omitempty,min=1,unique_items,dive,oneof=pickup nova_post courier"`
	DeliveryComment string           `json:"delivery_comment" validate:"max=512"`
	PaymentMethods  []string         `json:"payment_methods" validate:"omitempty,min=1,unique_items,dive,oneof=card cash"`
	PaymentCard     string           `json:"payment_card" validate:"required,card_number"`
	PaymentComment  string           `json:"payment_comment" validate:"max=512"`
	Address         *AddressRequest  `json:"address"`
}

// UpdateAdvertRequest is a partial update; absent fields are left alone.
// The owner cannot be changed.
type UpdateAdvertRequest struct {
	Category        *uint            `json:"category"`
	Name            *string          `json:"name" validate:"omitempty,min=1,max=70"`
	Description     *string          `json:"description" validate:"omitempty,max=1024"`
	Price           *decimal.Decimal `json:"price"`
	Quantity        *int             `json:"quantity" validate:"omitempty,gte=1"`
	Unit            *string          `json:"unit" validate:"omitempty,oneof=piece kg g l m pack"`
	Availability    *string          `json:"availability" validate:"omitempty,oneof=available on_order unavailable"`
	Location        *string          `json:"location" validate:"omitempty,min=1,max=100"`
	DeliveryMethods []string         `json:"delivery_methods" validate:"omitempty,min=1,unique_items,dive,oneof=pickup nova_post courier"`
	DeliveryComment *string          `json:"delivery_comment" validate:"omitempty,max=512"`
	PaymentMethods  []string         `json:"payment_methods" validate:"omitempty,min=1,unique_items,dive,oneof=card cash"`
	PaymentCard     *string          `json:"payment_card" validate:"omitempty,card_number"`
	PaymentComment  *string          `json:"payment_comment" validate:"omitempty,max=512"`
	Address         *AddressRequest  `json:"address"`
}

type AdvertFilter struct {
	CategoryID *uint
	OwnerID    *uint
}

type AdvertListItem struct {
	ID        uint            `json:"id"`
	Name      string          `json:"name"`
	Category  uint            `json:"category_id"`
	Price     decimal.Decimal `json:"price"`
	MainImage *string         `json:"main_image"`
	CreatedAt time.Time       `json:"created_at"`
}

type ImageResponse struct {
	ID   uint             `json:"id"`
	File string           `json:"file"`
	URL  string           `json:"url"`
	Type models.ImageType `json:"type"`
}

type AdvertResponse struct {
	ID              uint                `json:"id"`
	Owner           uint                `json:"owner"`
	Category        uint                `json:"category"`
	Name            string              `json:"name"`
	Description     string              `json:"description"`
	Price           decimal.Decimal     `json:"price"`
	Quantity        int                 `json:"quantity"`
	Unit            models.Unit         `json:"unit"`
	Availability    models.Availability `json:"availability"`
	Location        string              `json:"location"`
	DeliveryMethods []string            `json:"delivery_methods"`
	DeliveryComment string              `json:"delivery_comment"`
	PaymentMethods  []string            `json:"payment_methods"`
	PaymentCard     string              `json:"payment_card"`
	PaymentComment  string              `json:"payment_comment"`
	Address         *models.Address     `json:"address"`
	MainImage       *ImageResponse      `json:"main_image"`
	ExtraImages     []ImageResponse     `json:"extra_images"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

func NewAdvertService(db *gorm.DB, addresses *AddressService, storage *StorageService) *AdvertService {
	return &AdvertService{
		db:        db,
		addresses: addresses,
		storage:   storage,
	}
}

func validatePrice(price decimal.Decimal, errs *apperror.Error) {
	if price.IsNegative() {
		errs.Add(apperror.CodeMinValue, "Ensure this value is greater than or equal to 0.", "price")
		return
	}
	if !price.Round(2).Equal(price) {
		errs.Add(apperror.CodeInvalid, "Ensure that there are no more than 2 decimal places.", "price")
	}
	if price.GreaterThanOrEqual(maxPrice) {
		errs.Add(apperror.CodeInvalid, "Ensure that there are no more than 12 digits in total.", "price")
	}
}

func collectValidation(req interface{}) (*apperror.Error, error) {
	errs := apperror.Validation()
	if err := utils.ValidateStruct(req); err != nil {
		appErr := apperror.As(err)
		if appErr == nil {
			return nil, err
		}
		errs.Merge("", appErr)
	}
	return errs, nil
}

func checkCategory(tx *gorm.DB, id uint) error {
	var count int64
	if err := tx.Model(&models.Category{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return apperror.Field(apperror.CodeDoesNotExist,
			fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", id), "category")
	}
	return nil
}

// List returns a page of advert summaries, newest first.
func (s *AdvertService) List(ctx context.Context, filter AdvertFilter, params utils.PaginationParams) ([]AdvertListItem, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Advert{})
	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.OwnerID != nil {
		query = query.Where("owner_id = ?", *filter.OwnerID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count adverts: %w", err)
	}

	var adverts []models.Advert
	err := utils.ApplyPagination(query.Order("created_at DESC").Order("id DESC"), params).
		Preload("Images", "type = ?", models.ImageTypeMain).
		Find(&adverts).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list adverts: %w", err)
	}

	items := make([]AdvertListItem, 0, len(adverts))
	for i := range adverts {
		item := AdvertListItem{
			ID:        adverts[i].ID,
			Name:      adverts[i].Name,
			Category:  adverts[i].CategoryID,
			Price:     adverts[i].Price,
			CreatedAt: adverts[i].CreatedAt,
		}
		if main := adverts[i].MainImage(); main != nil {
			file := main.File
			item.MainImage = &file
		}
		items = append(items, item)
	}
	return items, total, nil
}

func (s *AdvertService) Retrieve(ctx context.Context, id uint) (*AdvertResponse, error) {
	var advert models.Advert
	err := s.db.WithContext(ctx).
		Preload("Address").
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		First(&advert, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound()
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return s.toResponse(&advert), nil
}

func (s *AdvertService) toResponse(advert *models.Advert) *AdvertResponse {
	resp := &AdvertResponse{
		ID:              advert.ID,
		Owner:           advert.OwnerID,
		Category:        advert.CategoryID,
		Name:            advert.Name,
		Description:     advert.Description,
		Price:           advert.Price,
		Quantity:        advert.Quantity,
		Unit:            advert.Unit,
		Availability:    advert.Availability,
		Location:        advert.Location,
		DeliveryMethods: []string(advert.DeliveryMethods),
		DeliveryComment: advert.DeliveryComment,
		PaymentMethods:  []string(advert.PaymentMethods),
		PaymentCard:     advert.PaymentCard,
		PaymentComment:  advert.PaymentComment,
		Address:         advert.Address,
		ExtraImages:     []ImageResponse{},
		CreatedAt:       advert.CreatedAt,
		UpdatedAt:       advert.UpdatedAt,
	}
	if main := advert.MainImage(); main != nil {
		img := newImageResponse(s.storage, *main)
		resp.MainImage = &img
	}
	for _, img := range advert.ExtraImages() {
		resp.ExtraImages = append(resp.ExtraImages, newImageResponse(s.storage, img))
	}
	return resp
}

// Create stores a new advert owned by ownerID, with its address if given.
func (s *AdvertService) Create(ctx context.Context, ownerID uint, req *CreateAdvertRequest) (*AdvertResponse, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Location = strings.TrimSpace(req.Location)

	errs, err := collectValidation(req)
	if err != nil {
		return nil, err
	}
	if req.Price != nil {
		validatePrice(*req.Price, errs)
	}
	if err := errs.OrNil(); err != nil {
		return nil, err
	}

	advert := &models.Advert{
		OwnerID:         ownerID,
		CategoryID:      *req.Category,
		Name:            req.Name,
		Description:     req.Description,
		Price:           *req.Price,
		Quantity:        1,
		Unit:            models.Unit(req.Unit),
		Availability:    models.AvailabilityAvailable,
		Location:        req.Location,
		DeliveryMethods: models.StringArray{models.DeliveryCourier},
		DeliveryComment: req.DeliveryComment,
		PaymentMethods:  models.StringArray{models.PaymentCard},
		PaymentCard:     req.PaymentCard,
		PaymentComment:  req.PaymentComment,
	}
	if req.Quantity != nil {
		advert.Quantity = *req.Quantity
	}
	if req.Availability != "" {
		advert.Availability = models.Availability(req.Availability)
	}
	if len(req.DeliveryMethods) > 0 {
		advert.DeliveryMethods = models.StringArray(req.DeliveryMethods)
	}
	if len(req.PaymentMethods) > 0 {
		advert.PaymentMethods = models.StringArray(req.PaymentMethods)
	}

	err = database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		return s.addresses.saveWithAddress(tx, models.OwnerKindAdvert, req.Address, func(tx *gorm.DB) (uint, error) {
			if err := checkCategory(tx, advert.CategoryID); err != nil {
				return 0, err
			}
			if err := tx.Omit(clause.Associations).Create(advert).Error; err != nil {
				return 0, fmt.Errorf("failed to create advert: %w", err)
			}
			return advert.ID, nil
		})
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"advert_id": advert.ID,
		"owner_id":  ownerID,
	}).Info("Advert created")
	return s.Retrieve(ctx, advert.ID)
}

// Update applies a partial update. Only the owner may change an advert.
func (s *AdvertService) Update(ctx context.Context, id uint, caller *models.User, req *UpdateAdvertRequest) (*AdvertResponse, error) {
	err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		var advert models.Advert
		if err := tx.First(&advert, id).Error; err != nil {
			return err
		}
		if err := permissions.IsOwner(caller, advert.OwnerID); err != nil {
			return err
		}

		req.normalize()
		errs, err := collectValidation(req)
		if err != nil {
			return err
		}
		if req.Price != nil {
			validatePrice(*req.Price, errs)
		}
		if err := errs.OrNil(); err != nil {
			return err
		}

		return s.addresses.saveWithAddress(tx, models.OwnerKindAdvert, req.Address, func(tx *gorm.DB) (uint, error) {
			if req.Category != nil {
				if err := checkCategory(tx, *req.Category); err != nil {
					return 0, err
				}
				advert.CategoryID = *req.Category
			}
			applyAdvertUpdate(&advert, req)
			if err := tx.Omit(clause.Associations).Save(&advert).Error; err != nil {
				return 0, fmt.Errorf("failed to update advert: %w", err)
			}
			return advert.ID, nil
		})
	})
	if err != nil {
		return nil, err
	}
	return s.Retrieve(ctx, id)
}

func (r *UpdateAdvertRequest) normalize() {
	if r.Name != nil {
		name := strings.TrimSpace(*r.Name)
		r.Name = &name
	}
	if r.Location != nil {
		location := strings.TrimSpace(*r.Location)
		r.Location = &location
	}
}

func applyAdvertUpdate(advert *models.Advert, req *UpdateAdvertRequest) {
	if req.Name != nil {
		advert.Name = *req.Name
	}
	if req.Description != nil {
		advert.Description = *req.Description
	}
	if req.Price != nil {
		advert.Price = *req.Price
	}
	if req.Quantity != nil {
		advert.Quantity = *req.Quantity
	}
	if req.Unit != nil {
		advert.Unit = models.Unit(*req.Unit)
	}
	if req.Availability != nil {
		advert.Availability = models.Availability(*req.Availability)
	}
	if req.Location != nil {
		advert.Location = *req.Location
	}
	if req.DeliveryMethods != nil {
		advert.DeliveryMethods = models.StringArray(req.DeliveryMethods)
	}
	if req.DeliveryComment != nil {
		advert.DeliveryComment = *req.DeliveryComment
	}
	if req.PaymentMethods != nil {
		advert.PaymentMethods = models.StringArray(req.PaymentMethods)
	}
	if req.PaymentCard != nil {
		advert.PaymentCard = *req.PaymentCard
	}
	if req.PaymentComment != nil {
		advert.PaymentComment = *req.PaymentComment
	}
}

// Delete removes the advert, its images and its address. Stored files are
// removed once the rows are gone.
func (s *AdvertService) Delete(ctx context.Context, id uint, caller *models.User) error {
	var files []string
	err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		var advert models.Advert
		if err := tx.Preload("Images").First(&advert, id).Error; err != nil {
			return err
		}
		if err := permissions.IsOwner(caller, advert.OwnerID); err != nil {
			return err
		}

		for _, img := range advert.Images {
			files = append(files, img.File)
		}
		if err := tx.Where("advert_id = ?", advert.ID).Delete(&models.Image{}).Error; err != nil {
			return fmt.Errorf("failed to delete images: %w", err)
		}
		if err := tx.Delete(&advert).Error; err != nil {
			return fmt.Errorf("failed to delete advert: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.storage.DeleteAll(ctx, files)
	logrus.WithFields(logrus.Fields{
		"advert_id": id,
		"user_id":   caller.ID,
	}).Info("Advert deleted")
	return nil
}
