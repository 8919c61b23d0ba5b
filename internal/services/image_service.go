// internal/services/image_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/marketua/marketplace-backend/internal/apperror"
	"github.com/marketua/marketplace-backend/internal/database"
	"github.com/marketua/marketplace-backend/internal/models"
	"github.com/marketua/marketplace-backend/internal/permissions"
)

type ImageService struct {
	db      *gorm.DB
	storage *StorageService
}

// ImageBatch pairs every uploaded file with the image type at the same index.
type ImageBatch struct {
	AdvertID uint
	Files    []Upload
	Types    []string
}

type DeleteImagesRequest struct {
	Advert    uint     `json:"advert"`
	Filenames []string `json:"filenames"`
}

func NewImageService(db *gorm.DB, storage *StorageService) *ImageService {
	return &ImageService{
		db:      db,
		storage: storage,
	}
}

func newImageResponse(storage *StorageService, img models.Image) ImageResponse {
	return ImageResponse{ID: img.ID, File: img.File, URL: storage.URL(img.File), Type: img.Type}
}

func imageConflict() *apperror.Error {
	return apperror.New(apperror.KindValidation, apperror.CodeImageConflict, "An advert can have only one MAIN image.")
}

// validate checks the whole batch before anything is stored.
// imageCreateError reports a duplicate key as image_conflict only for MAIN
// rows, where the one-main-per-advert index is the one that can fire.
func imageCreateError(err error, imageType models.ImageType) error {
	if imageType == models.ImageTypeMain && errors.Is(err, gorm.ErrDuplicatedKey) {
		return imageConflict()
	}
	return fmt.Errorf("failed to create image: %w", err)
}

func (b *ImageBatch) validate() error {
	errs := apperror.Validation()
	if b.AdvertID == 0 {
		errs.Add(apperror.CodeRequired, "This field is required.", "advert")
	}
	if len(b.Files) == 0 {
		errs.Add(apperror.CodeRequired, "No file was submitted.", "files")
	}
	if err := errs.OrNil(); err != nil {
		return err
	}

	if len(b.Files) != len(b.Types) {
		return apperror.New(apperror.KindValidation, apperror.CodeInvalidQuantity,
			fmt.Sprintf("Got %d files but %d types; every file needs exactly one type.", len(b.Files), len(b.Types)))
	}

	mains := 0
	for i, t := range b.Types {
		imageType := models.ImageType(t)
		if !imageType.IsValid() {
			errs.Add(apperror.CodeInvalidChoice, fmt.Sprintf("\"%s\" is not a valid choice.", t), fmt.Sprintf("types.%d", i))
			continue
		}
		if imageType == models.ImageTypeMain {
			mains++
		}
	}
	for i, f := range b.Files {
		if err := CheckImage(f.Filename, f.Size); err != nil {
			errs.Add(apperror.CodeInvalid, err.Error(), fmt.Sprintf("files.%d", i))
		}
	}
	if err := errs.OrNil(); err != nil {
		return err
	}

	if mains > 1 {
		return imageConflict()
	}
	return nil
}

func (b *ImageBatch) hasMain() bool {
	for _, t := range b.Types {
		if models.ImageType(t) == models.ImageTypeMain {
			return true
		}
	}
	return false
}

// loadOwnedAdvert resolves the advert referenced by a request body and checks
// that caller owns it.
func loadOwnedAdvert(tx *gorm.DB, caller *models.User, advertID uint) (*models.Advert, error) {
	var advert models.Advert
	if err := tx.First(&advert, advertID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Field(apperror.CodeDoesNotExist,
				fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", advertID), "advert")
		}
		return nil, err
	}
	if err := permissions.IsOwner(caller, advert.OwnerID); err != nil {
		return nil, err
	}
	return &advert, nil
}

// MultiCreate stores every file of the batch and creates one image per file,
// or creates nothing at all.
func (s *ImageService) MultiCreate(ctx context.Context, caller *models.User, batch *ImageBatch) ([]ImageResponse, error) {
	if err := batch.validate(); err != nil {
		return nil, err
	}

	var (
		stored  []string
		created []models.Image
	)
	err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		advert, err := loadOwnedAdvert(tx, caller, batch.AdvertID)
		if err != nil {
			return err
		}

		if batch.hasMain() {
			var mains int64
			err := tx.Model(&models.Image{}).
				Where("advert_id = ? AND type = ?", advert.ID, models.ImageTypeMain).
				Count(&mains).Error
			if err != nil {
				return err
			}
			if mains > 0 {
				return imageConflict()
			}
		}

		for i, upload := range batch.Files {
			key, err := s.storage.Save(ctx, ImageKey(advert.ID, upload.Filename), upload)
			if err != nil {
				return fmt.Errorf("failed to store %s: %w", upload.Filename, err)
			}
			stored = append(stored, key)

			image := models.Image{AdvertID: advert.ID, File: key, Type: models.ImageType(batch.Types[i])}
			if err := tx.Create(&image).Error; err != nil {
				return imageCreateError(err, image.Type)
			}
			created = append(created, image)
		}
		return nil
	})
	if err != nil {
		s.storage.DeleteAll(context.WithoutCancel(ctx), stored)
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"advert_id": batch.AdvertID,
		"count":     len(created),
	}).Info("Images created")

	out := make([]ImageResponse, 0, len(created))
	for _, img := range created {
		out = append(out, newImageResponse(s.storage, img))
	}
	return out, nil
}

// MultiDelete removes the named images of an advert. Every name must belong
// to that advert or nothing is deleted.
func (s *ImageService) MultiDelete(ctx context.Context, caller *models.User, req *DeleteImagesRequest) error {
	errs := apperror.Validation()
	if req.Advert == 0 {
		errs.Add(apperror.CodeRequired, "This field is required.", "advert")
	}
	if len(req.Filenames) == 0 {
		errs.Add(apperror.CodeRequired, "This list may not be empty.", "filenames")
	}
	if err := errs.OrNil(); err != nil {
		return err
	}

	var files []string
	err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		advert, err := loadOwnedAdvert(tx, caller, req.Advert)
		if err != nil {
			return err
		}

		var images []models.Image
		if err := tx.Where("advert_id = ? AND file IN ?", advert.ID, req.Filenames).Find(&images).Error; err != nil {
			return err
		}

		found := make(map[string]struct{}, len(images))
		for _, img := range images {
			found[img.File] = struct{}{}
		}
		var offenders []string
		for _, name := range req.Filenames {
			if _, ok := found[name]; !ok {
				offenders = append(offenders, name)
			}
		}
		if len(offenders) > 0 {
			sort.Strings(offenders)
			return apperror.Field(apperror.CodeInvalidFilename,
				fmt.Sprintf("Files do not belong to the advert: %s.", strings.Join(offenders, ", ")), "filenames")
		}

		ids := make([]uint, 0, len(images))
		for _, img := range images {
			ids = append(ids, img.ID)
			files = append(files, img.File)
		}
		return tx.Where("id IN ?", ids).Delete(&models.Image{}).Error
	})
	if err != nil {
		return err
	}

	s.storage.DeleteAll(ctx, files)
	logrus.WithFields(logrus.Fields{
		"advert_id": req.Advert,
		"count":     len(files),
	}).Info("Images deleted")
	return nil
}
