// internal/handlers/image.go
package handlers

import (
	"fmt"
	"mime/multipart"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/marketua/marketplace-backend/internal/apperror"
	"github.com/marketua/marketplace-backend/internal/services"
	"github.com/marketua/marketplace-backend/internal/utils"
)

type ImageHandler struct {
	imageService *services.ImageService
}

func NewImageHandler(imageService *services.ImageService) *ImageHandler {
	return &ImageHandler{
		imageService: imageService,
	}
}

// POST /images/multiple-create
// Multipart form: advert, files (repeated), types (repeated, same order).
func (h *ImageHandler) MultipleCreate(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		utils.ErrorResponse(c, apperror.Wrap(apperror.KindValidation, err, apperror.CodeParseError,
			"Multipart form parse error."))
		return
	}

	batch := &services.ImageBatch{Types: form.Value["types"]}
	if values := form.Value["advert"]; len(values) > 0 && values[0] != "" {
		id, err := strconv.ParseUint(values[0], 10, 64)
		if err != nil {
			utils.ErrorResponse(c, apperror.Field(apperror.CodeInvalid,
				fmt.Sprintf("Incorrect type. Expected pk value, received %q.", values[0]), "advert"))
			return
		}
		batch.AdvertID = uint(id)
	}

	var opened []multipart.File
	defer func() {
		for _, f := range opened {
			f.Close()
		}
	}()
	for _, header := range form.File["files"] {
		file, err := header.Open()
		if err != nil {
			utils.ErrorResponse(c, fmt.Errorf("failed to open upload %s: %w", header.Filename, err))
			return
		}
		opened = append(opened, file)
		batch.Files = append(batch.Files, services.Upload{
			Filename: header.Filename,
			Size:     header.Size,
			Reader:   file,
		})
	}

	images, err := h.imageService.MultiCreate(c.Request.Context(), utils.GetUserFromContext(c), batch)
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, images)
}

// POST /images/multiple-delete
func (h *ImageHandler) MultipleDelete(c *gin.Context) {
	var req services.DeleteImagesRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.imageService.MultiDelete(c.Request.Context(), utils.GetUserFromContext(c), &req); err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	utils.NoContentResponse(c)
}
