package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/compario/backend/internal/domain"
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
}

type uploadResponse struct {
	Success bool `json:"success"`
	*domain.ProductIdentification
}

// UploadImage validates the uploaded image and identifies the product in it.
// Provider failures are reported as 200 with success=false.
func (h *Handler) UploadImage(c *gin.Context) {
	image, err := h.readImage(c)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrImageMissing):
			failure(c, http.StatusBadRequest, "No image provided")
		case errors.Is(err, domain.ErrImageTooLarge):
			failure(c, http.StatusBadRequest, tooLargeMessage(h.maxUploadBytes))
		case errors.Is(err, domain.ErrUnsupportedImageType):
			failure(c, http.StatusBadRequest, "Invalid format (JPG/PNG only)")
		default:
			h.internalError(c, err, "failed to read uploaded image")
		}
		return
	}

	result, err := h.vision.Detect(c.Request.Context(), image)
	if err != nil {
		var providerErr *domain.ProviderError
		switch {
		case errors.Is(err, domain.ErrProviderUnavailable):
			h.logger.Error().Err(err).Msg("no vision provider available")
			failure(c, http.StatusServiceUnavailable, "No vision service configured.")
		case errors.As(err, &providerErr):
			h.logger.Error().
				Err(err).
				Str("provider", providerErr.Provider).
				Int("status", providerErr.StatusCode).
				Msg("vision provider failed")
			failure(c, http.StatusOK, providerErr.Message)
		default:
			h.internalError(c, err, "image upload error")
		}
		return
	}

	c.JSON(http.StatusOK, uploadResponse{Success: true, ProductIdentification: result})
}

// readImage returns the bytes of the "image" form file after checking its
// size and declared content type
func (h *Handler) readImage(c *gin.Context) ([]byte, error) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		return nil, domain.ErrImageMissing
	}
	if fileHeader.Size > h.maxUploadBytes {
		return nil, domain.ErrImageTooLarge
	}

	contentType := strings.ToLower(strings.TrimSpace(fileHeader.Header.Get("Content-Type")))
	if !allowedImageTypes[contentType] {
		return nil, domain.ErrUnsupportedImageType
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	image, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(image)) > h.maxUploadBytes {
		return nil, domain.ErrImageTooLarge
	}
	return image, nil
}

func tooLargeMessage(maxBytes int64) string {
	return fmt.Sprintf("Image too large (max %dMB)", maxBytes/(1024*1024))
}
