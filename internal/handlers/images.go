package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Daquiver1/veefyed/internal/media/sniffer"
	"github.com/Daquiver1/veefyed/internal/middleware"
	"github.com/Daquiver1/veefyed/internal/models"
	"github.com/Daquiver1/veefyed/internal/repository"
	"github.com/Daquiver1/veefyed/internal/service"
)

type imageResponse struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"contentType"`
	SizeBytes   int64     `json:"sizeBytes"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toImageResponse(image models.Image) imageResponse {
	return imageResponse{
		ID:          image.ID,
		Filename:    image.Filename,
		ContentType: image.ContentType,
		SizeBytes:   image.SizeBytes,
		CreatedAt:   image.CreatedAt,
		UpdatedAt:   image.UpdatedAt,
	}
}

func (h HandlerSet) UploadImage(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file_required"})
		return
	}
	defer file.Close()

	// Read one byte past the ceiling so oversized payloads are rejected
	// without buffering the whole body.
	data, err := io.ReadAll(io.LimitReader(file, h.cfg.Upload.MaxBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read_failed"})
		return
	}

	image, err := h.uploads.Upload(c.Request.Context(), service.UploadInput{
		Principal:           principal,
		Filename:            header.Filename,
		Data:                data,
		DeclaredContentType: sniffer.MimeTypeFromHTTP(http.Header(header.Header)),
	})
	if err != nil {
		h.writeUploadError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"image": toImageResponse(image)})
}

func (h HandlerSet) GetImage(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	image, err := h.uploads.Get(c.Request.Context(), principal, c.Param("imageId"))
	if err != nil {
		if errors.Is(err, repository.ErrImageNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		if errors.Is(err, service.ErrInsufficientScope) {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		h.log.Error().Err(err).Msg("get image failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_server_error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"image": toImageResponse(image)})
}

func (h HandlerSet) writeUploadError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPayloadTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "payload_too_large"})
	case errors.Is(err, service.ErrUnsupportedMediaType):
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "unsupported_media_type"})
	case errors.Is(err, service.ErrInsufficientScope):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, service.ErrStorageInconsistency):
		h.log.Error().Err(err).Msg("upload left storage inconsistent")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_server_error"})
	default:
		h.log.Error().Err(err).Msg("upload failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_server_error"})
	}
}
