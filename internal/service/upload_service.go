package service

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Daquiver1/veefyed/internal/config"
	"github.com/Daquiver1/veefyed/internal/ids"
	"github.com/Daquiver1/veefyed/internal/media/sniffer"
	"github.com/Daquiver1/veefyed/internal/models"
)

var (
	ErrPayloadTooLarge      = errors.New("payload too large")
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	// ErrStorageInconsistency marks the partial-failure window where a blob
	// was written but its metadata row was not, and cleanup also failed.
	ErrStorageInconsistency = errors.New("storage inconsistency")
)

// PendingMarkerPrefix namespaces the Redis keys that track in-flight blob
// writes. A marker that outlives its upload round trip is picked up by the
// reconciliation sweep.
const PendingMarkerPrefix = "pending:blob:"

// BlobStore is the durable byte storage capability. The upload service is
// the sole allocator of keys.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Exists(ctx context.Context, key string) (bool, error)
	Remove(ctx context.Context, key string) error
	Bucket() string
}

type ImageStore interface {
	Create(ctx context.Context, image models.Image) error
	GetByID(ctx context.Context, id string) (models.Image, error)
	ExistsByObjectKey(ctx context.Context, objectKey string) (bool, error)
}

type UploadService struct {
	images  ImageStore
	blobs   BlobStore
	markers *redis.Client
	cfg     *config.AppConfig
	log     zerolog.Logger
}

func NewUploadService(images ImageStore, blobs BlobStore, markers *redis.Client, cfg *config.AppConfig, log zerolog.Logger) *UploadService {
	return &UploadService{
		images:  images,
		blobs:   blobs,
		markers: markers,
		cfg:     cfg,
		log:     log,
	}
}

type UploadInput struct {
	Principal           models.Principal
	Filename            string
	Data                []byte
	DeclaredContentType string
}

// Upload validates first, writes second. No byte reaches the blob store
// until size and sniffed type have passed, and a blob write that is not
// followed by a metadata row is cleaned up or left marked for the sweep.
func (s *UploadService) Upload(ctx context.Context, input UploadInput) (models.Image, error) {
	if !input.Principal.HasScope(models.ScopeUpload) {
		return models.Image{}, ErrInsufficientScope
	}

	if int64(len(input.Data)) > s.cfg.Upload.MaxBytes {
		return models.Image{}, ErrPayloadTooLarge
	}

	head := input.Data
	if len(head) > 512 {
		head = head[:512]
	}

	result, err := sniffer.DetectHead(head)
	if err != nil {
		return models.Image{}, ErrUnsupportedMediaType
	}

	// The sniffed type is authoritative; a mismatching declaration is a
	// rejection, not a correction.
	if input.DeclaredContentType != "" && input.DeclaredContentType != result.MIME {
		return models.Image{}, ErrUnsupportedMediaType
	}

	imageID := ids.New()
	objectKey := s.buildObjectKey(imageID, string(result.Type))

	if err := s.markPending(ctx, objectKey); err != nil {
		s.log.Warn().Err(err).Str("object_key", objectKey).Msg("pending marker write failed")
	}

	if err := s.blobs.Put(ctx, objectKey, input.Data, result.MIME); err != nil {
		s.clearPending(ctx, objectKey)
		return models.Image{}, fmt.Errorf("store blob: %w", err)
	}

	sum := sha256.Sum256(input.Data)

	image := models.Image{
		ID:          imageID,
		Filename:    input.Filename,
		ContentType: result.MIME,
		SizeBytes:   int64(len(input.Data)),
		Bucket:      s.blobs.Bucket(),
		ObjectKey:   objectKey,
		Checksum:    sum[:],
	}
	now := time.Now().UTC()
	image.CreatedAt = now
	image.UpdatedAt = now

	if err := s.images.Create(ctx, image); err != nil {
		if removeErr := s.blobs.Remove(ctx, objectKey); removeErr != nil {
			// Blob and row now disagree. The marker stays so the sweep can
			// finish the cleanup.
			s.log.Error().
				Err(removeErr).
				Str("object_key", objectKey).
				Msg("orphaned blob cleanup failed")
			return models.Image{}, fmt.Errorf("%w: save metadata: %v", ErrStorageInconsistency, err)
		}
		s.clearPending(ctx, objectKey)
		return models.Image{}, fmt.Errorf("save metadata: %w", err)
	}

	s.clearPending(ctx, objectKey)

	s.log.Info().
		Str("image_id", image.ID).
		Str("credential_id", input.Principal.CredentialID).
		Int64("size_bytes", image.SizeBytes).
		Str("content_type", image.ContentType).
		Msg("image uploaded")

	return image, nil
}

func (s *UploadService) Get(ctx context.Context, principal models.Principal, imageID string) (models.Image, error) {
	if !principal.HasScope(models.ScopeUpload) {
		return models.Image{}, ErrInsufficientScope
	}
	return s.images.GetByID(ctx, imageID)
}

func (s *UploadService) buildObjectKey(imageID string, ext string) string {
	datePrefix := time.Now().UTC().Format("2006/01/02")
	return path.Join(datePrefix, fmt.Sprintf("%s.%s", imageID, ext))
}

func (s *UploadService) markPending(ctx context.Context, objectKey string) error {
	if s.markers == nil {
		return nil
	}
	stamp := time.Now().UTC().Format(time.RFC3339)
	return s.markers.Set(ctx, PendingMarkerPrefix+objectKey, stamp, s.cfg.Reconcile.MarkerTTL).Err()
}

func (s *UploadService) clearPending(ctx context.Context, objectKey string) {
	if s.markers == nil {
		return
	}
	if err := s.markers.Del(ctx, PendingMarkerPrefix+objectKey).Err(); err != nil {
		s.log.Warn().Err(err).Str("object_key", objectKey).Msg("pending marker delete failed")
	}
}
