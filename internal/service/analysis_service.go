package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Daquiver1/veefyed/internal/engine"
	"github.com/Daquiver1/veefyed/internal/ids"
	"github.com/Daquiver1/veefyed/internal/models"
)

var ErrAnalysisFailed = errors.New("analysis failed")

type AnalysisStore interface {
	Create(ctx context.Context, analysis *models.Analysis) error
	LatestByImage(ctx context.Context, imageID string) (models.Analysis, error)
}

// ImageGetter is the slice of the image store this service needs: existence
// confirmation before any engine call.
type ImageGetter interface {
	GetByID(ctx context.Context, id string) (models.Image, error)
}

type AnalysisService struct {
	analyses AnalysisStore
	images   ImageGetter
	engine   engine.Engine
	log      zerolog.Logger
}

func NewAnalysisService(analyses AnalysisStore, images ImageGetter, eng engine.Engine, log zerolog.Logger) *AnalysisService {
	return &AnalysisService{
		analyses: analyses,
		images:   images,
		engine:   eng,
		log:      log,
	}
}

// Analyze runs the engine for an existing image and records the result as a
// new row. Concurrent calls for the same image may both succeed; the latest
// read is decided by insertion sequence, never by arrival order.
func (s *AnalysisService) Analyze(ctx context.Context, principal models.Principal, imageID string) (models.Analysis, error) {
	if !principal.HasScope(models.ScopeAnalyze) {
		return models.Analysis{}, ErrInsufficientScope
	}

	image, err := s.images.GetByID(ctx, imageID)
	if err != nil {
		return models.Analysis{}, err
	}

	result, err := s.engine.Infer(ctx, image)
	if err != nil {
		s.log.Error().Err(err).Str("image_id", imageID).Msg("engine inference failed")
		return models.Analysis{}, fmt.Errorf("%w: %v", ErrAnalysisFailed, err)
	}

	if err := validateResult(result); err != nil {
		s.log.Error().Err(err).Str("image_id", imageID).Str("engine_version", result.Version).Msg("engine returned invalid result")
		return models.Analysis{}, fmt.Errorf("%w: %v", ErrAnalysisFailed, err)
	}

	analysis := models.Analysis{
		ID:            ids.New(),
		ImageID:       image.ID,
		SkinType:      result.SkinType,
		Issues:        dedupeIssues(result.Issues),
		Confidence:    result.Confidence,
		EngineVersion: result.Version,
		AnalyzedAt:    time.Now().UTC(),
	}

	if err := s.analyses.Create(ctx, &analysis); err != nil {
		return models.Analysis{}, err
	}

	s.log.Info().
		Str("analysis_id", analysis.ID).
		Str("image_id", image.ID).
		Str("credential_id", principal.CredentialID).
		Int64("seq", analysis.Seq).
		Msg("analysis recorded")

	return analysis, nil
}

// GetLatest returns the most recently created non-deleted analysis for an
// image. The image must still exist; otherwise the id leaks nothing.
func (s *AnalysisService) GetLatest(ctx context.Context, principal models.Principal, imageID string) (models.Analysis, error) {
	if !principal.HasScope(models.ScopeAnalyze) {
		return models.Analysis{}, ErrInsufficientScope
	}

	if _, err := s.images.GetByID(ctx, imageID); err != nil {
		return models.Analysis{}, err
	}

	return s.analyses.LatestByImage(ctx, imageID)
}

func validateResult(result engine.Result) error {
	validType := false
	for _, t := range models.SkinTypes {
		if result.SkinType == t {
			validType = true
			break
		}
	}
	if !validType {
		return fmt.Errorf("unknown skin type %q", result.SkinType)
	}

	for _, issue := range result.Issues {
		known := false
		for _, i := range models.SkinIssues {
			if issue == i {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("unknown issue %q", issue)
		}
	}

	if result.Confidence < 0 || result.Confidence > 1 {
		return fmt.Errorf("confidence %v out of range", result.Confidence)
	}
	if result.Version == "" {
		return errors.New("missing engine version")
	}
	return nil
}

func dedupeIssues(issues []models.SkinIssue) []models.SkinIssue {
	seen := make(map[models.SkinIssue]struct{}, len(issues))
	out := make([]models.SkinIssue, 0, len(issues))
	for _, issue := range issues {
		if _, dup := seen[issue]; dup {
			continue
		}
		seen[issue] = struct{}{}
		out = append(out, issue)
	}
	return out
}
