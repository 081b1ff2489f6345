package engine

import (
	"context"

	"github.com/Daquiver1/veefyed/internal/models"
)

// Result is the output contract of an analysis engine run.
type Result struct {
	SkinType   models.SkinType
	Issues     []models.SkinIssue
	Confidence float64
	Version    string
}

// Engine produces a classification for a stored image. Implementations may
// be model-backed or mocked; callers only see this contract.
type Engine interface {
	Infer(ctx context.Context, image models.Image) (Result, error)
}
