package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Daquiver1/veefyed/internal/middleware"
	"github.com/Daquiver1/veefyed/internal/models"
	"github.com/Daquiver1/veefyed/internal/repository"
	"github.com/Daquiver1/veefyed/internal/service"
)

type analysisResponse struct {
	ID            string    `json:"id"`
	ImageID       string    `json:"imageId"`
	SkinType      string    `json:"skinType"`
	Issues        []string  `json:"issues"`
	Confidence    float64   `json:"confidence"`
	EngineVersion string    `json:"engineVersion"`
	AnalyzedAt    time.Time `json:"analyzedAt"`
	CreatedAt     time.Time `json:"createdAt"`
}

func toAnalysisResponse(analysis models.Analysis) analysisResponse {
	issues := make([]string, 0, len(analysis.Issues))
	for _, issue := range analysis.Issues {
		issues = append(issues, string(issue))
	}
	return analysisResponse{
		ID:            analysis.ID,
		ImageID:       analysis.ImageID,
		SkinType:      string(analysis.SkinType),
		Issues:        issues,
		Confidence:    analysis.Confidence,
		EngineVersion: analysis.EngineVersion,
		AnalyzedAt:    analysis.AnalyzedAt,
		CreatedAt:     analysis.CreatedAt,
	}
}

func (h HandlerSet) AnalyzeImage(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	analysis, err := h.analyses.Analyze(c.Request.Context(), principal, c.Param("imageId"))
	if err != nil {
		h.writeAnalysisError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"analysis": toAnalysisResponse(analysis)})
}

func (h HandlerSet) GetLatestAnalysis(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	analysis, err := h.analyses.GetLatest(c.Request.Context(), principal, c.Param("imageId"))
	if err != nil {
		h.writeAnalysisError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"analysis": toAnalysisResponse(analysis)})
}

func (h HandlerSet) writeAnalysisError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrImageNotFound), errors.Is(err, repository.ErrAnalysisNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	case errors.Is(err, service.ErrInsufficientScope):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, service.ErrAnalysisFailed):
		h.log.Error().Err(err).Msg("analysis failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "analysis_failed"})
	default:
		h.log.Error().Err(err).Msg("analysis request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_server_error"})
	}
}
