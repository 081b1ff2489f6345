package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Daquiver1/veefyed/internal/engine"
	"github.com/Daquiver1/veefyed/internal/models"
	"github.com/Daquiver1/veefyed/internal/repository"
)

type fakeAnalysisStore struct {
	mu   sync.Mutex
	seq  int64
	rows []models.Analysis
}

func (s *fakeAnalysisStore) Create(_ context.Context, analysis *models.Analysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	analysis.Seq = s.seq
	s.rows = append(s.rows, *analysis)
	return nil
}

func (s *fakeAnalysisStore) LatestByImage(_ context.Context, imageID string) (models.Analysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var (
		latest models.Analysis
		found  bool
	)
	for _, row := range s.rows {
		if row.ImageID != imageID || row.IsDeleted {
			continue
		}
		if !found || row.Seq > latest.Seq {
			latest = row
			found = true
		}
	}
	if !found {
		return models.Analysis{}, repository.ErrAnalysisNotFound
	}
	return latest, nil
}

type scriptedEngine struct {
	result engine.Result
	err    error
	calls  int
}

func (e *scriptedEngine) Infer(_ context.Context, _ models.Image) (engine.Result, error) {
	e.calls++
	if e.err != nil {
		return engine.Result{}, e.err
	}
	return e.result, nil
}

func goodResult() engine.Result {
	return engine.Result{
		SkinType:   models.SkinTypeCombination,
		Issues:     []models.SkinIssue{models.SkinIssueAcne, models.SkinIssueRedness},
		Confidence: 0.91,
		Version:    "v1.0.0-mock",
	}
}

func analyzePrincipal() models.Principal {
	return models.Principal{
		CredentialID: "cred-a",
		Name:         "analyzer",
		Scopes:       []models.Scope{models.ScopeAnalyze},
	}
}

func seedImage(t *testing.T, images *fakeImageStore) models.Image {
	t.Helper()
	image := models.Image{
		ID:          "img-1",
		Filename:    "face.png",
		ContentType: "image/png",
		SizeBytes:   1024,
		ObjectKey:   "2026/08/31/img-1.png",
	}
	require.NoError(t, images.Create(context.Background(), image))
	return image
}

func TestAnalyzeRecordsResult(t *testing.T) {
	images := newFakeImageStore()
	image := seedImage(t, images)
	store := &fakeAnalysisStore{}
	eng := &scriptedEngine{result: goodResult()}
	svc := NewAnalysisService(store, images, eng, zerolog.Nop())

	analysis, err := svc.Analyze(context.Background(), analyzePrincipal(), image.ID)
	require.NoError(t, err)

	assert.Equal(t, image.ID, analysis.ImageID)
	assert.Equal(t, models.SkinTypeCombination, analysis.SkinType)
	assert.InDelta(t, 0.91, analysis.Confidence, 1e-9)
	assert.Equal(t, "v1.0.0-mock", analysis.EngineVersion)
	assert.Equal(t, int64(1), analysis.Seq)
	assert.False(t, analysis.AnalyzedAt.IsZero())
}

func TestAnalyzeUnknownImage(t *testing.T) {
	images := newFakeImageStore()
	store := &fakeAnalysisStore{}
	eng := &scriptedEngine{result: goodResult()}
	svc := NewAnalysisService(store, images, eng, zerolog.Nop())

	_, err := svc.Analyze(context.Background(), analyzePrincipal(), "no-such-image")
	assert.ErrorIs(t, err, repository.ErrImageNotFound)
	assert.Zero(t, eng.calls, "engine must not run before existence is confirmed")
	assert.Empty(t, store.rows)
}

func TestAnalyzeScopeReasserted(t *testing.T) {
	images := newFakeImageStore()
	image := seedImage(t, images)
	store := &fakeAnalysisStore{}
	svc := NewAnalysisService(store, images, &scriptedEngine{result: goodResult()}, zerolog.Nop())

	principal := models.Principal{
		CredentialID: "cred-u",
		Scopes:       []models.Scope{models.ScopeUpload},
	}
	_, err := svc.Analyze(context.Background(), principal, image.ID)
	assert.ErrorIs(t, err, ErrInsufficientScope)

	_, err = svc.GetLatest(context.Background(), principal, image.ID)
	assert.ErrorIs(t, err, ErrInsufficientScope)
}

func TestAnalyzeEngineFailureLeavesNoRow(t *testing.T) {
	images := newFakeImageStore()
	image := seedImage(t, images)
	store := &fakeAnalysisStore{}
	eng := &scriptedEngine{err: errors.New("model unavailable")}
	svc := NewAnalysisService(store, images, eng, zerolog.Nop())

	_, err := svc.Analyze(context.Background(), analyzePrincipal(), image.ID)
	assert.ErrorIs(t, err, ErrAnalysisFailed)
	assert.Empty(t, store.rows, "a failed inference must not create a partial row")
}

func TestAnalyzeRejectsInvalidEngineOutput(t *testing.T) {
	images := newFakeImageStore()
	image := seedImage(t, images)

	cases := map[string]engine.Result{
		"confidence above one": {
			SkinType:   models.SkinTypeDry,
			Confidence: 1.5,
			Version:    "v2",
		},
		"confidence below zero": {
			SkinType:   models.SkinTypeDry,
			Confidence: -0.1,
			Version:    "v2",
		},
		"unknown skin type": {
			SkinType:   models.SkinType("Reptilian"),
			Confidence: 0.5,
			Version:    "v2",
		},
		"unknown issue": {
			SkinType:   models.SkinTypeDry,
			Issues:     []models.SkinIssue{models.SkinIssue("Scales")},
			Confidence: 0.5,
			Version:    "v2",
		},
		"missing version": {
			SkinType:   models.SkinTypeDry,
			Confidence: 0.5,
		},
	}

	for name, result := range cases {
		store := &fakeAnalysisStore{}
		svc := NewAnalysisService(store, images, &scriptedEngine{result: result}, zerolog.Nop())
		_, err := svc.Analyze(context.Background(), analyzePrincipal(), image.ID)
		assert.ErrorIs(t, err, ErrAnalysisFailed, name)
		assert.Empty(t, store.rows, name)
	}
}

func TestAnalyzeDedupesIssues(t *testing.T) {
	images := newFakeImageStore()
	image := seedImage(t, images)
	store := &fakeAnalysisStore{}
	result := goodResult()
	result.Issues = []models.SkinIssue{models.SkinIssueAcne, models.SkinIssueAcne, models.SkinIssueWrinkles}
	svc := NewAnalysisService(store, images, &scriptedEngine{result: result}, zerolog.Nop())

	analysis, err := svc.Analyze(context.Background(), analyzePrincipal(), image.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.SkinIssue{models.SkinIssueAcne, models.SkinIssueWrinkles}, analysis.Issues)
}

func TestLatestWinsBySequence(t *testing.T) {
	images := newFakeImageStore()
	image := seedImage(t, images)
	store := &fakeAnalysisStore{}
	eng := &scriptedEngine{result: goodResult()}
	svc := NewAnalysisService(store, images, eng, zerolog.Nop())
	ctx := context.Background()

	var last models.Analysis
	for i := 0; i < 5; i++ {
		analysis, err := svc.Analyze(ctx, analyzePrincipal(), image.ID)
		require.NoError(t, err)
		assert.Greater(t, analysis.Seq, last.Seq)
		last = analysis
	}

	latest, err := svc.GetLatest(ctx, analyzePrincipal(), image.ID)
	require.NoError(t, err)
	assert.Equal(t, last.ID, latest.ID)
	assert.Equal(t, int64(5), latest.Seq)
}

func TestGetLatestNoAnalyses(t *testing.T) {
	images := newFakeImageStore()
	image := seedImage(t, images)
	svc := NewAnalysisService(&fakeAnalysisStore{}, images, &scriptedEngine{result: goodResult()}, zerolog.Nop())

	_, err := svc.GetLatest(context.Background(), analyzePrincipal(), image.ID)
	assert.ErrorIs(t, err, repository.ErrAnalysisNotFound)
}

func TestGetLatestUnknownImage(t *testing.T) {
	svc := NewAnalysisService(&fakeAnalysisStore{}, newFakeImageStore(), &scriptedEngine{result: goodResult()}, zerolog.Nop())

	_, err := svc.GetLatest(context.Background(), analyzePrincipal(), "missing")
	assert.ErrorIs(t, err, repository.ErrImageNotFound)
}

func TestGetLatestSkipsDeletedRows(t *testing.T) {
	images := newFakeImageStore()
	image := seedImage(t, images)
	store := &fakeAnalysisStore{}
	svc := NewAnalysisService(store, images, &scriptedEngine{result: goodResult()}, zerolog.Nop())
	ctx := context.Background()

	first, err := svc.Analyze(ctx, analyzePrincipal(), image.ID)
	require.NoError(t, err)
	second, err := svc.Analyze(ctx, analyzePrincipal(), image.ID)
	require.NoError(t, err)

	store.mu.Lock()
	for i := range store.rows {
		if store.rows[i].ID == second.ID {
			store.rows[i].IsDeleted = true
		}
	}
	store.mu.Unlock()

	latest, err := svc.GetLatest(ctx, analyzePrincipal(), image.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, latest.ID)
}
