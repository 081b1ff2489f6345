package engine

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/Daquiver1/veefyed/internal/models"
)

const mockVersion = "v1.0.0-mock"

// MockEngine produces random but well-formed results, for development and
// load testing without a real model.
type MockEngine struct{}

func NewMockEngine() *MockEngine {
	return &MockEngine{}
}

func (e *MockEngine) Infer(_ context.Context, _ models.Image) (Result, error) {
	skinType, err := pick(models.SkinTypes)
	if err != nil {
		return Result{}, err
	}

	issueCount, err := randInt(3)
	if err != nil {
		return Result{}, err
	}
	issues, err := sample(models.SkinIssues, issueCount+1)
	if err != nil {
		return Result{}, err
	}

	confidence, err := randFloat()
	if err != nil {
		return Result{}, err
	}
	// Confidence stays in [0.75, 0.98], rounded to two decimals.
	confidence = math.Round((0.75+confidence*0.23)*100) / 100

	return Result{
		SkinType:   skinType,
		Issues:     issues,
		Confidence: confidence,
		Version:    mockVersion,
	}, nil
}

func pick[T any](options []T) (T, error) {
	var zero T
	idx, err := randInt(len(options))
	if err != nil {
		return zero, err
	}
	return options[idx], nil
}

func sample[T any](options []T, n int) ([]T, error) {
	pool := make([]T, len(options))
	copy(pool, options)
	if n > len(pool) {
		n = len(pool)
	}

	out := make([]T, 0, n)
	for i := 0; i < n; i++ {
		idx, err := randInt(len(pool))
		if err != nil {
			return nil, err
		}
		out = append(out, pool[idx])
		pool = append(pool[:idx], pool[idx+1:]...)
	}
	return out, nil
}

func randInt(n int) (int, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, fmt.Errorf("read entropy: %w", err)
	}
	return int(binary.BigEndian.Uint64(buf[:]) % uint64(n)), nil
}

func randFloat() (float64, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, fmt.Errorf("read entropy: %w", err)
	}
	return float64(binary.BigEndian.Uint64(buf[:])>>11) / float64(1<<53), nil
}
