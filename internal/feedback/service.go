// AngelaMos | 2026
// service.go

package feedback

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/carterperez-dev/copystudio/internal/core"
	"github.com/carterperez-dev/copystudio/internal/generation"
)

// GenerationLookup resolves a generation the caller owns.
type GenerationLookup interface {
	Get(ctx context.Context, userID, id string) (*generation.Generation, error)
}

type Service struct {
	repo        Repository
	generations GenerationLookup
	logger      *slog.Logger
}

func NewService(repo Repository, generations GenerationLookup) *Service {
	return &Service{
		repo:        repo,
		generations: generations,
		logger:      slog.Default(),
	}
}

// Submit records a rating for one copy of a generation the caller owns.
// Rating the same copy again overwrites the previous rating.
func (s *Service) Submit(
	ctx context.Context,
	userID, generationID string,
	copyIndex, rating int,
) (*Feedback, error) {
	if userID == "" {
		return nil, fmt.Errorf("submit feedback: %w", core.ErrUnauthorized)
	}
	if rating < MinRating || rating > MaxRating {
		return nil, fmt.Errorf("rating must be between %d and %d: %w", MinRating, MaxRating, core.ErrInvalidInput)
	}

	g, err := s.generations.Get(ctx, userID, generationID)
	if err != nil {
		return nil, err
	}

	if copyIndex < 0 || copyIndex >= len(g.Copies) {
		return nil, fmt.Errorf("copy_index %d out of range: %w", copyIndex, core.ErrInvalidInput)
	}

	f := &Feedback{
		GenerationID: g.ID,
		CopyIndex:    copyIndex,
		UserID:       userID,
		Rating:       rating,
	}
	if err := s.repo.Upsert(ctx, f); err != nil {
		return nil, err
	}

	s.logger.Debug("feedback recorded",
		"user_id", userID,
		"generation_id", g.ID,
		"copy_index", copyIndex,
		"rating", rating,
		"updated", !f.Inserted,
	)

	return f, nil
}

func (s *Service) List(ctx context.Context, userID, generationID string) ([]Feedback, error) {
	g, err := s.generations.Get(ctx, userID, generationID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByGeneration(ctx, g.ID, userID)
}
