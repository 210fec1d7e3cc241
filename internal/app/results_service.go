package app

import (
	"context"

	"quiz-backend/internal/domain"
)

// ResultsService reads a user's result history.
type ResultsService struct {
	results ResultRepository
}

func NewResultsService(results ResultRepository) *ResultsService {
	return &ResultsService{results: results}
}

// GetUserResults returns the user's results with quiz titles. Unknown users
// simply have no results.
func (s *ResultsService) GetUserResults(ctx context.Context, userID int64) ([]domain.UserResult, error) {
	results, err := s.results.ResultsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []domain.UserResult{}
	}
	return results, nil
}
