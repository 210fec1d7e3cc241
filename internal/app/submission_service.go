package app

import (
	"context"

	"quiz-backend/internal/domain"
)

// QuizCache serves quiz answer keys for scoring (from cache/backing store).
type QuizCache interface {
	GetQuiz(ctx context.Context, quizID int64) (domain.Quiz, error)
}

// ResultRepository is the append-only store of scored attempts.
type ResultRepository interface {
	CreateResult(ctx context.Context, result *domain.Result) error
	ResultsByUser(ctx context.Context, userID int64) ([]domain.UserResult, error)
}

// SubmissionService scores answer submissions and records results.
type SubmissionService struct {
	quizzes QuizCache
	results ResultRepository
	feed    *ResultFeed
}

// NewSubmissionService wires the scorer. feed may be nil.
func NewSubmissionService(quizzes QuizCache, results ResultRepository, feed *ResultFeed) *SubmissionService {
	return &SubmissionService{quizzes: quizzes, results: results, feed: feed}
}

// SubmitQuiz scores answers (question id -> submitted answer) against the quiz
// and persists one Result.
func (s *SubmissionService) SubmitQuiz(ctx context.Context, quizID, userID int64, answers map[int64]string) (domain.Result, error) {
	if userID <= 0 {
		return domain.Result{}, domain.Validationf("user_id is required")
	}

	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Result{}, err
	}

	result := domain.Result{
		QuizID:         quizID,
		UserID:         userID,
		Score:          scoreAnswers(quiz.Questions, answers),
		TotalQuestions: len(quiz.Questions),
	}
	if err := s.results.CreateResult(ctx, &result); err != nil {
		return domain.Result{}, err
	}

	if s.feed != nil {
		s.feed.Publish(result)
	}
	return result, nil
}

// scoreAnswers counts questions whose submitted answer equals the stored one
// exactly. Unanswered questions score nothing.
func scoreAnswers(questions []domain.Question, answers map[int64]string) int {
	score := 0
	for _, q := range questions {
		if answer, ok := answers[q.ID]; ok && answer == q.CorrectAnswer {
			score++
		}
	}
	return score
}
