package postgres

import (
	"context"
	"fmt"
	"time"

	"quiz-backend/internal/domain"

	"github.com/uptrace/bun"
)

type resultRow struct {
	bun.BaseModel `bun:"table:results,alias:r"`

	ID             int64     `bun:"id,pk,autoincrement"`
	QuizID         int64     `bun:"quiz_id,notnull"`
	UserID         int64     `bun:"user_id,notnull"`
	Score          int       `bun:"score,notnull"`
	TotalQuestions int       `bun:"total_questions,notnull"`
	CreatedAt      time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

func (s *Store) CreateResult(ctx context.Context, result *domain.Result) error {
	row := resultRow{
		QuizID:         result.QuizID,
		UserID:         result.UserID,
		Score:          result.Score,
		TotalQuestions: result.TotalQuestions,
	}
	if _, err := s.db.NewInsert().Model(&row).Returning("id, created_at").Exec(ctx); err != nil {
		return translateError(err)
	}
	result.ID = row.ID
	result.CreatedAt = row.CreatedAt
	return nil
}

// ResultsByUser returns the user's results joined with quiz titles, oldest first.
func (s *Store) ResultsByUser(ctx context.Context, userID int64) ([]domain.UserResult, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT r.quiz_id, q.title, r.score, r.total_questions, r.created_at
		FROM results r
		JOIN quizzes q ON q.id = r.quiz_id
		WHERE r.user_id = $1
		ORDER BY r.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	results := []domain.UserResult{}
	for rows.Next() {
		var r domain.UserResult
		if err := rows.Scan(&r.QuizID, &r.QuizTitle, &r.Score, &r.TotalQuestions, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
