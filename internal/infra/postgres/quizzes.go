package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quiz-backend/internal/domain"

	"github.com/jackc/pgx/v4"
	"github.com/uptrace/bun"
)

type quizRow struct {
	bun.BaseModel `bun:"table:quizzes,alias:q"`

	ID          int64     `bun:"id,pk,autoincrement"`
	Title       string    `bun:"title,notnull"`
	Description string    `bun:"description,nullzero"`
	UserID      *int64    `bun:"user_id"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type questionRow struct {
	bun.BaseModel `bun:"table:questions,alias:qs"`

	ID            int64    `bun:"id,pk,autoincrement"`
	QuizID        int64    `bun:"quiz_id,notnull"`
	Text          string   `bun:"text,notnull"`
	Options       []string `bun:"options,array"`
	CorrectAnswer string   `bun:"correct_answer,notnull"`
}

// CreateQuiz inserts the quiz and its questions in one transaction.
func (s *Store) CreateQuiz(ctx context.Context, quiz *domain.Quiz) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		row := quizRow{
			Title:       quiz.Title,
			Description: quiz.Description,
			UserID:      quiz.OwnerID,
			CreatedAt:   quiz.CreatedAt,
		}
		if _, err := tx.NewInsert().Model(&row).Returning("id, created_at").Exec(ctx); err != nil {
			return translateError(err)
		}

		questions := make([]questionRow, 0, len(quiz.Questions))
		for _, q := range quiz.Questions {
			questions = append(questions, questionRow{
				QuizID:        row.ID,
				Text:          q.Text,
				Options:       q.Options,
				CorrectAnswer: q.CorrectAnswer,
			})
		}
		if len(questions) > 0 {
			if _, err := tx.NewInsert().Model(&questions).Returning("id").Exec(ctx); err != nil {
				return translateError(err)
			}
		}

		quiz.ID = row.ID
		quiz.CreatedAt = row.CreatedAt
		for i := range quiz.Questions {
			quiz.Questions[i].ID = questions[i].ID
			quiz.Questions[i].QuizID = row.ID
		}
		return nil
	})
}

func (s *Store) ListQuizzes(ctx context.Context) ([]domain.QuizSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT q.id, q.title, COALESCE(q.description, ''), COUNT(qs.id)
		FROM quizzes q
		LEFT JOIN questions qs ON qs.quiz_id = q.id
		GROUP BY q.id
		ORDER BY q.id`)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	summaries := []domain.QuizSummary{}
	for rows.Next() {
		var summary domain.QuizSummary
		if err := rows.Scan(&summary.ID, &summary.Title, &summary.Description, &summary.QuestionsCount); err != nil {
			return nil, fmt.Errorf("scan quiz summary: %w", err)
		}
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}

// LoadQuiz loads a quiz with its questions, including correct answers.
func (s *Store) LoadQuiz(ctx context.Context, quizID int64) (domain.Quiz, error) {
	var quiz domain.Quiz
	err := s.pool.QueryRow(ctx, `
		SELECT id, title, COALESCE(description, ''), user_id, created_at
		FROM quizzes WHERE id = $1`, quizID).
		Scan(&quiz.ID, &quiz.Title, &quiz.Description, &quiz.OwnerID, &quiz.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, text, options, correct_answer
		FROM questions WHERE quiz_id = $1
		ORDER BY id`, quizID)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		q := domain.Question{QuizID: quizID}
		var options []string
		if err := rows.Scan(&q.ID, &q.Text, &options, &q.CorrectAnswer); err != nil {
			return domain.Quiz{}, fmt.Errorf("scan question: %w", err)
		}
		q.Options = options
		quiz.Questions = append(quiz.Questions, q)
	}
	if err := rows.Err(); err != nil {
		return domain.Quiz{}, fmt.Errorf("load questions: %w", err)
	}
	return quiz, nil
}
