package app

import (
	"context"
	"strings"
	"time"

	"quiz-backend/internal/domain"
)

// QuizRepository stores quizzes together with their questions.
type QuizRepository interface {
	// CreateQuiz writes the quiz and all of its questions atomically and
	// fills in the generated ids.
	CreateQuiz(ctx context.Context, quiz *domain.Quiz) error
	ListQuizzes(ctx context.Context) ([]domain.QuizSummary, error)
	// LoadQuiz returns the quiz with its questions or domain.ErrQuizNotFound.
	LoadQuiz(ctx context.Context, quizID int64) (domain.Quiz, error)
}

// QuizService contains the quiz authoring and browsing use cases.
type QuizService struct {
	quizzes QuizRepository
	now     func() time.Time
}

func NewQuizService(quizzes QuizRepository) *QuizService {
	return &QuizService{quizzes: quizzes, now: time.Now}
}

// CreateQuiz validates the whole input before anything is written, then stores
// the quiz and its questions as one unit. ownerID may be nil.
func (s *QuizService) CreateQuiz(ctx context.Context, input domain.NewQuiz, ownerID *int64) (int64, error) {
	input.Title = strings.TrimSpace(input.Title)
	if input.Questions != nil {
		questions := make([]domain.NewQuestion, len(input.Questions))
		for i, q := range input.Questions {
			q.Text = strings.TrimSpace(q.Text)
			questions[i] = q
		}
		input.Questions = questions
	}
	if err := validateStruct(input); err != nil {
		return 0, err
	}

	quiz := domain.Quiz{
		Title:       input.Title,
		Description: input.Description,
		OwnerID:     ownerID,
		CreatedAt:   s.now().UTC(),
		Questions:   make([]domain.Question, 0, len(input.Questions)),
	}
	for _, q := range input.Questions {
		quiz.Questions = append(quiz.Questions, domain.Question{
			Text:          q.Text,
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
		})
	}

	if err := s.quizzes.CreateQuiz(ctx, &quiz); err != nil {
		return 0, err
	}
	return quiz.ID, nil
}

// ListQuizzes returns every quiz with its question count.
func (s *QuizService) ListQuizzes(ctx context.Context) ([]domain.QuizSummary, error) {
	summaries, err := s.quizzes.ListQuizzes(ctx)
	if err != nil {
		return nil, err
	}
	if summaries == nil {
		summaries = []domain.QuizSummary{}
	}
	return summaries, nil
}

// GetQuizDetails returns the quiz-taker view of a quiz, without correct answers.
func (s *QuizService) GetQuizDetails(ctx context.Context, quizID int64) (domain.QuizDetails, error) {
	quiz, err := s.quizzes.LoadQuiz(ctx, quizID)
	if err != nil {
		return domain.QuizDetails{}, err
	}

	details := domain.QuizDetails{
		ID:          quiz.ID,
		Title:       quiz.Title,
		Description: quiz.Description,
		Questions:   make([]domain.QuestionView, 0, len(quiz.Questions)),
	}
	for _, q := range quiz.Questions {
		details.Questions = append(details.Questions, domain.QuestionView{
			ID:      q.ID,
			Text:    q.Text,
			Options: q.Options,
		})
	}
	return details, nil
}
