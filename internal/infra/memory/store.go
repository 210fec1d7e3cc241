package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"quiz-backend/internal/domain"
)

// Store is an in-process implementation of the user, quiz and result
// repositories. Useful for tests and for running without Postgres.
type Store struct {
	mu sync.RWMutex

	users      map[int64]domain.User
	byUsername map[string]int64
	quizzes    map[int64]domain.Quiz
	results    []domain.Result

	nextUserID     int64
	nextQuizID     int64
	nextQuestionID int64
	nextResultID   int64

	clock func() time.Time
}

func NewStore() *Store {
	return &Store{
		users:      make(map[int64]domain.User),
		byUsername: make(map[string]int64),
		quizzes:    make(map[int64]domain.Quiz),
		clock:      time.Now,
	}
}

func (s *Store) CreateUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byUsername[user.Username]; ok {
		return domain.ErrUsernameTaken
	}
	s.nextUserID++
	user.ID = s.nextUserID
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.clock().UTC()
	}
	s.users[user.ID] = *user
	s.byUsername[user.Username] = user.ID
	return nil
}

func (s *Store) UserByUsername(_ context.Context, username string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byUsername[username]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return s.users[id], nil
}

// CreateQuiz assigns ids to the quiz and its questions under one lock, so a
// quiz is never visible without its questions.
func (s *Store) CreateQuiz(_ context.Context, quiz *domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if quiz.OwnerID != nil {
		if _, ok := s.users[*quiz.OwnerID]; !ok {
			return domain.ErrUserNotFound
		}
	}
	s.nextQuizID++
	quiz.ID = s.nextQuizID
	if quiz.CreatedAt.IsZero() {
		quiz.CreatedAt = s.clock().UTC()
	}
	for i := range quiz.Questions {
		s.nextQuestionID++
		quiz.Questions[i].ID = s.nextQuestionID
		quiz.Questions[i].QuizID = quiz.ID
	}
	s.quizzes[quiz.ID] = copyQuiz(*quiz)
	return nil
}

func (s *Store) ListQuizzes(_ context.Context) ([]domain.QuizSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	summaries := make([]domain.QuizSummary, 0, len(s.quizzes))
	for _, q := range s.quizzes {
		summaries = append(summaries, domain.QuizSummary{
			ID:             q.ID,
			Title:          q.Title,
			Description:    q.Description,
			QuestionsCount: len(q.Questions),
		})
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].ID < summaries[j].ID })
	return summaries, nil
}

func (s *Store) LoadQuiz(_ context.Context, quizID int64) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return copyQuiz(quiz), nil
}

// CreateResult checks both references the way the Postgres foreign keys do.
func (s *Store) CreateResult(_ context.Context, result *domain.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[result.QuizID]; !ok {
		return domain.ErrQuizNotFound
	}
	if _, ok := s.users[result.UserID]; !ok {
		return domain.ErrUserNotFound
	}
	s.nextResultID++
	result.ID = s.nextResultID
	if result.CreatedAt.IsZero() {
		result.CreatedAt = s.clock().UTC()
	}
	s.results = append(s.results, *result)
	return nil
}

func (s *Store) ResultsByUser(_ context.Context, userID int64) ([]domain.UserResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.UserResult{}
	for _, r := range s.results {
		if r.UserID != userID {
			continue
		}
		out = append(out, domain.UserResult{
			QuizID:         r.QuizID,
			QuizTitle:      s.quizzes[r.QuizID].Title,
			Score:          r.Score,
			TotalQuestions: r.TotalQuestions,
			CreatedAt:      r.CreatedAt,
		})
	}
	return out, nil
}

// Results returns every stored result, oldest first.
func (s *Store) Results() []domain.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Result(nil), s.results...)
}

func copyQuiz(q domain.Quiz) domain.Quiz {
	questions := make([]domain.Question, len(q.Questions))
	for i, question := range q.Questions {
		question.Options = append(domain.Options(nil), question.Options...)
		questions[i] = question
	}
	q.Questions = questions
	return q
}
