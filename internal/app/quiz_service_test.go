package app_test

import (
	"context"
	"testing"
	"time"

	"quiz-backend/internal/app"
	"quiz-backend/internal/auth"
	"quiz-backend/internal/domain"
	"quiz-backend/internal/infra/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fixture struct {
	store       *memory.Store
	feed        *app.ResultFeed
	accounts    *app.AccountService
	quizzes     *app.QuizService
	submissions *app.SubmissionService
	results     *app.ResultsService
}

func newFixture() *fixture {
	store := memory.NewStore()
	feed := app.NewResultFeed()
	return &fixture{
		store: store,
		feed:  feed,
		accounts: app.NewAccountService(store, auth.NewBcryptHasher(bcrypt.MinCost),
			auth.NewTokenIssuer("test-secret", time.Hour), memory.NewTokenBlacklist()),
		quizzes:     app.NewQuizService(store),
		submissions: app.NewSubmissionService(memory.NewQuizCache(store, time.Minute), store, feed),
		results:     app.NewResultsService(store),
	}
}

// newUser registers a throwaway account and returns its id.
func (f *fixture) newUser(t *testing.T, username string) int64 {
	t.Helper()
	user, err := f.accounts.Register(context.Background(), username, "pw")
	require.NoError(t, err)
	return user.ID
}

func sampleInput() domain.NewQuiz {
	return domain.NewQuiz{
		Title:       "Capitals",
		Description: "European capitals",
		Questions: []domain.NewQuestion{
			{Text: "Capital of France?", Options: domain.Options{"Paris", "Lyon"}, CorrectAnswer: "Paris"},
			{Text: "Capital of Italy?", Options: domain.Options{"Rome", "Milan"}, CorrectAnswer: "Rome"},
			{Text: "Capital of Spain?", Options: domain.Options{"Madrid", "Seville"}, CorrectAnswer: "Madrid"},
		},
	}
}

func TestCreateQuizAndList(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	id, err := f.quizzes.CreateQuiz(ctx, sampleInput(), nil)
	require.NoError(t, err)
	assert.NotZero(t, id)

	single := domain.NewQuiz{Title: "T", Questions: []domain.NewQuestion{{Text: "Q1", Options: domain.SplitOptions("A,B"), CorrectAnswer: "A"}}}
	_, err = f.quizzes.CreateQuiz(ctx, single, nil)
	require.NoError(t, err)

	list, err := f.quizzes.ListQuizzes(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 3, list[0].QuestionsCount)
	assert.Equal(t, 1, list[1].QuestionsCount)
	assert.Equal(t, "European capitals", list[0].Description)
}

func TestListQuizzesEmpty(t *testing.T) {
	list, err := newFixture().quizzes.ListQuizzes(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestCreateQuizValidation(t *testing.T) {
	ctx := context.Background()
	cases := map[string]struct {
		mutate func(*domain.NewQuiz)
		field  string
	}{
		"missing title":         {func(q *domain.NewQuiz) { q.Title = "  " }, "title"},
		"no questions":          {func(q *domain.NewQuiz) { q.Questions = nil }, "questions"},
		"empty question list":   {func(q *domain.NewQuiz) { q.Questions = []domain.NewQuestion{} }, "questions"},
		"question without text": {func(q *domain.NewQuiz) { q.Questions[1].Text = "" }, "questions[1].text"},
		"whitespace text":       {func(q *domain.NewQuiz) { q.Questions[2].Text = " \t " }, "questions[2].text"},
		"question without opts": {func(q *domain.NewQuiz) { q.Questions[2].Options = nil }, "questions[2].options"},
		"blank option":          {func(q *domain.NewQuiz) { q.Questions[0].Options = domain.Options{"Paris", ""} }, "questions[0].options[1]"},
		"missing answer":        {func(q *domain.NewQuiz) { q.Questions[0].CorrectAnswer = "" }, "questions[0].correct_answer"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture()
			input := sampleInput()
			tc.mutate(&input)

			_, err := f.quizzes.CreateQuiz(ctx, input, nil)
			require.ErrorIs(t, err, domain.ErrValidation)
			assert.Contains(t, err.Error(), tc.field)

			// Nothing is stored when any part of the input is invalid.
			list, err := f.quizzes.ListQuizzes(ctx)
			require.NoError(t, err)
			assert.Empty(t, list)
		})
	}
}

func TestCreateQuizTrimsQuestionText(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	input := sampleInput()
	input.Questions[0].Text = "  Capital of France?\n"

	id, err := f.quizzes.CreateQuiz(ctx, input, nil)
	require.NoError(t, err)

	quiz, err := f.store.LoadQuiz(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Capital of France?", quiz.Questions[0].Text)
	assert.Equal(t, "  Capital of France?\n", input.Questions[0].Text, "caller input left untouched")
}

func TestGetQuizDetailsHidesAnswers(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	id, err := f.quizzes.CreateQuiz(ctx, sampleInput(), nil)
	require.NoError(t, err)

	details, err := f.quizzes.GetQuizDetails(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Capitals", details.Title)
	require.Len(t, details.Questions, 3)
	assert.Equal(t, "Capital of France?", details.Questions[0].Text)
	assert.Len(t, details.Questions[0].Options, 2)

	_, err = f.quizzes.GetQuizDetails(ctx, id+10)
	assert.ErrorIs(t, err, domain.ErrQuizNotFound)
}

func TestCreateQuizRecordsOwner(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	owner := f.newUser(t, "author")

	id, err := f.quizzes.CreateQuiz(ctx, sampleInput(), &owner)
	require.NoError(t, err)

	quiz, err := f.store.LoadQuiz(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, quiz.OwnerID)
	assert.Equal(t, owner, *quiz.OwnerID)
}
