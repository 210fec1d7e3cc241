package integration

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"quiz-backend/internal/app"
	"quiz-backend/internal/auth"
	"quiz-backend/internal/domain"
	"quiz-backend/internal/infra/postgres"
	pgmigrations "quiz-backend/internal/infra/postgres/migrations"
	infraredis "quiz-backend/internal/infra/redis"
	transport "quiz-backend/internal/transport/http"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"golang.org/x/crypto/bcrypt"
)

func TestQuizFlowEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	migrateSchema(t, ctx, pgURL)

	store, err := postgres.Open(ctx, pgURL)
	require.NoError(t, err, "open store")
	defer store.Close()

	redisClient, err := redisClientFromURL(redisURL)
	require.NoError(t, err, "redis client")
	defer redisClient.Close()

	feed := app.NewResultFeed()
	services := transport.Services{
		Accounts: app.NewAccountService(store, auth.NewBcryptHasher(bcrypt.MinCost),
			auth.NewTokenIssuer("integration-secret", time.Hour), infraredis.NewTokenBlacklist(redisClient)),
		Quizzes:     app.NewQuizService(store),
		Submissions: app.NewSubmissionService(infraredis.NewQuizCache(redisClient, store, 5*time.Minute), store, feed),
		Results:     app.NewResultsService(store),
		Feed:        feed,
	}
	gin.SetMode(gin.TestMode)
	server := httptest.NewServer(transport.NewRouter(services, transport.Options{}))
	defer server.Close()

	creds := map[string]string{"username": "alice", "password": "secret"}
	var registered struct {
		UserID int64 `json:"user_id"`
	}
	postJSON(t, server.URL+"/register", creds, http.StatusCreated, &registered)
	postJSON(t, server.URL+"/register", creds, http.StatusBadRequest, nil)

	var created struct {
		QuizID int64 `json:"quiz_id"`
	}
	postJSON(t, server.URL+"/quizzes", map[string]any{
		"title": "Letters",
		"questions": []map[string]any{
			{"text": "First letter?", "options": "A,B", "correct_answer": "A"},
			{"text": "Last letter?", "options": []string{"Y", "Z"}, "correct_answer": "Z"},
		},
	}, http.StatusCreated, &created)

	var details domain.QuizDetails
	getJSON(t, fmt.Sprintf("%s/quizzes/%d", server.URL, created.QuizID), http.StatusOK, &details)
	require.Len(t, details.Questions, 2)
	assert.Equal(t, "First letter?", details.Questions[0].Text)
	assert.Equal(t, []string{"A", "B"}, []string(details.Questions[0].Options))

	answers := map[string]string{
		fmt.Sprint(details.Questions[0].ID): "A",
		fmt.Sprint(details.Questions[1].ID): "Y",
	}
	var scored struct {
		Score          int `json:"score"`
		TotalQuestions int `json:"total_questions"`
	}
	postJSON(t, fmt.Sprintf("%s/quizzes/%d/submit", server.URL, created.QuizID),
		map[string]any{"user_id": registered.UserID, "answers": answers}, http.StatusOK, &scored)
	assert.Equal(t, 1, scored.Score)
	assert.Equal(t, 2, scored.TotalQuestions)

	// The answer key is now cached in redis.
	cached, err := redisClient.HLen(ctx, fmt.Sprintf("quiz:%d:answers", created.QuizID)).Result()
	require.NoError(t, err)
	assert.EqualValues(t, 2, cached)

	postJSON(t, server.URL+"/quizzes/9999/submit",
		map[string]any{"user_id": registered.UserID, "answers": answers}, http.StatusNotFound, nil)
	postJSON(t, fmt.Sprintf("%s/quizzes/%d/submit", server.URL, created.QuizID),
		map[string]any{"user_id": 9999, "answers": answers}, http.StatusNotFound, nil)

	var results []domain.UserResult
	getJSON(t, fmt.Sprintf("%s/users/%d/results", server.URL, registered.UserID), http.StatusOK, &results)
	require.Len(t, results, 1)
	assert.Equal(t, "Letters", results[0].QuizTitle)
	assert.Equal(t, 1, results[0].Score)
}

func TestStoreTranslatesConstraintViolations(t *testing.T) {
	ctx := context.Background()
	store := openMigratedStore(t, ctx)

	user := domain.User{Username: "bob", PasswordHash: "hash"}
	require.NoError(t, store.CreateUser(ctx, &user))
	dup := domain.User{Username: "bob", PasswordHash: "hash"}
	assert.ErrorIs(t, store.CreateUser(ctx, &dup), domain.ErrUsernameTaken)

	assert.ErrorIs(t, store.CreateResult(ctx, &domain.Result{QuizID: 404, UserID: user.ID}), domain.ErrQuizNotFound)
	_, err := store.LoadQuiz(ctx, 404)
	assert.ErrorIs(t, err, domain.ErrQuizNotFound)
	_, err = store.UserByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	owner := user.ID
	quiz := domain.Quiz{Title: "Owned", OwnerID: &owner, Questions: []domain.Question{
		{Text: "q", Options: domain.Options{"x"}, CorrectAnswer: "x"},
	}}
	require.NoError(t, store.CreateQuiz(ctx, &quiz))
	assert.ErrorIs(t, store.CreateResult(ctx, &domain.Result{QuizID: quiz.ID, UserID: 404}), domain.ErrUserNotFound)

	missing := int64(404)
	orphan := domain.Quiz{Title: "Orphan", OwnerID: &missing, Questions: quiz.Questions}
	assert.ErrorIs(t, store.CreateQuiz(ctx, &orphan), domain.ErrUserNotFound)

	summaries, err := store.ListQuizzes(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, 1, summaries[0].QuestionsCount)
}

func TestCreateQuizRollsBackOnQuestionFailure(t *testing.T) {
	ctx := context.Background()
	store := openMigratedStore(t, ctx)

	_, err := store.DB().ExecContext(ctx,
		"ALTER TABLE questions ADD CONSTRAINT questions_text_not_rejected CHECK (text <> 'rejected')")
	require.NoError(t, err)

	quiz := domain.Quiz{Title: "Half written", Questions: []domain.Question{
		{Text: "accepted", Options: domain.Options{"x"}, CorrectAnswer: "x"},
		{Text: "rejected", Options: domain.Options{"y"}, CorrectAnswer: "y"},
	}}
	require.Error(t, store.CreateQuiz(ctx, &quiz))
	assert.Zero(t, quiz.ID)

	summaries, err := store.ListQuizzes(ctx)
	require.NoError(t, err)
	assert.Empty(t, summaries, "quiz row rolled back with its questions")

	var questions int
	require.NoError(t, store.DB().NewSelect().Table("questions").ColumnExpr("count(*)").Scan(ctx, &questions))
	assert.Zero(t, questions)
}

func openMigratedStore(t *testing.T, ctx context.Context) *postgres.Store {
	t.Helper()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	t.Cleanup(pgCleanup)
	migrateSchema(t, ctx, pgURL)

	store, err := postgres.Open(ctx, pgURL)
	require.NoError(t, err, "open store")
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func migrateSchema(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	require.NoError(t, migrator.Init(ctx), "migrator init")
	_, err := migrator.Migrate(ctx)
	require.NoError(t, err, "migrate")
}

func postJSON(t *testing.T, url string, body any, wantStatus int, out any) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err, "post %s", url)
	defer resp.Body.Close()
	checkResponse(t, resp, wantStatus, out)
}

func getJSON(t *testing.T, url string, wantStatus int, out any) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err, "get %s", url)
	defer resp.Body.Close()
	checkResponse(t, resp, wantStatus, out)
}

func checkResponse(t *testing.T, resp *http.Response, wantStatus int, out any) {
	t.Helper()
	if resp.StatusCode != wantStatus {
		var msg struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&msg)
		require.Failf(t, "unexpected status", "%s %s: status %d (%s), want %d",
			resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, msg.Message, wantStatus)
	}
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out), "decode")
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		require.NoError(t, err, "start postgres")
	}
	host, err := container.Host(ctx)
	require.NoError(t, err, "host")
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err, "port")
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		require.NoError(t, err, "start redis")
	}
	host, err := container.Host(ctx)
	require.NoError(t, err, "redis host")
	port, err := container.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err, "redis port")
	return fmt.Sprintf("redis://%s:%s", host, port.Port()), func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in short mode")
	}
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
