package redis

import (
	"context"
	"math/rand"
	"sort"
	"strconv"
	"sync"
	"time"

	"quiz-backend/internal/domain"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuizLoader reads a full quiz, answers included, from storage.
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID int64) (domain.Quiz, error)
}

// QuizCache shares answer keys between instances through Redis. Each quiz is
// one hash, quiz:{quizID}:answers, mapping question id to correct answer.
type QuizCache struct {
	client *redis.Client
	loader QuizLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex
}

func NewQuizCache(client *redis.Client, loader QuizLoader, ttl time.Duration) *QuizCache {
	return &QuizCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// GetQuiz returns the quiz answer key. Quizzes served from the cache carry
// question ids and correct answers only.
func (c *QuizCache) GetQuiz(ctx context.Context, quizID int64) (domain.Quiz, error) {
	key := answersKey(quizID)

	answers, err := c.client.HGetAll(ctx, key).Result()
	if err == nil && len(answers) > 0 {
		return buildQuizFromCache(quizID, answers), nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// The hash may have been written while this call waited on the group.
		answers, err := c.client.HGetAll(ctx, key).Result()
		if err == nil && len(answers) > 0 {
			return buildQuizFromCache(quizID, answers), nil
		}

		quiz, err := c.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}

		pipe := c.client.TxPipeline()
		for _, q := range quiz.Questions {
			pipe.HSet(ctx, key, strconv.FormatInt(q.ID, 10), q.CorrectAnswer)
		}
		if ttl := c.ttlWithJitter(); ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		// Cache fill is best effort; scoring proceeds from the loaded quiz.
		_, _ = pipe.Exec(ctx)

		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

func answersKey(quizID int64) string {
	return "quiz:" + strconv.FormatInt(quizID, 10) + ":answers"
}

func buildQuizFromCache(quizID int64, answers map[string]string) domain.Quiz {
	questions := make([]domain.Question, 0, len(answers))
	for field, correct := range answers {
		questionID, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			continue
		}
		questions = append(questions, domain.Question{
			ID:            questionID,
			QuizID:        quizID,
			CorrectAnswer: correct,
		})
	}
	sort.Slice(questions, func(i, j int) bool { return questions[i].ID < questions[j].ID })
	return domain.Quiz{ID: quizID, Questions: questions}
}

func (c *QuizCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
