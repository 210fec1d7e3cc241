package http

import (
	"net/http"
	"time"

	"quiz-backend/internal/app"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Services groups the use cases exposed over HTTP.
type Services struct {
	Accounts    *app.AccountService
	Quizzes     *app.QuizService
	Submissions *app.SubmissionService
	Results     *app.ResultsService
	Feed        *app.ResultFeed
}

// Options tunes the router. A zero RateLimit disables rate limiting.
type Options struct {
	Logger     *zap.Logger
	RateLimit  int
	RateWindow time.Duration
}

// NewRouter builds the gin engine with every route of the service.
func NewRouter(services Services, opts Options) *gin.Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	h := &Handler{services: services, log: log}
	ws := NewWSHandler(services.Quizzes, services.Feed, log)
	limit := rateLimiter(opts.RateLimit, opts.RateWindow)

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log), metricsMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/register", limit, h.register)
	r.POST("/login", limit, h.login)
	r.POST("/logout", h.logout)

	api := r.Group("", h.identify)
	api.POST("/quizzes", h.createQuiz)
	api.GET("/quizzes", h.listQuizzes)
	api.GET("/quizzes/:id", h.getQuiz)
	api.POST("/quizzes/:id/submit", h.submitQuiz)
	api.GET("/users/:id/results", h.userResults)

	r.GET("/ws/quizzes/:id/results", ws.ServeResults)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"message": "route not found"})
	})
	return r
}
