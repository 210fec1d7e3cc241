package http

import (
	"net/http"
	"strings"
	"time"

	"quiz-backend/internal/domain"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const ctxUserID = "user_id"

// Handler serves the JSON endpoints.
type Handler struct {
	services Services
	log      *zap.Logger
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type submitRequest struct {
	UserID  *int64           `json:"user_id"`
	Answers map[int64]string `json:"answers"`
}

func (h *Handler) register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.log, domain.Validationf("invalid request body"))
		return
	}
	user, err := h.services.Accounts.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	h.log.Info("user registered", zap.Int64("user_id", user.ID))
	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"user_id": user.ID,
	})
}

func (h *Handler) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.log, domain.Validationf("invalid request body"))
		return
	}
	session, err := h.services.Accounts.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":    "Login successful",
		"user_id":    session.UserID,
		"token":      session.Token,
		"expires_at": session.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

func (h *Handler) logout(c *gin.Context) {
	token, ok := bearerToken(c)
	if !ok {
		writeError(c, h.log, domain.ErrInvalidToken)
		return
	}
	if err := h.services.Accounts.Logout(c.Request.Context(), token); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logout successful"})
}

func (h *Handler) createQuiz(c *gin.Context) {
	var req domain.NewQuiz
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.log, domain.Validationf("invalid request body"))
		return
	}
	var owner *int64
	if id, ok := currentUser(c); ok {
		owner = &id
	}
	quizID, err := h.services.Quizzes.CreateQuiz(c.Request.Context(), req, owner)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	h.log.Info("quiz created", zap.Int64("quiz_id", quizID), zap.Int("questions", len(req.Questions)))
	c.JSON(http.StatusCreated, gin.H{
		"message": "Quiz created successfully",
		"quiz_id": quizID,
	})
}

func (h *Handler) listQuizzes(c *gin.Context) {
	quizzes, err := h.services.Quizzes.ListQuizzes(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, quizzes)
}

func (h *Handler) getQuiz(c *gin.Context) {
	quizID, ok := parseID(c.Param("id"))
	if !ok {
		writeError(c, h.log, domain.ErrQuizNotFound)
		return
	}
	details, err := h.services.Quizzes.GetQuizDetails(c.Request.Context(), quizID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

func (h *Handler) submitQuiz(c *gin.Context) {
	quizID, ok := parseID(c.Param("id"))
	if !ok {
		writeError(c, h.log, domain.ErrQuizNotFound)
		return
	}
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.log, domain.Validationf("invalid request body"))
		return
	}
	if req.Answers == nil {
		writeError(c, h.log, domain.Validationf("answers is required"))
		return
	}

	var userID int64
	if req.UserID != nil {
		userID = *req.UserID
	} else if id, ok := currentUser(c); ok {
		userID = id
	}

	result, err := h.services.Submissions.SubmitQuiz(c.Request.Context(), quizID, userID, req.Answers)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	submissionsTotal.Inc()
	h.log.Info("quiz submitted",
		zap.Int64("quiz_id", quizID),
		zap.Int64("user_id", userID),
		zap.Int("score", result.Score),
		zap.Int("total_questions", result.TotalQuestions),
	)
	c.JSON(http.StatusOK, gin.H{
		"message":         "Answers submitted successfully",
		"score":           result.Score,
		"total_questions": result.TotalQuestions,
	})
}

func (h *Handler) userResults(c *gin.Context) {
	userID, ok := parseID(c.Param("id"))
	if !ok {
		writeError(c, h.log, domain.ErrUserNotFound)
		return
	}
	results, err := h.services.Results.GetUserResults(c.Request.Context(), userID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

// identify resolves an optional bearer token into the caller's user id.
// Requests without a token pass through anonymously; a bad token is rejected.
func (h *Handler) identify(c *gin.Context) {
	token, ok := bearerToken(c)
	if !ok {
		c.Next()
		return
	}
	userID, err := h.services.Accounts.Authenticate(c.Request.Context(), token)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.Set(ctxUserID, userID)
	c.Next()
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func currentUser(c *gin.Context) (int64, bool) {
	v, ok := c.Get(ctxUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
