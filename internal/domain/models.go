package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// User is a registered account. PasswordHash never leaves the service layer.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Quiz is a collection of questions.
type Quiz struct {
	ID          int64
	Title       string
	Description string
	OwnerID     *int64
	CreatedAt   time.Time
	Questions   []Question
}

// Question models a prompt with its options and the expected answer.
type Question struct {
	ID            int64
	QuizID        int64
	Text          string
	Options       Options
	CorrectAnswer string
}

// Result is one scored attempt at a quiz.
type Result struct {
	ID             int64     `json:"id"`
	QuizID         int64     `json:"quiz_id"`
	UserID         int64     `json:"user_id"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"total_questions"`
	CreatedAt      time.Time `json:"created_at"`
}

// QuizSummary is the listing view of a quiz.
type QuizSummary struct {
	ID             int64  `json:"id"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	QuestionsCount int    `json:"questions_count"`
}

// QuizDetails is the quiz-taker view: correct answers are not part of it.
type QuizDetails struct {
	ID          int64          `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Questions   []QuestionView `json:"questions"`
}

// QuestionView is a question without its correct answer.
type QuestionView struct {
	ID      int64   `json:"id"`
	Text    string  `json:"text"`
	Options Options `json:"options"`
}

// UserResult is a result enriched with its quiz title.
type UserResult struct {
	QuizID         int64     `json:"quiz_id"`
	QuizTitle      string    `json:"quiz_title"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"total_questions"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewQuiz is the input of quiz creation.
type NewQuiz struct {
	Title       string        `json:"title" validate:"required"`
	Description string        `json:"description"`
	Questions   []NewQuestion `json:"questions" validate:"required,min=1,dive"`
}

// NewQuestion is one question of a NewQuiz.
type NewQuestion struct {
	Text          string  `json:"text" validate:"required"`
	Options       Options `json:"options" validate:"required,min=1,dive,required"`
	CorrectAnswer string  `json:"correct_answer" validate:"required"`
}

// Session is the outcome of a successful login.
type Session struct {
	UserID    int64
	Token     string
	ExpiresAt time.Time
}

// TokenClaims identifies the holder of a bearer token.
type TokenClaims struct {
	UserID    int64
	TokenID   string
	ExpiresAt time.Time
}

// Options is the list of answer choices of a question. It decodes from a JSON
// array of strings or from a comma-delimited string.
type Options []string

var errOptionsShape = errors.New("options must be an array of strings or a comma-separated string")

func (o *Options) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*o = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		*o = SplitOptions(raw)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return errOptionsShape
	}
	*o = list
	return nil
}

// SplitOptions splits a comma-delimited option list, trimming blanks.
func SplitOptions(raw string) Options {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make(Options, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}
