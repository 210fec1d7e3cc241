package http

import (
	"net/http"

	"quiz-backend/internal/app"
	"quiz-backend/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WSHandler streams newly stored results of one quiz to websocket clients.
type WSHandler struct {
	quizzes  *app.QuizService
	feed     *app.ResultFeed
	log      *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(quizzes *app.QuizService, feed *app.ResultFeed, log *zap.Logger) *WSHandler {
	return &WSHandler{
		quizzes: quizzes,
		feed:    feed,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type subscribedPayload struct {
	QuizID int64 `json:"quiz_id"`
}

// ServeResults upgrades the request once the quiz is known to exist, sends a
// "subscribed" event, then relays every result submitted for the quiz.
func (h *WSHandler) ServeResults(c *gin.Context) {
	quizID, ok := parseID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": domain.ErrQuizNotFound.Error()})
		return
	}
	if _, err := h.quizzes.GetQuizDetails(c.Request.Context(), quizID); err != nil {
		writeError(c, h.log, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Int64("quiz_id", quizID), zap.Error(err))
		return
	}
	defer conn.Close()

	updates, cancel := h.feed.Subscribe(quizID)
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})
	readerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug("ws write failed", zap.Int64("quiz_id", quizID), zap.Error(err))
				return
			}
		}
	}()

	// Clients never send data; reading only detects the close.
	go func() {
		defer close(readerDone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "subscribed", Payload: subscribedPayload{QuizID: quizID}}

loop:
	for {
		select {
		case result, ok := <-updates:
			if !ok {
				break loop
			}
			select {
			case send <- outboundMessage[any]{Type: "result", Payload: result}:
			case <-writerDone:
				break loop
			}
		case <-readerDone:
			break loop
		case <-writerDone:
			break loop
		}
	}

	close(send)
	<-writerDone
}
