package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"character-quiz-service/internal/app"
	"character-quiz-service/internal/domain"
	"github.com/gorilla/websocket"
)

var errNoSession = fmt.Errorf("%w: no session started on this connection", domain.ErrValidation)

type WSHandler struct {
	game     *app.GameService
	auth     *Authenticator
	upgrader websocket.Upgrader
}

func NewWSHandler(game *app.GameService, auth *Authenticator) *WSHandler {
	return &WSHandler{
		game: game,
		auth: auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuestionID  string `json:"questionId"`
	Index       *int   `json:"index,omitempty"`
	Text        string `json:"text,omitempty"`
	TimeSpentMs int64  `json:"timeSpentMs"`
}

type sessionView struct {
	ID                   string               `json:"id"`
	CharacterID          string               `json:"characterId"`
	Status               domain.SessionStatus `json:"status"`
	CurrentQuestionIndex int                  `json:"currentQuestionIndex"`
	TotalQuestions       int                  `json:"totalQuestions"`
	Score                int                  `json:"score"`
	Lives                int                  `json:"lives"`
	MaxLives             int                  `json:"maxLives"`
	TimeRemainingMs      int64                `json:"timeRemainingMs"`
}

type questionView struct {
	Question *domain.PublicQuestion `json:"question,omitempty"`
	Done     bool                   `json:"done"`
	Expired  bool                   `json:"expired"`
}

type answerResult struct {
	QuestionID string         `json:"questionId"`
	Verdict    domain.Verdict `json:"verdict"`
	Session    sessionView    `json:"session"`
	Terminable bool           `json:"terminable"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

// ServeWS upgrades HTTP requests to websockets and runs one player's game for a character.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	characterID := r.URL.Query().Get("characterId")
	userID, err := h.auth.UserID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if characterID == "" {
		writeError(w, domain.ErrMissingIdentity)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	c := &wsConn{
		handler:     h,
		ctx:         r.Context(),
		userID:      userID,
		characterID: characterID,
		send:        send,
		writerDone:  writerDone,
	}
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		c.dispatch(inbound)
	}

	close(send)
	<-writerDone
}

// wsConn is the per-connection state: who is playing and which session is open.
type wsConn struct {
	handler     *WSHandler
	ctx         context.Context
	userID      string
	characterID string
	sessionID   string
	send        chan<- outboundMessage[any]
	writerDone  <-chan struct{}
}

func (c *wsConn) dispatch(inbound inboundMessage) {
	game := c.handler.game
	switch inbound.Type {
	case "start":
		session, err := game.Start(c.ctx, c.userID, c.characterID)
		if err != nil {
			c.fail(err)
			return
		}
		c.sessionID = session.ID
		c.emit("session", c.view(session))

	case "question":
		if c.sessionID == "" {
			c.fail(errNoSession)
			return
		}
		session, err := game.Get(c.ctx, c.userID, c.sessionID)
		if err != nil {
			c.fail(err)
			return
		}
		if game.IsExpired(session) {
			c.emit("question", questionView{Expired: true})
			return
		}
		q, done, err := game.NextQuestion(c.ctx, c.userID, c.sessionID)
		if err != nil {
			c.fail(err)
			return
		}
		view := questionView{Done: done}
		if !done {
			view.Question = &q
		}
		c.emit("question", view)

	case "answer":
		if c.sessionID == "" {
			c.fail(errNoSession)
			return
		}
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			c.fail(fmt.Errorf("%w: invalid answer payload", domain.ErrValidation))
			return
		}
		outcome, err := game.SubmitAnswer(c.ctx, c.userID, c.sessionID, domain.AnswerSubmission{
			QuestionID: payload.QuestionID,
			Answer:     domain.Answer{Index: payload.Index, Text: payload.Text},
			TimeSpent:  time.Duration(payload.TimeSpentMs) * time.Millisecond,
		})
		if err != nil {
			c.fail(err)
			return
		}
		c.emit("answerResult", answerResult{
			QuestionID: payload.QuestionID,
			Verdict:    outcome.Verdict,
			Session:    c.view(outcome.Session),
			Terminable: outcome.Terminable,
		})

	case "complete":
		if c.sessionID == "" {
			c.fail(errNoSession)
			return
		}
		summary, err := game.Complete(c.ctx, c.userID, c.sessionID)
		if err != nil {
			c.fail(err)
			return
		}
		c.sessionID = ""
		c.emit("completed", summary)

	case "abandon":
		if c.sessionID == "" {
			c.fail(errNoSession)
			return
		}
		session, err := game.Abandon(c.ctx, c.userID, c.sessionID)
		if err != nil {
			c.fail(err)
			return
		}
		c.sessionID = ""
		c.emit("session", c.view(session))

	default:
		c.fail(fmt.Errorf("%w: unsupported message type %q", domain.ErrValidation, inbound.Type))
	}
}

func (c *wsConn) view(s domain.Session) sessionView {
	return sessionView{
		ID:                   s.ID,
		CharacterID:          s.CharacterID,
		Status:               s.Status,
		CurrentQuestionIndex: s.CurrentQuestionIndex,
		TotalQuestions:       s.TotalQuestions,
		Score:                s.Score,
		Lives:                s.Lives,
		MaxLives:             s.MaxLives,
		TimeRemainingMs:      c.handler.game.TimeRemaining(s).Milliseconds(),
	}
}

// emit queues a message for the writer. Once the writer has stopped the
// message is dropped so the read loop never blocks on a dead connection.
func (c *wsConn) emit(typ string, payload any) {
	select {
	case c.send <- outboundMessage[any]{Type: typ, Payload: payload}:
	case <-c.writerDone:
	}
}

func (c *wsConn) fail(err error) {
	_, payload := classify(err)
	c.emit("error", payload)
}
