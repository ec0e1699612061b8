package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/life-quote-server/internal/domain"
	"github.com/life-quote-server/internal/quotes"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// Browser clients connect cross-origin from agent dashboards.
		return true
	},
}

// wsRequest is one client message on the interactive screening socket.
type wsRequest struct {
	Action     string `json:"action"`
	Coverage   string `json:"coverage,omitempty"`
	Condition  string `json:"condition,omitempty"`
	QuestionID string `json:"questionId,omitempty"`
	Value      string `json:"value,omitempty"`
}

// wsResponse is one server message on the interactive screening socket.
type wsResponse struct {
	Type      string                    `json:"type"`
	SessionID string                    `json:"sessionId,omitempty"`
	Condition string                    `json:"condition,omitempty"`
	Question  *domain.Question          `json:"question,omitempty"`
	Done      bool                      `json:"done,omitempty"`
	Outcomes  []domain.TraversalOutcome `json:"outcomes,omitempty"`
	Message   string                    `json:"message,omitempty"`
}

// handleEligibilityWS runs interactive condition screening over a
// websocket. The client starts a session, answers decision-tree questions
// one at a time, and asks for outcomes whenever it wants the current
// standing of every reported condition.
func (s *Server) handleEligibilityWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	var session *quotes.Session

	for {
		var req wsRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.WithError(err).Debug("Websocket read failed")
			}
			if session != nil {
				s.sessions.Delete(session.ID)
			}
			return
		}

		switch strings.ToLower(req.Action) {
		case "start":
			coverage := domain.CoverageType(strings.ToLower(req.Coverage))
			if !coverage.IsValid() || coverage == domain.BOTH {
				s.writeWS(conn, wsResponse{Type: "error", Message: "coverage must be term or fex"})
				continue
			}
			session = s.sessions.Create(coverage)
			s.writeWS(conn, wsResponse{Type: "session", SessionID: session.ID})

		case "answer":
			if session == nil {
				s.writeWS(conn, wsResponse{Type: "error", Message: "no active session, send start first"})
				continue
			}
			if req.Condition == "" {
				s.writeWS(conn, wsResponse{Type: "error", Message: "condition is required"})
				continue
			}
			if req.QuestionID != "" {
				session.RecordAnswer(req.Condition, req.QuestionID, req.Value)
			}
			s.sendNextQuestion(ctx, conn, session, req.Condition)

		case "remove":
			if session == nil {
				s.writeWS(conn, wsResponse{Type: "error", Message: "no active session, send start first"})
				continue
			}
			session.RemoveCondition(req.Condition)
			s.writeWS(conn, wsResponse{Type: "removed", Condition: req.Condition})

		case "screen":
			if session == nil {
				s.writeWS(conn, wsResponse{Type: "error", Message: "no active session, send start first"})
				continue
			}
			outcomes := s.service.Screen(ctx, session.Coverage, session.Selected())
			s.writeWS(conn, wsResponse{Type: "outcomes", Outcomes: outcomes})

		case "end":
			if session != nil {
				s.sessions.Delete(session.ID)
				session = nil
			}
			s.writeWS(conn, wsResponse{Type: "ended"})

		default:
			s.writeWS(conn, wsResponse{Type: "error", Message: "unknown action: " + req.Action})
		}
	}
}

// sendNextQuestion reports the next open question for a condition, or the
// condition's outcome once its walk has finished.
func (s *Server) sendNextQuestion(ctx context.Context, conn *websocket.Conn, session *quotes.Session, condition string) {
	q, more, err := s.service.NextQuestion(ctx, session.Coverage, condition, session.Answers(condition))
	if err != nil {
		s.writeWS(conn, wsResponse{Type: "error", Condition: condition, Message: err.Error()})
		return
	}
	if more {
		s.writeWS(conn, wsResponse{Type: "question", Condition: condition, Question: &q})
		return
	}

	outcomes := s.service.Screen(ctx, session.Coverage, []domain.SelectedCondition{{
		Name:    condition,
		Answers: session.Answers(condition),
	}})
	s.writeWS(conn, wsResponse{Type: "question", Condition: condition, Done: true, Outcomes: outcomes})
}

func (s *Server) writeWS(conn *websocket.Conn, resp wsResponse) {
	if err := conn.WriteJSON(resp); err != nil {
		s.logger.WithError(err).Debug("Websocket write failed")
	}
}
