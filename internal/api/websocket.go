package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"

	"github.com/felixgeelhaar/rehearse/internal/domain"
	"github.com/felixgeelhaar/rehearse/internal/interview"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
	wsMaxMessage = 64 << 10
)

// Socket message types.
const (
	msgJoined    = "joined"
	msgChat      = "chat"
	msgReply     = "reply"
	msgCode      = "code"
	msgReview    = "review"
	msgFinalize  = "finalize"
	msgFinalized = "finalized"
	msgError     = "error"
)

// InterviewSocket serves the live interview channel. Candidates send chat
// messages, code and the final outcome; each is answered on the same socket.
type InterviewSocket struct {
	interviews *interview.Service
	upgrader   websocket.Upgrader
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type socketError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewInterviewSocket creates the handler. origins limits which browser
// origins may connect; "*" allows any.
func NewInterviewSocket(interviews *interview.Service, origins []string) *InterviewSocket {
	return &InterviewSocket{
		interviews: interviews,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || len(origins) == 0 ||
					slices.Contains(origins, "*") || slices.Contains(origins, origin)
			},
		},
	}
}

func (s *InterviewSocket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	iv, err := s.interviews.Get(r.Context(), id)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	if iv.IsCompleted() {
		WriteDomainError(w, r, domain.ErrInterviewCompleted)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("interview websocket upgrade failed", "interview_id", id, "error", err)
		return
	}
	defer conn.Close()
	slog.Info("interview websocket connected", "interview_id", id)

	conn.SetReadLimit(wsMaxMessage)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	send := make(chan outboundMessage, 8)
	writerDone := make(chan struct{})
	go s.writeLoop(conn, send, writerDone)

	send <- outboundMessage{Type: msgJoined, Payload: iv}

	for {
		var in inboundMessage
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("interview websocket read error", "interview_id", id, "error", err)
			}
			break
		}
		out, done := s.dispatch(r, id, in)
		send <- out
		if done {
			break
		}
	}

	close(send)
	<-writerDone
	slog.Info("interview websocket disconnected", "interview_id", id)
}

// dispatch runs one inbound message. done reports that the interview ended.
func (s *InterviewSocket) dispatch(r *http.Request, id string, in inboundMessage) (out outboundMessage, done bool) {
	ctx := r.Context()
	switch in.Type {
	case msgChat:
		var p chatRequest
		if err := json.Unmarshal(in.Payload, &p); err != nil || p.Message == "" {
			return errorMessage("BAD_REQUEST", "chat payload needs a message"), false
		}
		reply, err := s.interviews.Chat(ctx, id, p.Message)
		if err != nil {
			return domainErrorMessage(err), false
		}
		return outboundMessage{Type: msgReply, Payload: reply}, false

	case msgCode:
		var p codeRequest
		if err := json.Unmarshal(in.Payload, &p); err != nil || p.Code == "" {
			return errorMessage("BAD_REQUEST", "code payload needs code"), false
		}
		review, err := s.interviews.EvaluateCode(ctx, id, p.Code, p.Language)
		if err != nil {
			return domainErrorMessage(err), false
		}
		return outboundMessage{Type: msgReview, Payload: review}, false

	case msgFinalize:
		var p finalizeRequest
		if len(in.Payload) > 0 {
			if err := json.Unmarshal(in.Payload, &p); err != nil {
				return errorMessage("BAD_REQUEST", "invalid finalize payload"), false
			}
		}
		res, err := s.interviews.Finalize(ctx, id, interview.Outcome{
			DurationSec:        p.DurationSec,
			HintsUsed:          p.HintsUsed,
			Code:               p.Code,
			Passed:             p.Passed,
			CorrectAnswers:     p.CorrectAnswers,
			QuestionsAttempted: p.QuestionsAttempted,
		})
		if err != nil {
			return domainErrorMessage(err), errors.Is(err, domain.ErrAlreadyFinalized)
		}
		return outboundMessage{Type: msgFinalized, Payload: res}, true

	default:
		return errorMessage("BAD_REQUEST", "unsupported message type "+in.Type), false
	}
}

// writeLoop owns every write to conn and keeps the connection alive with
// pings.
func (s *InterviewSocket) writeLoop(conn *websocket.Conn, send <-chan outboundMessage, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-send:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				slog.Debug("interview websocket write error", "error", err)
				// keep draining so the reader never blocks
				for range send {
				}
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				for range send {
				}
				return
			}
		}
	}
}

func errorMessage(code, message string) outboundMessage {
	return outboundMessage{Type: msgError, Payload: socketError{Code: code, Message: message}}
}

func domainErrorMessage(err error) outboundMessage {
	var upstream *domain.UpstreamError
	switch {
	case domain.IsNotFound(err):
		return errorMessage("NOT_FOUND", err.Error())
	case errors.Is(err, domain.ErrAlreadyFinalized), errors.Is(err, domain.ErrInterviewCompleted):
		return errorMessage("CONFLICT", err.Error())
	case domain.IsInvalidState(err):
		return errorMessage("BAD_REQUEST", err.Error())
	case errors.As(err, &upstream):
		return errorMessage("UPSTREAM_UNAVAILABLE", upstream.Service+" is unavailable")
	default:
		slog.Error("interview websocket error", "error", err)
		return errorMessage("INTERNAL_ERROR", "internal server error")
	}
}
