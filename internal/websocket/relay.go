// Package websocket carries the chat relay over a persistent connection for
// clients that want to avoid a round of CORS preflight per message.
package websocket

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"portfolio-assistant/internal/handlers"
	"portfolio-assistant/internal/middleware"
	"portfolio-assistant/internal/models"
	"portfolio-assistant/internal/services"
)

const (
	idleTimeout  = 5 * time.Minute
	writeTimeout = 10 * time.Second
)

type Relay struct {
	chatService  *services.ChatService
	limiter      *middleware.RateLimiter
	exposeDetail bool
	maxFrame     int64
	upgrader     websocket.Upgrader
}

// NewRelay builds the websocket endpoint. limiter may be nil.
func NewRelay(chatService *services.ChatService, policy *middleware.OriginPolicy, limiter *middleware.RateLimiter, maxFrame int64, exposeDetail bool) *Relay {
	return &Relay{
		chatService:  chatService,
		limiter:      limiter,
		exposeDetail: exposeDetail,
		maxFrame:     maxFrame,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return policy.Allowed(r.Header.Get("Origin"))
			},
		},
	}
}

// HandleWebSocket answers every text frame {"message": "..."} with one
// reply frame, using the same rules as POST /api/chat.
func (h *Relay) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(h.maxFrame)
	clientKey := middleware.ClientKey(r)
	requestID := middleware.GetRequestID(r.Context())

	for {
		conn.SetReadDeadline(time.Now().Add(idleTimeout))
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("WebSocket %s closed: %v", requestID, err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		frame := h.handleFrame(r, clientKey, data)
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(frame); err != nil {
			log.Printf("WebSocket %s write failed: %v", requestID, err)
			return
		}
	}
}

func (h *Relay) handleFrame(r *http.Request, clientKey string, data []byte) models.WSReply {
	now := models.Timestamp(time.Now())

	if h.limiter != nil && !h.limiter.Allow(r.Context(), clientKey) {
		return models.WSReply{
			Type:      "error",
			Error:     "Rate limit exceeded",
			Message:   "Too many requests. Please try again later.",
			Status:    http.StatusTooManyRequests,
			Timestamp: now,
		}
	}

	var req models.ChatRequest
	if err := json.Unmarshal(data, &req); err != nil {
		msg := "Malformed JSON body"
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field == "message" {
			msg = "Message must be a string"
		}
		return models.WSReply{Type: "error", Error: "Invalid request", Message: msg, Status: http.StatusBadRequest, Timestamp: now}
	}

	reply, err := h.chatService.Reply(r.Context(), req.Message)
	if err != nil {
		f := handlers.ClassifyChatError(err, h.exposeDetail)
		if f.Status >= http.StatusInternalServerError {
			log.Printf("WebSocket chat failed: %v", err)
		}
		return models.WSReply{
			Type:      "error",
			Error:     f.Body.Error,
			Message:   f.Body.Message,
			Status:    f.Status,
			Timestamp: models.Timestamp(time.Now()),
		}
	}

	return models.WSReply{Type: "reply", Reply: reply, Timestamp: models.Timestamp(time.Now())}
}
