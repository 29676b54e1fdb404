package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"portfolio-assistant/internal/llm"
	"portfolio-assistant/internal/middleware"
	"portfolio-assistant/internal/models"
	"portfolio-assistant/internal/services"
)

type ChatHandler struct {
	chatService  *services.ChatService
	exposeDetail bool
}

func NewChatHandler(chatService *services.ChatService, exposeDetail bool) *ChatHandler {
	return &ChatHandler{
		chatService:  chatService,
		exposeDetail: exposeDetail,
	}
}

// Chat relays one user message upstream and returns the reply.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorResp(errInvalidRequest, decodeErrorMessage(err)))
		return
	}

	reply, err := h.chatService.Reply(r.Context(), req.Message)
	if err != nil {
		h.handleChatError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.ChatResponse{
		Reply:     reply,
		Timestamp: models.Timestamp(time.Now()),
	})
}

// Health reports whether the relay has an upstream credential.
func (h *ChatHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.ChatHealthResponse{
		Status:    "ok",
		HasAPIKey: h.chatService.Configured(),
		Timestamp: models.Timestamp(time.Now()),
	})
}

func (h *ChatHandler) handleChatError(w http.ResponseWriter, r *http.Request, err error) {
	f := ClassifyChatError(err, h.exposeDetail)
	if f.Status >= http.StatusInternalServerError || f.Status == http.StatusTooManyRequests {
		log.Printf("chat request %s failed (%s): %v", middleware.GetRequestID(r.Context()), llm.KindOf(err), err)
	}
	if f.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(f.RetryAfter.Seconds())))
	}
	writeJSON(w, f.Status, f.Body)
}

func decodeErrorMessage(err error) string {
	var maxErr *http.MaxBytesError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &maxErr):
		return "Request body too large"
	case errors.As(err, &typeErr) && typeErr.Field == "message":
		return "Message must be a string"
	default:
		return "Malformed JSON body"
	}
}
