package handlers

import (
	"errors"
	"net/http"
	"time"

	"portfolio-assistant/internal/llm"
	"portfolio-assistant/internal/models"
	"portfolio-assistant/internal/services"
)

const (
	errInvalidRequest     = "Invalid request"
	errServiceUnavailable = "Service unavailable"
	errRateLimited        = "Rate limit exceeded"
	errTimeout            = "Request timeout"
	errUpstream           = "Failed to get response from AI service"
	errNotFound           = "Endpoint not found"
)

// ChatFailure is the HTTP rendering of a failed chat turn.
type ChatFailure struct {
	Status     int
	Body       models.ErrorResponse
	RetryAfter time.Duration
}

// ClassifyChatError maps a ChatService error to a status and body. Upstream
// error text is only included when exposeDetail is set.
func ClassifyChatError(err error, exposeDetail bool) ChatFailure {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		return ChatFailure{Status: http.StatusBadRequest, Body: errorResp(errInvalidRequest, verr.Message)}
	}
	if errors.Is(err, services.ErrNotConfigured) {
		return ChatFailure{Status: http.StatusServiceUnavailable, Body: errorResp(errServiceUnavailable, "Chat service is not configured")}
	}

	switch llm.KindOf(err) {
	case llm.KindTimeout:
		return ChatFailure{Status: http.StatusGatewayTimeout, Body: errorResp(errTimeout, "The AI service took too long to respond. Please try again.")}
	case llm.KindAuth:
		return ChatFailure{Status: http.StatusServiceUnavailable, Body: errorResp(errServiceUnavailable, "The AI service is temporarily unavailable")}
	case llm.KindRateLimited:
		f := ChatFailure{Status: http.StatusTooManyRequests, Body: errorResp(errRateLimited, "Too many requests. Please try again shortly.")}
		var lerr *llm.Error
		if errors.As(err, &lerr) {
			f.RetryAfter = lerr.RetryAfter
		}
		return f
	default:
		var detail string
		if exposeDetail {
			detail = err.Error()
		}
		return ChatFailure{Status: http.StatusInternalServerError, Body: errorResp(errUpstream, detail)}
	}
}
