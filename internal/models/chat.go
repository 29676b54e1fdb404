package models

import "time"

// ChatRequest is the payload sent to the chat endpoint.
type ChatRequest struct {
	Message *string `json:"message"`
}

// ChatResponse is the reply from the assistant.
type ChatResponse struct {
	Reply     string `json:"reply"`
	Timestamp string `json:"timestamp"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type ChatHealthResponse struct {
	Status    string `json:"status"`
	HasAPIKey bool   `json:"hasApiKey"`
	Timestamp string `json:"timestamp"`
}

type HealthResponse struct {
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	Environment string `json:"environment"`
}

// WSReply is a single frame written back on the chat websocket.
type WSReply struct {
	Type      string `json:"type"` // "reply" or "error"
	Reply     string `json:"reply,omitempty"`
	Error     string `json:"error,omitempty"`
	Message   string `json:"message,omitempty"`
	Status    int    `json:"status,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Timestamp formats t the way JavaScript's toISOString does.
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
