package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/metalsur/catalogo/internal/log"
	"github.com/metalsur/catalogo/internal/ollama"
)

// MaxQueryLength bounds a single user query. Far above any realistic
// catalog question, low enough to keep prompts well under model context.
const MaxQueryLength = 4000

// maxRequestBytes limits the request body size.
const maxRequestBytes = 1 << 20 // 1MB

// Converser runs one conversational exchange. Implemented by engine.Engine.
type Converser interface {
	Converse(ctx context.Context, query, conversationID string) (answer string, id string, err error)
}

// Conversations is the conversation-store surface the API needs directly.
type Conversations interface {
	Clear(id string) bool
}

// ChatHandler handles the chat endpoints.
type ChatHandler struct {
	engine        Converser
	conversations Conversations
	logger        log.Logger
}

// NewChatHandler creates a chat handler.
func NewChatHandler(engine Converser, conversations Conversations, logger log.Logger) *ChatHandler {
	return &ChatHandler{engine: engine, conversations: conversations, logger: logger}
}

// RegisterRoutes registers chat routes on the given mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /chat", h.send)
	mux.HandleFunc("DELETE /chat/{conversation_id}", h.clear)
}

// ChatRequest is the request body for POST /chat.
type ChatRequest struct {
	Query          string `json:"query"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// ChatResponse is the response body for POST /chat.
// The answer field keeps the upstream catalog service's wire name.
type ChatResponse struct {
	Respuesta      string `json:"respuesta"`
	ConversationID string `json:"conversation_id"`
}

// send handles one conversational exchange.
func (h *ChatHandler) send(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "missing_query", "query is required")
		return
	}
	if len(req.Query) > MaxQueryLength {
		writeError(w, http.StatusBadRequest, "query_too_long", "query exceeds maximum length")
		return
	}

	answer, id, err := h.engine.Converse(r.Context(), req.Query, req.ConversationID)
	if err != nil {
		h.writeConverseError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{
		Respuesta:      answer,
		ConversationID: id,
	})
}

// writeConverseError maps engine failures to HTTP responses. Only
// generation-service failures get a structured client-facing translation;
// embedder and index failures surface as generic internal errors.
func (h *ChatHandler) writeConverseError(w http.ResponseWriter, err error) {
	var unavailable *ollama.UnavailableError
	if errors.As(err, &unavailable) {
		h.logger.Error("generation service unavailable",
			"endpoint", unavailable.Endpoint, "error", unavailable.Err)
		writeError(w, http.StatusServiceUnavailable, "generation_unavailable", unavailable.Error())
		return
	}

	h.logger.Error("chat exchange failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal_error", "failed to answer query")
}

// ClearResponse is the response body for DELETE /chat/{conversation_id}.
type ClearResponse struct {
	Message string `json:"message"`
}

// clear forgets a conversation. Clearing an unknown id is a normal
// outcome: the endpoint always answers 200.
func (h *ChatHandler) clear(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("conversation_id")

	if h.conversations.Clear(id) {
		writeJSON(w, http.StatusOK, ClearResponse{Message: "conversación eliminada"})
		return
	}
	writeJSON(w, http.StatusOK, ClearResponse{Message: "conversación no encontrada"})
}
