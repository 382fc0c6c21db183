package provider

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/byom-labs/byom-chat/internal/llm"
	"github.com/byom-labs/byom-chat/internal/middleware"
	"github.com/byom-labs/byom-chat/internal/model"
	"github.com/byom-labs/byom-chat/pkg/logger"
	"github.com/byom-labs/byom-chat/pkg/metrics"
)

// snapshotLimit caps the conversation context forwarded to the model.
const snapshotLimit = 50

// Handler serves the provider registration and chat endpoints.
type Handler struct {
	registry *Registry
	factory  ClientFactory
	log      *logger.Logger
}

// NewHandler creates a provider handler.
func NewHandler(registry *Registry, factory ClientFactory, log *logger.Logger) *Handler {
	return &Handler{
		registry: registry,
		factory:  factory,
		log:      log.WithComponent("provider"),
	}
}

// Routes mounts the provider API onto a router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/provider", h.Get)
	r.Post("/register-provider", h.Register)
	r.Delete("/provider", h.Delete)
	r.Post("/chat", h.Chat)
}

// Get handles GET /provider.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetUserID(r.Context())

	reg, ok := h.registry.Get(account)
	if !ok {
		writeJSON(w, http.StatusNotFound, model.ProviderResponse{OK: false, Error: "no provider registered"})
		return
	}

	writeJSON(w, http.StatusOK, model.ProviderResponse{OK: true, Provider: &reg})
}

// Register handles POST /register-provider.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetUserID(r.Context())

	var reg model.ProviderRegistration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		writeJSON(w, http.StatusBadRequest, model.ProviderResponse{OK: false, Error: "invalid request body"})
		return
	}

	if err := h.registry.Register(account, reg); err != nil {
		writeJSON(w, http.StatusBadRequest, model.ProviderResponse{OK: false, Error: err.Error()})
		return
	}

	h.log.Info("provider registered",
		zap.String("account", account),
		zap.String("provider", string(reg.Provider)),
	)
	writeJSON(w, http.StatusOK, model.ProviderResponse{OK: true})
}

// Delete handles DELETE /provider.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetUserID(r.Context())

	if !h.registry.Delete(account) {
		writeJSON(w, http.StatusNotFound, model.ProviderResponse{OK: false, Error: "no provider registered"})
		return
	}

	h.log.Info("provider disconnected", zap.String("account", account))
	writeJSON(w, http.StatusOK, model.ProviderResponse{OK: true})
}

// Chat handles POST /chat: builds a completion request from the account's
// registration, the conversation snapshot and the prompt.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetUserID(r.Context())

	reg, ok := h.registry.Resolve(account)
	if !ok {
		writeJSON(w, http.StatusNotFound, model.ProviderResponse{OK: false, Error: "no provider registered"})
		return
	}

	var req model.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, model.ProviderResponse{OK: false, Error: "invalid request body"})
		return
	}
	if req.Prompt == "" {
		writeJSON(w, http.StatusBadRequest, model.ProviderResponse{OK: false, Error: "prompt is required"})
		return
	}

	client, err := h.factory(reg)
	if err != nil {
		h.log.Error("failed to build provider client", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, model.ProviderResponse{OK: false, Error: err.Error()})
		return
	}

	start := time.Now()
	resp, err := client.Complete(r.Context(), &llm.CompletionRequest{
		Model:    reg.Config.Model,
		System:   reg.Config.SystemPrompt,
		Messages: buildMessages(req),
	})
	if err != nil {
		metrics.RecordChat(string(reg.Provider), "error", time.Since(start).Seconds())
		h.log.Error("chat completion failed",
			zap.String("provider", string(reg.Provider)),
			zap.Error(err),
		)
		writeJSON(w, http.StatusBadGateway, model.ProviderResponse{OK: false, Error: err.Error()})
		return
	}
	metrics.RecordChat(string(reg.Provider), "success", time.Since(start).Seconds())

	writeJSON(w, http.StatusOK, model.ChatResponse{
		Reply: resp.Content,
		Meta:  &model.Meta{ModelID: resp.Model},
	})
}

func buildMessages(req model.ChatRequest) []llm.ChatMessage {
	snapshot := req.Conversation
	if len(snapshot) > snapshotLimit {
		snapshot = snapshot[len(snapshot)-snapshotLimit:]
	}

	messages := make([]llm.ChatMessage, 0, len(snapshot)+1)
	for _, msg := range snapshot {
		messages = append(messages, llm.ChatMessage{
			Role:    string(msg.Role),
			Content: msg.Text,
		})
	}
	return append(messages, llm.ChatMessage{Role: string(model.RoleUser), Content: req.Prompt})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
