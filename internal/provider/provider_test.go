package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byom-labs/byom-chat/internal/llm"
	"github.com/byom-labs/byom-chat/internal/middleware"
	"github.com/byom-labs/byom-chat/internal/model"
	"github.com/byom-labs/byom-chat/pkg/logger"
)

// fakeLLM returns a canned reply and records the last request.
type fakeLLM struct {
	reply   string
	lastReq *llm.CompletionRequest
}

func (f *fakeLLM) Complete(_ context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.lastReq = req
	return &llm.CompletionResponse{Content: f.reply, Model: req.Model}, nil
}

func (f *fakeLLM) Name() string { return "fake" }

func newTestHandler(fake *fakeLLM) *Handler {
	factory := func(reg model.ProviderRegistration) (llm.Client, error) {
		return fake, nil
	}
	return NewHandler(NewRegistry(), factory, logger.NewNop())
}

// serve routes a request through the handler as the given account.
func serve(h *Handler, account, method, path string, body any) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Group(h.Routes)

	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req = req.WithContext(context.WithValue(req.Context(), middleware.UserIDKey, account))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestGetUnregisteredIs404(t *testing.T) {
	h := newTestHandler(&fakeLLM{})

	rec := serve(h, "acct-1", http.MethodGet, "/provider", nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
	var resp model.ProviderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.OK)
}

func TestRegisterThenGetMasksSecrets(t *testing.T) {
	h := newTestHandler(&fakeLLM{})

	rec := serve(h, "acct-1", http.MethodPost, "/register-provider", model.ProviderRegistration{
		Provider: model.ProviderOpenAI,
		Config: model.ProviderConfig{
			APIKey: "sk-verysecretkey-abcd",
			Model:  "gpt-4o-mini",
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(h, "acct-1", http.MethodGet, "/provider", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp model.ProviderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.OK)
	require.NotNil(t, resp.Provider)
	assert.Equal(t, model.ProviderOpenAI, resp.Provider.Provider)
	assert.Equal(t, "gpt-4o-mini", resp.Provider.Config.Model)
	assert.NotContains(t, resp.Provider.Config.APIKey, "verysecretkey")
	assert.Contains(t, resp.Provider.Config.APIKey, "abcd", "masked key keeps a display suffix")
}

func TestRegistrationsAreScopedPerAccount(t *testing.T) {
	h := newTestHandler(&fakeLLM{})

	serve(h, "acct-1", http.MethodPost, "/register-provider", model.ProviderRegistration{
		Provider: model.ProviderHTTP,
		Config:   model.ProviderConfig{Endpoint: "https://example.test/chat"},
	})

	rec := serve(h, "acct-2", http.MethodGet, "/provider", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegisterValidation(t *testing.T) {
	h := newTestHandler(&fakeLLM{})

	cases := []struct {
		name string
		reg  model.ProviderRegistration
	}{
		{"unknown provider", model.ProviderRegistration{Provider: "telepathy"}},
		{"openai without key", model.ProviderRegistration{Provider: model.ProviderOpenAI}},
		{"http without endpoint", model.ProviderRegistration{Provider: model.ProviderHTTP}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(h, "acct-1", http.MethodPost, "/register-provider", tc.reg)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestDeleteProvider(t *testing.T) {
	h := newTestHandler(&fakeLLM{})
	serve(h, "acct-1", http.MethodPost, "/register-provider", model.ProviderRegistration{
		Provider: model.ProviderHTTP,
		Config:   model.ProviderConfig{Endpoint: "https://example.test/chat"},
	})

	rec := serve(h, "acct-1", http.MethodDelete, "/provider", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(h, "acct-1", http.MethodGet, "/provider", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChatDispatchesToRegisteredProvider(t *testing.T) {
	fake := &fakeLLM{reply: "42"}
	h := newTestHandler(fake)
	serve(h, "acct-1", http.MethodPost, "/register-provider", model.ProviderRegistration{
		Provider: model.ProviderOpenAI,
		Config: model.ProviderConfig{
			APIKey:       "sk-secret",
			Model:        "gpt-4o-mini",
			SystemPrompt: "answer briefly",
		},
	})

	rec := serve(h, "acct-1", http.MethodPost, "/chat", model.ChatRequest{
		Prompt: "meaning of life?",
		Conversation: []model.Message{
			{Author: "alice", Role: model.RoleUser, Text: "hi", TS: 1},
			{Author: "assistant", Role: model.RoleAssistant, Text: "hello", TS: 2},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp model.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "42", resp.Reply)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, "gpt-4o-mini", resp.Meta.ModelID)

	require.NotNil(t, fake.lastReq)
	assert.Equal(t, "answer briefly", fake.lastReq.System)
	require.Len(t, fake.lastReq.Messages, 3)
	assert.Equal(t, "meaning of life?", fake.lastReq.Messages[2].Content)
}

func TestChatWithoutRegistrationIs404(t *testing.T) {
	h := newTestHandler(&fakeLLM{})

	rec := serve(h, "acct-1", http.MethodPost, "/chat", model.ChatRequest{Prompt: "hi"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChatRequiresPrompt(t *testing.T) {
	h := newTestHandler(&fakeLLM{})
	serve(h, "acct-1", http.MethodPost, "/register-provider", model.ProviderRegistration{
		Provider: model.ProviderHTTP,
		Config:   model.ProviderConfig{Endpoint: "https://example.test/chat"},
	})

	rec := serve(h, "acct-1", http.MethodPost, "/chat", model.ChatRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", maskSecret(""))
	assert.NotContains(t, maskSecret("short"), "short")
	masked := maskSecret("sk-1234567890abcdef")
	assert.NotContains(t, masked, "sk-123456")
	assert.Contains(t, masked, "cdef")
}
