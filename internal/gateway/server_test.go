package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLLM returns a canned reply or error and records the prompt it saw.
type fakeLLM struct {
	reply  string
	err    error
	prompt string
}

func (f *fakeLLM) Complete(ctx context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.reply, f.err
}

func doRequest(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestGenerate(t *testing.T) {
	llm := &fakeLLM{reply: "Ahoy there!"}
	srv := NewServer(":0", llm)

	rec := doRequest(t, srv.Handler(), http.MethodPost, "/generate", `{"message": "say hello like a pirate"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, map[string]string{"reply": "Ahoy there!"}, decodeBody(t, rec))
	assert.Equal(t, "say hello like a pirate", llm.prompt)
}

func TestGenerate_InvalidJSON(t *testing.T) {
	srv := NewServer(":0", &fakeLLM{})

	rec := doRequest(t, srv.Handler(), http.MethodPost, "/generate", `{"message": `)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid JSON body", decodeBody(t, rec)["error"])
}

func TestGenerate_EmptyMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing field", `{}`},
		{"empty string", `{"message": ""}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(":0", &fakeLLM{})
			rec := doRequest(t, srv.Handler(), http.MethodPost, "/generate", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "message is required", decodeBody(t, rec)["error"])
		})
	}
}

func TestGenerate_UpstreamFailure(t *testing.T) {
	llm := &fakeLLM{err: fmt.Errorf("429 too many requests")}
	srv := NewServer(":0", llm)

	rec := doRequest(t, srv.Handler(), http.MethodPost, "/generate", `{"message": "hi"}`)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "upstream completion failed", decodeBody(t, rec)["error"])
}

func TestGenerate_WrongMethod(t *testing.T) {
	srv := NewServer(":0", &fakeLLM{})

	rec := doRequest(t, srv.Handler(), http.MethodGet, "/generate", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealth(t *testing.T) {
	srv := NewServer(":0", &fakeLLM{})

	rec := doRequest(t, srv.Handler(), http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]string{"status": "ok"}, decodeBody(t, rec))
}

func TestUnknownRoute(t *testing.T) {
	srv := NewServer(":0", &fakeLLM{})

	rec := doRequest(t, srv.Handler(), http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
