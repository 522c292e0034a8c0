// Package gateway implements the HTTP service the pipeline ships: a thin
// wrapper that forwards a prompt to an LLM provider and returns its reply.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/slipway-sh/slipway/internal/logging"
)

// LLMClient produces a completion for a prompt.
type LLMClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// generateTimeout bounds a single upstream completion call.
const generateTimeout = 60 * time.Second

// Server is the gateway HTTP server.
type Server struct {
	addr string
	mux  *http.ServeMux
	llm  LLMClient
}

// NewServer creates a gateway server with all routes registered.
func NewServer(addr string, llm LLMClient) *Server {
	s := &Server{
		addr: addr,
		mux:  http.NewServeMux(),
		llm:  llm,
	}
	s.mux.HandleFunc("POST /generate", s.handleGenerate)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	return s
}

// Handler returns the route handler (for tests).
func (s *Server) Handler() http.Handler { return s.mux }

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logging.Info("gateway listening", "addr", s.addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		err := <-errCh
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

type generateRequest struct {
	Message string `json:"message"`
}

type generateResponse struct {
	Reply string `json:"reply"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), generateTimeout)
	defer cancel()

	reply, err := s.llm.Complete(ctx, req.Message)
	if err != nil {
		logging.Error("completion failed", "error", err)
		writeError(w, http.StatusBadGateway, "upstream completion failed")
		return
	}

	writeJSON(w, http.StatusOK, generateResponse{Reply: reply})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
