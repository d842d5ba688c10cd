package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jask/wipchat/internal/wip"
)

// Server exposes the backend contract over HTTP.
type Server struct {
	orc *Orchestrator
}

func New(orc *Orchestrator) *Server {
	return &Server{orc: orc}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /wip/start-session", s.handleStartSession)
	mux.HandleFunc("GET /wip/manifest", s.handleManifest)
	mux.HandleFunc("POST /wip/chat", s.handleChat)
	mux.HandleFunc("POST /wip/context-injection", s.handleContextInjection)
	mux.HandleFunc("POST /wip/call-tool/{tool}", s.handleCallTool)
	return mux
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	writeJSON(w, http.StatusOK, wip.SessionResponse{SessionID: id})
}

func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	uris := make([]string, 0, len(s.orc.manifests))
	for _, m := range s.orc.manifests {
		uris = append(uris, m.URI)
	}
	writeJSON(w, http.StatusOK, wip.ManifestResponse{Resources: uris})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req wip.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed chat request")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	session := sessionOrDefault(req.SessionID)

	entries, err := s.orc.RunChatTurn(r.Context(), session, req.Message)
	if err != nil {
		log.Error().Err(err).Str("session", session).Msg("server: chat turn failed")
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if entries == nil {
		entries = []wip.ReplyEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleContextInjection(w http.ResponseWriter, r *http.Request) {
	var req wip.ContextInjectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed context injection request")
		return
	}
	if req.Content != "" {
		s.orc.InjectContext(sessionOrDefault(req.SessionID), req.Content)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCallTool(w http.ResponseWriter, r *http.Request) {
	tool := r.PathValue("tool")
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}
	result, err := s.orc.tools.Call(r.Context(), tool, string(body))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, result)
}

// ListenAndServe runs the server until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	log.Info().Str("addr", addr).Msg("server: listening")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func sessionOrDefault(id string) string {
	if id == "" {
		return "default-session"
	}
	return id
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
