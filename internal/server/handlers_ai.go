package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/jonathan/portfolio-backend/internal/assistant"
)

// maxAIRequestBytes bounds assistant request bodies.
const maxAIRequestBytes = 64 << 10

func (s *Server) registerAIRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/ai/chat", s.handleChat)
	mux.HandleFunc("POST /api/v1/ai/classify", s.handleClassify)
	mux.HandleFunc("GET /api/v1/ai/status", s.handleAIStatus)
}

// decodeJSON reads a single JSON object from the request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxAIRequestBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return &ErrBadRequest{Cause: errors.New("request body is empty")}
		}
		return &ErrBadRequest{Cause: err}
	}
	return nil
}

// handleChat answers a chat message.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req assistant.Request
	if err := decodeJSON(r, &req); err != nil {
		s.errorResponse(w, r, err)
		return
	}

	resp, err := s.assistant.Chat(req)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

// handleClassify classifies a message.
func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req assistant.Request
	if err := decodeJSON(r, &req); err != nil {
		s.errorResponse(w, r, err)
		return
	}

	resp, err := s.assistant.Classify(req)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

// handleAIStatus reports assistant availability.
func (s *Server) handleAIStatus(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.assistant.Status())
}
