package relay

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rushi-auxo/fivetran-mcp/internal/upstream"
)

// Actions accepted by /mcp.
const (
	ActionGetInfo = "get_info"
	ActionSync    = "sync_connection"
)

const invalidActionMessage = "Invalid action. Use get_info or sync_connection."

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.DebugContext(r.Context(), "relay: encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	s.writeJSON(w, r, status, map[string]string{"error": message})
}

func (s *Server) writeInternal(w http.ResponseWriter, r *http.Request, detail string) {
	s.writeJSON(w, r, http.StatusInternalServerError, map[string]string{
		"error":  "internal server error",
		"detail": detail,
	})
}

// writeUpstream relays a Fivetran response: raw JSON on success, the
// upstream status and body on a non-2xx answer, 500 otherwise.
func (s *Server) writeUpstream(w http.ResponseWriter, r *http.Request, raw json.RawMessage, err error) {
	if err == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(raw); err != nil {
			s.logger.DebugContext(r.Context(), "relay: write response", "error", err)
		}
		return
	}
	if se, ok := upstream.AsStatus(err); ok {
		s.logger.WarnContext(r.Context(), "relay: upstream rejected request", "status", se.StatusCode, "path", se.Path)
		s.writeError(w, r, se.StatusCode, se.Body)
		return
	}
	s.logger.ErrorContext(r.Context(), "relay: upstream request failed", "error", err)
	s.writeInternal(w, r, err.Error())
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]string{"message": "Server running!"})
}

// handleMCP serves /mcp?id=<connector_id>&action=get_info|sync_connection.
func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id, action := q.Get("id"), q.Get("action")
	if id == "" || action == "" {
		s.writeError(w, r, http.StatusBadRequest, "query parameters id and action are required")
		return
	}

	switch action {
	case ActionGetInfo:
		raw, err := s.api.GetConnector(r.Context(), id)
		s.writeUpstream(w, r, raw, err)
	case ActionSync:
		raw, err := s.api.ForceSync(r.Context(), id)
		s.writeUpstream(w, r, raw, err)
	default:
		s.writeError(w, r, http.StatusBadRequest, invalidActionMessage)
	}
}

// handleSSE emits a single event and ends the stream.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "data: Hello World\n\n")
	if err := http.NewResponseController(w).Flush(); err != nil {
		s.logger.DebugContext(r.Context(), "relay: sse flush", "error", err)
	}
}

func (s *Server) handleGetInfo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.DebugContext(r.Context(), "relay: get_info", "connector_id", id)
	raw, err := s.api.GetConnector(r.Context(), id)
	if err == nil {
		s.logger.DebugContext(r.Context(), "relay: get_info response", "connector_id", id, "bytes", len(raw))
	}
	s.writeUpstream(w, r, raw, err)
}
