package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/soochol/appcfg/internal/schema"
	"github.com/soochol/appcfg/internal/store"
)

type configResponse struct {
	Version   uint64 `json:"version"`
	Dirty     bool   `json:"dirty"`
	SessionID string `json:"session_id"`
	YAML      string `json:"yaml"`
}

func (s *Server) configState() configResponse {
	st := s.docs.Store()
	doc, version := st.Snapshot()
	return configResponse{
		Version:   version,
		Dirty:     st.IsDirty(),
		SessionID: st.SessionID(),
		YAML:      doc.String(),
	}
}

func (s *Server) getConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.configState())
}

type putConfigRequest struct {
	YAML string `json:"yaml"`
}

func (s *Server) putConfig(w http.ResponseWriter, r *http.Request) {
	var req putConfigRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.docs.Replace(req.YAML); err != nil {
		badRequest(w, r, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.configState())
}

func (s *Server) saveConfig(w http.ResponseWriter, r *http.Request) {
	rev, err := s.docs.Save(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rev)
}

func (s *Server) discardConfig(w http.ResponseWriter, r *http.Request) {
	s.docs.Discard()
	writeJSON(w, http.StatusOK, s.configState())
}

type validateResponse struct {
	Valid    bool             `json:"valid"`
	Problems []schema.Problem `json:"problems"`
}

func (s *Server) validateConfig(w http.ResponseWriter, r *http.Request) {
	problems, err := s.docs.Validate()
	if err != nil {
		writeError(w, r, err)
		return
	}
	if problems == nil {
		problems = []schema.Problem{}
	}
	writeJSON(w, http.StatusOK, validateResponse{Valid: len(problems) == 0, Problems: problems})
}

// streamEvents streams store events as SSE until the client disconnects.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	if s.feed == nil {
		notFound(w, r, "event feed is disabled")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	events, err := s.feed.Subscribe(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// The first frame tells the client which version it is looking at.
	writeSSE(w, store.Event{
		Type:      store.EventLoaded,
		Version:   s.docs.Store().Version(),
		SessionID: s.docs.Store().SessionID(),
	})
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev store.Event) {
	data, _ := json.Marshal(ev)
	fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", ev.Version, ev.Type, data)
}
