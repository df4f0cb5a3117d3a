package api

import (
	"net/http"

	"github.com/soochol/appcfg/internal/appcfg"
)

func (s *Server) listRevisions(w http.ResponseWriter, r *http.Request) {
	revs, err := s.docs.Revisions(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if revs == nil {
		revs = []*appcfg.Revision{}
	}
	writeJSON(w, http.StatusOK, revs)
}
