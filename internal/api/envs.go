package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/soochol/appcfg/internal/appcfg"
	"github.com/soochol/appcfg/internal/document"
)

// envScope reads the scope and id query parameters.
func envScope(r *http.Request) (appcfg.Scope, string, error) {
	scope, err := appcfg.ParseScope(r.URL.Query().Get("scope"))
	return scope, r.URL.Query().Get("id"), err
}

func indexParam(r *http.Request, name string) (int, error) {
	return strconv.Atoi(chi.URLParam(r, name))
}

func (s *Server) listEnvVars(w http.ResponseWriter, r *http.Request) {
	var scope *appcfg.Scope
	if r.URL.Query().Get("scope") != "" {
		sc, _, err := envScope(r)
		if err != nil {
			badRequest(w, r, err.Error())
			return
		}
		scope = &sc
	}
	envs, err := document.EnvVars(s.docs.Store().Document(), scope, r.URL.Query().Get("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if envs == nil {
		envs = []appcfg.EnvVar{}
	}
	writeJSON(w, http.StatusOK, envs)
}

type addEnvVarRequest struct {
	Key      string `json:"key" validate:"required"`
	Value    string `json:"value"`
	IsExpand *bool  `json:"is_expand"`
}

func (s *Server) addEnvVar(w http.ResponseWriter, r *http.Request) {
	scope, id, err := envScope(r)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	var req addEnvVarRequest
	if !s.decode(w, r, &req) {
		return
	}
	env := appcfg.EnvVar{Key: req.Key, Value: req.Value, IsExpand: req.IsExpand}
	if err := s.docs.Update("add env var", document.AppendEnvVar(env, scope, id)); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.configState())
}

// updateEnvVarRequest names the entry's current key; the update is refused
// with a key mismatch when the entry at the index carries another key.
type updateEnvVarRequest struct {
	Key      string  `json:"key" validate:"required"`
	NewKey   *string `json:"new_key"`
	Value    *string `json:"value"`
	IsExpand *bool   `json:"is_expand"`
}

func (s *Server) updateEnvVar(w http.ResponseWriter, r *http.Request) {
	scope, id, err := envScope(r)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	index, err := indexParam(r, "index")
	if err != nil {
		badRequest(w, r, "invalid index")
		return
	}
	var req updateEnvVarRequest
	if !s.decode(w, r, &req) {
		return
	}

	var ops []document.Mutator
	if req.Value != nil {
		ops = append(ops, document.UpdateEnvVarValue(req.Key, *req.Value, index, scope, id))
	}
	if req.IsExpand != nil {
		ops = append(ops, document.UpdateEnvVarIsExpand(*req.IsExpand, index, scope, id))
	}
	if req.NewKey != nil {
		ops = append(ops, document.UpdateEnvVarKey(req.Key, *req.NewKey, index, scope, id))
	}
	if len(ops) == 0 {
		badRequest(w, r, "nothing to update")
		return
	}
	if err := s.docs.Update("update env var", document.Chain(ops...)); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.configState())
}

func (s *Server) removeEnvVar(w http.ResponseWriter, r *http.Request) {
	scope, id, err := envScope(r)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	index, err := indexParam(r, "index")
	if err != nil {
		badRequest(w, r, "invalid index")
		return
	}
	if err := s.docs.Update("remove env var", document.RemoveEnvVar(index, scope, id)); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.configState())
}

type reorderEnvVarsRequest struct {
	Order []int `json:"order" validate:"required"`
}

func (s *Server) reorderEnvVars(w http.ResponseWriter, r *http.Request) {
	scope, id, err := envScope(r)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	var req reorderEnvVarsRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.docs.Update("reorder env vars", document.ReorderEnvVars(req.Order, scope, id)); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.configState())
}
