package api

import (
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/soochol/appcfg/internal/appcfg"
	"github.com/soochol/appcfg/internal/dag"
	"github.com/soochol/appcfg/internal/document"
)

type workflowSummary struct {
	ID         string   `json:"id"`
	BeforeRun  []string `json:"before_run"`
	AfterRun   []string `json:"after_run"`
	UsedBy     []string `json:"used_by"`
	UsedByText string   `json:"used_by_text"`
	Pipelines  int      `json:"pipelines"`
	IsUtility  bool     `json:"is_utility"`
	StepCount  int      `json:"step_count"`
}

// config decodes the typed view of the current document.
func (s *Server) config(w http.ResponseWriter, r *http.Request) (*appcfg.Config, bool) {
	cfg, err := appcfg.FromDocument(s.docs.Store().Document())
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return cfg, true
}

// workflowFromPath returns the {id} URL parameter, answering 404 when the
// workflow does not exist.
func (s *Server) workflowFromPath(w http.ResponseWriter, r *http.Request, cfg *appcfg.Config) (string, bool) {
	id := chi.URLParam(r, "id")
	if !cfg.Workflows.Has(id) {
		writeError(w, r, appcfg.WorkflowNotFound(id))
		return "", false
	}
	return id, true
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

func (s *Server) listWorkflows(w http.ResponseWriter, r *http.Request) {
	cfg, ok := s.config(w, r)
	if !ok {
		return
	}
	out := make([]workflowSummary, 0, cfg.Workflows.Len())
	for _, id := range cfg.Workflows.Keys() {
		wf, _ := cfg.Workflows.Get(id)
		usedBy := dag.UsedBy(&cfg.Workflows, id)
		out = append(out, workflowSummary{
			ID:         id,
			BeforeRun:  nonNil(wf.BeforeRun),
			AfterRun:   nonNil(wf.AfterRun),
			UsedBy:     nonNil(usedBy),
			UsedByText: dag.UsedByText(usedBy),
			Pipelines:  dag.CountInPipelines(id, &cfg.Pipelines, &cfg.Stages),
			IsUtility:  appcfg.IsUtilityWorkflow(id),
			StepCount:  len(wf.Steps),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type createWorkflowRequest struct {
	ID     string `json:"id" validate:"required"`
	BaseID string `json:"base_id"`
}

func (s *Server) createWorkflow(w http.ResponseWriter, r *http.Request) {
	var req createWorkflowRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.docs.Update("create workflow "+req.ID, document.CreateWorkflow(req.ID, req.BaseID)); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.configState())
}

func (s *Server) deleteWorkflow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.docs.Update("delete workflow "+id, document.DeleteWorkflow(id)); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.configState())
}

type renameRequest struct {
	NewID string `json:"new_id" validate:"required"`
}

func (s *Server) renameWorkflow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req renameRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.docs.Update("rename workflow "+id, document.RenameWorkflow(id, req.NewID)); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.configState())
}

type chainResponse struct {
	ID        string   `json:"id"`
	BeforeRun []string `json:"before_run"`
	AfterRun  []string `json:"after_run"`
	Chain     []string `json:"chain"`
}

func (s *Server) getChain(w http.ResponseWriter, r *http.Request) {
	cfg, ok := s.config(w, r)
	if !ok {
		return
	}
	id, ok := s.workflowFromPath(w, r, cfg)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, chainResponse{
		ID:        id,
		BeforeRun: nonNil(dag.BeforeRunChain(&cfg.Workflows, id)),
		AfterRun:  nonNil(dag.AfterRunChain(&cfg.Workflows, id)),
		Chain:     nonNil(dag.WorkflowChain(&cfg.Workflows, id)),
	})
}

func (s *Server) getUsedBy(w http.ResponseWriter, r *http.Request) {
	cfg, ok := s.config(w, r)
	if !ok {
		return
	}
	id, ok := s.workflowFromPath(w, r, cfg)
	if !ok {
		return
	}
	usedBy := dag.UsedBy(&cfg.Workflows, id)
	writeJSON(w, http.StatusOK, map[string]any{
		"id":      id,
		"used_by": nonNil(usedBy),
		"text":    dag.UsedByText(usedBy),
	})
}

func (s *Server) getChainable(w http.ResponseWriter, r *http.Request) {
	cfg, ok := s.config(w, r)
	if !ok {
		return
	}
	id, ok := s.workflowFromPath(w, r, cfg)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, nonNil(dag.Chainable(&cfg.Workflows, id)))
}

type addChainedRequest struct {
	ID    string `json:"id" validate:"required"`
	Index *int   `json:"index"`
}

func (s *Server) addChainedWorkflow(w http.ResponseWriter, r *http.Request) {
	parent := chi.URLParam(r, "id")
	placement, err := appcfg.ParsePlacement(chi.URLParam(r, "placement"))
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	var req addChainedRequest
	if !s.decode(w, r, &req) {
		return
	}
	index := math.MaxInt
	if req.Index != nil {
		index = *req.Index
	}
	if err := s.docs.Update("chain "+req.ID, document.AddChainedWorkflow(req.ID, parent, placement, index)); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.configState())
}

func (s *Server) deleteChainedWorkflow(w http.ResponseWriter, r *http.Request) {
	parent := chi.URLParam(r, "id")
	placement, err := appcfg.ParsePlacement(chi.URLParam(r, "placement"))
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	index, err := indexParam(r, "index")
	if err != nil {
		badRequest(w, r, "invalid index")
		return
	}
	if err := s.docs.Update("unchain workflow", document.DeleteChainedWorkflow(index, parent, placement)); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.configState())
}

type addStepRequest struct {
	CVS   string `json:"cvs" validate:"required"`
	Index *int   `json:"index"`
}

func (s *Server) addStep(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req addStepRequest
	if !s.decode(w, r, &req) {
		return
	}
	index := math.MaxInt
	if req.Index != nil {
		index = *req.Index
	}
	if err := s.docs.Update("add step "+req.CVS, document.AddStep(document.SourceWorkflows, id, req.CVS, index)); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.configState())
}

// deleteSteps removes the steps at every ?index= value.
func (s *Server) deleteSteps(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	raw := r.URL.Query()["index"]
	if len(raw) == 0 {
		badRequest(w, r, "at least one index is required")
		return
	}
	indices := make([]int, 0, len(raw))
	for _, v := range raw {
		i, err := strconv.Atoi(v)
		if err != nil {
			badRequest(w, r, "invalid index "+strconv.Quote(v))
			return
		}
		indices = append(indices, i)
	}
	if err := s.docs.Update("delete steps", document.DeleteSteps(document.SourceWorkflows, id, indices...)); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.configState())
}

func (s *Server) deletePipeline(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.docs.Update("delete pipeline "+id, document.DeletePipeline(id)); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.configState())
}

func (s *Server) deleteStage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.docs.Update("delete stage "+id, document.DeleteStage(id)); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.configState())
}
