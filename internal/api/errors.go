package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/moogar0880/problems"
	"github.com/soochol/appcfg/internal/appcfg"
	"github.com/soochol/appcfg/internal/schema"
	"github.com/soochol/appcfg/internal/services"
)

const problemContentType = "application/problem+json"

// validationProblem is a 422 problem listing the document's violations.
type validationProblem struct {
	*problems.Problem
	Problems []schema.Problem `json:"problems"`
}

func writeProblem(w http.ResponseWriter, status int, p any) {
	w.Header().Set("Content-Type", problemContentType)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(p)
}

func newProblem(r *http.Request, status int, typ, detail string) *problems.Problem {
	return problems.NewStatusProblem(status).
		WithInstance(r.URL.Path).
		WithType(typ).
		WithDetail(detail)
}

func badRequest(w http.ResponseWriter, r *http.Request, detail string) {
	writeProblem(w, http.StatusBadRequest, newProblem(r, http.StatusBadRequest, "bad_request", detail))
}

func notFound(w http.ResponseWriter, r *http.Request, detail string) {
	writeProblem(w, http.StatusNotFound, newProblem(r, http.StatusNotFound, "not_found", detail))
}

// writeError maps domain errors to problem responses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		scopeErr    *appcfg.ScopeError
		keyErr      *appcfg.KeyMismatchError
		lengthErr   *appcfg.LengthMismatchError
		notFoundErr *appcfg.NotFoundError
		indexErr    *appcfg.IndexOutOfBoundsError
		conflictErr *appcfg.ConflictError
		cycleErr    *appcfg.CycleError
		invalidDoc  *services.ValidationError
	)
	switch {
	case errors.As(err, &scopeErr), errors.Is(err, appcfg.ErrInvalidName):
		badRequest(w, r, err.Error())
	case errors.As(err, &keyErr):
		writeProblem(w, http.StatusBadRequest, newProblem(r, http.StatusBadRequest, "key_mismatch", err.Error()))
	case errors.As(err, &lengthErr):
		writeProblem(w, http.StatusBadRequest, newProblem(r, http.StatusBadRequest, "length_mismatch", err.Error()))
	case errors.As(err, &notFoundErr):
		notFound(w, r, err.Error())
	case errors.As(err, &indexErr):
		writeProblem(w, http.StatusNotFound, newProblem(r, http.StatusNotFound, "index_out_of_bounds", err.Error()))
	case errors.As(err, &conflictErr):
		writeProblem(w, http.StatusConflict, newProblem(r, http.StatusConflict, "conflict", err.Error()))
	case errors.As(err, &cycleErr):
		writeProblem(w, http.StatusConflict, newProblem(r, http.StatusConflict, "cycle", err.Error()))
	case errors.As(err, &invalidDoc):
		writeProblem(w, http.StatusUnprocessableEntity, validationProblem{
			Problem:        newProblem(r, http.StatusUnprocessableEntity, "invalid_document", "document failed validation"),
			Problems:       invalidDoc.Problems,
		})
	default:
		slog.Error("request failed", "path", r.URL.Path, "err", err)
		writeProblem(w, http.StatusInternalServerError,
			problems.NewStatusProblem(http.StatusInternalServerError).
				WithInstance(r.URL.Path).
				WithType("internal_error").
				WithError(err))
	}
}
