// Package api exposes the config document over HTTP.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/soochol/appcfg/internal/events"
	"github.com/soochol/appcfg/internal/services"
)

type Server struct {
	docs        *services.DocumentService
	feed        *events.Feed
	auth        *Authenticator
	corsOrigins []string
	validate    *validator.Validate
}

func NewServer(docs *services.DocumentService, feed *events.Feed) *Server {
	return &Server{
		docs:        docs,
		feed:        feed,
		corsOrigins: []string{"*"},
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

// SetAuthenticator requires a bearer token on every mutating request.
func (s *Server) SetAuthenticator(a *Authenticator) {
	s.auth = a
}

// SetCORSOrigins replaces the allowed CORS origins.
func (s *Server) SetCORSOrigins(origins []string) {
	if len(origins) > 0 {
		s.corsOrigins = origins
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}))
	r.Route("/api", func(r chi.Router) {
		if s.auth != nil {
			r.Use(s.auth.Middleware)
		}
		r.Route("/config", func(r chi.Router) {
			r.Get("/", s.getConfig)
			r.Put("/", s.putConfig)
			r.Post("/save", s.saveConfig)
			r.Post("/discard", s.discardConfig)
			r.Post("/validate", s.validateConfig)
			r.Get("/events", s.streamEvents)
		})
		r.Route("/envs", func(r chi.Router) {
			r.Get("/", s.listEnvVars)
			r.Post("/", s.addEnvVar)
			r.Post("/reorder", s.reorderEnvVars)
			r.Patch("/{index}", s.updateEnvVar)
			r.Delete("/{index}", s.removeEnvVar)
		})
		r.Route("/workflows", func(r chi.Router) {
			r.Get("/", s.listWorkflows)
			r.Post("/", s.createWorkflow)
			r.Delete("/{id}", s.deleteWorkflow)
			r.Post("/{id}/rename", s.renameWorkflow)
			r.Get("/{id}/chain", s.getChain)
			r.Get("/{id}/used-by", s.getUsedBy)
			r.Get("/{id}/chainable", s.getChainable)
			r.Post("/{id}/chain/{placement}", s.addChainedWorkflow)
			r.Delete("/{id}/chain/{placement}/{index}", s.deleteChainedWorkflow)
			r.Post("/{id}/steps", s.addStep)
			r.Delete("/{id}/steps", s.deleteSteps)
		})
		r.Delete("/pipelines/{id}", s.deletePipeline)
		r.Delete("/stages/{id}", s.deleteStage)
		r.Get("/revisions", s.listRevisions)
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// decode reads a JSON body into v and validates its struct tags.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		badRequest(w, r, "invalid request body: "+err.Error())
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		badRequest(w, r, err.Error())
		return false
	}
	return true
}
