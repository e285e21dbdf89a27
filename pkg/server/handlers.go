package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rmitchellscott/stationmaster-plugins/internal/version"
	"github.com/rmitchellscott/stationmaster-plugins/pkg/plugin"
	"github.com/rmitchellscott/stationmaster-plugins/pkg/types"
)

// executeRequest is the body of an execute or options call. Everything
// besides the settings map is optional; missing user context falls back
// to UTC and English inside the runtime.
type executeRequest struct {
	Settings       map[string]any              `json:"settings"`
	User           types.User                  `json:"user"`
	PluginSettings types.PluginSettingsMeta    `json:"plugin_settings"`
	OAuthTokens    map[string]types.OAuthToken `json:"oauth_tokens"`
}

func (req *executeRequest) executionContext() types.ExecutionContext {
	return types.ExecutionContext{
		User:           req.User,
		PluginSettings: req.PluginSettings,
		OAuthTokens:    req.OAuthTokens,
	}
}

type optionsRequest struct {
	executeRequest

	Plugin    string `json:"plugin"`
	FieldName string `json:"field_name"`
}

// envelope is the uniform response shape for every API endpoint.
type envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
}

func (s *service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, envelope{
		Success:   true,
		Data:      map[string]string{"status": "ok", "version": version.Version},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *service) handlePlugins(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, envelope{
		Success:   true,
		Data:      s.registry.Describe(s.schemaDir),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *service) handleExecute(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")

		return
	}

	execCtx := req.executionContext()
	projected := s.projector.Project(r.Context(), req.Settings, execCtx)

	result, err := s.executor.Execute(r.Context(), name, projected, execCtx)
	if err != nil {
		s.writeError(w, statusForError(err), result.Error)

		return
	}

	s.writeJSON(w, http.StatusOK, envelope{
		Success:   true,
		Data:      result.Data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *service) handleOptions(w http.ResponseWriter, r *http.Request) {
	var req optionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")

		return
	}

	if req.Plugin == "" || req.FieldName == "" {
		s.writeError(w, http.StatusBadRequest, "plugin and field_name are required")

		return
	}

	result, err := s.options.Fetch(r.Context(), req.Plugin, req.FieldName, req.executionContext())
	if err != nil {
		s.writeError(w, statusForError(err), err.Error())

		return
	}

	s.writeJSON(w, http.StatusOK, envelope{
		Success:   true,
		Data:      result,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// statusForError maps the execution error taxonomy onto HTTP statuses.
func statusForError(err error) int {
	var (
		notFound *plugin.NotFoundError
		contract *plugin.ContractError
	)

	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &contract):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *service) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, envelope{
		Success:   false,
		Error:     msg,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *service) writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.WithError(err).Error("Failed to encode response")
	}
}
