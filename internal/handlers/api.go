package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"sort"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/terrascope/ingest/internal/ingest"
)

// API exposes the normalization service over HTTP. Single-artifact
// endpoints return 400 when their one artifact fails; the batch endpoint
// always returns 200 and reports failures per artifact in the body.
type API struct {
	svc *ingest.Service
	log hclog.Logger
}

func NewAPI(svc *ingest.Service, log hclog.Logger) *API {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &API{svc: svc, log: log}
}

func (a *API) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", HealthHandler)
	mux.HandleFunc("/v1/normalize/state", a.NormalizeStateHandler)
	mux.HandleFunc("/v1/normalize/plan", a.NormalizePlanHandler)
	mux.HandleFunc("/v1/batch", a.BatchHandler)
	return mux
}

// BatchRequest is the wire shape of a batch submission. Artifact maps are
// keyed by name; names become the artifact field of any reported errors.
type BatchRequest struct {
	ConfigFiles map[string]string          `json:"config_files,omitempty"`
	States      map[string]json.RawMessage `json:"states,omitempty"`
	Plans       map[string]json.RawMessage `json:"plans,omitempty"`
	ExternalIDs map[string]string          `json:"external_ids,omitempty"`
}

func (a *API) NormalizeStateHandler(w http.ResponseWriter, r *http.Request) {
	a.normalizeOne(w, r, "state")
}

func (a *API) NormalizePlanHandler(w http.ResponseWriter, r *http.Request) {
	a.normalizeOne(w, r, "plan")
}

func (a *API) normalizeOne(w http.ResponseWriter, r *http.Request, kind string) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	art := ingest.Artifact{Name: kind, Source: body}
	batch := ingest.Batch{}
	if kind == "state" {
		batch.States = []ingest.Artifact{art}
	} else {
		batch.Plans = []ingest.Artifact{art}
	}

	runID := uuid.NewString()
	a.log.Debug("normalize request", "run_id", runID, "kind", kind, "bytes", len(body))

	res, err := a.svc.Run(r.Context(), batch)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if len(res.Errors) > 0 {
		a.log.Warn("normalize failed", "run_id", runID, "kind", res.Errors[0].Kind)
		writeJSON(w, r, http.StatusBadRequest, res.Errors[0])
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (a *API) BatchHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var req BatchRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "Invalid JSON in request body", http.StatusBadRequest)
		return
	}

	batch := ingest.Batch{
		ConfigFiles: sortedArtifacts(req.ConfigFiles, func(s string) []byte { return []byte(s) }),
		States:      sortedArtifacts(req.States, func(m json.RawMessage) []byte { return m }),
		Plans:       sortedArtifacts(req.Plans, func(m json.RawMessage) []byte { return m }),
		ExternalIDs: req.ExternalIDs,
	}

	runID := uuid.NewString()
	a.log.Info("batch request", "run_id", runID,
		"configs", len(batch.ConfigFiles), "states", len(batch.States), "plans", len(batch.Plans))

	res, err := a.svc.Run(r.Context(), batch)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// sortedArtifacts flattens an artifact map in name order so batch contents
// do not depend on Go's map iteration.
func sortedArtifacts[V any](m map[string]V, src func(V) []byte) []ingest.Artifact {
	if len(m) == 0 {
		return nil
	}
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	arts := make([]ingest.Artifact, 0, len(names))
	for _, name := range names {
		arts = append(arts, ingest.Artifact{Name: name, Source: src(m[name])})
	}
	return arts
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	if r.URL.Query().Get("pretty") == "true" {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
