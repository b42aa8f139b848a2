package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"repolens/internal/run"
)

// Handler serves the analysis API backed by a run coordinator.
type Handler struct {
	Coordinator *run.Coordinator
	Logger      *log.Logger
}

func NewHandler(c *run.Coordinator, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{Coordinator: c, Logger: logger}
}

// Routes builds the API mux.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/analyze", h.handleAnalyze)
	mux.HandleFunc("GET /api/runs", h.handleListRuns)
	mux.HandleFunc("GET /api/runs/{id}", h.handleGetRun)
	mux.HandleFunc("GET /api/runs/{id}/events", h.handleEvents)
	mux.HandleFunc("GET /api/runs/{id}/watch", h.handleWatch)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return CORS(mux)
}

type analyzeRequest struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
	// Repository accepts the combined "owner/repo" form.
	Repository string `json:"repository"`
}

func (req *analyzeRequest) target() (owner, repo string, err error) {
	owner, repo = strings.TrimSpace(req.Owner), strings.TrimSpace(req.Repo)
	if combined := strings.TrimSpace(req.Repository); combined != "" {
		parts := strings.SplitN(combined, "/", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return "", "", fmt.Errorf("repository must be owner/repo, got %q", combined)
		}
		owner, repo = parts[0], parts[1]
	}
	if owner == "" || repo == "" {
		return "", "", fmt.Errorf("owner and repo are required")
	}
	return owner, repo, nil
}

func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	owner, repo, err := req.target()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	started, err := h.Coordinator.Start(r.Context(), owner, repo)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	h.Logger.Printf("run %s started for %s/%s", started.ID, owner, repo)
	writeJSON(w, http.StatusAccepted, started)
}

func (h *Handler) handleListRuns(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"runs": h.Coordinator.Store.List()})
}

func (h *Handler) handleGetRun(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.Coordinator.Store.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown run %q", r.PathValue("id")))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
