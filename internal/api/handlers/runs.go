package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/wonny/msesync/internal/brain"
	"github.com/wonny/msesync/internal/contracts"
	"github.com/wonny/msesync/pkg/logger"
)

// Runner executes pipeline runs and remembers the latest report
type Runner interface {
	Run(ctx context.Context, config brain.RunConfig) (*contracts.RunReport, error)
	Latest(ctx context.Context) (*contracts.RunReport, bool)
	Running() bool
}

// RunHandler handles run status and trigger endpoints
type RunHandler struct {
	runner   Runner
	baseCtx  context.Context
	reformat bool
	logger   *logger.Logger
}

// NewRunHandler creates a new run handler.
// Triggered runs outlive the request and are cancelled with baseCtx.
func NewRunHandler(baseCtx context.Context, runner Runner, reformat bool, log *logger.Logger) *RunHandler {
	return &RunHandler{
		runner:   runner,
		baseCtx:  baseCtx,
		reformat: reformat,
		logger:   log,
	}
}

// RunRequest represents a run trigger request
type RunRequest struct {
	Type  string   `json:"type"`  // "full", "sync", "analysis"
	Codes []string `json:"codes"` // Optional: restrict to these issuers
}

// RunResponse represents an accepted run
type RunResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Type    string `json:"type"`
	RunID   string `json:"run_id"`
}

// GetLatest returns the most recent run report
// GET /api/runs/latest
func (h *RunHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	report, found := h.runner.Latest(r.Context())
	if !found {
		respondError(w, http.StatusNotFound, "No run recorded yet")
		return
	}

	respondJSON(w, http.StatusOK, report)
}

// Trigger starts a run in the background
// POST /api/runs
func (h *RunHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// Default type
	if req.Type == "" {
		req.Type = "full"
	}

	now := time.Now()
	var cfg brain.RunConfig
	switch req.Type {
	case "full":
		cfg = brain.FullRun(now, h.reformat)
	case "sync":
		cfg = brain.SyncRun(now, h.reformat)
	case "analysis":
		cfg = brain.AnalysisRun(now)
	default:
		respondError(w, http.StatusBadRequest, "Invalid run type (valid: full, sync, analysis)")
		return
	}
	cfg.Codes = req.Codes
	cfg.RunID = brain.NewRunID(now)

	if h.runner.Running() {
		respondError(w, http.StatusConflict, brain.ErrRunInProgress.Error())
		return
	}

	h.logger.WithFields(map[string]interface{}{
		"type":   req.Type,
		"run_id": cfg.RunID,
		"codes":  len(cfg.Codes),
	}).Info("Pipeline run triggered")

	go func() {
		if _, err := h.runner.Run(h.baseCtx, cfg); err != nil {
			h.logger.WithError(err).WithField("run_id", cfg.RunID).Warn("Triggered run failed")
		}
	}()

	respondJSON(w, http.StatusAccepted, RunResponse{
		Status:  "accepted",
		Message: "Pipeline run started",
		Type:    req.Type,
		RunID:   cfg.RunID,
	})
}
