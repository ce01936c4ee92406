package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/wonny/msesync/internal/s0_data/quality"
	"github.com/wonny/msesync/pkg/logger"
)

// FreshnessChecker reports per-issuer data freshness
type FreshnessChecker interface {
	Check(ctx context.Context, today time.Time) (*quality.Snapshot, error)
}

// DataHandler handles data-related API endpoints
// ⭐ SSOT: 데이터 API 핸들러는 이 구조체에서만
type DataHandler struct {
	qualityGate FreshnessChecker
	logger      *logger.Logger
}

// NewDataHandler creates a new data handler
func NewDataHandler(qualityGate FreshnessChecker, log *logger.Logger) *DataHandler {
	return &DataHandler{
		qualityGate: qualityGate,
		logger:      log,
	}
}

// GetFreshness returns the freshness snapshot of the stored history
// GET /api/freshness?date=YYYY-MM-DD
func (h *DataHandler) GetFreshness(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	today := time.Now()
	if d := r.URL.Query().Get("date"); d != "" {
		parsed, err := time.Parse("2006-01-02", d)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid 'date' format (expected YYYY-MM-DD)")
			return
		}
		today = parsed
	}

	snapshot, err := h.qualityGate.Check(ctx, today)
	if err != nil {
		h.logger.WithError(err).Error("Failed to check freshness")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve freshness")
		return
	}

	respondJSON(w, http.StatusOK, snapshot)
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
