package contracts

import "time"

// Pipeline Stage 정의 (SSOT)
// 모든 로그, 리포트에서 이 상수를 사용해야 함
//
// 파이프라인 흐름:
//   discover → sync → merge → reformat → analyze → export

// Stage represents a pipeline stage
type Stage string

const (
	// StageDiscover: 종목 목록 수집 (#Code option)
	// 위치: internal/s0_data/collector/issuers.go
	StageDiscover Stage = "DISCOVER"

	// StageSync: 갭 탐지 + 구간 분할 + 병렬 수집
	// 위치: internal/s0_data/collector/
	StageSync Stage = "SYNC"

	// StageMerge: 정규화/정렬 후 멱등 병합
	// 위치: internal/s0_data/normalize, internal/s0_data/
	StageMerge Stage = "MERGE"

	// StageReformat: 가격 재포맷 + 인덱스 재생성 (staging swap)
	// 위치: internal/s0_data/
	StageReformat Stage = "REFORMAT"

	// StageAnalyze: 일/주/월 지표 계산 및 시그널 생성
	// 위치: internal/s2_signals/
	StageAnalyze Stage = "ANALYZE"

	// StageExport: 결과 싱크 (CSV/API/DB)
	// 위치: internal/sink/
	StageExport Stage = "EXPORT"
)

// String returns the stage name
func (s Stage) String() string {
	return string(s)
}

// Description returns a short description of the stage
func (s Stage) Description() string {
	switch s {
	case StageDiscover:
		return "issuer discovery"
	case StageSync:
		return "gap detection and chunked fetch"
	case StageMerge:
		return "normalize and idempotent merge"
	case StageReformat:
		return "price re-format and index rebuild"
	case StageAnalyze:
		return "indicators and signals"
	case StageExport:
		return "result export"
	default:
		return "unknown"
	}
}

// AllStages returns all pipeline stages in order
func AllStages() []Stage {
	return []Stage{
		StageDiscover,
		StageSync,
		StageMerge,
		StageReformat,
		StageAnalyze,
		StageExport,
	}
}

// IsValidStage checks if a stage string is valid
func IsValidStage(s string) bool {
	for _, stage := range AllStages() {
		if string(stage) == s {
			return true
		}
	}
	return false
}

// StageResult records the outcome and timing of one stage
type StageResult struct {
	Stage       Stage  `json:"stage"`
	Success     bool   `json:"success"`
	InputCount  int    `json:"input_count"`
	OutputCount int    `json:"output_count"`
	Duration    int64  `json:"duration_ms"`
	Error       string `json:"error,omitempty"`
}

// RunReport is the user-visible summary of one end-to-end run
type RunReport struct {
	RunID      string          `json:"run_id"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Stages     []StageResult   `json:"stages"`
	Issuers    int             `json:"issuers"`
	Sync       *SyncReport     `json:"sync,omitempty"`
	Analysis   *AnalysisReport `json:"analysis,omitempty"`
	Exported   int             `json:"exported"`
	Error      string          `json:"error,omitempty"`
}

// Success reports whether every executed stage succeeded
func (r *RunReport) Success() bool {
	if r.Error != "" {
		return false
	}
	for _, s := range r.Stages {
		if !s.Success {
			return false
		}
	}
	return true
}
