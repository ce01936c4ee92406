package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/wonny/msesync/internal/contracts"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// PrintHeader prints a command banner
func PrintHeader(title string) {
	fmt.Println()
	PrintDoubleSeparator()
	fmt.Printf("  %s\n", title)
	PrintSeparator()
}

// PrintSeparator prints a visual separator
func PrintSeparator() {
	fmt.Println("───────────────────────────────────────────────────────────")
}

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator() {
	fmt.Println("═══════════════════════════════════════════════════════════")
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Println()
	fmt.Printf("⚠️  %s\n", message)
	fmt.Println()
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Printf("✅ %s\n", message)
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Printf("❌ %s\n", message)
}

// PrintTableHeader prints a table header
func PrintTableHeader(columns []string, widths []int) {
	PrintTableRow(columns, widths)

	totalWidth := 0
	for i, width := range widths {
		totalWidth += width
		if i < len(widths)-1 {
			totalWidth += 2 // spacing
		}
	}
	fmt.Println(strings.Repeat("─", totalWidth))
}

// PrintTableRow prints a table row
func PrintTableRow(values []string, widths []int) {
	for i, val := range values {
		fmt.Printf("%-*s", widths[i], val)
		if i < len(values)-1 {
			fmt.Print("  ")
		}
	}
	fmt.Println()
}

// PrintList prints a bulleted list
func PrintList(items []string) {
	for _, item := range items {
		fmt.Printf("   • %s\n", item)
	}
}

// PrintKeyValue prints key-value pairs
func PrintKeyValue(key string, value string, keyWidth int) {
	fmt.Printf("   %-*s : %s\n", keyWidth, key, value)
}

// PrintSyncReport prints the counts and failed issuers of a sync run
func PrintSyncReport(r *contracts.SyncReport) {
	PrintKeyValue("Issuers", fmt.Sprintf("%d (%d up to date)", len(r.Outcomes), r.Skipped()), 12)
	PrintKeyValue("Fetched", fmt.Sprintf("%d rows", r.Fetched), 12)
	PrintKeyValue("Normalized", fmt.Sprintf("%d rows (%d dropped)", r.Normalized, r.Dropped), 12)
	PrintKeyValue("Inserted", fmt.Sprintf("%d rows", r.Inserted), 12)
	PrintKeyValue("Duration", r.Duration().Round(time.Millisecond).String(), 12)

	if failed := r.FailedCodes(); len(failed) > 0 {
		PrintWarning(fmt.Sprintf("%d issuers had errors", len(failed)))
		for _, code := range failed {
			fmt.Printf("   • %s: %s\n", code, strings.Join(r.Outcomes[code].Errors, "; "))
		}
	}
}

// PrintAnalysisReport prints the signal counts and failed issuers of an analysis run
func PrintAnalysisReport(r *contracts.AnalysisReport) {
	PrintKeyValue("Analyzed", fmt.Sprintf("%d issuers", r.Analyzed), 12)
	PrintKeyValue("Failed", fmt.Sprintf("%d issuers", r.Failed), 12)
	PrintKeyValue("Signals", fmt.Sprintf("%d BUY / %d SELL", r.Buy, r.Sell), 12)
	if r.ParamsHash != "" {
		PrintKeyValue("Params", r.ParamsHash[:12], 12)
	}
	PrintKeyValue("Duration", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String(), 12)

	if failed := r.FailedCodes(); len(failed) > 0 {
		PrintWarning(fmt.Sprintf("%d issuers were not analyzed", len(failed)))
		for _, code := range failed {
			fmt.Printf("   • %s: %s\n", code, r.Errors[code])
		}
	}
}

// PrintRunReport prints the stage table of a pipeline run
func PrintRunReport(r *contracts.RunReport) {
	fmt.Println()
	widths := []int{10, 8, 8, 8, 10}
	PrintTableHeader([]string{"Stage", "Status", "Input", "Output", "Duration"}, widths)
	for _, s := range r.Stages {
		status := "ok"
		if !s.Success {
			status = "FAILED"
		}
		PrintTableRow([]string{
			s.Stage.String(),
			status,
			fmt.Sprintf("%d", s.InputCount),
			fmt.Sprintf("%d", s.OutputCount),
			(time.Duration(s.Duration) * time.Millisecond).String(),
		}, widths)
	}
	fmt.Println()

	for _, s := range r.Stages {
		if s.Error != "" {
			PrintError(fmt.Sprintf("%s: %s", s.Stage, s.Error))
		}
	}

	if r.Sync != nil {
		PrintSeparator()
		PrintSyncReport(r.Sync)
	}
	if r.Analysis != nil {
		PrintSeparator()
		PrintAnalysisReport(r.Analysis)
		PrintKeyValue("Exported", fmt.Sprintf("%d issuers", r.Exported), 12)
	}
	fmt.Println()

	if r.Success() {
		PrintSuccess(fmt.Sprintf("Run %s completed in %s", r.RunID, r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond)))
	} else {
		PrintError(fmt.Sprintf("Run %s completed with failures", r.RunID))
	}
}
