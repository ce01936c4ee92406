package jobs

import (
	"context"

	"github.com/wonny/msesync/internal/brain"
	"github.com/wonny/msesync/internal/contracts"
)

// Runner executes one pipeline run
type Runner interface {
	Run(ctx context.Context, config brain.RunConfig) (*contracts.RunReport, error)
}
