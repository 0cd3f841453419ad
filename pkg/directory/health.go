package directory

import (
	"context"
	"time"

	"github.com/parcelpost/agent-directory/pkg/db"
)

// Health checks the directory service health.
func (d *Directory) Health(ctx context.Context) *HealthOutput {
	dbOk := true

	if d.repo == nil {
		dbOk = false
	} else {
		_, _, err := d.repo.ListAgents(ctx, db.ListAgentsParams{Limit: 1})
		if err != nil {
			dbOk = false
		}
	}

	status := "healthy"
	if !dbOk {
		status = "unhealthy"
	}

	return &HealthOutput{
		Status: status,
		Checks: HealthChecks{
			Database: dbOk,
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
