package directory

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/parcelpost/agent-directory/pkg/db"
)

const (
	discoverLogPrefix    = "directory:discover"
	discoverDefaultLimit = 20
	discoverMaxLimit     = 500
)

// Discover lists registered agents matching the filters. Retired agents are
// excluded unless status is "retired" or "all".
func (d *Directory) Discover(ctx context.Context, input *DiscoverInput) (*DiscoverOutput, error) {
	slog.Info(fmt.Sprintf("%s - protocol=%s os=%s query=%s",
		discoverLogPrefix, input.Protocol, input.OperatingSystem, input.Query))

	if err := d.requireRepo(); err != nil {
		return nil, err
	}

	page := input.Page
	if page < 1 {
		page = 1
	}
	limit := input.Limit
	if limit < 1 {
		limit = discoverDefaultLimit
	}
	if limit > discoverMaxLimit {
		limit = discoverMaxLimit
	}

	status := input.Status
	if status == "" {
		status = db.AgentStatusActive
	}

	records, total, err := d.repo.ListAgents(ctx, db.ListAgentsParams{
		Protocol:        input.Protocol,
		OperatingSystem: input.OperatingSystem,
		Query:           input.Query,
		Status:          status,
		Page:            page,
		Limit:           limit,
	})
	if err != nil {
		return nil, &DirectoryError{Code: "INTERNAL_ERROR", Message: err.Error()}
	}

	agents := make([]DiscoveredAgent, 0, len(records))
	for _, record := range records {
		agents = append(agents, DiscoveredAgent{
			Name:             record.Name,
			Description:      record.Description,
			Version:          record.Version,
			Author:           record.Author,
			OperatingSystems: record.OperatingSystems,
			Protocols:        record.Protocols,
			Status:           record.Status,
			Revision:         record.Revision,
		})
	}

	return &DiscoverOutput{
		Agents: agents,
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: int(math.Ceil(float64(total) / float64(limit))),
		},
	}, nil
}
