package directory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/parcelpost/agent-directory/pkg/db"
	"github.com/parcelpost/agent-directory/pkg/events"
)

const retireLogPrefix = "directory:retire"

// Retire marks an agent as retired. The entry is kept (its document stays
// inspectable via describe) but no longer appears in default discovery; a
// later register reactivates it.
func (d *Directory) Retire(ctx context.Context, input *RetireInput, userID string) (*RetireOutput, error) {
	slog.Info(fmt.Sprintf("%s - name=%s", retireLogPrefix, input.Name))

	if err := d.requireRepo(); err != nil {
		return nil, err
	}
	if input.Name == "" {
		return nil, &DirectoryError{Code: "INVALID_ARGUMENT", Message: "name is required"}
	}
	if input.Reason == "" {
		return nil, &DirectoryError{Code: "INVALID_ARGUMENT", Message: "reason is required"}
	}

	record, err := d.repo.SetAgentStatus(ctx, input.Name, db.AgentStatusRetired, input.Reason, userID)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - SetAgentStatus failed: %v", retireLogPrefix, err))
		return nil, &DirectoryError{Code: "INTERNAL_ERROR", Message: err.Error()}
	}
	if record == nil {
		return nil, &DirectoryError{Code: "NOT_FOUND", Message: fmt.Sprintf("Agent not found: %s", input.Name)}
	}

	d.publishChange(ctx, record, events.ChangeRetired)

	return &RetireOutput{Success: true, Revision: record.Revision}, nil
}
