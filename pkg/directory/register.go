package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	masterminds "github.com/Masterminds/semver/v3"

	"github.com/parcelpost/agent-directory/pkg/db"
	"github.com/parcelpost/agent-directory/pkg/events"
	"github.com/parcelpost/agent-directory/pkg/meta"
)

const registerLogPrefix = "directory:register"

// validateRegisterInput checks the document against the capability contract
// and requires a SemVer-parseable version. The parsed version is returned
// for downgrade detection.
func validateRegisterInput(input *RegisterInput) (*masterminds.Version, *DirectoryError) {
	doc := &input.Document
	if err := doc.Validate(); err != nil {
		return nil, &DirectoryError{Code: "INVALID_DOCUMENT", Message: err.Error()}
	}
	version, err := masterminds.NewVersion(doc.Version)
	if err != nil {
		return nil, &DirectoryError{
			Code:    "INVALID_ARGUMENT",
			Message: fmt.Sprintf("version %q is not valid SemVer: %v", doc.Version, err),
		}
	}
	return version, nil
}

// Register stores an agent's exported capability document, creating the
// directory entry or replacing the stored declaration whole. The directory
// mirrors what the agent declares: a lower version than the stored one is
// accepted (and logged), not rejected.
func (d *Directory) Register(ctx context.Context, input *RegisterInput, userID string) (*RegisterOutput, error) {
	doc := &input.Document
	slog.Info(fmt.Sprintf("%s - name=%s version=%s", registerLogPrefix, doc.Name, doc.Version))

	if err := d.requireRepo(); err != nil {
		return nil, err
	}

	version, verr := validateRegisterInput(input)
	if verr != nil {
		return nil, verr
	}

	existing, err := d.repo.GetAgent(ctx, doc.Name)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - GetAgent failed: %v", registerLogPrefix, err))
		return nil, &DirectoryError{Code: "INTERNAL_ERROR", Message: err.Error()}
	}
	if existing != nil {
		if stored, err := masterminds.NewVersion(existing.Version); err == nil && version.LessThan(stored) {
			slog.Warn(fmt.Sprintf("%s - %s re-registered with older version %s (stored %s)",
				registerLogPrefix, doc.Name, doc.Version, existing.Version))
		}
	}

	configJSON, err := json.Marshal(doc.Config)
	if err != nil {
		return nil, &DirectoryError{Code: "INTERNAL_ERROR", Message: fmt.Sprintf("encode config schema: %v", err)}
	}

	record, err := d.repo.UpsertAgent(ctx, db.UpsertAgentParams{
		Name:             doc.Name,
		Description:      doc.Description,
		Version:          doc.Version,
		Author:           doc.Author,
		Source:           doc.Source,
		OperatingSystems: osTags(doc.OperatingSystems),
		Protocols:        protocolTags(doc.Protocols),
		Config:           configJSON,
		UserID:           userID,
	})
	if err != nil {
		slog.Error(fmt.Sprintf("%s - UpsertAgent failed: %v", registerLogPrefix, err))
		return nil, &DirectoryError{Code: "INTERNAL_ERROR", Message: err.Error()}
	}

	change := events.ChangeRegistered
	if existing != nil {
		change = events.ChangeUpdated
	}
	d.publishChange(ctx, record, change)

	return &RegisterOutput{
		Name:     record.Name,
		Version:  record.Version,
		Revision: record.Revision,
		Change:   change,
	}, nil
}

func osTags(tags []meta.OSTag) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = string(t)
	}
	return out
}

func protocolTags(tags []meta.ProtocolTag) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = string(t)
	}
	return out
}

// publishChange emits a change event; failures are logged, never fatal to
// the operation that triggered them.
func (d *Directory) publishChange(ctx context.Context, record *db.AgentRecord, change string) {
	event := &events.AgentChangedEvent{
		Name:      record.Name,
		Change:    change,
		Version:   record.Version,
		Revision:  record.Revision,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if err := d.publisher.PublishChanged(ctx, event); err != nil {
		slog.Warn(fmt.Sprintf("%s - publish change event for %s: %v", registerLogPrefix, record.Name, err))
	}
}
