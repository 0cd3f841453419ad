package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/parcelpost/agent-directory/pkg/commsutil"
	"github.com/parcelpost/agent-directory/pkg/db"
	"github.com/parcelpost/agent-directory/pkg/meta"
)

const describeLogPrefix = "directory:describe"

// Describe returns the stored capability document for an agent together
// with directory metadata (status, revision, timestamps) and the exchange
// subject for each protocol the agent supports.
func (d *Directory) Describe(ctx context.Context, input *DescribeInput) (*DescribeOutput, error) {
	slog.Info(fmt.Sprintf("%s - name=%s", describeLogPrefix, input.Name))

	if err := d.requireRepo(); err != nil {
		return nil, err
	}
	if input.Name == "" {
		return nil, &DirectoryError{Code: "INVALID_ARGUMENT", Message: "name is required"}
	}

	record, err := d.repo.GetAgent(ctx, input.Name)
	if err != nil {
		return nil, &DirectoryError{Code: "INTERNAL_ERROR", Message: err.Error()}
	}
	if record == nil {
		return nil, &DirectoryError{Code: "NOT_FOUND", Message: fmt.Sprintf("Agent not found: %s", input.Name)}
	}

	doc, err := recordToDocument(record)
	if err != nil {
		return nil, &DirectoryError{Code: "INTERNAL_ERROR", Message: err.Error()}
	}

	subjects := make(map[string]string, len(record.Protocols))
	for _, protocol := range record.Protocols {
		subjects[protocol] = commsutil.BuildExchangeSubject(record.Name, protocol)
	}

	reason := ""
	if record.RetiredReason != nil {
		reason = *record.RetiredReason
	}

	return &DescribeOutput{
		Document:         *doc,
		Status:           record.Status,
		RetiredReason:    reason,
		Revision:         record.Revision,
		Registered:       record.Created.UTC().Format(time.RFC3339),
		Modified:         record.Modified.UTC().Format(time.RFC3339),
		NatsUrl:          d.config.NatsUrl,
		ExchangeSubjects: subjects,
	}, nil
}

// recordToDocument rebuilds the capability document from its stored columns.
func recordToDocument(record *db.AgentRecord) (*meta.Document, error) {
	var schema meta.SchemaDocument
	if err := json.Unmarshal(record.Config, &schema); err != nil {
		return nil, fmt.Errorf("decode stored config schema for %s: %w", record.Name, err)
	}

	oses := make([]meta.OSTag, len(record.OperatingSystems))
	for i, os := range record.OperatingSystems {
		oses[i] = meta.OSTag(os)
	}
	protocols := make([]meta.ProtocolTag, len(record.Protocols))
	for i, p := range record.Protocols {
		protocols[i] = meta.ProtocolTag(p)
	}

	return &meta.Document{
		Name:             record.Name,
		Description:      record.Description,
		Version:          record.Version,
		Author:           record.Author,
		Source:           record.Source,
		OperatingSystems: oses,
		Protocols:        protocols,
		Config:           &schema,
	}, nil
}
