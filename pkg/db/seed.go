package db

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parcelpost/agent-directory/pkg/meta"
)

const seedLogPrefix = "db:seed"

// System user recorded in created_by/modified_by for seeded agents.
const systemUserID = "system"

// SeedAgents loads capability documents from a JSON file (an array of
// exported agent documents) and upserts each into the directory. Documents
// are held to the same completeness rules as live registrations; a file
// containing any invalid document seeds nothing.
func SeedAgents(ctx context.Context, pool *pgxpool.Pool, seedFilePath string) error {
	if seedFilePath == "" {
		slog.Info(fmt.Sprintf("%s - no seed file configured, skipping", seedLogPrefix))
		return nil
	}
	slog.Info(fmt.Sprintf("%s - seeding from %s", seedLogPrefix, seedFilePath))

	data, err := os.ReadFile(seedFilePath)
	if err != nil {
		return fmt.Errorf("%s - read seed file: %w", seedLogPrefix, err)
	}

	var docs []meta.Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return fmt.Errorf("%s - parse seed file: %w", seedLogPrefix, err)
	}
	if len(docs) == 0 {
		slog.Info(fmt.Sprintf("%s - no agents to seed", seedLogPrefix))
		return nil
	}

	for i := range docs {
		if err := docs[i].Validate(); err != nil {
			return fmt.Errorf("%s - seed document %d: %w", seedLogPrefix, i, err)
		}
	}

	repo := NewRepository(pool)
	for _, doc := range docs {
		configJSON, err := json.Marshal(doc.Config)
		if err != nil {
			return fmt.Errorf("%s - encode config schema for %s: %w", seedLogPrefix, doc.Name, err)
		}
		if _, err := repo.UpsertAgent(ctx, UpsertAgentParams{
			Name:             doc.Name,
			Description:      doc.Description,
			Version:          doc.Version,
			Author:           doc.Author,
			Source:           doc.Source,
			OperatingSystems: osTagsToStrings(doc.OperatingSystems),
			Protocols:        protocolTagsToStrings(doc.Protocols),
			Config:           configJSON,
			UserID:           systemUserID,
		}); err != nil {
			return fmt.Errorf("%s - seed agent %s: %w", seedLogPrefix, doc.Name, err)
		}
	}

	slog.Info(fmt.Sprintf("%s - Seeded %d agents", seedLogPrefix, len(docs)))
	return nil
}

func osTagsToStrings(tags []meta.OSTag) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = string(t)
	}
	return out
}

func protocolTagsToStrings(tags []meta.ProtocolTag) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = string(t)
	}
	return out
}
