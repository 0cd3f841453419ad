package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const repoLogPrefix = "db:repository"

const agentColumns = `id, name, description, version, author, source,
	       operating_systems, protocols, config, status, retired_reason,
	       revision, object, created, created_by, modified, modified_by`

// Repository provides database access for directory operations.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetAgent finds an agent by name. Returns nil when no such agent exists.
func (r *Repository) GetAgent(ctx context.Context, name string) (*AgentRecord, error) {
	slog.Debug(fmt.Sprintf("%s - GetAgent name=%s", repoLogPrefix, name))

	row := r.pool.QueryRow(ctx,
		`SELECT `+agentColumns+`
		 FROM agents
		 WHERE name = $1
		 LIMIT 1`, name)

	return scanAgent(row)
}

// UpsertAgentParams holds parameters for UpsertAgent. The descriptor columns
// always replace what is stored: a registration carries the agent's whole
// declaration, not a patch.
type UpsertAgentParams struct {
	Name             string
	Description      string
	Version          string
	Author           string
	Source           string
	OperatingSystems []string
	Protocols        []string
	Config           []byte
	UserID           string
}

// UpsertAgent creates or updates an agent row. Re-registration bumps the
// revision and reactivates a retired agent.
func (r *Repository) UpsertAgent(ctx context.Context, params UpsertAgentParams) (*AgentRecord, error) {
	slog.Info(fmt.Sprintf("%s - UpsertAgent name=%s version=%s", repoLogPrefix, params.Name, params.Version))

	now := time.Now().UTC()

	row := r.pool.QueryRow(ctx,
		`INSERT INTO agents (name, description, version, author, source,
		                     operating_systems, protocols, config,
		                     created_by, modified_by, created, modified)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9, $10, $10)
		 ON CONFLICT (name) DO UPDATE SET
		   description = EXCLUDED.description,
		   version = EXCLUDED.version,
		   author = EXCLUDED.author,
		   source = EXCLUDED.source,
		   operating_systems = EXCLUDED.operating_systems,
		   protocols = EXCLUDED.protocols,
		   config = EXCLUDED.config,
		   status = 'active',
		   retired_reason = NULL,
		   revision = agents.revision + 1,
		   modified = EXCLUDED.modified,
		   modified_by = EXCLUDED.modified_by
		 RETURNING `+agentColumns,
		params.Name, params.Description, params.Version, params.Author, params.Source,
		params.OperatingSystems, params.Protocols, params.Config,
		params.UserID, now)

	return scanAgent(row)
}

// ListAgentsParams holds filters for ListAgents.
type ListAgentsParams struct {
	Protocol        string
	OperatingSystem string
	Query           string
	Status          string
	Page            int
	Limit           int
}

// ListAgents lists agents with optional filters, newest first.
func (r *Repository) ListAgents(ctx context.Context, params ListAgentsParams) ([]AgentRecord, int, error) {
	page := params.Page
	if page < 1 {
		page = 1
	}
	limit := params.Limit
	if limit < 1 {
		limit = 20
	}
	offset := (page - 1) * limit

	query := `SELECT ` + agentColumns + ` FROM agents WHERE 1=1`
	countQuery := `SELECT COUNT(*)::int FROM agents WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if params.Status != "" && params.Status != "all" {
		clause := fmt.Sprintf(` AND status = $%d`, argIdx)
		query += clause
		countQuery += clause
		args = append(args, params.Status)
		argIdx++
	}
	if params.Protocol != "" {
		clause := fmt.Sprintf(` AND $%d = ANY(protocols)`, argIdx)
		query += clause
		countQuery += clause
		args = append(args, params.Protocol)
		argIdx++
	}
	if params.OperatingSystem != "" {
		clause := fmt.Sprintf(` AND $%d = ANY(operating_systems)`, argIdx)
		query += clause
		countQuery += clause
		args = append(args, params.OperatingSystem)
		argIdx++
	}
	if params.Query != "" {
		clause := fmt.Sprintf(` AND (name ILIKE $%d OR description ILIKE $%d)`, argIdx, argIdx)
		query += clause
		countQuery += clause
		args = append(args, "%"+params.Query+"%")
		argIdx++
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%s - count agents: %w", repoLogPrefix, err)
	}

	query += fmt.Sprintf(` ORDER BY modified DESC, name ASC LIMIT $%d OFFSET $%d`, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%s - list agents: %w", repoLogPrefix, err)
	}
	defer rows.Close()

	var agents []AgentRecord
	for rows.Next() {
		agent, err := scanAgentRow(rows)
		if err != nil {
			return nil, 0, err
		}
		agents = append(agents, *agent)
	}
	return agents, total, rows.Err()
}

// SetAgentStatus updates an agent's status and reason. Returns nil when the
// agent does not exist.
func (r *Repository) SetAgentStatus(ctx context.Context, name, status string, reason, userID string) (*AgentRecord, error) {
	slog.Info(fmt.Sprintf("%s - SetAgentStatus name=%s status=%s", repoLogPrefix, name, status))

	var reasonVal *string
	if reason != "" {
		reasonVal = &reason
	}

	row := r.pool.QueryRow(ctx,
		`UPDATE agents SET
		   status = $2,
		   retired_reason = $3,
		   revision = revision + 1,
		   modified = $4,
		   modified_by = $5
		 WHERE name = $1
		 RETURNING `+agentColumns,
		name, status, reasonVal, time.Now().UTC(), userID)

	return scanAgent(row)
}

func scanAgent(row pgx.Row) (*AgentRecord, error) {
	agent, err := scanAgentRow(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return agent, err
}

func scanAgentRow(row pgx.Row) (*AgentRecord, error) {
	var a AgentRecord
	err := row.Scan(
		&a.ID, &a.Name, &a.Description, &a.Version, &a.Author, &a.Source,
		&a.OperatingSystems, &a.Protocols, &a.Config, &a.Status, &a.RetiredReason,
		&a.Revision, &a.Object, &a.Created, &a.CreatedBy, &a.Modified, &a.ModifiedBy)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
