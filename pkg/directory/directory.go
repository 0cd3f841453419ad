package directory

import (
	"github.com/parcelpost/agent-directory/pkg/db"
	"github.com/parcelpost/agent-directory/pkg/events"
)

// Config holds directory configuration.
type Config struct {
	// NatsUrl is the COMMS URL for this deployment. Included in describe
	// responses so clients know which broker carries exchange subjects.
	NatsUrl string
}

// Directory is the main directory service containing all business logic
// methods.
type Directory struct {
	repo      *db.Repository
	publisher events.EventPublisher
	config    Config
}

// NewDirectoryParams holds parameters for NewDirectory.
type NewDirectoryParams struct {
	Repo      *db.Repository
	Publisher events.EventPublisher
	Config    Config
}

// NewDirectory creates a new Directory instance.
func NewDirectory(params NewDirectoryParams) *Directory {
	pub := params.Publisher
	if pub == nil {
		pub = &events.NoOpPublisher{}
	}

	return &Directory{
		repo:      params.Repo,
		publisher: pub,
		config:    params.Config,
	}
}

// requireRepo returns an error if the repository is not configured (e.g. in
// tests with nil repo).
func (d *Directory) requireRepo() *DirectoryError {
	if d.repo == nil {
		return &DirectoryError{Code: "INTERNAL_ERROR", Message: "repository not configured"}
	}
	return nil
}
