package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/parcelpost/agent-directory/pkg/directory"
)

const logPrefix = "dispatcher:dispatch"

// Dispatcher routes COMMS requests to directory methods.
type Dispatcher struct {
	directory *directory.Directory
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(dir *directory.Directory) *Dispatcher {
	return &Dispatcher{directory: dir}
}

// Dispatch routes a request to the appropriate directory method and returns a response.
func (d *Dispatcher) Dispatch(ctx context.Context, req *DirectoryRequest) *DirectoryResponse {
	slog.Debug(fmt.Sprintf("%s - method=%s id=%s", logPrefix, req.Method, req.ID))

	// Extract userID from context
	userID := "system"
	if req.Ctx != nil && req.Ctx.UserID != "" {
		userID = req.Ctx.UserID
	}

	switch req.Method {
	case "register":
		return d.handleRegister(ctx, req, userID)
	case "describe":
		return d.handleDescribe(ctx, req)
	case "discover":
		return d.handleDiscover(ctx, req)
	case "retire":
		return d.handleRetire(ctx, req, userID)
	case "health":
		return d.handleHealth(ctx, req)
	default:
		return &DirectoryResponse{
			ID: req.ID,
			Ok: false,
			Error: &ErrorDetail{
				Code:      "METHOD_NOT_FOUND",
				Message:   fmt.Sprintf("Unknown method: %s", req.Method),
				Retryable: false,
			},
		}
	}
}

func (d *Dispatcher) handleRegister(ctx context.Context, req *DirectoryRequest, userID string) *DirectoryResponse {
	var input directory.RegisterInput
	if err := json.Unmarshal(req.Params, &input); err != nil {
		return errorResponse(req.ID, "INVALID_ARGUMENT", "Failed to parse register params", false)
	}

	result, err := d.directory.Register(ctx, &input, userID)
	if err != nil {
		return directoryErrorToResponse(req.ID, err)
	}
	return &DirectoryResponse{ID: req.ID, Ok: true, Result: result}
}

func (d *Dispatcher) handleDescribe(ctx context.Context, req *DirectoryRequest) *DirectoryResponse {
	var input directory.DescribeInput
	if err := json.Unmarshal(req.Params, &input); err != nil {
		return errorResponse(req.ID, "INVALID_ARGUMENT", "Failed to parse describe params", false)
	}

	result, err := d.directory.Describe(ctx, &input)
	if err != nil {
		return directoryErrorToResponse(req.ID, err)
	}
	return &DirectoryResponse{ID: req.ID, Ok: true, Result: result}
}

func (d *Dispatcher) handleDiscover(ctx context.Context, req *DirectoryRequest) *DirectoryResponse {
	var input directory.DiscoverInput
	if err := json.Unmarshal(req.Params, &input); err != nil {
		return errorResponse(req.ID, "INVALID_ARGUMENT", "Failed to parse discover params", false)
	}

	result, err := d.directory.Discover(ctx, &input)
	if err != nil {
		return directoryErrorToResponse(req.ID, err)
	}
	return &DirectoryResponse{ID: req.ID, Ok: true, Result: result}
}

func (d *Dispatcher) handleRetire(ctx context.Context, req *DirectoryRequest, userID string) *DirectoryResponse {
	var input directory.RetireInput
	if err := json.Unmarshal(req.Params, &input); err != nil {
		return errorResponse(req.ID, "INVALID_ARGUMENT", "Failed to parse retire params", false)
	}

	result, err := d.directory.Retire(ctx, &input, userID)
	if err != nil {
		return directoryErrorToResponse(req.ID, err)
	}
	return &DirectoryResponse{ID: req.ID, Ok: true, Result: result}
}

func (d *Dispatcher) handleHealth(ctx context.Context, req *DirectoryRequest) *DirectoryResponse {
	result := d.directory.Health(ctx)
	return &DirectoryResponse{ID: req.ID, Ok: true, Result: result}
}

// --- helpers ---

func errorResponse(id, code, message string, retryable bool) *DirectoryResponse {
	return &DirectoryResponse{
		ID: id,
		Ok: false,
		Error: &ErrorDetail{
			Code:      code,
			Message:   message,
			Retryable: retryable,
		},
	}
}

func directoryErrorToResponse(id string, err error) *DirectoryResponse {
	if dirErr, ok := err.(*directory.DirectoryError); ok {
		retryable := dirErr.Code == "INTERNAL_ERROR"
		return &DirectoryResponse{
			ID: id,
			Ok: false,
			Error: &ErrorDetail{
				Code:      dirErr.Code,
				Message:   dirErr.Message,
				Details:   dirErr.Details,
				Retryable: retryable,
			},
		}
	}
	return errorResponse(id, "INTERNAL_ERROR", err.Error(), true)
}
