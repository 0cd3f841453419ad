// Package tests contains end-to-end tests for the agent-directory.
// These tests start an embedded NATS server and test the full request/response
// flow through the dispatcher, simulating real client interactions.
package tests

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	commsserver "github.com/nats-io/nats-server/v2/server"
	comms "github.com/nats-io/nats.go"

	"github.com/parcelpost/agent-directory/pkg/directory"
	"github.com/parcelpost/agent-directory/pkg/dispatcher"
	"github.com/parcelpost/agent-directory/pkg/events"
)

const (
	testDirectorySubject = "dir.test.agents.v1"
	testPort             = 14240
)

// testEnv holds the test environment for E2E tests.
type testEnv struct {
	nc       *comms.Conn
	ns       *commsserver.Server
	disp     *dispatcher.Dispatcher
	dir      *directory.Directory
	captured []*events.AgentChangedEvent
}

// setupE2E starts an embedded NATS server and sets up the dispatcher pipeline.
// Note: These tests use a callback publisher and nil repo to test the NATS
// transport and dispatch routing without requiring a database.
func setupE2E(t *testing.T) *testEnv {
	t.Helper()

	// Start embedded NATS
	opts := &commsserver.Options{
		Host:   "127.0.0.1",
		Port:   testPort,
		NoLog:  true,
		NoSigs: true,
	}

	ns, err := commsserver.NewServer(opts)
	if err != nil {
		t.Fatalf("e2e_test - failed to create NATS server: %v", err)
	}

	go ns.Start()
	if !ns.ReadyForConnections(10 * time.Second) {
		t.Fatal("e2e_test - NATS server failed to start")
	}

	nc, err := comms.Connect(ns.ClientURL(), comms.Timeout(5*time.Second))
	if err != nil {
		ns.Shutdown()
		t.Fatalf("e2e_test - failed to connect: %v", err)
	}

	env := &testEnv{
		nc: nc,
		ns: ns,
	}

	// Create directory with callback publisher (captures events)
	pub := events.NewCallbackPublisher(func(_ context.Context, event *events.AgentChangedEvent) error {
		env.captured = append(env.captured, event)
		return nil
	})

	// Directory with nil repo (can't do DB ops, but can test dispatch routing)
	dir := directory.NewDirectory(directory.NewDirectoryParams{
		Repo:      nil,
		Publisher: pub,
	})
	env.dir = dir

	disp := dispatcher.NewDispatcher(dir)
	env.disp = disp

	// Subscribe to directory subject (simulates the server subscription)
	_, err = nc.Subscribe(testDirectorySubject, func(msg *comms.Msg) {
		var req dispatcher.DirectoryRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			resp := &dispatcher.DirectoryResponse{
				Ok: false,
				Error: &dispatcher.ErrorDetail{
					Code:    "INVALID_REQUEST",
					Message: "Failed to decode request",
				},
			}
			data, _ := json.Marshal(resp)
			msg.Respond(data)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		resp := disp.Dispatch(ctx, &req)
		data, _ := json.Marshal(resp)
		msg.Respond(data)
	})
	if err != nil {
		nc.Close()
		ns.Shutdown()
		t.Fatalf("e2e_test - failed to subscribe: %v", err)
	}

	t.Cleanup(func() {
		nc.Close()
		ns.Shutdown()
		ns.WaitForShutdown()
	})

	return env
}

// sendRequest sends a directory request over NATS and returns the response.
func sendRequest(t *testing.T, nc *comms.Conn, req *dispatcher.DirectoryRequest) *dispatcher.DirectoryResponse {
	t.Helper()

	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("e2e_test - failed to marshal request: %v", err)
	}

	msg, err := nc.Request(testDirectorySubject, data, 10*time.Second)
	if err != nil {
		t.Fatalf("e2e_test - request failed: %v", err)
	}

	var resp dispatcher.DirectoryResponse
	if err := json.Unmarshal(msg.Data, &resp); err != nil {
		t.Fatalf("e2e_test - failed to unmarshal response: %v", err)
	}

	return &resp
}

func TestE2E_UnknownMethod(t *testing.T) {
	env := setupE2E(t)

	req := &dispatcher.DirectoryRequest{
		ID:     "e2e-1",
		Method: "nonexistent",
		Params: json.RawMessage(`{}`),
	}

	resp := sendRequest(t, env.nc, req)

	if resp.Ok {
		t.Error("e2e_test - expected Ok=false for unknown method")
	}
	if resp.ID != "e2e-1" {
		t.Errorf("e2e_test - ID = %q, want %q", resp.ID, "e2e-1")
	}
	if resp.Error == nil {
		t.Fatal("e2e_test - expected error, got nil")
	}
	if resp.Error.Code != "METHOD_NOT_FOUND" {
		t.Errorf("e2e_test - error code = %q, want %q", resp.Error.Code, "METHOD_NOT_FOUND")
	}
	if resp.Error.Retryable {
		t.Error("e2e_test - METHOD_NOT_FOUND should not be retryable")
	}
}

func TestE2E_HealthCheck(t *testing.T) {
	env := setupE2E(t)

	req := &dispatcher.DirectoryRequest{
		ID:     "e2e-health-1",
		Method: "health",
		Params: json.RawMessage(`{}`),
	}

	resp := sendRequest(t, env.nc, req)

	if !resp.Ok {
		t.Errorf("e2e_test - expected Ok=true for health, got error: %v", resp.Error)
	}
	if resp.ID != "e2e-health-1" {
		t.Errorf("e2e_test - ID = %q, want %q", resp.ID, "e2e-health-1")
	}
	if resp.Result == nil {
		t.Fatal("e2e_test - expected result, got nil")
	}

	// The health check with nil repo will fail DB check but still return a result
	resultJSON, err := json.Marshal(resp.Result)
	if err != nil {
		t.Fatalf("e2e_test - failed to marshal result: %v", err)
	}

	var health directory.HealthOutput
	if err := json.Unmarshal(resultJSON, &health); err != nil {
		t.Fatalf("e2e_test - failed to unmarshal health: %v", err)
	}

	if health.Status != "unhealthy" {
		t.Errorf("e2e_test - status = %q, want unhealthy (no DB)", health.Status)
	}
	if health.Timestamp == "" {
		t.Error("e2e_test - expected non-empty timestamp")
	}
}

func TestE2E_DescribeWithoutDB(t *testing.T) {
	env := setupE2E(t)

	req := &dispatcher.DirectoryRequest{
		ID:     "e2e-describe-1",
		Method: "describe",
		Params: json.RawMessage(`{"name": "echo-agent"}`),
	}

	resp := sendRequest(t, env.nc, req)

	if resp.Ok {
		t.Error("e2e_test - expected Ok=false (no DB)")
	}
	if resp.Error == nil {
		t.Fatal("e2e_test - expected error, got nil")
	}
	// Should be INTERNAL_ERROR since repo is nil
	if resp.Error.Code != "INTERNAL_ERROR" {
		t.Errorf("e2e_test - error code = %q, want %q", resp.Error.Code, "INTERNAL_ERROR")
	}
}

func TestE2E_DiscoverWithoutDB(t *testing.T) {
	env := setupE2E(t)

	req := &dispatcher.DirectoryRequest{
		ID:     "e2e-discover-1",
		Method: "discover",
		Params: json.RawMessage(`{"protocol": "plaintext_local", "page": 1, "limit": 10}`),
	}

	resp := sendRequest(t, env.nc, req)

	// Should fail because DB is nil
	if resp.Ok {
		t.Error("e2e_test - expected Ok=false (no DB)")
	}
	if resp.ID != "e2e-discover-1" {
		t.Errorf("e2e_test - ID = %q, want %q", resp.ID, "e2e-discover-1")
	}
}

func TestE2E_InvalidJSON(t *testing.T) {
	env := setupE2E(t)

	// Send invalid JSON directly
	msg, err := env.nc.Request(testDirectorySubject, []byte(`{invalid json`), 10*time.Second)
	if err != nil {
		t.Fatalf("e2e_test - request failed: %v", err)
	}

	var resp dispatcher.DirectoryResponse
	if err := json.Unmarshal(msg.Data, &resp); err != nil {
		t.Fatalf("e2e_test - failed to unmarshal response: %v", err)
	}

	if resp.Ok {
		t.Error("e2e_test - expected Ok=false for invalid JSON")
	}
	if resp.Error == nil {
		t.Fatal("e2e_test - expected error for invalid JSON")
	}
	if resp.Error.Code != "INVALID_REQUEST" {
		t.Errorf("e2e_test - error code = %q, want %q", resp.Error.Code, "INVALID_REQUEST")
	}
}

func TestE2E_RequestIDPreservation(t *testing.T) {
	env := setupE2E(t)

	ids := []string{"req-001", "req-002", "unique-xyz-789", ""}
	for _, id := range ids {
		req := &dispatcher.DirectoryRequest{
			ID:     id,
			Method: "nonexistent",
			Params: json.RawMessage(`{}`),
		}

		resp := sendRequest(t, env.nc, req)

		if resp.ID != id {
			t.Errorf("e2e_test - ID = %q, want %q", resp.ID, id)
		}
	}
}

func TestE2E_ConcurrentRequests(t *testing.T) {
	env := setupE2E(t)

	const numRequests = 20
	results := make(chan *dispatcher.DirectoryResponse, numRequests)

	for i := 0; i < numRequests; i++ {
		go func(idx int) {
			req := &dispatcher.DirectoryRequest{
				ID:     "concurrent-" + string(rune('a'+idx%26)),
				Method: "health",
				Params: json.RawMessage(`{}`),
			}
			resp := sendRequest(t, env.nc, req)
			results <- resp
		}(i)
	}

	for i := 0; i < numRequests; i++ {
		select {
		case resp := <-results:
			if !resp.Ok {
				t.Errorf("e2e_test - concurrent request failed: %v", resp.Error)
			}
		case <-time.After(30 * time.Second):
			t.Fatalf("e2e_test - timeout waiting for concurrent request %d", i)
		}
	}
}

func TestE2E_AllDispatchMethods_InvalidParams(t *testing.T) {
	env := setupE2E(t)

	methods := []string{"register", "describe", "discover", "retire"}

	for _, method := range methods {
		t.Run(method, func(t *testing.T) {
			req := &dispatcher.DirectoryRequest{
				ID:     "e2e-" + method,
				Method: method,
				Params: json.RawMessage(`"invalid"`),
			}

			resp := sendRequest(t, env.nc, req)

			if resp.Ok {
				t.Errorf("e2e_test - expected Ok=false for invalid params on %s", method)
			}
			if resp.Error == nil {
				t.Fatalf("e2e_test - expected error for %s, got nil", method)
			}
			if resp.Error.Code != "INVALID_ARGUMENT" {
				t.Errorf("e2e_test - %s error code = %q, want %q", method, resp.Error.Code, "INVALID_ARGUMENT")
			}
		})
	}
}

func TestE2E_RegisterWithoutDB(t *testing.T) {
	env := setupE2E(t)

	params := map[string]interface{}{
		"document": map[string]interface{}{
			"name":              "echo-agent",
			"description":       "Echoes every message back to the server.",
			"version":           "0.1.0",
			"author":            "reference",
			"source":            "https://example.com/echo-agent",
			"operating_systems": []string{"linux"},
			"protocols":         []string{"plaintext_local"},
			"config": map[string]interface{}{
				"title": "echoConfig",
				"type":  "object",
				"properties": map[string]interface{}{
					"host": map[string]interface{}{"type": "string"},
				},
				"required": []string{"host"},
			},
		},
	}

	paramsJSON, _ := json.Marshal(params)

	req := &dispatcher.DirectoryRequest{
		ID:     "e2e-register-1",
		Method: "register",
		Params: json.RawMessage(paramsJSON),
		Ctx: &dispatcher.InvocationContext{
			UserID: "test-user",
		},
	}

	resp := sendRequest(t, env.nc, req)

	// Should fail because no DB, but should be a structured error
	if resp.Ok {
		t.Error("e2e_test - expected Ok=false (no DB for register)")
	}
	if resp.Error == nil {
		t.Fatal("e2e_test - expected error")
	}
	if resp.Error.Code != "INTERNAL_ERROR" {
		t.Errorf("e2e_test - error code = %q, want INTERNAL_ERROR", resp.Error.Code)
	}
}

func TestE2E_RetireWithoutDB(t *testing.T) {
	env := setupE2E(t)

	params := map[string]interface{}{
		"name":   "echo-agent",
		"reason": "Replaced by echo-agent-2",
	}

	paramsJSON, _ := json.Marshal(params)

	req := &dispatcher.DirectoryRequest{
		ID:     "e2e-retire-1",
		Method: "retire",
		Params: json.RawMessage(paramsJSON),
		Ctx:    &dispatcher.InvocationContext{UserID: "admin"},
	}

	resp := sendRequest(t, env.nc, req)

	if resp.Ok {
		t.Error("e2e_test - expected Ok=false (no DB)")
	}
}
