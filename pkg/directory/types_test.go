package directory

import "testing"

func TestDirectoryError(t *testing.T) {
	err := NewDirectoryError("NOT_FOUND", "Agent not found")

	if err.Code != "NOT_FOUND" {
		t.Errorf("expected NOT_FOUND, got %s", err.Code)
	}
	if err.Message != "Agent not found" {
		t.Errorf("expected 'Agent not found', got %s", err.Message)
	}
	if err.Error() != "NOT_FOUND: Agent not found" {
		t.Errorf("expected 'NOT_FOUND: Agent not found', got %s", err.Error())
	}
}
