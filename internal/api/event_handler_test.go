package api

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/conveyor-ci/conveyor/internal/domain"
)

func TestNewRunForEvent_ExternalRunID(t *testing.T) {
	event := domain.Event{
		Kind:     domain.EventKindPush,
		Branch:   "main",
		Revision: "abc123",
		RunKey:   "run42",
	}

	run := newRunForEvent(uuid.New(), 3, event)

	// Внешний run_id события становится run-key запуска
	if run.RunKey != "run42" {
		t.Errorf("expected run key run42, got %q", run.RunKey)
	}
	if run.Status != domain.RunStatusPending {
		t.Errorf("expected PENDING, got %s", run.Status)
	}
	if run.Event.Revision != "abc123" {
		t.Errorf("event should be carried into the run")
	}
}

func TestNewRunForEvent_AssignsRunKeyWhenAbsent(t *testing.T) {
	event := domain.Event{Kind: domain.EventKindPush, Branch: "main"}

	run := newRunForEvent(uuid.New(), 1, event)

	if run.RunKey == "" {
		t.Fatal("run key must be assigned")
	}
	if !strings.HasPrefix(run.RunKey, "run-") {
		t.Errorf("assigned run key should carry the run- prefix, got %q", run.RunKey)
	}
	if run.RunKey != domain.NewRunKey(run.ID) {
		t.Errorf("assigned run key should derive from the run id")
	}
}

func TestEventRequest_DecodesRunID(t *testing.T) {
	body := `{"kind":"push","branch":"main","revision":"abc123","run_id":"run42"}`

	var req EventRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.RunID != "run42" {
		t.Errorf("run_id should decode, got %q", req.RunID)
	}

	event := domain.Event{
		Kind:     domain.EventKind(req.Kind),
		Branch:   req.Branch,
		Revision: req.Revision,
		RunKey:   req.RunID,
	}
	run := newRunForEvent(uuid.New(), 1, event)
	if run.RunKey != "run42" {
		t.Errorf("decoded run_id should become the run key, got %q", run.RunKey)
	}
}
