package taskref_test

import (
	"encoding/json"
	"errors"
	"testing"

	"flowtail/internal/taskref"
)

func TestPathspec(t *testing.T) {
	ref := taskref.TaskRef{
		FlowID:    "TestFlow",
		RunNumber: "1234",
		StepName:  "regular_step",
		TaskID:    "456",
	}

	got, err := ref.Pathspec()
	if err != nil {
		t.Fatalf("Pathspec failed: %v", err)
	}
	if got != "TestFlow/1234/regular_step/456" {
		t.Errorf("Pathspec = %q, want %q", got, "TestFlow/1234/regular_step/456")
	}
}

func TestPathspecPrecedence(t *testing.T) {
	ref := taskref.TaskRef{
		FlowID:    "TestFlow",
		RunID:     "named-run",
		RunNumber: "1234",
		StepName:  "step",
		TaskName:  "named-task",
		TaskID:    "456",
	}

	got, err := ref.Pathspec()
	if err != nil {
		t.Fatalf("Pathspec failed: %v", err)
	}
	// run_id wins over run_number, task_name over task_id
	if got != "TestFlow/named-run/step/named-task" {
		t.Errorf("Pathspec = %q, want %q", got, "TestFlow/named-run/step/named-task")
	}
}

func TestValidateMissingFields(t *testing.T) {
	tests := []struct {
		name string
		ref  taskref.TaskRef
	}{
		{"no flow", taskref.TaskRef{RunID: "1", StepName: "s", TaskID: "2"}},
		{"no run", taskref.TaskRef{FlowID: "F", StepName: "s", TaskID: "2"}},
		{"no step", taskref.TaskRef{FlowID: "F", RunID: "1", TaskID: "2"}},
		{"no task", taskref.TaskRef{FlowID: "F", RunID: "1", StepName: "s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.ref.Pathspec(); !errors.Is(err, taskref.ErrMissingField) {
				t.Errorf("Pathspec error = %v, want ErrMissingField", err)
			}
		})
	}
}

func TestUnmarshalNumericIdentifiers(t *testing.T) {
	raw := `{"flow_id": "TestFlow", "run_number": 1234, "step_name": "step", "task_id": 456, "attempt_id": 2}`

	var ref taskref.TaskRef
	if err := json.Unmarshal([]byte(raw), &ref); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if ref.RunNumber != "1234" {
		t.Errorf("RunNumber = %q, want %q", ref.RunNumber, "1234")
	}
	if ref.TaskID != "456" {
		t.Errorf("TaskID = %q, want %q", ref.TaskID, "456")
	}
	if ref.AttemptID != 2 {
		t.Errorf("AttemptID = %d, want 2", ref.AttemptID)
	}
}
