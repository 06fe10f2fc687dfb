// Package taskref identifies a single task attempt within a workflow run.
// A task is addressed by its pathspec: flow/run/step/task. Runs and tasks
// carry two historical identifier schemes (run_id vs run_number, task_name
// vs task_id); the newer scheme wins when both are present.
package taskref

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ErrMissingField is returned when a required task identifier is absent.
var ErrMissingField = errors.New("missing required task field")

// ID is a task identifier component. Older producers emit numeric
// identifiers, newer ones emit strings; both decode to an ID.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("task identifier must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// TaskRef references a task attempt.
type TaskRef struct {
	FlowID    string `json:"flow_id"`
	RunID     ID     `json:"run_id,omitempty"`
	RunNumber ID     `json:"run_number,omitempty"`
	StepName  string `json:"step_name"`
	TaskName  ID     `json:"task_name,omitempty"`
	TaskID    ID     `json:"task_id,omitempty"`
	AttemptID int    `json:"attempt_id"`
}

// Run returns the run identifier, preferring run_id over run_number.
func (t TaskRef) Run() ID {
	if t.RunID != "" {
		return t.RunID
	}
	return t.RunNumber
}

// Task returns the task identifier, preferring task_name over task_id.
func (t TaskRef) Task() ID {
	if t.TaskName != "" {
		return t.TaskName
	}
	return t.TaskID
}

// Validate checks that all identity fields needed for a pathspec are set.
func (t TaskRef) Validate() error {
	switch {
	case t.FlowID == "":
		return fmt.Errorf("%w: flow_id", ErrMissingField)
	case t.Run() == "":
		return fmt.Errorf("%w: run_id or run_number", ErrMissingField)
	case t.StepName == "":
		return fmt.Errorf("%w: step_name", ErrMissingField)
	case t.Task() == "":
		return fmt.Errorf("%w: task_name or task_id", ErrMissingField)
	}
	return nil
}

// Pathspec returns the canonical flow/run/step/task identifier.
func (t TaskRef) Pathspec() (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s/%s/%s", t.FlowID, t.Run(), t.StepName, t.Task()), nil
}

// Attempt returns the attempt number as a string, for key construction.
func (t TaskRef) Attempt() string {
	return strconv.Itoa(t.AttemptID)
}
