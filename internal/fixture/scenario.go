// Package fixture serves a scripted workflow platform backend for local
// development and end-to-end tests.
package fixture

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"flowdeck/internal/types"
)

// Scenario describes the runs the fixture server exposes.
type Scenario struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version,omitempty"`
	// Token, when set, is required as a bearer token on every /v1 request.
	Token string        `yaml:"token,omitempty"`
	Runs  []RunScenario `yaml:"runs"`
}

type RunScenario struct {
	ID           string                  `yaml:"id"`
	WorkflowName string                  `yaml:"workflowName"`
	Status       types.WorkflowRunStatus `yaml:"status"`
	StartedTime  string                  `yaml:"startedTime,omitempty"`
	EndedTime    string                  `yaml:"endedTime,omitempty"`

	// Hold keeps the activity feed open after the last step until the
	// client disconnects.
	Hold bool `yaml:"hold,omitempty"`
	// FeedStatus rejects the activity feed with this HTTP status.
	FeedStatus int `yaml:"feedStatus,omitempty"`

	Activities   []ActivityStep              `yaml:"activities"`
	Knowledge    map[string][]types.Document `yaml:"knowledge,omitempty"`
	Instructions map[string][]types.Document `yaml:"instructions,omitempty"`
	Messages     []types.Message             `yaml:"messages,omitempty"`
}

// ActivityStep is one feed frame. Raw, when set, is sent verbatim instead of
// the encoded record. Repeat redelivers the frame that many extra times.
type ActivityStep struct {
	Delay        time.Duration `yaml:"delay,omitempty"`
	Repeat       int           `yaml:"repeat,omitempty"`
	Raw          string        `yaml:"raw,omitempty"`
	ID           string        `yaml:"id"`
	ActivityName string        `yaml:"activityName"`
	ActivityID   string        `yaml:"activityId,omitempty"`
	StartedTime  string        `yaml:"startedTime,omitempty"`
	EndedTime    string        `yaml:"endedTime,omitempty"`
	Inputs       string        `yaml:"inputs,omitempty"`
	Result       string        `yaml:"result,omitempty"`
}

func (s ActivityStep) Record() types.ActivityRecord {
	return types.ActivityRecord{
		ID:           s.ID,
		ActivityName: s.ActivityName,
		ActivityID:   s.ActivityID,
		StartedTime:  s.StartedTime,
		EndedTime:    s.EndedTime,
		Inputs:       s.Inputs,
		Result:       s.Result,
	}
}

func (r RunScenario) WorkflowRun() types.WorkflowRun {
	status := r.Status
	if status == "" {
		status = types.WorkflowRunStatusRunning
	}
	return types.WorkflowRun{
		ID:           r.ID,
		WorkflowName: r.WorkflowName,
		Status:       status,
		StartedTime:  r.StartedTime,
		EndedTime:    r.EndedTime,
	}
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return scenario, nil
}

// ParseScenario decodes a scenario document, rejecting unknown fields.
func ParseScenario(data []byte) (*Scenario, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	var scenario Scenario
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := scenario.validate(); err != nil {
		return nil, err
	}
	return &scenario, nil
}

func (s *Scenario) validate() error {
	if len(s.Runs) == 0 {
		return errors.New("scenario has no runs")
	}
	seen := map[string]struct{}{}
	for i, run := range s.Runs {
		id := strings.TrimSpace(run.ID)
		if id == "" {
			return fmt.Errorf("runs[%d]: id is required", i)
		}
		if _, ok := seen[id]; ok {
			return fmt.Errorf("runs[%d]: duplicate run id %q", i, id)
		}
		seen[id] = struct{}{}
		for j, step := range run.Activities {
			if step.Delay < 0 || step.Repeat < 0 {
				return fmt.Errorf("runs[%d].activities[%d]: delay and repeat must not be negative", i, j)
			}
		}
	}
	return nil
}

func (s *Scenario) run(id string) (RunScenario, bool) {
	for _, run := range s.Runs {
		if run.ID == id {
			return run, true
		}
	}
	return RunScenario{}, false
}
