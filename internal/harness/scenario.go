package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/serd/internal/engine"
)

// Outcomes a scenario may expect.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Scenario is one scripted SER session.
type Scenario struct {
	// Name uniquely identifies this scenario. It is also the run id and the
	// golden file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// AdminActor is the actor allowed to toggle the chat. Default 0.
	AdminActor *uint64 `yaml:"admin_actor,omitempty"`

	// UnknownService is the executor policy: "close" (default) or "fatal".
	UnknownService string `yaml:"unknown_service,omitempty"`

	// Steps are fed to the executor in order, one input event each.
	Steps []Step `yaml:"steps"`

	// Expect is the expected transcript. Nil skips the comparison.
	Expect []string `yaml:"expect,omitempty"`

	// ExpectOutcome is "success" (default) or "failure".
	ExpectOutcome string `yaml:"expect_outcome,omitempty"`
}

// Step is one input event. Exactly one field must be set.
type Step struct {
	Request *RequestStep `yaml:"request,omitempty"`
	Join    *JoinStep    `yaml:"join,omitempty"`
	Leave   *LeaveStep   `yaml:"leave,omitempty"`
	Timer   bool         `yaml:"timer,omitempty"`
	None    bool         `yaml:"none,omitempty"`
	Stop    *StopStep    `yaml:"stop,omitempty"`
}

// RequestStep sends a raw SR command on behalf of an actor.
type RequestStep struct {
	Actor uint64 `yaml:"actor"`
	Text  string `yaml:"text"`
}

// JoinStep logs an actor in.
type JoinStep struct {
	Actor uint64 `yaml:"actor"`
	Name  string `yaml:"name"`
}

// LeaveStep logs an actor out; an empty reason is a clean logout.
type LeaveStep struct {
	Actor  uint64 `yaml:"actor"`
	Reason string `yaml:"reason"`
}

// StopStep stops the run as if signal were caught.
type StopStep struct {
	Signal int `yaml:"signal"`
}

// InputEvent converts the step into the executor's input event.
func (s Step) InputEvent() (engine.InputEvent, error) {
	var (
		ev  engine.InputEvent
		set int
	)
	if s.Request != nil {
		ev, set = engine.ServiceRequestEvent{Actor: s.Request.Actor, Request: s.Request.Text}, set+1
	}
	if s.Join != nil {
		ev, set = engine.JoinedEvent{Actor: s.Join.Actor, Name: s.Join.Name}, set+1
	}
	if s.Leave != nil {
		ev, set = engine.LeftEvent{Actor: s.Leave.Actor, Reason: s.Leave.Reason}, set+1
	}
	if s.Timer {
		ev, set = engine.TimerEvent{}, set+1
	}
	if s.None {
		ev, set = engine.NoneEvent{}, set+1
	}
	if s.Stop != nil {
		ev, set = engine.StopEvent{Signal: s.Stop.Signal}, set+1
	}

	if set != 1 {
		return nil, fmt.Errorf("exactly one of request, join, leave, timer, none, stop is required, got %d", set)
	}
	return ev, nil
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML, rejecting unknown fields.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if _, err := engine.ParseUnknownServicePolicy(s.UnknownService); err != nil {
		return err
	}

	switch s.ExpectOutcome {
	case "", OutcomeSuccess, OutcomeFailure:
	default:
		return fmt.Errorf("expect_outcome must be %q or %q, got %q", OutcomeSuccess, OutcomeFailure, s.ExpectOutcome)
	}

	for i, step := range s.Steps {
		if _, err := step.InputEvent(); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	return nil
}
