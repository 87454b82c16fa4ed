package runner

import (
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/persona-engine/pkg/character"
)

// Special user prompt values that trigger non-chat actions
const (
	NewConversationPrompt = "NEW_CONVERSATION"
)

// TestSuite defines a complete integration test conversation.
// Can either be a regular test with Steps, or a suite that references other Cases
type TestSuite struct {
	Name      string           `json:"name"`
	Mode      string           `json:"mode,omitempty"`      // Used for regular tests
	Owner     string           `json:"owner,omitempty"`     // Used for regular tests
	Character *character.Sheet `json:"character,omitempty"` // Attached to the first turn
	Async     bool             `json:"async,omitempty"`     // Submit through /v1/turns and wait for SSE events
	Steps     []TestStep       `json:"steps,omitempty"`     // Used for regular tests
	Cases     []string         `json:"cases,omitempty"`     // Used for suite tests (list of case files)
}

// IsSequence returns true if this is a suite that sequences other cases
func (ts *TestSuite) IsSequence() bool {
	return len(ts.Cases) > 0
}

// TestStep defines a single turn and its expected outcomes.
// Use user_prompt: "NEW_CONVERSATION" to start over with a fresh conversation id
type TestStep struct {
	Name         string           `json:"name,omitempty"`
	UserPrompt   string           `json:"user_prompt"`
	Character    *character.Sheet `json:"character,omitempty"` // Replaces the conversation's character
	Expectations Expectations     `json:"expect"`
}

// Expectations defines what to check after a test step executes
type Expectations struct {
	// Conversation properties
	Mode      *string `json:"mode,omitempty"`       // Stored conversation mode
	TurnCount *int    `json:"turn_count,omitempty"` // Turns in history after this step

	// Reply structure
	NotSentinel *bool `json:"not_sentinel,omitempty"` // Reply is not the fallback
	HasQuest    *bool `json:"has_quest,omitempty"`    // Quest fields are present
	InnerLife   *bool `json:"inner_life,omitempty"`   // Sensations or thoughts are present

	// Response Analysis
	ResponseContains    []string `json:"response_contains,omitempty"`
	ResponseNotContains []string `json:"response_not_contains,omitempty"`
	ResponseRegex       string   `json:"response_regex,omitempty"`
	ResponseMinLength   *int     `json:"response_min_length,omitempty"`
	ResponseMaxLength   *int     `json:"response_max_length,omitempty"`
}

// TestResult contains the outcome of running a test step
type TestResult struct {
	TestName     string
	StepName     string
	Success      bool
	Error        error
	Duration     time.Duration
	ResponseText string
	RequestID    string
	Async        bool // Went through /v1/turns and the event stream
	Sentinel     bool // Reply was the technical-difficulties fallback
	Quest        bool // Reply carried quest fields
	IsReset      bool // True for NEW_CONVERSATION steps (should not count toward pass/fail metrics)
}

// TestJob represents a test suite to be executed
type TestJob struct {
	Name     string
	Suite    TestSuite
	CaseFile string
}

// TestRunResult contains the results of running an entire test suite
type TestRunResult struct {
	Job            TestJob
	Results        []TestResult
	Error          error
	Duration       time.Duration
	Mode           string    // Effective persona mode after any override
	ConversationID uuid.UUID // ID of the last conversation used for this test
}
