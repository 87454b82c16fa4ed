package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/persona-engine/pkg/chat"
	"github.com/jwebster45206/persona-engine/pkg/persona"
	"github.com/jwebster45206/persona-engine/pkg/reply"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

// errStepTimeout marks step failures that are worth one retry.
var errStepTimeout = errors.New("step timed out")

// Runner executes integration tests against a running persona-engine API
type Runner struct {
	BaseURL           string
	Client            *http.Client
	Timeout           time.Duration
	Logger            func(format string, args ...any)
	ErrorHandlingMode ErrorHandlingMode
	ModeOverride      string // If set, overrides the mode for all test cases
}

// NewRunner creates a new test runner
func NewRunner(baseURL string) *Runner {
	return &Runner{
		BaseURL:           strings.TrimSuffix(baseURL, "/"),
		Client:            &http.Client{Timeout: 60 * time.Second},
		Timeout:           30 * time.Second,
		Logger:            func(string, ...any) {},
		ErrorHandlingMode: ErrorHandlingContinue,
	}
}

// LoadTestSuite loads a test suite from a JSON file
func LoadTestSuite(filename string) (TestSuite, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}

	var suite TestSuite
	if err := json.Unmarshal(content, &suite); err != nil {
		return TestSuite{}, fmt.Errorf("failed to parse JSON in %s: %w", filename, err)
	}

	return suite, nil
}

// LoadTestSuiteWithExpansion loads a test suite and expands it if it's a sequence
// Returns a list of actual test suites (expanded from the sequence if needed)
func LoadTestSuiteWithExpansion(filename string, casesDir string) ([]TestJob, error) {
	suite, err := LoadTestSuite(filename)
	if err != nil {
		return nil, err
	}

	if !suite.IsSequence() {
		return []TestJob{{
			Name:     suite.Name,
			Suite:    suite,
			CaseFile: filename,
		}}, nil
	}

	var jobs []TestJob
	for _, caseFile := range suite.Cases {
		casePath := filepath.Join(casesDir, caseFile)

		// Sequences may reference other sequences
		subJobs, err := LoadTestSuiteWithExpansion(casePath, casesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load case '%s' referenced by sequence '%s': %w", caseFile, suite.Name, err)
		}

		jobs = append(jobs, subJobs...)
	}

	return jobs, nil
}

// RunSuite executes a complete test suite against a fresh conversation
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) (TestRunResult, error) {
	start := time.Now()
	result := TestRunResult{
		Job: TestJob{
			Name:  suite.Name,
			Suite: suite,
		},
		Results:        make([]TestResult, 0, len(suite.Steps)),
		ConversationID: uuid.New(),
	}

	if r.ModeOverride != "" {
		suite.Mode = r.ModeOverride
	}
	result.Mode = suite.Mode
	if result.Mode == "" {
		result.Mode = persona.ModeDefault
	}

	for i, step := range suite.Steps {
		r.Logger("    [%d/%d] Running step: %s", i+1, len(suite.Steps), step.Name)

		if step.UserPrompt == NewConversationPrompt {
			result.ConversationID = uuid.New()
			result.Results = append(result.Results, TestResult{
				TestName:     suite.Name,
				StepName:     step.Name,
				Success:      true,
				IsReset:      true,
				ResponseText: "[NEW CONVERSATION]",
			})
			continue
		}

		stepResult := r.runStep(ctx, suite, result.ConversationID, step)
		result.Results = append(result.Results, stepResult)

		if stepResult.Error != nil {
			r.Logger("    [%d/%d] ✗ %s: %v", i+1, len(suite.Steps), step.Name, stepResult.Error)
			if result.Error == nil {
				result.Error = fmt.Errorf("step %d (%s) failed: %w", i, step.Name, stepResult.Error)
			}
			if r.ErrorHandlingMode == ErrorHandlingExit {
				break
			}
			continue
		}

		r.Logger("    [%d/%d] ✓ %s (%v)", i+1, len(suite.Steps), step.Name, stepResult.Duration)
	}

	result.Duration = time.Since(start)
	return result, result.Error
}

// runStep executes a single test step and checks expectations.
// Retries once on timeout without backoff.
func (r *Runner) runStep(ctx context.Context, suite TestSuite, conversationID uuid.UUID, step TestStep) TestResult {
	var result TestResult
	for attempt := 1; attempt <= 2; attempt++ {
		result = r.executeStep(ctx, suite, conversationID, step)
		if result.Success || !errors.Is(result.Error, errStepTimeout) {
			return result
		}
		r.Logger("    Timeout detected, retrying step: %s", step.Name)
	}
	return result
}

func (r *Runner) executeStep(ctx context.Context, suite TestSuite, conversationID uuid.UUID, step TestStep) TestResult {
	start := time.Now()
	result := TestResult{
		TestName: suite.Name,
		StepName: step.Name,
		Async:    suite.Async,
	}
	fail := func(err error) TestResult {
		result.Error = err
		result.Duration = time.Since(start)
		return result
	}

	turn := chat.TurnRequest{
		ConversationID: conversationID,
		Message:        step.UserPrompt,
		Mode:           suite.Mode,
		Owner:          suite.Owner,
		MessageID:      uuid.New().String(),
		Character:      suite.Character,
	}
	if step.Character != nil {
		turn.Character = step.Character
	}

	stepCtx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	var (
		got reply.Reply
		err error
	)
	if suite.Async {
		got, result.RequestID, err = r.submitAsync(stepCtx, turn)
	} else {
		var resp *chat.TurnResponse
		resp, err = PostChat(stepCtx, r.Client, r.BaseURL, turn)
		if resp != nil {
			got = resp.Reply
		}
	}
	if err != nil {
		if stepCtx.Err() != nil || strings.Contains(err.Error(), "timeout") {
			err = fmt.Errorf("%w: %w", errStepTimeout, err)
		}
		return fail(fmt.Errorf("failed to run turn: %w", err))
	}
	result.ResponseText = got.Response
	result.Sentinel = reply.IsSentinel(got)
	result.Quest = got.HasQuest()

	var history *chat.HistoryResponse
	if step.Expectations.TurnCount != nil || step.Expectations.Mode != nil {
		history, err = GetHistory(ctx, r.Client, r.BaseURL, conversationID)
		if err != nil {
			return fail(fmt.Errorf("failed to get history: %w", err))
		}
	}

	if err := checkExpectations(step.Expectations, got, history); err != nil {
		return fail(fmt.Errorf("expectation failed: %w", err))
	}

	result.Success = true
	result.Duration = time.Since(start)
	return result
}

// submitAsync opens the event stream before queueing so the completion
// event cannot be missed.
func (r *Runner) submitAsync(ctx context.Context, turn chat.TurnRequest) (reply.Reply, string, error) {
	stream, err := OpenEventStream(ctx, r.Client, r.BaseURL, turn.ConversationID)
	if err != nil {
		return reply.Reply{}, "", err
	}
	defer stream.Close()

	accepted, err := PostTurnAsync(ctx, r.Client, r.BaseURL, turn)
	if err != nil {
		return reply.Reply{}, "", err
	}

	got, err := stream.WaitForTurn(ctx, accepted.RequestID, TurnTimeout)
	return got, accepted.RequestID, err
}

// checkExpectations validates the reply and, when loaded, the stored history
func checkExpectations(exp Expectations, got reply.Reply, history *chat.HistoryResponse) error {
	responseText := got.Response

	if exp.NotSentinel != nil && *exp.NotSentinel == reply.IsSentinel(got) {
		return fmt.Errorf("expected not_sentinel=%t, got reply %q", *exp.NotSentinel, responseText)
	}

	if exp.HasQuest != nil && got.HasQuest() != *exp.HasQuest {
		return fmt.Errorf("expected has_quest=%t, got %t", *exp.HasQuest, got.HasQuest())
	}

	if exp.InnerLife != nil {
		hasInner := len(got.Sensations) > 0 || len(got.Thoughts) > 0
		if hasInner != *exp.InnerLife {
			return fmt.Errorf("expected inner_life=%t, got %t", *exp.InnerLife, hasInner)
		}
	}

	if len(exp.ResponseContains) > 0 {
		lowerResponse := strings.ToLower(responseText)
		for _, expectedText := range exp.ResponseContains {
			if !strings.Contains(lowerResponse, strings.ToLower(expectedText)) {
				return fmt.Errorf("expected response to contain '%s', but it didn't", expectedText)
			}
		}
	}

	if len(exp.ResponseNotContains) > 0 {
		lowerResponse := strings.ToLower(responseText)
		for _, unexpectedText := range exp.ResponseNotContains {
			if strings.Contains(lowerResponse, strings.ToLower(unexpectedText)) {
				return fmt.Errorf("expected response to NOT contain '%s', but it did", unexpectedText)
			}
		}
	}

	if exp.ResponseRegex != "" {
		matched, err := regexp.MatchString(exp.ResponseRegex, responseText)
		if err != nil {
			return fmt.Errorf("invalid regex pattern: %w", err)
		}
		if !matched {
			return fmt.Errorf("response didn't match regex pattern: %s", exp.ResponseRegex)
		}
	}

	if exp.ResponseMinLength != nil && len(responseText) < *exp.ResponseMinLength {
		return fmt.Errorf("expected response length >= %d, got %d", *exp.ResponseMinLength, len(responseText))
	}
	if exp.ResponseMaxLength != nil && len(responseText) > *exp.ResponseMaxLength {
		return fmt.Errorf("expected response length <= %d, got %d", *exp.ResponseMaxLength, len(responseText))
	}

	if history == nil {
		return nil
	}

	if exp.TurnCount != nil && len(history.Turns) != *exp.TurnCount {
		return fmt.Errorf("expected turn_count to be %d, got %d", *exp.TurnCount, len(history.Turns))
	}

	if exp.Mode != nil {
		if history.Conversation == nil {
			return fmt.Errorf("expected mode %s, but conversation has no metadata", *exp.Mode)
		}
		if history.Conversation.Mode != *exp.Mode {
			return fmt.Errorf("expected mode %s, got %s", *exp.Mode, history.Conversation.Mode)
		}
	}

	return nil
}
