package runner

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// ModeSummary aggregates suite and step outcomes for one persona mode
type ModeSummary struct {
	Mode         string
	SuitesPassed int
	SuitesFailed int
	Steps        int
	Sentinels    int // fallback replies seen
	Quests       int // replies carrying quest fields
	SyncSteps    int
	SyncTime     time.Duration
	AsyncSteps   int
	AsyncTime    time.Duration
}

// AvgSync is the mean duration of a /v1/chat step
func (m *ModeSummary) AvgSync() time.Duration {
	if m.SyncSteps == 0 {
		return 0
	}
	return m.SyncTime / time.Duration(m.SyncSteps)
}

// AvgAsync is the mean time from queueing a turn to its completion event
func (m *ModeSummary) AvgAsync() time.Duration {
	if m.AsyncSteps == 0 {
		return 0
	}
	return m.AsyncTime / time.Duration(m.AsyncSteps)
}

// StepFailure is one failed step with the suite it belongs to
type StepFailure struct {
	Suite string
	Step  string
	Err   string
}

// Report collects suite runs for the end-of-run summary
type Report struct {
	modes    map[string]*ModeSummary
	Failures []StepFailure
}

func NewReport() *Report {
	return &Report{modes: make(map[string]*ModeSummary)}
}

// Add folds one suite run into the report. Reset steps are not counted.
func (r *Report) Add(run TestRunResult) {
	m, ok := r.modes[run.Mode]
	if !ok {
		m = &ModeSummary{Mode: run.Mode}
		r.modes[run.Mode] = m
	}
	if run.Error != nil {
		m.SuitesFailed++
	} else {
		m.SuitesPassed++
	}

	for _, step := range run.Results {
		if step.IsReset {
			continue
		}
		m.Steps++
		if step.Sentinel {
			m.Sentinels++
		}
		if step.Quest {
			m.Quests++
		}
		if step.Async {
			m.AsyncSteps++
			m.AsyncTime += step.Duration
		} else {
			m.SyncSteps++
			m.SyncTime += step.Duration
		}
		if !step.Success && step.Error != nil {
			r.Failures = append(r.Failures, StepFailure{Suite: run.Job.Name, Step: step.StepName, Err: step.Error.Error()})
		}
	}
}

// Modes returns the per-mode summaries sorted by mode name
func (r *Report) Modes() []*ModeSummary {
	out := make([]*ModeSummary, 0, len(r.modes))
	for _, m := range r.modes {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Mode < out[j].Mode })
	return out
}

// Failed reports whether any suite failed
func (r *Report) Failed() bool {
	for _, m := range r.modes {
		if m.SuitesFailed > 0 {
			return true
		}
	}
	return false
}

func (r *Report) String() string {
	var sb strings.Builder
	sb.WriteString("Persona Engine Integration Summary\n")
	for _, m := range r.Modes() {
		fmt.Fprintf(&sb, "  [%s] suites %d passed, %d failed; %d steps, %d fallback, %d with quest\n",
			m.Mode, m.SuitesPassed, m.SuitesFailed, m.Steps, m.Sentinels, m.Quests)
		if m.SyncSteps > 0 {
			fmt.Fprintf(&sb, "      sync:  %d steps, avg %v\n", m.SyncSteps, m.AvgSync().Round(time.Millisecond))
		}
		if m.AsyncSteps > 0 {
			fmt.Fprintf(&sb, "      async: %d steps, avg %v to turn.completed\n", m.AsyncSteps, m.AvgAsync().Round(time.Millisecond))
		}
	}
	if len(r.Failures) > 0 {
		sb.WriteString("Failures:\n")
		for _, f := range r.Failures {
			fmt.Fprintf(&sb, "  ✗ %s / %s: %s\n", f.Suite, f.Step, f.Err)
		}
	}
	return sb.String()
}
