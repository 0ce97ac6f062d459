// Package capture defines the stable result schema shared by every
// reporter path and the collector that aggregates streamed per-test
// outcomes into it.
package capture

import "strings"

// Outcome is the normalized state of one executed test.
type Outcome string

const (
	OutcomePassed  Outcome = "passed"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// Reason summarizes a whole run.
type Reason string

const (
	ReasonPassed      Reason = "passed"
	ReasonFailed      Reason = "failed"
	ReasonInterrupted Reason = "interrupted"
)

// Classification names attached to captured errors.
const (
	ErrNameTestFailure    = "TestFailure"
	ErrNameUnhandledError = "UnhandledError"
)

// NormalizeOutcome maps a runner-specific outcome string onto the
// three-value set. Anything unrecognized counts as a failure rather
// than being dropped.
func NormalizeOutcome(s string) Outcome {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "passed", "pass", "ok", "success":
		return OutcomePassed
	case "skipped", "skip", "pending", "todo":
		return OutcomeSkipped
	default:
		return OutcomeFailed
	}
}

// CapturedError is one failure detail attached to a test. Only Message
// is required; the remaining fields round-trip when a richer framework
// adapter populates them.
type CapturedError struct {
	Message  string `json:"message"`
	Stack    string `json:"stack,omitempty"`
	Actual   string `json:"actual,omitempty"`
	Expected string `json:"expected,omitempty"`
	Diff     string `json:"diff,omitempty"`
	Operator string `json:"operator,omitempty"`
	Name     string `json:"name,omitempty"`
	OK       *bool  `json:"ok,omitempty"`
}

// CapturedTest is one executed (or synthesized) test. Errors is present
// only when State is failed and at least one error was attached; it is
// never an empty list.
type CapturedTest struct {
	Name     string          `json:"name"`
	FullName string          `json:"fullName"`
	State    Outcome         `json:"state"`
	Errors   []CapturedError `json:"errors,omitempty"`
}

// CapturedModule groups tests by the qualifier prefix of their full
// names, in first-seen order.
type CapturedModule struct {
	ModuleID string         `json:"moduleId"`
	Tests    []CapturedTest `json:"tests"`
}

// CapturedUnhandledError is an error not attributable to any single
// test, such as a crashed worker or a load-time exception.
type CapturedUnhandledError struct {
	Message string `json:"message"`
	Name    string `json:"name"`
	Stack   string `json:"stack,omitempty"`
}

// CapturedTestRun is the root record persisted for the validation step.
type CapturedTestRun struct {
	TestModules     []CapturedModule         `json:"testModules"`
	UnhandledErrors []CapturedUnhandledError `json:"unhandledErrors,omitempty"`
	Reason          Reason                   `json:"reason"`
}

// ModuleID derives the grouping key for a qualified test name: the
// qualifier minus its last dotted segment. A name with no separator is
// its own module.
func ModuleID(fullName string) string {
	i := strings.LastIndex(fullName, ".")
	if i <= 0 {
		return fullName
	}
	return fullName[:i]
}
