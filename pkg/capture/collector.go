package capture

import (
	"sync"

	"go.uber.org/zap"
)

// Level classifies diagnostic messages forwarded by a host runner.
type Level int

const (
	LevelInfo Level = iota
	LevelWarning
	LevelError
)

// TestResult is the "test finished" notification of the event contract.
// Status is the runner's native outcome string and is normalized on
// receipt. Message and Stack are optional failure details.
type TestResult struct {
	Name     string
	FullName string
	Status   string
	Message  string
	Stack    string
}

// Stats is the "run finished" notification: aggregate tallies plus the
// cancellation flag, which takes precedence over everything else.
type Stats struct {
	Passed      int
	Failed      int
	Skipped     int
	Interrupted bool
}

// Collector accumulates streamed per-test outcomes and unhandled-error
// notifications for a single run. All methods are safe for concurrent
// use; hosts that dispatch events from multiple threads need no
// external locking.
//
// A Collector is created fresh per run and reduced exactly once with
// Finish, though Finish itself is a pure read and may be repeated.
type Collector struct {
	log *zap.Logger

	mu        sync.Mutex
	tests     []CapturedTest
	unhandled []CapturedUnhandledError
}

// NewCollector returns an empty Collector. A nil logger is replaced
// with a no-op one so event handlers can never panic on logging.
func NewCollector(log *zap.Logger) *Collector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Collector{log: log}
}

// OnTestResult records one finished test. It never propagates a
// failure into the host run: malformed events are mapped best-effort
// and internal panics are swallowed and logged.
func (c *Collector) OnTestResult(tr TestResult) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("recovered while recording test result", zap.Any("panic", r))
		}
	}()

	test := CapturedTest{
		Name:     tr.Name,
		FullName: tr.FullName,
		State:    NormalizeOutcome(tr.Status),
	}
	if test.Name == "" {
		test.Name = tr.FullName
	}
	if test.FullName == "" {
		test.FullName = tr.Name
	}
	if test.State == OutcomeFailed && tr.Message != "" {
		test.Errors = []CapturedError{{
			Message: tr.Message,
			Stack:   tr.Stack,
			Name:    ErrNameTestFailure,
		}}
	}

	c.mu.Lock()
	c.tests = append(c.tests, test)
	c.mu.Unlock()
}

// OnMessage records an out-of-band diagnostic. Only error-level
// messages are kept; informational and warning traffic is ignored.
func (c *Collector) OnMessage(level Level, text string) {
	if level != LevelError || text == "" {
		return
	}
	c.mu.Lock()
	c.unhandled = append(c.unhandled, CapturedUnhandledError{
		Message: text,
		Name:    ErrNameUnhandledError,
	})
	c.mu.Unlock()
}

// Finish reduces the accumulated state into a CapturedTestRun: tests
// grouped by module qualifier in first-seen order, with the overall
// reason computed from the collected states and stats. The reduction
// is idempotent; calling it twice yields identical results.
func (c *Collector) Finish(stats Stats) CapturedTestRun {
	c.mu.Lock()
	defer c.mu.Unlock()

	byModule := make(map[string]int)
	var modules []CapturedModule
	anyFailed := false

	for _, t := range c.tests {
		if t.State == OutcomeFailed {
			anyFailed = true
		}
		id := ModuleID(t.FullName)
		idx, ok := byModule[id]
		if !ok {
			idx = len(modules)
			byModule[id] = idx
			modules = append(modules, CapturedModule{ModuleID: id})
		}
		modules[idx].Tests = append(modules[idx].Tests, t)
	}

	run := CapturedTestRun{
		TestModules: modules,
		Reason:      ReasonPassed,
	}
	if len(c.unhandled) > 0 {
		run.UnhandledErrors = append([]CapturedUnhandledError(nil), c.unhandled...)
	}
	if run.TestModules == nil {
		run.TestModules = []CapturedModule{}
	}

	switch {
	case stats.Interrupted:
		run.Reason = ReasonInterrupted
	case anyFailed || stats.Failed > 0:
		run.Reason = ReasonFailed
	}
	return run
}
