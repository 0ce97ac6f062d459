// Package testjson adapts the go test -json event stream to the
// capture event contract, letting the supervisor host a collector
// in-process while the child runs.
package testjson

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/tddguard/tdd-guard-go/pkg/capture"
)

// TestEvent is one line of go test -json output.
type TestEvent struct {
	Time       time.Time `json:"Time"`
	Action     string    `json:"Action"`
	Package    string    `json:"Package"`
	Test       string    `json:"Test"`
	ImportPath string    `json:"ImportPath"`
	Elapsed    float64   `json:"Elapsed"`
	Output     string    `json:"Output"`
}

// pkgID returns the package identity of an event. Build events (go
// 1.24+) carry ImportPath rather than Package; keying both forms the
// same way keeps each failing package's diagnostics separate.
func (ev TestEvent) pkgID() string {
	if ev.ImportPath != "" {
		return ev.ImportPath
	}
	return ev.Package
}

// Reporter receives the mapped notifications. *capture.Collector
// satisfies it.
type Reporter interface {
	OnTestResult(capture.TestResult)
	OnMessage(capture.Level, string)
}

// Adapter consumes raw go test -json bytes (in arbitrary chunks, as
// produced by a pipe drain) and emits test-finished and diagnostic
// notifications to a Reporter. It implements io.Writer so it can hang
// off the supervisor's stdout tee.
type Adapter struct {
	rep Reporter

	mu          sync.Mutex
	carry       []byte
	outputBuf   map[string][]string
	testsSeen   map[string]bool
	malformed   int
	sawEvent    bool
	buildFailed bool
	stats       capture.Stats
}

// NewAdapter returns an Adapter reporting into rep.
func NewAdapter(rep Reporter) *Adapter {
	return &Adapter{
		rep:       rep,
		outputBuf: make(map[string][]string),
		testsSeen: make(map[string]bool),
	}
}

// Write splits the incoming chunk into lines, carrying partial lines
// across calls, and processes each complete line. It never fails; a
// tee that errors would break the live mirror.
func (a *Adapter) Write(p []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.carry = append(a.carry, p...)
	for {
		i := bytes.IndexByte(a.carry, '\n')
		if i < 0 {
			break
		}
		line := a.carry[:i]
		a.carry = a.carry[i+1:]
		a.processLine(line)
	}
	return len(p), nil
}

// Close flushes any trailing partial line. Call after the child exits.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.carry) > 0 {
		a.processLine(a.carry)
		a.carry = nil
	}
	return nil
}

// SawTestEvents reports whether at least one parseable event arrived.
// When false the wrapped tool was not emitting go test -json and the
// in-process path has nothing to persist.
func (a *Adapter) SawTestEvents() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sawEvent
}

// SawTests reports whether any test-level result was emitted. A stream
// of events with no tests in it (a build failure reported through the
// event protocol, say) is not a test run.
func (a *Adapter) SawTests() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats.Passed+a.stats.Failed+a.stats.Skipped > 0
}

// SawBuildFailure reports whether a build-fail event arrived.
func (a *Adapter) SawBuildFailure() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.buildFailed
}

// Malformed returns the count of non-event lines skipped.
func (a *Adapter) Malformed() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.malformed
}

// Stats returns the run-finished tallies accumulated so far. The
// interrupted flag is the caller's to set; cancellation is not visible
// in the event stream itself.
func (a *Adapter) Stats(interrupted bool) capture.Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	st := a.stats
	st.Interrupted = interrupted
	return st
}

// bufKey addresses per-test output buffers; the empty test name holds
// package-level output.
func bufKey(pkg, test string) string {
	return pkg + "\x00" + test
}

func (a *Adapter) processLine(line []byte) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 || line[0] != '{' {
		if len(line) > 0 {
			a.malformed++
		}
		return
	}
	var ev TestEvent
	if err := json.Unmarshal(line, &ev); err != nil {
		a.malformed++
		return
	}
	a.sawEvent = true

	switch ev.Action {
	case "output", "build-output":
		out := strings.TrimRight(ev.Output, "\n")
		if out != "" {
			key := bufKey(ev.pkgID(), ev.Test)
			a.outputBuf[key] = append(a.outputBuf[key], out)
		}

	case "pass", "fail", "skip":
		if ev.Test != "" {
			a.emitTest(ev)
			return
		}
		// Package-level fail with no tests executed means the package
		// never built or panicked at load: out-of-band, not a test.
		if ev.Action == "fail" && !a.packageHadTests(ev.Package) {
			msg := strings.Join(a.outputBuf[bufKey(ev.Package, "")], "\n")
			if msg == "" {
				msg = "package " + ev.Package + " failed without running tests"
			}
			a.rep.OnMessage(capture.LevelError, msg)
		}

	case "build-fail":
		msg := strings.Join(a.outputBuf[bufKey(ev.pkgID(), "")], "\n")
		if msg == "" {
			msg = "build failed"
		}
		delete(a.outputBuf, bufKey(ev.pkgID(), ""))
		a.buildFailed = true
		a.rep.OnMessage(capture.LevelError, msg)
	}
}

func (a *Adapter) emitTest(ev TestEvent) {
	a.testsSeen[bufKey(ev.Package, "")] = true

	tr := capture.TestResult{
		Name:     ev.Test,
		FullName: ev.Package + "." + ev.Test,
		Status:   ev.Action,
	}
	if ev.Action == "fail" {
		tr.Message = strings.Join(a.outputBuf[bufKey(ev.Package, ev.Test)], "\n")
		if tr.Message == "" {
			tr.Message = "test failed"
		}
	}
	delete(a.outputBuf, bufKey(ev.Package, ev.Test))

	switch ev.Action {
	case "pass":
		a.stats.Passed++
	case "fail":
		a.stats.Failed++
	case "skip":
		a.stats.Skipped++
	}
	a.rep.OnTestResult(tr)
}

// packageHadTests reports whether any test-level event was seen for pkg.
func (a *Adapter) packageHadTests(pkg string) bool {
	return a.testsSeen[bufKey(pkg, "")]
}
