// Package classify inspects buffered subprocess output for build and
// compile failures, and synthesizes a result record when the test tool
// never got far enough to run a single test.
package classify

import (
	"regexp"
	"strings"

	"github.com/tddguard/tdd-guard-go/pkg/capture"
)

// Sentinel identifies the synthetic module and test standing in for a
// run that failed before any test executed.
const Sentinel = "CompilationError"

// maxSummaryLines bounds the extracted error excerpt.
const maxSummaryLines = 20

// fallbackLines is how many leading non-blank lines stand in for the
// summary when no diagnostic line matched.
const fallbackLines = 5

// buildFailurePatterns are the known build-failure signatures, checked
// in order. First match wins.
var buildFailurePatterns = []*regexp.Regexp{
	// Explicit banner printed by msbuild-style tools.
	regexp.MustCompile(`(?im)^\s*build failed`),
	regexp.MustCompile(`(?i)build failed\.`),
	// Compiler diagnostic codes: dotnet (CS/FS/VB/MSBuild), rustc.
	regexp.MustCompile(`(?i)\berror\s+(?:CS|FS|BC|MSB|NETSDK)\d{3,5}\b`),
	regexp.MustCompile(`(?i)\berror\[E\d{4}\]`),
	// go build/vet diagnostics surface as a '# pkg' header followed by
	// file:line:col lines.
	regexp.MustCompile(`(?m)^# [^\s]+\n.*\.go:\d+:\d+:`),
	regexp.MustCompile(`(?m)\.go:\d+:\d+: .*(undefined|undeclared|cannot|expected|syntax error)`),
	// Failure-count summary line.
	regexp.MustCompile(`(?im)^\s*\d+\s+error\(s\)`),
	// The tool itself could not be launched.
	regexp.MustCompile(`(?i)command not found`),
	regexp.MustCompile(`(?i)not recognized as an internal or external command`),
	regexp.MustCompile(`(?im)^(?:\S*sh|exec|env): .*no such file or directory`),
}

// diagLinePattern selects lines worth keeping in the summary: compiler
// diagnostics and failure/warning counts.
var diagLinePattern = regexp.MustCompile(`(?i)\berror\b|\bwarning\b|\d+\s+(?:error|warning)\(s\)|\.go:\d+:\d+:`)

// noiseLinePattern drops banner and bookkeeping lines from the summary.
var noiseLinePattern = regexp.MustCompile(`(?i)^\s*(?:microsoft \(r\)|msbuild version|copyright|time elapsed|elapsed time|determining projects to restore|restored? )`)

// IsBuildFailure reports whether output matches any known
// build/compile-failure signature.
func IsBuildFailure(output string) bool {
	for _, p := range buildFailurePatterns {
		if p.MatchString(output) {
			return true
		}
	}
	return false
}

// ExtractSummary reduces raw combined output to a human-readable error
// excerpt: noise lines are dropped, diagnostic and count lines are
// kept, and if nothing diagnostic survives the first few non-blank
// lines are used instead.
func ExtractSummary(output string) string {
	var diag, fallback []string
	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimRight(line, "\r")
		if strings.TrimSpace(trimmed) == "" {
			continue
		}
		if noiseLinePattern.MatchString(trimmed) {
			continue
		}
		if len(fallback) < fallbackLines {
			fallback = append(fallback, trimmed)
		}
		if diagLinePattern.MatchString(trimmed) && len(diag) < maxSummaryLines {
			diag = append(diag, trimmed)
		}
	}
	if len(diag) > 0 {
		return strings.Join(diag, "\n")
	}
	return strings.Join(fallback, "\n")
}

// SyntheticRun builds the stand-in result for a run whose code failed
// to build: one sentinel module holding one failed sentinel test whose
// single error message is the extracted summary.
func SyntheticRun(summary string) capture.CapturedTestRun {
	if summary == "" {
		summary = "Build failed"
	}
	return capture.CapturedTestRun{
		TestModules: []capture.CapturedModule{{
			ModuleID: Sentinel,
			Tests: []capture.CapturedTest{{
				Name:     Sentinel,
				FullName: Sentinel,
				State:    capture.OutcomeFailed,
				Errors: []capture.CapturedError{{
					Message: summary,
					Name:    capture.ErrNameTestFailure,
				}},
			}},
		}},
		Reason: capture.ReasonFailed,
	}
}
