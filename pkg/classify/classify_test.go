package classify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tddguard/tdd-guard-go/pkg/capture"
)

const dotnetBuildFailure = `MSBuild version 17.8.3+195e7f5a3 for .NET
  Determining projects to restore...
  Restored /src/App/App.csproj (in 180 ms).
/src/App/Calculator.cs(12,17): error CS0103: The name 'result' does not exist in the current context [/src/App/App.csproj]

Build FAILED.

/src/App/Calculator.cs(12,17): error CS0103: The name 'result' does not exist in the current context [/src/App/App.csproj]
    0 Warning(s)
    1 Error(s)

Time Elapsed 00:00:02.91
`

const goBuildFailure = `# github.com/example/app
./main.go:14:2: undefined: computeTotal
FAIL	github.com/example/app [build failed]
`

func TestIsBuildFailure_When_CompilerDiagnostics(t *testing.T) {
	t.Parallel()

	assert.True(t, IsBuildFailure(dotnetBuildFailure))
	assert.True(t, IsBuildFailure(goBuildFailure))
	assert.True(t, IsBuildFailure("error[E0425]: cannot find value `x` in this scope"))
	assert.True(t, IsBuildFailure("sh: dotnet: command not found"))
	assert.True(t, IsBuildFailure("'dotnet' is not recognized as an internal or external command"))
	assert.True(t, IsBuildFailure("sh: ./run-tests.sh: No such file or directory"))
	assert.True(t, IsBuildFailure(`exec: "dotnet": no such file or directory`))
}

func TestIsBuildFailure_When_OrdinaryTestFailure(t *testing.T) {
	t.Parallel()

	output := strings.Join([]string{
		"Passed!  - Failed:     0, Passed:    12, Skipped:     0, Total:    12",
		"--- FAIL: TestAdd (0.00s)",
		"    calc_test.go:10: got 3, want 5",
		"FAIL",
	}, "\n")
	assert.False(t, IsBuildFailure(output))
}

func TestIsBuildFailure_When_TestLogsMissingFile(t *testing.T) {
	t.Parallel()

	// A test failing on a file-open error is a test failure, not a
	// launch failure.
	output := strings.Join([]string{
		"--- FAIL: TestLoadConfig (0.00s)",
		"    config_test.go:22: open /tmp/missing.yaml: no such file or directory",
		"FAIL",
	}, "\n")
	assert.False(t, IsBuildFailure(output))
}

func TestIsBuildFailure_IsCaseInsensitive(t *testing.T) {
	t.Parallel()

	assert.True(t, IsBuildFailure("BUILD FAILED."))
	assert.True(t, IsBuildFailure("Error cs1002: ; expected"))
}

func TestExtractSummary_KeepsDiagnosticsDropsNoise(t *testing.T) {
	t.Parallel()

	summary := ExtractSummary(dotnetBuildFailure)

	assert.Contains(t, summary, "error CS0103")
	assert.Contains(t, summary, "1 Error(s)")
	assert.NotContains(t, summary, "MSBuild version")
	assert.NotContains(t, summary, "Time Elapsed")
	assert.NotContains(t, summary, "Determining projects to restore")
}

func TestExtractSummary_When_NoDiagnosticLines(t *testing.T) {
	t.Parallel()

	output := "line one\nline two\n\nline three\nline four\nline five\nline six\n"
	summary := ExtractSummary(output)

	// Falls back to the first few non-blank lines.
	assert.Equal(t, "line one\nline two\nline three\nline four\nline five", summary)
}

func TestExtractSummary_When_Empty(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", ExtractSummary(""))
}

func TestSyntheticRun_ShapesOneSentinelModule(t *testing.T) {
	t.Parallel()

	summary := ExtractSummary(goBuildFailure)
	run := SyntheticRun(summary)

	require.Len(t, run.TestModules, 1)
	mod := run.TestModules[0]
	assert.Equal(t, Sentinel, mod.ModuleID)
	require.Len(t, mod.Tests, 1)
	test := mod.Tests[0]
	assert.Equal(t, Sentinel, test.Name)
	assert.Equal(t, Sentinel, test.FullName)
	assert.Equal(t, capture.OutcomeFailed, test.State)
	require.Len(t, test.Errors, 1)
	assert.Contains(t, test.Errors[0].Message, "undefined: computeTotal")
	assert.Equal(t, capture.ReasonFailed, run.Reason)
}

func TestSyntheticRun_When_EmptySummary(t *testing.T) {
	t.Parallel()

	run := SyntheticRun("")
	require.Len(t, run.TestModules, 1)
	assert.Equal(t, "Build failed", run.TestModules[0].Tests[0].Errors[0].Message)
}
