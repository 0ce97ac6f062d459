package testjson

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tddguard/tdd-guard-go/pkg/capture"
)

const passFailStream = `{"Time":"2024-01-01T12:00:00Z","Action":"run","Package":"example.com/calc","Test":"TestAdd"}
{"Time":"2024-01-01T12:00:00Z","Action":"output","Package":"example.com/calc","Test":"TestAdd","Output":"=== RUN   TestAdd\n"}
{"Time":"2024-01-01T12:00:01Z","Action":"pass","Package":"example.com/calc","Test":"TestAdd","Elapsed":0.1}
{"Time":"2024-01-01T12:00:01Z","Action":"run","Package":"example.com/calc","Test":"TestSub"}
{"Time":"2024-01-01T12:00:01Z","Action":"output","Package":"example.com/calc","Test":"TestSub","Output":"    calc_test.go:14: got 3, want 5\n"}
{"Time":"2024-01-01T12:00:01Z","Action":"fail","Package":"example.com/calc","Test":"TestSub","Elapsed":0.1}
{"Time":"2024-01-01T12:00:01Z","Action":"fail","Package":"example.com/calc","Elapsed":0.3}
`

func feed(t *testing.T, a *Adapter, stream string) {
	t.Helper()
	// Deliver in small chunks to exercise partial-line carrying.
	for i := 0; i < len(stream); i += 7 {
		end := i + 7
		if end > len(stream) {
			end = len(stream)
		}
		n, err := a.Write([]byte(stream[i:end]))
		require.NoError(t, err)
		require.Equal(t, end-i, n)
	}
	require.NoError(t, a.Close())
}

func TestAdapter_MapsPassAndFailEvents(t *testing.T) {
	t.Parallel()

	c := capture.NewCollector(nil)
	a := NewAdapter(c)
	feed(t, a, passFailStream)

	run := c.Finish(a.Stats(false))

	require.Len(t, run.TestModules, 1)
	assert.Equal(t, "example.com/calc", run.TestModules[0].ModuleID)
	require.Len(t, run.TestModules[0].Tests, 2)

	add := run.TestModules[0].Tests[0]
	assert.Equal(t, "TestAdd", add.Name)
	assert.Equal(t, "example.com/calc.TestAdd", add.FullName)
	assert.Equal(t, capture.OutcomePassed, add.State)
	assert.Nil(t, add.Errors)

	sub := run.TestModules[0].Tests[1]
	assert.Equal(t, capture.OutcomeFailed, sub.State)
	require.Len(t, sub.Errors, 1)
	assert.Contains(t, sub.Errors[0].Message, "got 3, want 5")

	// Package-level fail after test-level events is not an unhandled error.
	assert.Empty(t, run.UnhandledErrors)
	assert.Equal(t, capture.ReasonFailed, run.Reason)
}

func TestAdapter_Stats_TalliesOutcomes(t *testing.T) {
	t.Parallel()

	c := capture.NewCollector(nil)
	a := NewAdapter(c)
	feed(t, a, passFailStream)

	st := a.Stats(false)
	assert.Equal(t, 1, st.Passed)
	assert.Equal(t, 1, st.Failed)
	assert.Equal(t, 0, st.Skipped)
	assert.False(t, st.Interrupted)

	assert.True(t, a.Stats(true).Interrupted)
}

func TestAdapter_When_PackageFailsWithoutTests(t *testing.T) {
	t.Parallel()

	stream := `{"Action":"output","Package":"example.com/broken","Output":"# example.com/broken\n"}
{"Action":"output","Package":"example.com/broken","Output":"./main.go:3:1: undefined: x\n"}
{"Action":"fail","Package":"example.com/broken","Elapsed":0}
`
	c := capture.NewCollector(nil)
	a := NewAdapter(c)
	feed(t, a, stream)

	run := c.Finish(a.Stats(false))

	assert.Empty(t, run.TestModules)
	require.Len(t, run.UnhandledErrors, 1)
	assert.Contains(t, run.UnhandledErrors[0].Message, "undefined: x")
	assert.Equal(t, capture.ErrNameUnhandledError, run.UnhandledErrors[0].Name)
}

func TestAdapter_When_SkippedTest(t *testing.T) {
	t.Parallel()

	stream := `{"Action":"run","Package":"p","Test":"TestSkip"}
{"Action":"skip","Package":"p","Test":"TestSkip","Elapsed":0}
`
	c := capture.NewCollector(nil)
	a := NewAdapter(c)
	feed(t, a, stream)

	run := c.Finish(a.Stats(false))
	require.Len(t, run.TestModules, 1)
	assert.Equal(t, capture.OutcomeSkipped, run.TestModules[0].Tests[0].State)
	assert.Equal(t, capture.ReasonPassed, run.Reason)
}

func TestAdapter_When_NonJSONOutput(t *testing.T) {
	t.Parallel()

	c := capture.NewCollector(nil)
	a := NewAdapter(c)
	feed(t, a, "not json at all\nanother line\n")

	assert.False(t, a.SawTestEvents())
	assert.Equal(t, 2, a.Malformed())

	run := c.Finish(a.Stats(false))
	assert.Empty(t, run.TestModules)
	assert.Equal(t, capture.ReasonPassed, run.Reason)
}

func TestAdapter_SawTestEvents_When_EventsPresent(t *testing.T) {
	t.Parallel()

	a := NewAdapter(capture.NewCollector(nil))
	feed(t, a, passFailStream)
	assert.True(t, a.SawTestEvents())
	assert.True(t, a.SawTests())
}

func TestAdapter_SawTests_When_OnlyPackageEvents(t *testing.T) {
	t.Parallel()

	stream := `{"Action":"output","Package":"example.com/broken","Output":"./main.go:3:1: undefined: x\n"}
{"Action":"fail","Package":"example.com/broken","Elapsed":0}
`
	a := NewAdapter(capture.NewCollector(nil))
	feed(t, a, stream)

	assert.True(t, a.SawTestEvents())
	assert.False(t, a.SawTests())
}

func TestAdapter_When_MultiplePackagesFailToBuild(t *testing.T) {
	t.Parallel()

	// Build events carry ImportPath, not Package; each package's
	// diagnostics must stay separate.
	stream := `{"Action":"build-output","ImportPath":"example.com/alpha","Output":"./alpha.go:3:1: undefined: a\n"}
{"Action":"build-output","ImportPath":"example.com/beta","Output":"./beta.go:7:2: undefined: b\n"}
{"Action":"build-fail","ImportPath":"example.com/alpha"}
{"Action":"build-fail","ImportPath":"example.com/beta"}
`
	c := capture.NewCollector(nil)
	a := NewAdapter(c)
	feed(t, a, stream)

	assert.True(t, a.SawBuildFailure())
	assert.False(t, a.SawTests())

	run := c.Finish(a.Stats(false))
	require.Len(t, run.UnhandledErrors, 2)
	assert.Equal(t, "./alpha.go:3:1: undefined: a", run.UnhandledErrors[0].Message)
	assert.Equal(t, "./beta.go:7:2: undefined: b", run.UnhandledErrors[1].Message)
}
