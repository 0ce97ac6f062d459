// Package supervise runs the real test tool as a child process,
// mirroring its output live while buffering a complete copy for
// post-hoc classification.
package supervise

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// killGracePeriod is how long a forwarded signal gets before the child
// process group is killed outright.
const killGracePeriod = 10 * time.Second

// ErrEmptyCommand is returned when Run is called with no argv.
var ErrEmptyCommand = errors.New("supervise: empty command")

// Supervisor launches and babysits one child process per Run call.
type Supervisor struct {
	log       *zap.Logger
	stdout    io.Writer
	stderr    io.Writer
	stdoutTee io.Writer
	signals   bool
}

// Option customizes a Supervisor.
type Option func(*Supervisor)

// WithStdio redirects the live mirror targets, which default to the
// parent's os.Stdout and os.Stderr.
func WithStdio(stdout, stderr io.Writer) Option {
	return func(s *Supervisor) {
		s.stdout = stdout
		s.stderr = stderr
	}
}

// WithStdoutTee adds an extra sink fed the child's stdout as it is
// drained. The in-process result adapter hangs off this tee.
func WithStdoutTee(w io.Writer) Option {
	return func(s *Supervisor) { s.stdoutTee = w }
}

// WithoutSignalForwarding disables the SIGINT/SIGTERM relay. Tests use
// this to keep signal handling out of the picture.
func WithoutSignalForwarding() Option {
	return func(s *Supervisor) { s.signals = false }
}

// New returns a Supervisor logging through log.
func New(log *zap.Logger, opts ...Option) *Supervisor {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Supervisor{
		log:     log,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
		signals: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// lockedBuffer is the shared accumulator both stream drains append to.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}

// Run executes argv in the caller's working directory, streaming the
// child's stdout and stderr to the parent's streams in real time while
// accumulating a combined copy. Both pipes are drained concurrently;
// reading one stream to completion before the other would let a full
// OS pipe buffer stall the child.
//
// The child's exit code is returned verbatim. A launch failure yields
// a conventional shell-style code (127 for a missing binary) together
// with the error.
func (s *Supervisor) Run(ctx context.Context, argv []string) (int, []byte, error) {
	if len(argv) == 0 {
		return 1, nil, ErrEmptyCommand
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Env = os.Environ()
	setProcessGroup(cmd)

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return 1, nil, fmt.Errorf("creating stdout pipe: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return 1, nil, fmt.Errorf("creating stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		s.log.Error("failed to start test command",
			zap.String("command", strings.Join(argv, " ")), zap.Error(err))
		return launchExitCode(err), nil, fmt.Errorf("starting %s: %w", argv[0], err)
	}

	combined := &lockedBuffer{}

	stdoutSink := io.Writer(io.MultiWriter(s.stdout, combined))
	if s.stdoutTee != nil {
		stdoutSink = io.MultiWriter(s.stdout, combined, s.stdoutTee)
	}
	stderrSink := io.MultiWriter(s.stderr, combined)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if _, err := io.Copy(stdoutSink, stdoutPipe); err != nil && !ignorableCopyError(err) {
			s.log.Warn("stdout drain ended early", zap.Error(err))
		}
	}()
	go func() {
		defer wg.Done()
		if _, err := io.Copy(stderrSink, stderrPipe); err != nil && !ignorableCopyError(err) {
			s.log.Warn("stderr drain ended early", zap.Error(err))
		}
	}()

	cmdDone := make(chan struct{})
	if s.signals {
		relayDone := s.relaySignals(ctx, cmd, cmdDone)
		defer func() { <-relayDone }()
	}

	wg.Wait()
	runErr := cmd.Wait()
	close(cmdDone)

	exitCode := 0
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			exitCode = exitErr.ExitCode()
			runErr = nil
		} else {
			exitCode = 1
		}
	}
	return exitCode, combined.Bytes(), runErr
}

// relaySignals forwards interrupt signals to the child's process group
// and escalates to SIGKILL when the child ignores them, so killing the
// parent never orphans a test run.
func (s *Supervisor) relaySignals(ctx context.Context, cmd *exec.Cmd, cmdDone <-chan struct{}) <-chan struct{} {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, interruptSignals()...)

	done := make(chan struct{})
	go func() {
		defer func() {
			signal.Stop(sigCh)
			close(done)
		}()
		select {
		case sig := <-sigCh:
			s.log.Info("forwarding signal to test process", zap.Stringer("signal", sig))
			if err := signalProcessGroup(cmd, sig); err != nil {
				s.log.Warn("failed to forward signal", zap.Error(err))
			}
			select {
			case <-cmdDone:
			case <-time.After(killGracePeriod):
				_ = killProcessGroup(cmd)
			}
		case <-ctx.Done():
			if cmd.Process != nil && cmd.ProcessState == nil {
				_ = killProcessGroup(cmd)
			}
		case <-cmdDone:
		}
	}()
	return done
}

// ignorableCopyError reports whether a drain error is the expected
// consequence of the child exiting and its pipe being torn down.
func ignorableCopyError(err error) bool {
	return errors.Is(err, os.ErrClosed) || errors.Is(err, io.ErrClosedPipe)
}

// launchExitCode maps a start failure onto a conventional shell code.
func launchExitCode(err error) int {
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
		return 127
	}
	if errors.Is(err, os.ErrPermission) {
		return 126
	}
	return 1
}

// EnsureReporterFlag returns argv with the result-capture reporter flag
// appended when no spelling of it is already present. The check accepts
// the bare token as well as "flag=value" and "flag:value" forms, so
// applying it twice never duplicates the flag.
func EnsureReporterFlag(argv []string, flag string) []string {
	if flag == "" {
		return argv
	}
	for _, arg := range argv {
		if arg == flag ||
			strings.HasPrefix(arg, flag+"=") ||
			strings.HasPrefix(arg, flag+":") {
			return argv
		}
	}
	out := make([]string, 0, len(argv)+1)
	out = append(out, argv...)
	return append(out, flag)
}
