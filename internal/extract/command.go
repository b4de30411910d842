package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"photocat/internal/catalog"
)

// DefaultCommand reads a file on stdin and prints its metadata as JSON.
const DefaultCommand = "exiftool -b -j -"

// DefaultTimeout bounds a single extraction.
const DefaultTimeout = 30 * time.Second

// ErrTimeout is returned when an extraction exceeds its timeout.
var ErrTimeout = errors.New("extraction timed out")

// maxStderr caps how much of the command's stderr is kept for errors.
const maxStderr = 4 << 10

// CommandExtractor runs a shell command with the file's bytes on stdin and
// parses its stdout as JSON. The number of concurrently running commands
// is capped.
type CommandExtractor struct {
	command string
	timeout time.Duration
	procs   *semaphore.Weighted
}

// NewCommandExtractor creates an extractor running command through sh -c.
// Zero timeout or maxProcs select the defaults.
func NewCommandExtractor(command string, timeout time.Duration, maxProcs int) *CommandExtractor {
	if command == "" {
		command = DefaultCommand
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxProcs <= 0 {
		maxProcs = runtime.NumCPU()
	}
	return &CommandExtractor{
		command: command,
		timeout: timeout,
		procs:   semaphore.NewWeighted(int64(maxProcs)),
	}
}

// Command returns the shell command line.
func (e *CommandExtractor) Command() string {
	return e.command
}

// Extract runs the command on r. The timeout starts once a process slot
// is acquired.
func (e *CommandExtractor) Extract(ctx context.Context, r io.Reader) (catalog.Document, error) {
	if err := e.procs.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer e.procs.Release(1)

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var stdout bytes.Buffer
	stderr := &cappedBuffer{max: maxStderr}
	cmd := exec.CommandContext(ctx, "sh", "-c", e.command)
	cmd.Stdin = r
	cmd.Stdout = &stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = time.Second

	err := cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w after %s: %s", ErrTimeout, e.timeout, e.command)
	}
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("running %q: %w: %s", e.command, err, msg)
		}
		return nil, fmt.Errorf("running %q: %w", e.command, err)
	}

	return ParseOutput(stdout.Bytes())
}

// cappedBuffer keeps the first max bytes written to it and discards the rest.
type cappedBuffer struct {
	buf bytes.Buffer
	max int
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if room := b.max - b.buf.Len(); room > 0 {
		b.buf.Write(p[:min(len(p), room)])
	}
	return len(p), nil
}

func (b *cappedBuffer) String() string {
	return b.buf.String()
}

var _ catalog.Extractor = (*CommandExtractor)(nil)
