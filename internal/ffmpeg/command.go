package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

const (
	maxStderrLines = 100
	eventBuffer    = 64
)

// Command represents an FFmpeg command to execute.
type Command struct {
	Binary string
	Args   []string
	Inputs []string
	Output string

	mu     sync.RWMutex
	cmd    *exec.Cmd
	stdout *os.File

	events     chan Event
	stderrDone chan struct{}

	monitor         *ProcessMonitor
	monitorInterval time.Duration

	stderrLogPath string
	stderrLines   []string
	stderrMu      sync.RWMutex

	waitOnce sync.Once
	waitErr  error
}

// String returns the command as a string.
func (c *Command) String() string {
	return c.Binary + " " + strings.Join(c.Args, " ")
}

// Start launches the process. Cancelling ctx kills it. Stderr is parsed into
// events on the channel returned by Events, which must be drained until it is
// closed. When Output is PipeOutput the muxed bytes are readable from Stdout.
func (c *Command) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cmd != nil {
		return errors.New("command already started")
	}

	cmd := exec.CommandContext(ctx, c.Binary, c.Args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("getting stderr pipe: %w", err)
	}

	// The read end must outlive Wait, so this is not cmd.StdoutPipe.
	var stdoutWriter *os.File
	if c.Output == PipeOutput {
		r, w, err := os.Pipe()
		if err != nil {
			return fmt.Errorf("creating stdout pipe: %w", err)
		}
		cmd.Stdout = w
		c.stdout = r
		stdoutWriter = w
	}

	if err := cmd.Start(); err != nil {
		if stdoutWriter != nil {
			_ = stdoutWriter.Close()
			_ = c.stdout.Close()
			c.stdout = nil
		}
		return fmt.Errorf("starting ffmpeg: %w", err)
	}
	if stdoutWriter != nil {
		_ = stdoutWriter.Close()
	}

	c.cmd = cmd
	c.events = make(chan Event, eventBuffer)
	c.events <- Event{Type: EventStart, Command: c.String()}

	if c.monitorInterval > 0 {
		c.monitor = NewProcessMonitor(cmd.Process.Pid, c.monitorInterval)
		c.monitor.Start()
	}

	c.stderrDone = make(chan struct{})
	go c.captureStderr(stderr)

	return nil
}

// Events returns the parsed stderr event stream. It is nil before Start and
// closed once stderr reaches EOF.
func (c *Command) Events() <-chan Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.events
}

// Stdout returns the encoder's stdout when Output is PipeOutput.
func (c *Command) Stdout() io.ReadCloser {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.stdout == nil {
		return nil
	}
	return c.stdout
}

// Wait waits for stderr to drain and the process to exit. It may be called
// more than once and always returns the same result.
func (c *Command) Wait() error {
	c.mu.RLock()
	cmd := c.cmd
	done := c.stderrDone
	c.mu.RUnlock()

	if cmd == nil {
		return errors.New("command not started")
	}

	c.waitOnce.Do(func() {
		<-done
		c.waitErr = cmd.Wait()
		c.stopMonitor()
	})
	return c.waitErr
}

// Kill terminates the FFmpeg process.
func (c *Command) Kill() error {
	c.mu.RLock()
	cmd := c.cmd
	c.mu.RUnlock()

	if cmd == nil || cmd.Process == nil {
		return nil
	}
	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

// StderrLines returns the recent stderr lines captured from FFmpeg.
func (c *Command) StderrLines() []string {
	c.stderrMu.RLock()
	defer c.stderrMu.RUnlock()

	lines := make([]string, len(c.stderrLines))
	copy(lines, c.stderrLines)
	return lines
}

// StderrTail joins the last n captured stderr lines.
func (c *Command) StderrTail(n int) string {
	lines := c.StderrLines()
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

// ProcessStats returns the latest resource sample, or nil when monitoring is off.
func (c *Command) ProcessStats() *ProcessStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.monitor == nil {
		return nil
	}
	stats := c.monitor.Stats()
	return &stats
}

func (c *Command) stopMonitor() {
	c.mu.RLock()
	monitor := c.monitor
	c.mu.RUnlock()

	if monitor != nil {
		monitor.Stop()
	}
}

// captureStderr parses stderr into events, keeps a ring of recent lines and
// optionally appends everything to a log file.
func (c *Command) captureStderr(stderr io.Reader) {
	defer close(c.stderrDone)
	defer close(c.events)

	var logFile *os.File
	if c.stderrLogPath != "" {
		f, err := os.OpenFile(c.stderrLogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
		if err == nil {
			logFile = f
			defer logFile.Close()
			fmt.Fprintf(logFile, "\n=== FFmpeg session started at %s ===\n", time.Now().Format(time.RFC3339))
			fmt.Fprintf(logFile, "Command: %s\n\n", c.String())
		}
	}

	record := func(line string) {
		c.stderrMu.Lock()
		if len(c.stderrLines) >= maxStderrLines {
			c.stderrLines = c.stderrLines[1:]
		}
		c.stderrLines = append(c.stderrLines, line)
		c.stderrMu.Unlock()

		if logFile != nil {
			fmt.Fprintln(logFile, line)
		}
	}

	if err := ParseEvents(stderr, c.events, record); err != nil {
		record(fmt.Sprintf("stderr parsing stopped: %v", err))
	}

	if logFile != nil {
		fmt.Fprintf(logFile, "\n=== FFmpeg session ended at %s ===\n", time.Now().Format(time.RFC3339))
	}
}
