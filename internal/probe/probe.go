// Package probe runs the metadata prober (yt-dlp) against a media URL and
// resolves its output into a format catalogue.
package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/jmylchreest/streamsift/internal/config"
	"github.com/jmylchreest/streamsift/internal/engine"
	"github.com/jmylchreest/streamsift/internal/identity"
	"github.com/jmylchreest/streamsift/internal/observability"
)

// BinaryName is the prober executable looked up on PATH.
const BinaryName = "yt-dlp"

// ErrProbeFailed is returned when every probe attempt failed.
var ErrProbeFailed = errors.New("probe failed")

// ErrEmptyOutput is returned when the prober exits cleanly without output.
var ErrEmptyOutput = errors.New("prober produced no output")

// Runner executes the prober and returns its stdout.
type Runner interface {
	Run(ctx context.Context, binary string, args []string) ([]byte, error)
}

// ExecRunner runs the prober as a subprocess.
type ExecRunner struct{}

// Run implements Runner. Stderr is folded into the returned error.
func (ExecRunner) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("%w: %s", err, lastLine(msg))
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}

// Prober invokes the metadata prober with retry and backoff.
type Prober struct {
	binary   string
	cfg      config.ProbeConfig
	runner   Runner
	identity identity.Provider
	engine   *engine.Engine
	logger   *slog.Logger
	wait     func(ctx context.Context, d time.Duration) error
}

// NewProber creates a prober for the given binary.
func NewProber(binary string, cfg config.ProbeConfig) *Prober {
	return &Prober{
		binary:   binary,
		cfg:      cfg,
		runner:   ExecRunner{},
		identity: identity.Static(""),
		engine:   engine.New(nil),
		logger:   slog.Default(),
		wait:     sleep,
	}
}

// WithRunner replaces the process runner.
func (p *Prober) WithRunner(r Runner) *Prober {
	p.runner = r
	return p
}

// WithIdentity sets the network identity provider.
func (p *Prober) WithIdentity(id identity.Provider) *Prober {
	p.identity = id
	return p
}

// WithLogger sets the logger.
func (p *Prober) WithLogger(logger *slog.Logger) *Prober {
	if logger != nil {
		p.logger = logger
		p.engine = engine.New(logger)
	}
	return p
}

// Args returns the prober arguments for url.
func (p *Prober) Args(url string) []string {
	args := []string{
		"--dump-single-json",
		"--skip-download",
		"--no-check-certificates",
		"--prefer-insecure",
		"--no-warnings",
		"--user-agent", p.cfg.UserAgent,
	}
	if p.cfg.Proxy != "" {
		args = append(args, "--proxy", p.cfg.Proxy)
	}
	return append(args, url)
}

// Probe runs the prober against url and returns its raw JSON output.
func (p *Prober) Probe(ctx context.Context, url string) ([]byte, error) {
	logger := observability.WithOperation(p.logger, "probe").With(slog.String("url", url))
	args := p.Args(url)

	attempts := max(p.cfg.RetryAttempts, 1)
	delay := p.cfg.MinDelay

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			wait := clamp(delay, p.cfg.MinDelay, p.cfg.MaxDelay)
			logger.Warn("retrying probe",
				slog.Int("attempt", attempt),
				slog.Duration("delay", wait),
				slog.String("error", lastErr.Error()),
			)
			if err := p.wait(ctx, wait); err != nil {
				return nil, err
			}
			delay = time.Duration(float64(delay) * p.cfg.BackoffFactor)
		}

		out, err := p.runOnce(ctx, args)
		if err == nil {
			logger.Debug("probe completed", slog.Int("attempt", attempt), slog.Int("bytes", len(out)))
			return out, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
	}

	return nil, fmt.Errorf("%w after %d attempts: %w", ErrProbeFailed, attempts, lastErr)
}

func (p *Prober) runOnce(ctx context.Context, args []string) ([]byte, error) {
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	out, err := p.runner.Run(ctx, p.binary, args)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(out)) == 0 {
		return nil, ErrEmptyOutput
	}
	return out, nil
}

// Resolve probes url under the provider's network identity and builds the
// format catalogue.
func (p *Prober) Resolve(ctx context.Context, url string) (cat *engine.Catalogue, err error) {
	logger := p.logger
	if id := observability.CorrelationIDFromContext(ctx); id != "" {
		logger = observability.WithCorrelationID(logger, id)
	}
	defer observability.TimedOperationWithError(ctx, logger, "resolve", &err)()

	ip, idErr := p.identity.Address(ctx)
	if idErr != nil {
		logger.Warn("network identity unavailable, using ambient",
			slog.String("error", idErr.Error()))
		ip = ""
	}

	raw, err := p.Probe(ctx, url)
	if err != nil {
		return nil, err
	}

	return p.engine.Resolve(raw, ip)
}

func clamp(d, lo, hi time.Duration) time.Duration {
	if d < lo {
		return lo
	}
	if hi > 0 && d > hi {
		return hi
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
