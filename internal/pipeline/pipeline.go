// Package pipeline turns a resolved catalogue and a request into an encoder
// job that either saves a file, streams the muxed bytes, or only reports
// what it would do.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmylchreest/streamsift/internal/config"
	"github.com/jmylchreest/streamsift/internal/engine"
	"github.com/jmylchreest/streamsift/internal/ffmpeg"
	"github.com/jmylchreest/streamsift/internal/observability"
	"github.com/jmylchreest/streamsift/internal/progress"
	"github.com/oklog/ulid/v2"
)

const (
	defaultProgressBuffer = 32
	stderrTailLines       = 5
)

// Job is one encoder run.
type Job struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	Tier       Tier      `json:"tier"`
	Resolution string    `json:"resolution,omitempty"`
	Filter     string    `json:"filter,omitempty"`
	Mode       Mode      `json:"mode"`
	Container  string    `json:"container"`
	Inputs     []Source  `json:"inputs"`
	Output     string    `json:"output"`
	Filename   string    `json:"filename"`
	Title      string    `json:"title"`
	VideoID    string    `json:"videoId"`
	SourceURL  string    `json:"sourceUrl"`
	StartedAt  time.Time `json:"startedAt"`

	tracker *progress.Tracker
}

// Snapshot returns the latest progress snapshot of the job.
func (j *Job) Snapshot() progress.Snapshot {
	if j.tracker == nil {
		return progress.Snapshot{}
	}
	return j.tracker.Last()
}

// Result is the terminal outcome of a job.
type Result struct {
	Job        *Job
	Filename   string
	Path       string // save mode only
	Snapshot   progress.Snapshot
	FinishedAt time.Time
	Err        error
}

// Recorder persists job outcomes.
type Recorder interface {
	RecordJob(ctx context.Context, job *Job, res Result)
}

// MetadataResult is what a metadata request returns instead of running.
type MetadataResult struct {
	Filename  string            `json:"filename"`
	IPAddress string            `json:"ipAddress"`
	Metadata  engine.Metadata   `json:"metaData"`
	Inputs    []Source          `json:"inputs"`
	Catalogue *engine.Catalogue `json:"catalogue"`
}

// SaveResult is a completed save job.
type SaveResult struct {
	Path     string
	Job      *Job
	Snapshot progress.Snapshot
}

// Stream is a running stream job. The caller owns it and must call Close.
type Stream struct {
	Job      *Job
	Filename string

	cmd      *ffmpeg.Command
	output   io.ReadCloser
	progress chan progress.Snapshot
	result   chan Result
	done     chan struct{}
	cancel   context.CancelFunc

	closeOnce sync.Once
}

// Output returns the muxed container bytes. It is nil for save jobs.
func (s *Stream) Output() io.ReadCloser { return s.output }

// Progress delivers snapshots in emission order. Snapshots are dropped when
// the receiver falls behind. The channel is closed when the encoder exits.
func (s *Stream) Progress() <-chan progress.Snapshot { return s.progress }

// Result delivers exactly one terminal result.
func (s *Stream) Result() <-chan Result { return s.result }

// Close kills the encoder and waits for it to be reaped.
func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.cancel()
		err = s.cmd.Kill()
		if s.output != nil {
			_ = s.output.Close()
		}
		<-s.done
	})
	return err
}

// Pipeline runs encoder jobs.
type Pipeline struct {
	ffmpegPath string
	cfg        config.PipelineConfig
	ffcfg      config.FFmpegConfig
	logger     *slog.Logger
	recorder   Recorder
	now        func() time.Time
}

// New creates a pipeline that runs the encoder at ffmpegPath.
func New(ffmpegPath string, cfg config.PipelineConfig, ffcfg config.FFmpegConfig, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		ffmpegPath: ffmpegPath,
		cfg:        cfg,
		ffcfg:      ffcfg,
		logger:     observability.WithComponent(logger, "pipeline"),
		now:        time.Now,
	}
}

// WithRecorder sets where terminal results are recorded.
func (p *Pipeline) WithRecorder(r Recorder) *Pipeline {
	p.recorder = r
	return p
}

// Metadata reports the filename and inputs a request would use without
// starting the encoder.
func (p *Pipeline) Metadata(_ context.Context, cat *engine.Catalogue, req Request) (*MetadataResult, error) {
	if err := expectMode(req, ModeMetadata); err != nil {
		return nil, err
	}
	job, _, err := p.prepare(cat, req)
	if err != nil {
		return nil, err
	}
	return &MetadataResult{
		Filename:  job.Filename,
		IPAddress: cat.IPAddress,
		Metadata:  cat.Metadata,
		Inputs:    job.Inputs,
		Catalogue: Subset(cat, req.Kind),
	}, nil
}

// Stream starts the encoder writing to stdout and returns immediately.
func (p *Pipeline) Stream(ctx context.Context, cat *engine.Catalogue, req Request) (*Stream, error) {
	if err := expectMode(req, ModeStream); err != nil {
		return nil, err
	}
	return p.start(ctx, cat, req)
}

// Save runs the encoder to completion writing into the output directory.
// Snapshots are offered to updates without blocking when it is non-nil.
func (p *Pipeline) Save(ctx context.Context, cat *engine.Catalogue, req Request, updates chan<- progress.Snapshot) (*SaveResult, error) {
	if err := expectMode(req, ModeSave); err != nil {
		return nil, err
	}
	st, err := p.start(ctx, cat, req)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	for snap := range st.progress {
		if updates == nil {
			continue
		}
		select {
		case updates <- snap:
		default:
		}
	}

	res := <-st.result
	if res.Err != nil {
		return nil, res.Err
	}
	return &SaveResult{Path: res.Path, Job: res.Job, Snapshot: res.Snapshot}, nil
}

func expectMode(req Request, mode Mode) error {
	if req.Mode != mode {
		return &InvalidOptionCombinationError{Option: mode.String(), Conflicts: []string{req.Mode.String()}}
	}
	return nil
}

// prepare validates the request and resolves everything a job needs before
// any process or filesystem work.
func (p *Pipeline) prepare(cat *engine.Catalogue, req Request) (*Job, container, error) {
	if err := req.Validate(); err != nil {
		return nil, container{}, err
	}
	if cat == nil {
		return nil, container{}, fmt.Errorf("pipeline needs a catalogue")
	}

	name := req.Container
	if name == "" {
		name = p.cfg.VideoContainer
		if req.Kind == KindAudio {
			name = p.cfg.AudioContainer
		}
	}
	c, ok := containerFor(req.Kind, name)
	if !ok {
		return nil, container{}, &ValidationError{Field: "container", Value: name, Reason: "unsupported for " + string(req.Kind)}
	}

	inputs, err := SelectInputs(cat, req)
	if err != nil {
		return nil, container{}, err
	}

	job := &Job{
		ID:         ulid.Make().String(),
		Kind:       req.Kind,
		Tier:       req.Tier,
		Resolution: req.Resolution,
		Filter:     req.Filter,
		Mode:       req.Mode,
		Container:  name,
		Inputs:     inputs,
		Title:      cat.Metadata.Title,
		VideoID:    cat.Metadata.ID,
		SourceURL:  cat.Metadata.WebpageURL,
		Filename:   Filename(p.cfg.FilenamePrefix, req, cat.Metadata.Title, cat.Metadata.ID, c.Ext),
	}
	return job, c, nil
}

func (p *Pipeline) outputDir(req Request) string {
	switch {
	case req.OutputDir != "":
		return req.OutputDir
	case p.cfg.OutputDir != "":
		return p.cfg.OutputDir
	default:
		return "."
	}
}

func (p *Pipeline) buildCommand(job *Job, c container, ip string) (*ffmpeg.Command, error) {
	b := ffmpeg.NewCommandBuilder(p.ffmpegPath).
		LogLevel(p.ffcfg.LogLevel).
		HideBanner().
		Stats().
		StderrLogPath(p.ffcfg.StderrLogPath).
		MonitorInterval(p.ffcfg.MonitorInterval)

	for _, in := range job.Inputs {
		b.ForwardedFor(ip).Reconnect().Input(in.URL)
	}
	if len(job.Inputs) == 2 {
		b.Map("0:a").Map("1:v")
	}

	if job.Filter != "" {
		expr, ok := FilterExpression(job.Filter)
		if !ok {
			return nil, &ValidationError{Field: "filter", Value: job.Filter, Reason: "unknown filter"}
		}
		b.VideoFilter(expr)
	}

	c.apply(b, job.Kind, job.Filter, job.Mode)

	if job.Mode == ModeStream {
		b.Output(ffmpeg.PipeOutput)
	} else {
		b.Overwrite().Output(job.Output)
	}
	return b.Build()
}

func (p *Pipeline) start(ctx context.Context, cat *engine.Catalogue, req Request) (*Stream, error) {
	job, c, err := p.prepare(cat, req)
	if err != nil {
		return nil, err
	}

	if req.Mode == ModeSave {
		dir := p.outputDir(req)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating output directory: %w", err)
		}
		job.Output = filepath.Join(dir, job.Filename)
	} else {
		job.Output = ffmpeg.PipeOutput
	}

	cmd, err := p.buildCommand(job, c, cat.IPAddress)
	if err != nil {
		return nil, err
	}

	logger := observability.WithJob(p.logger, job.ID)
	if id := observability.CorrelationIDFromContext(ctx); id != "" {
		logger = observability.WithCorrelationID(logger, id)
	}

	job.StartedAt = p.now()
	job.tracker = progress.NewTracker(job.StartedAt, cat.Metadata.Duration)

	runCtx, cancel := context.WithCancel(ctx)
	if err := cmd.Start(runCtx); err != nil {
		cancel()
		encErr := &EncodeError{Err: err}
		p.record(ctx, job, Result{Job: job, Filename: job.Filename, FinishedAt: p.now(), Err: encErr})
		return nil, encErr
	}

	logger.Info("encoder started",
		slog.String("mode", job.Mode.String()),
		slog.String("filename", job.Filename),
		slog.Int("inputs", len(job.Inputs)),
	)

	buffer := p.cfg.ProgressBuffer
	if buffer <= 0 {
		buffer = defaultProgressBuffer
	}
	st := &Stream{
		Job:      job,
		Filename: job.Filename,
		cmd:      cmd,
		output:   cmd.Stdout(),
		progress: make(chan progress.Snapshot, buffer),
		result:   make(chan Result, 1),
		done:     make(chan struct{}),
		cancel:   cancel,
	}
	go p.supervise(runCtx, job, cmd, logger, st)
	return st, nil
}

// supervise drains encoder events into progress snapshots until the process
// exits, then publishes the terminal result.
func (p *Pipeline) supervise(ctx context.Context, job *Job, cmd *ffmpeg.Command, logger *slog.Logger, st *Stream) {
	defer close(st.done)

	for ev := range cmd.Events() {
		switch ev.Type {
		case ffmpeg.EventStart:
			logger.Debug("encoder command", slog.String("command", ev.Command))
		case ffmpeg.EventDuration:
			job.tracker.SetDuration(ev.Duration.Seconds())
		case ffmpeg.EventProgress:
			if stats := cmd.ProcessStats(); stats != nil {
				job.tracker.SetProcessStats(progress.ProcessStats{
					CPUPercent: stats.CPUPercent,
					RSSBytes:   stats.MemoryRSSBytes,
				})
			}
			snap := job.tracker.Update(sampleFrom(ev.Progress))
			select {
			case st.progress <- snap:
			default:
			}
		case ffmpeg.EventError:
			logger.Debug("encoder error output", slog.String("line", ev.Message))
		}
	}

	waitErr := cmd.Wait()
	close(st.progress)

	res := Result{Job: job, Filename: job.Filename}
	if job.Mode == ModeSave {
		res.Path = job.Output
	}
	switch {
	case ctx.Err() != nil:
		res.Err = ctx.Err()
		res.Snapshot = job.tracker.Last()
	case waitErr != nil:
		res.Err = &EncodeError{Message: cmd.StderrTail(stderrTailLines), Err: waitErr}
		res.Snapshot = job.tracker.Last()
	default:
		res.Snapshot = job.tracker.Complete()
	}
	res.FinishedAt = p.now()

	if res.Err != nil {
		observability.WithError(logger, res.Err).Warn("encoder finished with error",
			slog.Duration("elapsed", res.FinishedAt.Sub(job.StartedAt)),
		)
	} else {
		logger.Info("encoder finished",
			slog.String("filename", job.Filename),
			slog.Duration("elapsed", res.FinishedAt.Sub(job.StartedAt)),
		)
	}

	p.record(ctx, job, res)
	st.result <- res
}

func (p *Pipeline) record(ctx context.Context, job *Job, res Result) {
	if p.recorder == nil {
		return
	}
	p.recorder.RecordJob(context.WithoutCancel(ctx), job, res)
}

func sampleFrom(pr ffmpeg.Progress) progress.Sample {
	s := progress.Sample{
		Percent:    math.NaN(),
		Timemark:   pr.Timemark,
		Frames:     pr.Frame,
		CurrentFPS: pr.FPS,
		TargetSize: pr.TotalSize,
		Bitrate:    pr.Bitrate,
	}
	if pr.Speed > 0 {
		s.Speed = fmt.Sprintf("%.2fx", pr.Speed)
	}
	return s
}

// Subset returns a copy of cat without the buckets that cannot serve kind.
func Subset(cat *engine.Catalogue, kind Kind) *engine.Catalogue {
	out := *cat
	switch kind {
	case KindAudio:
		out.VideoLow, out.VideoHigh = nil, nil
		out.VideoLowByNote, out.VideoHighByNote = nil, nil
		out.VideoLowHDR, out.VideoHighHDR = nil, nil
		out.ManifestLow, out.ManifestHigh = nil, nil
	case KindVideo:
		out.AudioLow, out.AudioHigh = nil, nil
		out.AudioLowByNote, out.AudioHighByNote = nil, nil
		out.AudioLowDRC, out.AudioHighDRC = nil, nil
	}
	return &out
}
