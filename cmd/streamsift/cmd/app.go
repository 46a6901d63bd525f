package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"

	"github.com/jmylchreest/streamsift/internal/config"
	"github.com/jmylchreest/streamsift/internal/database"
	"github.com/jmylchreest/streamsift/internal/engine"
	"github.com/jmylchreest/streamsift/internal/identity"
	"github.com/jmylchreest/streamsift/internal/observability"
	"github.com/jmylchreest/streamsift/internal/pipeline"
	"github.com/jmylchreest/streamsift/internal/probe"
	"github.com/jmylchreest/streamsift/internal/repository"
	"github.com/jmylchreest/streamsift/internal/util"
)

// app holds the collaborators shared by the media commands.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	prober   *probe.Prober
	pipeline *pipeline.Pipeline
	db       *database.DB
}

// newApp wires the prober and pipeline from configuration. The encoder is
// only looked up when withEncoder is set.
func newApp(ctx context.Context, withEncoder bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	// correlation IDs are attached from ctx by each component
	logger := slog.Default()

	ytdlp, err := util.FindBinary(probe.BinaryName, util.EnvYTDLPBinary, cfg.Probe.BinaryPath)
	if err != nil {
		return nil, fmt.Errorf("locating %s: %w", probe.BinaryName, err)
	}

	a := &app{
		cfg:    cfg,
		logger: logger,
		prober: probe.NewProber(ytdlp, cfg.Probe).
			WithIdentity(identity.FromConfig(cfg.Identity, logger)).
			WithLogger(logger),
	}

	if !withEncoder {
		return a, nil
	}

	ffmpegPath, err := util.FindBinary("ffmpeg", util.EnvFFmpegBinary, cfg.FFmpeg.BinaryPath)
	if err != nil {
		return nil, fmt.Errorf("locating ffmpeg: %w", err)
	}
	a.pipeline = pipeline.New(ffmpegPath, cfg.Pipeline, cfg.FFmpeg, logger)

	if cfg.Database.Enabled {
		db, err := database.Open(ctx, cfg.Database, logger)
		if err != nil {
			return nil, fmt.Errorf("opening job history: %w", err)
		}
		a.db = db
		a.pipeline.WithRecorder(pipeline.NewHistoryRecorder(repository.NewJobRecordRepository(db.DB), logger))
	}
	return a, nil
}

func (a *app) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			observability.WithError(a.logger, err).Warn("closing job history")
		}
	}
}

func (a *app) resolve(ctx context.Context, url string) (*engine.Catalogue, error) {
	cat, err := a.prober.Resolve(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", url, err)
	}
	return cat, nil
}

// requestFlags are the selection flags shared by download and stream.
type requestFlags struct {
	kind       string
	tier       string
	resolution string
	filter     string
	container  string
}

func (f *requestFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.kind, "kind", "k", "audiovideo", "media kind (audio, video, audiovideo)")
	fs.StringVarP(&f.tier, "tier", "t", "highest", "quality tier (highest, lowest, custom)")
	fs.StringVarP(&f.resolution, "resolution", "r", "", "resolution for the custom tier (e.g. 720p, or ultralow/low/medium/high for audio)")
	fs.StringVarP(&f.filter, "filter", "f", "", "video filter ("+strings.Join(pipeline.FilterNames(), ", ")+")")
	fs.StringVarP(&f.container, "container", "c", "", "output container (mp3, m4a, opus for audio; mkv, mp4, webm for video)")
}

func (f *requestFlags) options() pipeline.Options {
	return pipeline.Options{
		Kind:       f.kind,
		Tier:       f.tier,
		Resolution: f.resolution,
		Filter:     f.filter,
		Container:  f.container,
	}
}
