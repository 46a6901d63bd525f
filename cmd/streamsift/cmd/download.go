package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/streamsift/internal/pipeline"
	"github.com/jmylchreest/streamsift/internal/progress"
	"github.com/jmylchreest/streamsift/pkg/format"
)

var (
	downloadFlags    requestFlags
	downloadOutput   string
	downloadMetadata bool
)

var downloadCmd = &cobra.Command{
	Use:   "download <url>",
	Short: "Save a media page at the selected quality",
	Long: `Probe a media page, select audio and/or video at the requested tier and
encode it into the output directory.

With --metadata nothing is encoded; the selected inputs and the filename that
would be written are printed as JSON instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runDownload,
}

func init() {
	rootCmd.AddCommand(downloadCmd)
	downloadFlags.register(downloadCmd.Flags())
	downloadCmd.Flags().StringVarP(&downloadOutput, "output", "o", "", "output directory (default from pipeline.output_dir)")
	downloadCmd.Flags().BoolVar(&downloadMetadata, "metadata", false, "print the selection without encoding")
}

func runDownload(cmd *cobra.Command, args []string) error {
	opts := downloadFlags.options()
	opts.Output = downloadOutput
	opts.Metadata = downloadMetadata

	// validate before any probing
	req, err := opts.Resolve()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	a, err := newApp(ctx, req.Mode != pipeline.ModeMetadata)
	if err != nil {
		return err
	}
	defer a.Close()

	cat, err := a.resolve(ctx, args[0])
	if err != nil {
		return err
	}

	if req.Mode == pipeline.ModeMetadata {
		res, err := pipeline.New("", a.cfg.Pipeline, a.cfg.FFmpeg, a.logger).Metadata(ctx, cat, req)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	updates := make(chan progress.Snapshot, a.cfg.Pipeline.ProgressBuffer)
	done := make(chan struct{})
	go func() {
		defer close(done)
		printProgress(cmd.ErrOrStderr(), updates)
	}()

	res, err := a.pipeline.Save(ctx, cat, req, updates)
	close(updates)
	<-done
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), res.Path)
	return nil
}

// printProgress renders snapshots on a single terminal line.
func printProgress(w io.Writer, updates <-chan progress.Snapshot) {
	for snap := range updates {
		fmt.Fprintf(w, "\r%s", progressLine(snap))
	}
}

func progressLine(snap progress.Snapshot) string {
	line := fmt.Sprintf("%6.2f%% [%s] %s frames %s size %s eta %s",
		snap.Percent,
		snap.Band,
		snap.Timemark,
		format.Number(snap.Frames),
		format.Size(snap.TargetSize*1024),
		snap.ETAText,
	)
	if snap.Process != nil {
		line += fmt.Sprintf(" cpu %.0f%% rss %s", snap.Process.CPUPercent, format.Size(int64(snap.Process.RSSBytes)))
	}
	return line
}
