package cmd

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

)

var streamFlags requestFlags

var streamCmd = &cobra.Command{
	Use:   "stream <url>",
	Short: "Stream a media page to stdout at the selected quality",
	Long: `Probe a media page, select audio and/or video at the requested tier and
write the encoded container to stdout as it is produced, e.g.

  streamsift stream -k audio https://example.com/watch?v=x | mpv -`,
	Args: cobra.ExactArgs(1),
	RunE: runStream,
}

func init() {
	rootCmd.AddCommand(streamCmd)
	streamFlags.register(streamCmd.Flags())
}

func runStream(cmd *cobra.Command, args []string) error {
	opts := streamFlags.options()
	opts.Stream = true

	req, err := opts.Resolve()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	cat, err := a.resolve(ctx, args[0])
	if err != nil {
		return err
	}

	st, err := a.pipeline.Stream(ctx, cat, req)
	if err != nil {
		return err
	}
	defer st.Close()

	a.logger.Info("streaming", slog.String("filename", st.Filename))

	go func() {
		for snap := range st.Progress() {
			a.logger.Debug("stream progress",
				slog.String("timemark", snap.Timemark),
				slog.Float64("percent", snap.Percent),
			)
		}
	}()

	_, copyErr := io.Copy(cmd.OutOrStdout(), st.Output())
	if copyErr != nil {
		// the reader went away; stop the encoder instead of letting it block
		_ = st.Close()
	}

	res := <-st.Result()
	if copyErr != nil {
		return fmt.Errorf("writing stream: %w", copyErr)
	}
	return res.Err
}
