package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/streamsift/internal/engine"
	"github.com/jmylchreest/streamsift/pkg/format"
)

var formatsOutput string

var formatsCmd = &cobra.Command{
	Use:   "formats <url>",
	Short: "List the lowest and highest formats of a media page",
	Long: `Probe a media page and print every audio, video and manifest format
sorted into lowest and highest picks per quality note.

Output formats:
  table  human readable summary (default)
  json   the full catalogue
  yaml   the full catalogue`,
	Args: cobra.ExactArgs(1),
	RunE: runFormats,
}

func init() {
	rootCmd.AddCommand(formatsCmd)
	formatsCmd.Flags().StringVarP(&formatsOutput, "output", "o", "table", "output format (table, json, yaml)")
}

func runFormats(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	cat, err := a.resolve(ctx, args[0])
	if err != nil {
		return err
	}
	return renderCatalogue(cmd.OutOrStdout(), cat, formatsOutput)
}

func renderCatalogue(w io.Writer, cat *engine.Catalogue, output string) error {
	switch strings.ToLower(output) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(cat)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(cat)
	case "table", "":
		return renderTable(w, cat)
	default:
		return fmt.Errorf("unknown output format %q", output)
	}
}

func renderTable(w io.Writer, cat *engine.Catalogue) error {
	m := cat.Metadata
	fmt.Fprintf(w, "%s\n", m.Title)
	fmt.Fprintf(w, "  channel:  %s\n", m.Channel)
	fmt.Fprintf(w, "  duration: %s\n", m.DurationText)
	fmt.Fprintf(w, "  views:    %s\n", format.Number(m.ViewCount))
	if cat.IPAddress != "" {
		fmt.Fprintf(w, "  identity: %s\n", cat.IPAddress)
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "BUCKET\tNOTE\tID\tEXT\tCODEC\tSIZE\tBITRATE")

	audioRows(tw, "audio low", cat.AudioLowByNote)
	audioRows(tw, "audio high", cat.AudioHighByNote)
	audioRows(tw, "audio low drc", cat.AudioLowDRC)
	audioRows(tw, "audio high drc", cat.AudioHighDRC)
	videoRows(tw, "video low", cat.VideoLowByNote)
	videoRows(tw, "video high", cat.VideoHighByNote)
	videoRows(tw, "video low hdr", cat.VideoLowHDR)
	videoRows(tw, "video high hdr", cat.VideoHighHDR)
	manifestRows(tw, "manifest low", cat.ManifestLow)
	manifestRows(tw, "manifest high", cat.ManifestHigh)

	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	if cat.AudioLow != nil && cat.AudioHigh != nil {
		fmt.Fprintf(w, "audio: lowest %s (%s), highest %s (%s)\n",
			cat.AudioLow.ID, cat.AudioLow.SizeText, cat.AudioHigh.ID, cat.AudioHigh.SizeText)
	}
	if cat.VideoLow != nil && cat.VideoHigh != nil {
		fmt.Fprintf(w, "video: lowest %s (%s), highest %s (%s)\n",
			cat.VideoLow.ID, cat.VideoLow.SizeText, cat.VideoHigh.ID, cat.VideoHigh.SizeText)
	}
	return nil
}

func audioRows(w io.Writer, bucket string, tracks map[string]engine.AudioTrack) {
	for _, note := range sortedNotes(tracks) {
		t := tracks[note]
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%.0fk\n", bucket, note, t.ID, t.Ext, t.Codec, t.SizeText, t.Bitrate)
	}
}

func videoRows(w io.Writer, bucket string, tracks map[string]engine.VideoTrack) {
	for _, note := range sortedNotes(tracks) {
		t := tracks[note]
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%.0fk\n", bucket, note, t.ID, t.Ext, t.Codec, t.SizeText, t.Bitrate)
	}
}

func manifestRows(w io.Writer, bucket string, tracks map[string]engine.ManifestTrack) {
	for _, key := range sortedNotes(tracks) {
		t := tracks[key]
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%.0fk\n", bucket, key, t.ID, t.Protocol, t.VideoCodec, "-", t.Bitrate)
	}
}

func sortedNotes[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
