package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/streamsift/internal/config"
	"github.com/jmylchreest/streamsift/internal/database"
	"github.com/jmylchreest/streamsift/internal/models"
	"github.com/jmylchreest/streamsift/internal/observability"
	"github.com/jmylchreest/streamsift/internal/repository"
)

var (
	historyLimit     int
	historyStatus    string
	historyVideoID   string
	historyOutput    string
	historyOlderThan string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect and prune the job history",
	Long: `Commands for the job history database. Jobs are only recorded when
database.enabled is true.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded jobs, newest first",
	RunE:  runHistoryList,
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete jobs older than a given age",
	Long: `Delete recorded jobs that started longer ago than --older-than.
Ages accept days and weeks, e.g. 30d, 2w or 1w2d12h.`,
	RunE: runHistoryPrune,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd, historyPruneCmd)

	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum number of jobs")
	historyListCmd.Flags().StringVar(&historyStatus, "status", "", "only jobs with this status (completed, failed, cancelled)")
	historyListCmd.Flags().StringVar(&historyVideoID, "video", "", "only jobs for this video ID")
	historyListCmd.Flags().StringVarP(&historyOutput, "output", "o", "table", "output format (table, json, yaml)")

	historyPruneCmd.Flags().StringVar(&historyOlderThan, "older-than", "30d", "minimum age of deleted jobs")
}

func openHistory(cmd *cobra.Command) (*database.DB, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.Database.Enabled {
		return nil, fmt.Errorf("job history is disabled; set database.enabled or %s_DATABASE_ENABLED=true", config.EnvPrefix)
	}
	return database.Open(cmd.Context(), cfg.Database, observability.LoggerFromContext(cmd.Context()))
}

func runHistoryList(cmd *cobra.Command, _ []string) error {
	db, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	records, err := repository.NewJobRecordRepository(db.DB).List(cmd.Context(), repository.JobRecordFilter{
		Status:  models.JobStatus(historyStatus),
		VideoID: historyVideoID,
		Limit:   historyLimit,
	})
	if err != nil {
		return err
	}
	return renderHistory(cmd.OutOrStdout(), records, historyOutput)
}

func runHistoryPrune(cmd *cobra.Command, _ []string) error {
	age, err := config.ParseDuration(historyOlderThan)
	if err != nil {
		return fmt.Errorf("parsing --older-than: %w", err)
	}

	db, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	deleted, err := repository.NewJobRecordRepository(db.DB).DeleteOlderThan(cmd.Context(), time.Now().Add(-age))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %d job(s)\n", deleted)
	return nil
}

func renderHistory(w io.Writer, records []*models.JobRecord, output string) error {
	switch output {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(records)
	case "table", "":
	default:
		return fmt.Errorf("unknown output format %q", output)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tSTATUS\tMODE\tSELECTION\tDURATION\tFILENAME")
	for _, r := range records {
		selection := r.Kind + r.Tier + r.Resolution
		if r.Filter != "" {
			selection += "_" + r.Filter
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID,
			r.StartedAt.Local().Format(time.DateTime),
			r.Status,
			r.Mode,
			selection,
			r.Duration().Round(time.Second),
			r.Filename,
		)
	}
	return tw.Flush()
}
