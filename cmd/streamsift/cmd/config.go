package cmd

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
}

var configDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Dump the effective configuration",
	Long: `Dump the effective configuration in YAML format: defaults merged with the
config file and environment variables.

  streamsift config dump > config.yaml

Environment variables use the STREAMSIFT_ prefix and underscores for nesting.
Example: probe.retry_attempts -> STREAMSIFT_PROBE_RETRY_ATTEMPTS`,
	RunE: runConfigDump,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configDumpCmd)
}

func runConfigDump(cmd *cobra.Command, _ []string) error {
	if _, err := loadConfig(); err != nil {
		return err
	}

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(humanize(viper.AllSettings()))
}

// humanize renders durations as "1m30s" instead of nanoseconds.
func humanize(settings map[string]any) map[string]any {
	out := make(map[string]any, len(settings))
	for k, v := range settings {
		switch val := v.(type) {
		case map[string]any:
			out[k] = humanize(val)
		case time.Duration:
			out[k] = val.String()
		default:
			out[k] = v
		}
	}
	return out
}
