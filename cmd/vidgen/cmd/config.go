package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/psantana5/vidgen/pkg/logging"
)

var (
	configOutput      string
	configShowSecrets bool
	logrotateKeepDays int
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
	Long:  `Commands for inspecting the effective vidgen configuration.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration after merging flags, VIDGEN_* environment
variables, .env, the config file and defaults.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configLogrotateCmd = &cobra.Command{
	Use:   "logrotate",
	Short: "Print a logrotate config for the log file",
	Long:  `Print a logrotate(8) configuration for the file set with --log-file or log_file.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s := loadSettings(viper.GetViper())
		if s.LogFile == "" {
			return fmt.Errorf("no log file configured, set --log-file or log_file")
		}
		_, err := fmt.Fprint(cmd.OutOrStdout(), logging.LogrotateConfig(s.LogFile, logrotateKeepDays))
		return err
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configLogrotateCmd)

	configLogrotateCmd.Flags().IntVar(&logrotateKeepDays, "keep-days", 14, "days of rotated logs to keep")

	configShowCmd.Flags().StringVarP(&configOutput, "format", "f", "yaml", "output format: yaml or json")
	configShowCmd.Flags().BoolVar(&configShowSecrets, "show-secrets", false, "print the API key instead of a mask")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	s := loadSettings(viper.GetViper())
	if f := viper.ConfigFileUsed(); f != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "# config file: %s\n", f)
	}
	format := configOutput
	if IsJSONOutput() {
		format = "json"
	}
	return writeSettings(cmd.OutOrStdout(), s.view(configShowSecrets), format)
}

func writeSettings(w io.Writer, v settingsView, format string) error {
	switch format {
	case "json":
		return printJSON(w, v)
	case "yaml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported format %q (use yaml or json)", format)
	}
}
