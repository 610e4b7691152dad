package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/psantana5/vidgen/pkg/genclient"
	"github.com/psantana5/vidgen/pkg/logging"
	"github.com/psantana5/vidgen/pkg/retry"
	vtls "github.com/psantana5/vidgen/pkg/tls"
)

// version is set at build time with -ldflags "-X .../cmd.version=..."
var version = "dev"

var (
	cfgFile      string
	outputFormat string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "vidgen",
	Short: "Generate short videos from a text prompt",
	Long: `vidgen submits a prompt and rendering options to a video generation
service and follows the job until the video is ready. It also ships a
development service (vidgen serve) that simulates the rendering pipeline.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s := loadSettings(viper.GetViper())
		return logging.Configure(logging.Config{
			Level:  s.LogLevel,
			Format: s.LogFormat,
			File:   s.LogFile,
		})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Close()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.vidgen/config.yaml)")
	flags.String("api-base", "", "generation service base URL (default from config or "+defaultAPIBase+")")
	flags.String("api-key", "", "API key sent as a bearer token")
	flags.String("ca-file", "", "PEM file with extra CA certificates to trust")
	flags.Duration("poll-interval", 0, "status poll interval (default 1.5s)")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: console or json")
	flags.String("log-file", "", "also write logs to this file")
	flags.StringVarP(&outputFormat, "output", "o", "table", "output format: table or json")

	for key, name := range map[string]string{
		"api_base":      "api-base",
		"api_key":       "api-key",
		"ca_file":       "ca-file",
		"poll_interval": "poll-interval",
		"log_level":     "log-level",
		"log_format":    "log-format",
		"log_file":      "log-file",
	} {
		_ = viper.BindPFlag(key, flags.Lookup(name))
	}

	setDefaults(viper.GetViper())
	bindEnv(viper.GetViper())
}

// initConfig reads in .env, the config file and ENV variables if set
func initConfig() {
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".vidgen"))
		}
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Warning: failed to read config: %v\n", err)
		}
	}
}

// IsJSONOutput returns true if JSON output is requested
func IsJSONOutput() bool {
	return strings.EqualFold(outputFormat, "json")
}

// newClient builds a generation service client from the effective settings
func newClient(s Settings) (*genclient.Client, error) {
	cfg := genclient.DefaultConfig(s.APIBase)
	cfg.APIKey = s.APIKey
	cfg.Timeout = s.Timeout
	if s.SubmitRetries > 0 {
		cfg.SubmitRetry = retry.DefaultConfig()
		cfg.SubmitRetry.MaxRetries = s.SubmitRetries
	}
	cfg.PollRetry.MaxRetries = s.PollRetries
	cfg.RequestsPerSecond = s.RequestsPerSecond
	tlsConfig, err := vtls.ClientConfig(s.CAFile)
	if err != nil {
		return nil, err
	}
	cfg.TLSConfig = tlsConfig
	logger := logging.WithComponent("genclient")
	cfg.Logger = &logger
	return genclient.New(cfg)
}
