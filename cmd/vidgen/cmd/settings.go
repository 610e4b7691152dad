package cmd

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/psantana5/vidgen/pkg/orchestrator"
)

const defaultAPIBase = "http://localhost:8000"

// Settings is the effective client configuration after merging flags,
// environment, config file and defaults
type Settings struct {
	APIBase           string
	APIKey            string
	CAFile            string
	PollInterval      time.Duration
	Timeout           time.Duration
	SubmitRetries     int
	PollRetries       int
	RequestsPerSecond float64
	LogLevel          string
	LogFormat         string
	LogFile           string
}

// settingsView is how Settings are printed by config show
type settingsView struct {
	APIBase           string  `json:"api_base" yaml:"api_base"`
	APIKey            string  `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	CAFile            string  `json:"ca_file,omitempty" yaml:"ca_file,omitempty"`
	PollInterval      string  `json:"poll_interval" yaml:"poll_interval"`
	Timeout           string  `json:"timeout" yaml:"timeout"`
	SubmitRetries     int     `json:"submit_retries" yaml:"submit_retries"`
	PollRetries       int     `json:"poll_retries" yaml:"poll_retries"`
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`
	LogLevel          string  `json:"log_level" yaml:"log_level"`
	LogFormat         string  `json:"log_format" yaml:"log_format"`
	LogFile           string  `json:"log_file,omitempty" yaml:"log_file,omitempty"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_base", defaultAPIBase)
	v.SetDefault("poll_interval", orchestrator.DefaultPollInterval)
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("submit_retries", 0)
	v.SetDefault("poll_retries", 2)
	v.SetDefault("requests_per_second", 0)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
}

// bindEnv maps VIDGEN_* variables onto config keys. The API base also
// honours NEXT_PUBLIC_API_BASE, the variable the web front-end reads.
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("VIDGEN")
	v.AutomaticEnv()
	_ = v.BindEnv("api_base", "VIDGEN_API_BASE", "NEXT_PUBLIC_API_BASE")
	_ = v.BindEnv("api_key", "VIDGEN_API_KEY")
	_ = v.BindEnv("ca_file", "VIDGEN_CA_FILE")
	_ = v.BindEnv("poll_interval", "VIDGEN_POLL_INTERVAL")
	_ = v.BindEnv("log_level", "VIDGEN_LOG_LEVEL")
}

func loadSettings(v *viper.Viper) Settings {
	s := Settings{
		APIBase:           strings.TrimRight(strings.TrimSpace(v.GetString("api_base")), "/"),
		APIKey:            v.GetString("api_key"),
		CAFile:            v.GetString("ca_file"),
		PollInterval:      v.GetDuration("poll_interval"),
		Timeout:           v.GetDuration("timeout"),
		SubmitRetries:     v.GetInt("submit_retries"),
		PollRetries:       v.GetInt("poll_retries"),
		RequestsPerSecond: v.GetFloat64("requests_per_second"),
		LogLevel:          v.GetString("log_level"),
		LogFormat:         v.GetString("log_format"),
		LogFile:           v.GetString("log_file"),
	}
	if s.APIBase == "" {
		s.APIBase = defaultAPIBase
	}
	if s.PollInterval <= 0 {
		s.PollInterval = orchestrator.DefaultPollInterval
	}
	return s
}

func (s Settings) view(showSecrets bool) settingsView {
	key := s.APIKey
	if key != "" && !showSecrets {
		key = "********"
	}
	return settingsView{
		APIBase:           s.APIBase,
		APIKey:            key,
		CAFile:            s.CAFile,
		PollInterval:      s.PollInterval.String(),
		Timeout:           s.Timeout.String(),
		SubmitRetries:     s.SubmitRetries,
		PollRetries:       s.PollRetries,
		RequestsPerSecond: s.RequestsPerSecond,
		LogLevel:          s.LogLevel,
		LogFormat:         s.LogFormat,
		LogFile:           s.LogFile,
	}
}
