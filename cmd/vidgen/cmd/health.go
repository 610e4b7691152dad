package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// healthCmd represents the health command
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the generation service",
	Long:  `Query the generation service health endpoint and print host details.`,
	Args:  cobra.NoArgs,
	RunE:  runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, args []string) error {
	s := loadSettings(viper.GetViper())
	client, err := newClient(s)
	if err != nil {
		return err
	}

	health, err := client.Health(cmd.Context())
	if err != nil {
		return fmt.Errorf("service at %s is not healthy: %w", client.BaseURL(), err)
	}

	if IsJSONOutput() {
		return printJSON(cmd.OutOrStdout(), health)
	}
	rows := [][2]string{
		{"Service", client.BaseURL()},
		{"Status", health.Status},
		{"Renderer", valueOr(health.Renderer, "-")},
		{"Media dir", valueOr(health.MediaDir, "-")},
		{"Jobs", fmt.Sprintf("%d", health.Jobs)},
	}
	if h := health.Host; h != nil {
		rows = append(rows,
			[2]string{"CPU threads", fmt.Sprintf("%d", h.CPUThreads)},
			[2]string{"RAM", fmt.Sprintf("%.1f GB (%.0f%% used)", float64(h.RAMTotalBytes)/(1<<30), h.RAMUsedPercent)},
		)
	}
	return printFields(cmd.OutOrStdout(), rows)
}
