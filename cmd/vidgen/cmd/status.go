package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/psantana5/vidgen/pkg/genclient"
	"github.com/psantana5/vidgen/pkg/models"
)

var followStatus bool

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Get job status",
	Long:  `Query the generation service for the status of a job.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&followStatus, "follow", false, "poll until the job completes or fails")
}

func runStatus(cmd *cobra.Command, args []string) error {
	s := loadSettings(viper.GetViper())
	client, err := newClient(s)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	job := models.JobHandle(args[0])
	var st models.RemoteStatus
	if followStatus {
		st, err = followJob(ctx, client, job, s.PollInterval, os.Stderr)
	} else {
		st, err = client.Status(ctx, job)
	}
	if err != nil {
		return fmt.Errorf("failed to get status of %s: %w", job, err)
	}

	if st.IsCompleted() {
		st.VideoURL = genclient.ResolveVideoURL(client.BaseURL(), st.VideoURL)
	}
	return printRemoteStatus(cmd.OutOrStdout(), st, IsJSONOutput())
}

// followJob polls job every interval until the service reports a terminal
// status. Failed queries are reported and retried.
func followJob(ctx context.Context, client *genclient.Client, job models.JobHandle, interval time.Duration, progress io.Writer) (models.RemoteStatus, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last models.RemoteStatus
	for {
		st, err := client.Status(ctx, job)
		switch {
		case err == nil:
			if st.Message != last.Message || st.Progress != last.Progress {
				fmt.Fprintf(progress, "[%3.0f%%] %s\n", st.Progress, st.Message)
			}
			last = st
			if st.IsCompleted() || st.IsFailed() {
				return st, nil
			}
		case genclient.IsTemporary(err):
			fmt.Fprintf(progress, "status check failed: %v; retrying\n", err)
		default:
			return st, err
		}

		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-ticker.C:
		}
	}
}
