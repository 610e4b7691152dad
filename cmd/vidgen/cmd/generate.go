package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/psantana5/vidgen/internal/tui"
	"github.com/psantana5/vidgen/pkg/builder"
	"github.com/psantana5/vidgen/pkg/logging"
	"github.com/psantana5/vidgen/pkg/metrics"
	"github.com/psantana5/vidgen/pkg/models"
	"github.com/psantana5/vidgen/pkg/orchestrator"
)

var (
	genInput   = builder.DefaultInput()
	genTUI     bool
	genNoWait  bool
	genMetrics bool
	genQuiet   bool
)

// generateCmd represents the generate command
var generateCmd = &cobra.Command{
	Use:   "generate [prompt]",
	Short: "Generate a video from a prompt",
	Long: `Build a generation request from the prompt and options, submit it to the
generation service and follow the job until the video is ready or the job
fails. Press Ctrl+C to cancel.`,
	Example: `  vidgen generate "A lighthouse at dusk. Waves crash on the rocks."
  vidgen generate -p "Neon city at night" --style neon --scenes 3 --tui`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	flags := generateCmd.Flags()
	flags.StringVarP(&genInput.Prompt, "prompt", "p", "", "text prompt (or pass it as arguments)")
	flags.StringVar(&genInput.Style, "style", genInput.Style, "style preset: "+strings.Join(styleNames(), ", "))
	flags.StringVar(&genInput.NumScenes, "scenes", genInput.NumScenes, "number of scenes (1-10)")
	flags.StringVar(&genInput.DurationPerScene, "duration", genInput.DurationPerScene, "seconds per scene (1-15, step 0.5)")
	flags.StringVar(&genInput.FPS, "fps", genInput.FPS, "frames per second (8-60)")
	flags.BoolVar(&genInput.AddMusic, "music", genInput.AddMusic, "add background music")
	flags.BoolVar(&genInput.AddTTS, "tts", genInput.AddTTS, "add a narrated voiceover")
	flags.StringVar(&genInput.Voice, "voice", genInput.Voice, "voiceover language")
	flags.StringVar(&genInput.Seed, "seed", "", "random seed for reproducible renders")

	flags.BoolVar(&genTUI, "tui", false, "show a live progress view")
	flags.BoolVar(&genNoWait, "no-wait", false, "print the job ID and exit after submission")
	flags.BoolVar(&genMetrics, "metrics", false, "dump client metrics to stderr when done")
	flags.BoolVarP(&genQuiet, "quiet", "q", false, "do not print progress lines")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	in := genInput
	if strings.TrimSpace(in.Prompt) == "" && len(args) > 0 {
		in.Prompt = strings.Join(args, " ")
	}
	req, err := builder.Build(in)
	if err != nil {
		return err
	}

	s := loadSettings(viper.GetViper())
	client, err := newClient(s)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	o := orchestrator.New(client,
		orchestrator.WithPollInterval(s.PollInterval),
		orchestrator.WithLogger(logging.WithComponent("orchestrator")),
		orchestrator.WithMetrics(metrics.NewOrchestrator(reg)),
	)
	defer o.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var final models.JobSnapshot
	if genTUI {
		final, err = runTUI(ctx, o, req)
	} else {
		var progress io.Writer = os.Stderr
		if genQuiet || IsJSONOutput() {
			progress = nil
		}
		final, err = runJob(ctx, o, req, !genNoWait, progress)
	}

	if perr := printSnapshot(cmd.OutOrStdout(), final, IsJSONOutput()); perr != nil && err == nil {
		err = perr
	}
	if genMetrics {
		if merr := metrics.WriteText(os.Stderr, reg); merr != nil && err == nil {
			err = merr
		}
	}
	if err != nil {
		return err
	}
	if final.State == models.StateFailed {
		return fmt.Errorf("generation failed: %s", final.Message)
	}
	return nil
}

// runJob submits req and, when wait is set, blocks until the job settles.
// Progress lines go to progress when it is not nil. A cancelled ctx
// cancels the job.
func runJob(ctx context.Context, o *orchestrator.Orchestrator, req models.GenerationRequest, wait bool, progress io.Writer) (models.JobSnapshot, error) {
	if progress != nil {
		var last string
		unsubscribe := o.Subscribe(func(s models.JobSnapshot) {
			line := fmt.Sprintf("[%3.0f%%] %s", s.Progress, s.Message)
			if line != last && s.Message != "" {
				last = line
				fmt.Fprintln(progress, line)
			}
		})
		defer unsubscribe()
	}

	if err := o.Submit(ctx, req); err != nil {
		var subErr *orchestrator.SubmissionError
		if errors.As(err, &subErr) {
			// reported through the Failed snapshot
			return o.Snapshot(), nil
		}
		return o.Snapshot(), err
	}
	if !wait {
		return o.Snapshot(), nil
	}

	snap, err := o.Wait(ctx)
	if err != nil {
		o.Cancel()
		return o.Snapshot(), err
	}
	return snap, nil
}

func runTUI(ctx context.Context, o *orchestrator.Orchestrator, req models.GenerationRequest) (models.JobSnapshot, error) {
	m := tui.NewModel(ctx, o, req)
	m.ExitOnSettle = true
	unsubscribe := m.Watch()
	defer unsubscribe()

	program := tea.NewProgram(m, tea.WithContext(ctx))
	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		return o.Snapshot(), fmt.Errorf("progress view failed: %w", err)
	}
	if o.Snapshot().State.IsActive() {
		o.Cancel()
	}
	return o.Snapshot(), nil
}

func styleNames() []string {
	presets := models.StylePresets()
	names := make([]string, 0, len(presets))
	for _, p := range presets {
		names = append(names, string(p))
	}
	return names
}
