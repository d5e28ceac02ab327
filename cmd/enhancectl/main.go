// enhancectl drives video enhancement jobs from the terminal: submit a
// file, watch it, resume a watch after an interruption, and fetch the
// result. The in-flight job record lives under the user config dir so
// a killed session never re-uploads anything.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"mediaboost/internal/domain"
	"mediaboost/internal/infra"
	"mediaboost/internal/pollctl"
	"mediaboost/internal/probe"
	"mediaboost/internal/topaz"
)

var (
	flagAPIKey      string
	flagBaseURL     string
	flagProtocol    string
	flagConcurrency int
	flagFFprobe     string
	flagStateFile   string
	flagVerbose     bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "enhancectl: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "enhancectl",
		Short:        "Submit and track video enhancement jobs",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&flagAPIKey, "api-key", os.Getenv("TOPAZ_API_KEY"), "Enhancement API key (defaults to TOPAZ_API_KEY)")
	cmd.PersistentFlags().StringVar(&flagBaseURL, "base-url", os.Getenv("TOPAZ_BASE_URL"), "Enhancement API base URL")
	cmd.PersistentFlags().StringVar(&flagProtocol, "protocol", infra.ProtocolMultipart, "Upload protocol: multipart, direct or form")
	cmd.PersistentFlags().IntVar(&flagConcurrency, "concurrency", 6, "Parallel part uploads")
	cmd.PersistentFlags().StringVar(&flagFFprobe, "ffprobe", "ffprobe", "ffprobe binary")
	cmd.PersistentFlags().StringVar(&flagStateFile, "state-file", "", "Job record path (defaults to the user config dir)")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Debug logging")
	cmd.AddCommand(
		newSubmitCmd(),
		newWatchCmd(),
		newResumeCmd(),
		newResetCmd(),
		newStatusCmd(),
		newDownloadCmd(),
	)
	return cmd
}

func cliLogger() infra.Logger {
	level := zerolog.WarnLevel
	if flagVerbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}

func newAPIClient() (*topaz.Client, error) {
	logger := cliLogger()
	return topaz.NewClient(topaz.Options{
		APIKey:      flagAPIKey,
		BaseURL:     flagBaseURL,
		Protocol:    flagProtocol,
		Concurrency: flagConcurrency,
		Logger:      &logger,
	})
}

func newController(client *topaz.Client) (*pollctl.Controller, error) {
	path := flagStateFile
	if path == "" {
		var err error
		path, err = pollctl.DefaultStatePath()
		if err != nil {
			return nil, err
		}
	}
	store, err := pollctl.NewFileStore(path)
	if err != nil {
		return nil, err
	}
	return pollctl.New(client.Status, store, cliLogger()), nil
}

func printProgress(p pollctl.Progress) {
	if p.Percent > 0 {
		fmt.Printf("\r%-12s %5.1f%% (next poll in %s)   ", p.Status, p.Percent, p.Interval)
	} else {
		fmt.Printf("\r%-12s (next poll in %s)          ", p.Status, p.Interval)
	}
}

func finishWatch(ctx context.Context, client *topaz.Client, st *topaz.JobStatus, jobID, output string) error {
	fmt.Println()
	if st == nil || !st.Completed() {
		return fmt.Errorf("job %s did not complete", jobID)
	}
	if output == "" {
		fmt.Printf("completed; download with: enhancectl download %s -o enhanced.mp4\n", jobID)
		return nil
	}
	return saveResult(ctx, client, jobID, output)
}

func saveResult(ctx context.Context, client *topaz.Client, jobID, output string) error {
	body, _, _, err := client.Download(ctx, jobID)
	if err != nil {
		return err
	}
	defer body.Close()

	f, err := os.Create(output)
	if err != nil {
		return err
	}
	n, err := io.Copy(f, body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	fmt.Printf("wrote %d bytes to %s\n", n, output)
	return nil
}

func newSubmitCmd() *cobra.Command {
	var (
		model         string
		option        string
		scale         string
		format        string
		fps           float64
		sharpen       int
		denoise       int
		recoverDetail int
		grain         int
		output        string
		noWatch       bool
	)
	cmd := &cobra.Command{
		Use:   "submit <file>",
		Short: "Probe a video, submit an enhancement job and watch it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			path := args[0]

			client, err := newAPIClient()
			if err != nil {
				return err
			}

			prober := probe.New(flagFFprobe, cliLogger())
			meta, err := prober.Probe(ctx, path, path)
			if err != nil {
				return err
			}
			fmt.Printf("source: %dx%d, %.2f fps, %d frames, %d bytes\n",
				meta.Width, meta.Height, meta.FrameRate, meta.FrameCount, meta.SizeBytes)

			family, ok := topaz.FindVideoModel(model)
			if !ok {
				return fmt.Errorf("unknown video model %q", model)
			}
			if option == "" && len(family.Options) > 0 {
				option = family.Options[0]
			}

			out := domain.OutputSpec{
				Container:   format,
				Model:       model,
				ModelOption: option,
				Sharpen:     sharpen,
				Denoise:     denoise,
				Recover:     recoverDetail,
				Grain:       grain,
				Compression: 2,
			}
			if fps > 0 && topaz.SupportsFrameRateTarget(model) {
				out.FrameRate = fps
			}
			out.Width, out.Height = domain.ScaleResolution(meta.Width, meta.Height, domain.ParseScale(scale))
			out.Normalize(meta)

			sub, err := client.SubmitAndUpload(ctx, topaz.Source{Path: path, Name: path, Meta: meta}, topaz.JobRequest{Output: out})
			if err != nil {
				return err
			}
			fmt.Printf("submitted job %s\n", sub.JobID)
			if noWatch {
				return nil
			}

			ctrl, err := newController(client)
			if err != nil {
				return err
			}
			st, err := ctrl.Begin(ctx, sub.JobID, printProgress)
			if err != nil {
				return err
			}
			return finishWatch(ctx, client, st, sub.JobID, output)
		},
	}
	cmd.Flags().StringVar(&model, "model", "Proteus", "Video model family")
	cmd.Flags().StringVar(&option, "model-option", "", "Model option code (defaults to the family's first)")
	cmd.Flags().StringVar(&scale, "scale", "2x", "Upscale factor, e.g. 2x or 4")
	cmd.Flags().StringVar(&format, "format", "mp4", "Output container")
	cmd.Flags().Float64Var(&fps, "fps", 0, "Target frame rate (frame interpolation models only)")
	cmd.Flags().IntVar(&sharpen, "sharpen", 0, "Sharpen strength 0-100")
	cmd.Flags().IntVar(&denoise, "denoise", 0, "Denoise strength 0-100")
	cmd.Flags().IntVar(&recoverDetail, "recover", 0, "Detail recovery strength 0-100")
	cmd.Flags().IntVar(&grain, "grain", 0, "Grain strength 0-100")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the result here once completed")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "Submit and exit without polling")
	return cmd
}

func newWatchCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "watch <job-id>",
		Short: "Watch an already submitted job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := newAPIClient()
			if err != nil {
				return err
			}
			ctrl, err := newController(client)
			if err != nil {
				return err
			}
			st, err := ctrl.Begin(ctx, args[0], printProgress)
			if err != nil {
				return err
			}
			return finishWatch(ctx, client, st, args[0], output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the result here once completed")
	return cmd
}

func newResumeCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Resume watching the persisted job; never re-uploads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := newAPIClient()
			if err != nil {
				return err
			}
			ctrl, err := newController(client)
			if err != nil {
				return err
			}
			rec, err := ctrl.Pending()
			if err != nil {
				return err
			}
			if rec == nil {
				return fmt.Errorf("no job to resume")
			}
			fmt.Printf("resuming job %s (submitted %s)\n", rec.JobID, rec.StartedAt.Format("2006-01-02 15:04:05"))
			st, err := ctrl.Resume(ctx, printProgress)
			if err != nil {
				return err
			}
			return finishWatch(ctx, client, st, rec.JobID, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the result here once completed")
	return cmd
}

func newResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Drop the persisted job record without touching the remote job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient()
			if err != nil {
				return err
			}
			ctrl, err := newController(client)
			if err != nil {
				return err
			}
			return ctrl.Reset()
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <job-id>",
		Short: "Poll a job once and print the normalized state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient()
			if err != nil {
				return err
			}
			st, err := client.Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(st)
		},
	}
}

func newDownloadCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "download <job-id>",
		Short: "Fetch the enhanced result of a completed job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient()
			if err != nil {
				return err
			}
			return saveResult(cmd.Context(), client, args[0], output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "enhanced.mp4", "Output file")
	return cmd
}
