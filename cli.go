package main

import (
	"io"

	"flux_cli/core"
	"flux_cli/fluxruntime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// options holds the parsed command line of a generation run.
type options struct {
	prompt   string
	width    int
	height   int
	steps    int
	guidance float64
	output   string
	model    string
	seed     uint64
	hasSeed  bool
	quantize bool
	float16  bool
	noFloat  bool
	hfToken  string
	loraPath string
	initPath string

	cacheDir  string
	historyDB string
	noHistory bool
	logFile   string
	dev       bool
}

// execute runs the command line and returns the process exit code.
func execute(args []string, stdout, stderr io.Writer) int {
	code := core.ExitCodeSuccess
	root := newRootCommand(stdout, stderr, &code)
	root.SetArgs(args)

	if err := root.Execute(); err != nil {
		printError(stderr, err)
		if code == core.ExitCodeSuccess {
			code = core.ExitCodeForError(err)
		}
	}
	return code
}

// newRootCommand builds `flux`, which generates an image, and its subcommands.
// exitCode receives the code of a failed run when it differs from the default.
func newRootCommand(stdout, stderr io.Writer, exitCode *int) *cobra.Command {
	defaults := fluxruntime.LoadDefaults()
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "flux",
		Short:         "FLUX image generation tool",
		Long:          "Generate images using the FLUX model.",
		Version:       core.GetVersionInfo(),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.hasSeed = cmd.Flags().Changed("seed")
			if opts.noFloat {
				opts.float16 = false
			}
			return runGenerate(cmd.Context(), opts, stdout, stderr, exitCode)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.prompt, "prompt", defaults.Prompt, "The prompt to generate an image from")
	f.IntVar(&opts.width, "width", defaults.Width, "Image width")
	f.IntVar(&opts.height, "height", defaults.Height, "Image height")
	f.IntVar(&opts.steps, "steps", defaults.Steps, "Number of inference steps")
	f.Float64Var(&opts.guidance, "guidance", defaults.Guidance, "Guidance scale")
	f.StringVar(&opts.output, "output", defaults.Output, "Output image path")
	f.StringVar(&opts.model, "model", defaults.Model, "FLUX model type (schnell, dev or kontext)")
	f.Uint64Var(&opts.seed, "seed", 0, "Random seed for generation (random when unset)")
	f.BoolVarP(&opts.quantize, "quantize", "q", false, "Enable quantization")
	f.BoolVar(&opts.float16, "float16", true, "Enable float16 precision")
	f.BoolVar(&opts.noFloat, "no-float16", false, "Disable float16 precision")
	f.StringVar(&opts.hfToken, "hf-token", core.FirstEnv("HF_TOKEN", "HUGGING_FACE_HUB_TOKEN"), "Hugging Face API token (required for dev and kontext models)")
	f.StringVar(&opts.loraPath, "lora-path", "", "Path to local LoRA weights file or Hugging Face repo id")
	f.StringVar(&opts.initPath, "init-image-path", "", "Path to initial image for image-to-image generation (kontext model only)")

	f.StringVar(&opts.cacheDir, "cache-dir", core.DefaultModelCacheDirectory(), "Directory for downloaded model weights")
	f.StringVar(&opts.historyDB, "history-db", core.GetDataFilePath("history.db"), "Run history database")
	f.BoolVar(&opts.noHistory, "no-history", false, "Do not record this run in the history database")
	f.StringVar(&opts.logFile, "log-file", core.GetDataFilePath("flux.log"), "Log file (rotated)")
	f.BoolVar(&opts.dev, "dev", core.ParseBoolEnv("FLUX_DEV", false), "Development logging on the console")

	cmd.MarkFlagsMutuallyExclusive("float16", "no-float16")

	cmd.AddCommand(newHistoryCommand(stdout))
	return cmd
}

// printError writes a human readable failure message.
func printError(w io.Writer, err error) {
	red := color.New(color.FgRed)
	if core.GetErrorCode(err) == core.ErrCodeUnsupportedVariant {
		red.Fprintln(w, "Error: Invalid model type. Please choose 'schnell', 'dev' or 'kontext'.")
		return
	}
	red.Fprintf(w, "Error: %v\n", err)
}
