package main

import (
	"fmt"
	"io"
	"path"
	"time"

	"flux_cli/core"
	"flux_cli/fluxruntime"
	"flux_cli/imagegen"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
)

// progressScale is the resolution of download progress bars.
const progressScale = 1000

// resumeThreshold is the first reported fraction at or above which no bar is shown.
const resumeThreshold = 0.99

// console prints operator-facing output of a generation run.
type console struct {
	out    io.Writer
	model  string
	bars   map[string]*progressbar.ProgressBar
	active *progressbar.ProgressBar
	seen   map[string]bool
	header *color.Color
	label  *color.Color
	warnC  *color.Color
	okC    *color.Color
}

func newConsole(out io.Writer, model string) *console {
	return &console{
		out:    out,
		model:  model,
		bars:   make(map[string]*progressbar.ProgressBar),
		seen:   make(map[string]bool),
		header: color.New(color.Bold),
		label:  color.New(color.FgCyan),
		warnC:  color.New(color.FgYellow),
		okC:    color.New(color.FgGreen, color.Bold),
	}
}

// downloadLabel returns the line announcing a download, based on the first
// progress value reported for it. ok is false when the asset is already
// (almost) complete and no bar should be shown.
func downloadLabel(kind imagegen.AssetKind, name, model string, first float64) (label string, ok bool) {
	switch {
	case first >= resumeThreshold:
		return "", false
	case first > 0:
		return fmt.Sprintf("Resuming download (%d%% complete)", int(first*100)), true
	case kind == imagegen.AssetLoRA:
		return fmt.Sprintf("Downloading lora weights for %s model...", name), true
	default:
		return fmt.Sprintf("Downloading flux.1 %s model...", model), true
	}
}

func (c *console) assetProgress(ev imagegen.AssetEvent) {
	key := ev.Asset.Name
	if !c.seen[key] {
		c.seen[key] = true
		label, ok := downloadLabel(ev.Kind, key, c.model, ev.Fraction)
		if !ok {
			return
		}
		c.label.Fprintln(c.out, label)
		fmt.Fprintln(c.out)
		c.bars[key] = progressbar.NewOptions(progressScale,
			progressbar.OptionSetWriter(c.out),
			progressbar.OptionShowBytes(false),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionOnCompletion(func() { fmt.Fprintln(c.out) }),
		)
		c.active = c.bars[key]
	}

	bar := c.bars[key]
	if bar == nil {
		return
	}
	bar.Set(int(ev.Fraction * progressScale))
	if ev.Fraction >= 1 {
		bar.Finish()
		delete(c.bars, key)
		if c.active == bar {
			c.active = nil
		}
	}
}

// fileProgress shows the file being transferred on the active bar.
func (c *console) fileProgress(file string, info core.ProgressInfo) {
	if c.active == nil {
		return
	}
	c.active.Describe(fileDescription(file, info))
}

// fileDescription formats one file's transfer state, e.g.
// "model.safetensors 1.2 GB/9.9 GB 42 MB/s ETA 3m27s".
func fileDescription(file string, info core.ProgressInfo) string {
	eta := "--"
	if info.ETA > 0 {
		eta = info.ETA.Round(time.Second).String()
	}
	return fmt.Sprintf("%s %s/%s %s ETA %s",
		path.Base(file), info.DownloadedFormatted, info.TotalFormatted, info.SpeedFormatted, eta)
}

func (c *console) warn(msg string) {
	c.warnC.Fprintln(c.out, msg)
}

// summary prints the parameters of the run about to start.
func (c *console) summary(opts *options, cfg core.RunConfiguration) {
	c.header.Fprintln(c.out, "Starting image generation with parameters:")
	fmt.Fprintf(c.out, "- Prompt: %s\n", opts.prompt)
	fmt.Fprintf(c.out, "- Dimensions: %dx%d\n", opts.width, opts.height)
	fmt.Fprintf(c.out, "- Steps: %d\n", opts.steps)
	fmt.Fprintf(c.out, "- Guidance: %v\n", opts.guidance)
	fmt.Fprintf(c.out, "- Model: %s\n", opts.model)
	if opts.hasSeed {
		fmt.Fprintf(c.out, "- Seed: %d\n", opts.seed)
	}
	fmt.Fprintf(c.out, "- Float16: %t\n", cfg.Float16())
	fmt.Fprintf(c.out, "- Quantize: %t\n", cfg.Quantize)
	if cfg.LoRA != "" {
		fmt.Fprintf(c.out, "- LoRA: %s\n", cfg.LoRA)
	}
	fmt.Fprintf(c.out, "- Output: %s\n", opts.output)
	if cfg.InitImagePath != "" {
		fmt.Fprintf(c.out, "- Init Image: %s\n", cfg.InitImagePath)
		if cfg.Variant == core.VariantImageConditioned {
			fmt.Fprintln(c.out, "- Mode: Kontext Image-to-Image")
		}
	}
}

func (c *console) step(ev fluxruntime.StepEvent) {
	fmt.Fprintf(c.out, "Step %d/%d\n", ev.Step, ev.Total)
}

func (c *console) stage(name string) {
	switch name {
	case imagegen.StageDecode:
		fmt.Fprintln(c.out, "Latent generation complete. Unpacking latents...")
		fmt.Fprintln(c.out, "Decoding image...")
	case imagegen.StageSave:
		fmt.Fprintln(c.out, "Saving image...")
	}
}

func (c *console) saved(path string) {
	c.okC.Fprintf(c.out, "Image saved successfully at: %s\n", path)
}
