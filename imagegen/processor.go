package imagegen

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"flux_cli/core"
	"flux_cli/db"
	"flux_cli/fluxruntime"
	"flux_cli/logging"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AssetProvider makes weights available locally.
// *core.ModelManager implements it.
type AssetProvider interface {
	EnsureLocal(ctx context.Context, ref core.AssetRef, credential string, onProgress func(float64)) (string, error)
	LoRAAsset(ref string) (core.AssetRef, error)
}

// RunRecorder persists run outcomes. *db.Repository implements it.
type RunRecorder interface {
	InsertRun(ctx context.Context, rec db.RunRecord) (int64, error)
}

// AssetKind tells model weights apart from LoRA weights in progress events.
type AssetKind int

const (
	AssetWeights AssetKind = iota + 1
	AssetLoRA
)

// AssetEvent reports download progress of one asset.
type AssetEvent struct {
	Kind     AssetKind
	Asset    core.AssetRef
	Fraction float64
}

// Pipeline stages reported through Hooks.Stage after denoising.
const (
	StageDecode = "decode"
	StageSave   = "save"
)

// Hooks receive pipeline events for operator output. All are optional.
type Hooks struct {
	AssetProgress func(ev AssetEvent)
	// Started is called once weights are loaded, before the first step.
	Started func(req Request)
	Step    func(ev fluxruntime.StepEvent)
	Stage   func(stage string)
}

// Request describes one generation run.
type Request struct {
	Config     core.RunConfiguration
	Prompt     string
	Width      int
	Height     int
	Steps      int
	Guidance   float64
	Seed       *uint64
	OutputPath string
}

// ProcessResult describes a saved image.
type ProcessResult struct {
	RunID      string
	OutputPath string
	Seed       uint64
	Steps      int
	Kind       fluxruntime.DenoiserKind
	Duration   time.Duration
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithRecorder stores every run outcome through r.
func WithRecorder(r RunRecorder) ProcessorOption {
	return func(p *Processor) {
		p.recorder = r
	}
}

// WithHooks sets the event hooks.
func WithHooks(h Hooks) ProcessorOption {
	return func(p *Processor) {
		p.hooks = h
	}
}

// Processor runs the generation pipeline:
//
//  1. validate parameters
//  2. make model weights (and LoRA weights) available locally
//  3. load and normalize the conditioning image, if any
//  4. drive the denoising loop
//  5. unpack and decode the final latents
//  6. write the PNG to a free output path
//
// Every outcome is recorded when a RunRecorder is configured; recording
// failures are logged and never fail the run.
//
// A Processor runs one request at a time.
type Processor struct {
	engine   fluxruntime.Engine
	assets   AssetProvider
	logger   *logging.Logger
	recorder RunRecorder
	hooks    Hooks
}

// NewProcessor creates a Processor.
func NewProcessor(engine fluxruntime.Engine, assets AssetProvider, logger *logging.Logger, opts ...ProcessorOption) (*Processor, error) {
	if engine == nil {
		return nil, fmt.Errorf("imagegen: engine cannot be nil")
	}
	if assets == nil {
		return nil, fmt.Errorf("imagegen: asset provider cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("imagegen: logger cannot be nil")
	}

	p := &Processor{
		engine: engine,
		assets: assets,
		logger: logger.Named("imagegen"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Process runs req to completion and returns where the image was saved.
func (p *Processor) Process(ctx context.Context, req Request) (result *ProcessResult, err error) {
	runID := uuid.NewString()
	cfg := req.Config
	log := p.logger.With(
		zap.String("run_id", runID),
		zap.String("variant", cfg.Variant.Token()),
	)
	started := time.Now()

	defer func() {
		p.record(req, runID, started, result, err, log)
	}()

	params := fluxruntime.GenerationParameters{
		Prompt:      fluxruntime.SanitizePrompt(req.Prompt),
		Width:       req.Width,
		Height:      req.Height,
		Steps:       req.Steps,
		Guidance:    req.Guidance,
		Seed:        req.Seed,
		ShiftSigmas: cfg.Variant.ShiftSigmas(),
	}
	if err := fluxruntime.ValidateParams(params); err != nil {
		return nil, fmt.Errorf("imagegen: %w", err)
	}
	for _, w := range fluxruntime.PromptWarnings(params.Prompt, cfg.Variant) {
		log.Warn(w, zap.Int("estimated_tokens", fluxruntime.EstimateTokens(params.Prompt)))
	}

	log.Info("starting image generation",
		zap.String("prompt_preview", truncateText(params.Prompt, 50)),
		zap.Int("width", params.Width),
		zap.Int("height", params.Height),
		zap.Int("steps", params.Steps))

	weightsDir, err := p.ensureAsset(ctx, AssetWeights, core.VariantAsset(cfg.Variant), cfg.Credential, log)
	if err != nil {
		return nil, err
	}

	var loraPath string
	if cfg.LoRA != "" {
		ref, err := p.assets.LoRAAsset(cfg.LoRA)
		if err != nil {
			return nil, err
		}
		loraPath, err = p.ensureAsset(ctx, AssetLoRA, ref, cfg.Credential, log)
		if err != nil {
			return nil, err
		}
	}

	if cfg.InitImagePath != "" {
		img, err := LoadImage(cfg.InitImagePath, params.Width, params.Height)
		if err != nil {
			return nil, fmt.Errorf("imagegen: %w", err)
		}
		params.Conditioning = fluxruntime.NormalizeConditioning(img)
	}

	var timer *logging.StepTimer
	observer := func(ev fluxruntime.StepEvent) {
		log.Debug("step complete",
			zap.Int("step", ev.Step),
			zap.Int("total", ev.Total),
			zap.Duration("duration", timer.Step()))
		if p.hooks.Step != nil {
			p.hooks.Step(ev)
		}
	}

	driver, err := fluxruntime.NewDriver(p.engine, fluxruntime.GeneratorConfig{
		Variant:    cfg.Variant,
		WeightsDir: weightsDir,
		LoRAPath:   loraPath,
		Float16:    cfg.Float16(),
		Quantize:   cfg.Quantize,
	}, fluxruntime.WithStepObserver(observer))
	if err != nil {
		return nil, fmt.Errorf("%s variant: %w", cfg.Variant.Token(), err)
	}
	defer func() {
		if closeErr := driver.Close(); closeErr != nil {
			log.Warn("failed to release generator", zap.Error(closeErr))
		}
	}()

	if p.hooks.Started != nil {
		p.hooks.Started(req)
	}

	timer = logging.StartStepTimer()
	res, err := driver.Run(ctx, params)
	if err != nil {
		log.Error("image generation failed", zap.Error(err))
		return nil, fmt.Errorf("%s variant: %w", cfg.Variant.Token(), err)
	}

	log.Info("latent generation complete", logging.GenerationFields(timer.Metrics(logging.GenerationMetrics{
		Variant: cfg.Variant.Token(),
		Mode:    res.Kind.String(),
		Width:   params.Width,
		Height:  params.Height,
		Seed:    res.Seed,
	})))

	p.stage(StageDecode)
	img, err := driver.Decode(res.Latents, params.Height, params.Width)
	if err != nil {
		return nil, fmt.Errorf("%s variant: %w", cfg.Variant.Token(), err)
	}

	p.stage(StageSave)
	outputPath, err := ResolveOutputPath(req.OutputPath)
	if err != nil {
		return nil, &SaveError{Path: req.OutputPath, Cause: err}
	}
	if err := SaveImage(img, outputPath); err != nil {
		return nil, err
	}

	log.Info("image saved", zap.String("path", outputPath))

	return &ProcessResult{
		RunID:      runID,
		OutputPath: outputPath,
		Seed:       res.Seed,
		Steps:      res.Steps,
		Kind:       res.Kind,
		Duration:   time.Since(started),
	}, nil
}

// ensureAsset makes ref available locally and logs how long it took.
func (p *Processor) ensureAsset(ctx context.Context, kind AssetKind, ref core.AssetRef, credential string, log *logging.Logger) (string, error) {
	start := time.Now()
	var onProgress func(float64)
	if p.hooks.AssetProgress != nil {
		onProgress = func(fraction float64) {
			p.hooks.AssetProgress(AssetEvent{Kind: kind, Asset: ref, Fraction: fraction})
		}
	}

	path, err := p.assets.EnsureLocal(ctx, ref, credential, onProgress)
	if err != nil {
		log.Error("asset acquisition failed", zap.String("asset", ref.Name), zap.Error(err))
		return "", err
	}

	log.Info("asset ready", logging.DownloadFields(ref.Name, localSize(path), time.Since(start))...)
	return path, nil
}

func (p *Processor) stage(name string) {
	if p.hooks.Stage != nil {
		p.hooks.Stage(name)
	}
}

// record stores the run outcome. It uses its own context so cancelled runs are
// still recorded.
func (p *Processor) record(req Request, runID string, started time.Time, result *ProcessResult, runErr error, log *logging.Logger) {
	if p.recorder == nil {
		return
	}

	rec := db.RunRecord{
		RunID:     runID,
		Variant:   req.Config.Variant.Token(),
		Prompt:    req.Prompt,
		Width:     req.Width,
		Height:    req.Height,
		Steps:     req.Steps,
		Guidance:  req.Guidance,
		Seed:      req.Seed,
		LoRA:      req.Config.LoRA,
		InitImage: req.Config.InitImagePath,
		Duration:  time.Since(started),
		CreatedAt: started,
	}
	switch {
	case runErr == nil:
		rec.Status = db.StatusSucceeded
		rec.OutputPath = result.OutputPath
		seed := result.Seed
		rec.Seed = &seed
	case errors.Is(runErr, context.Canceled):
		rec.Status = db.StatusCancelled
		rec.ErrorMessage = runErr.Error()
	default:
		rec.Status = db.StatusFailed
		rec.ErrorMessage = runErr.Error()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := p.recorder.InsertRun(ctx, rec); err != nil {
		log.Warn("failed to record run history", zap.Error(err))
	}
}

// localSize returns the size of a file or the total size of a directory tree.
func localSize(path string) int64 {
	var total int64
	filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.Type().IsRegular() {
			if info, err := d.Info(); err == nil {
				total += info.Size()
			}
		}
		return nil
	})
	return total
}

// truncateText shortens text to maxLen runes, adding "..." when cut.
func truncateText(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen]) + "..."
}
