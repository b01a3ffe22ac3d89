package fluxruntime

import (
	"context"
	"errors"
	"fmt"
	"image"
)

// StepEvent reports a completed denoising step. Step is 1-based.
type StepEvent struct {
	Step  int
	Total int
	Kind  DenoiserKind
}

// Result is the outcome of a completed denoising loop.
type Result struct {
	// Latents are the packed latents of the final step
	Latents Tensor
	Steps   int
	Seed    uint64
	Kind    DenoiserKind
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithStepObserver registers fn to be called after each forced step.
func WithStepObserver(fn func(StepEvent)) DriverOption {
	return func(d *Driver) {
		d.observer = fn
	}
}

// Driver runs a generator's denoising loop to completion and decodes the result.
type Driver struct {
	gen      Generator
	cfg      GeneratorConfig
	observer func(StepEvent)
}

// NewDriver creates a generator from engine and loads its weights.
// Failures are returned as *GenerationFailedError with stage "load".
func NewDriver(engine Engine, cfg GeneratorConfig, opts ...DriverOption) (*Driver, error) {
	if engine == nil {
		return nil, &GenerationFailedError{Stage: StageLoad, Cause: errors.New("no engine")}
	}

	gen, err := engine.NewGenerator(cfg)
	if err != nil {
		return nil, &GenerationFailedError{Stage: StageLoad, Cause: err}
	}
	if err := gen.EnsureLoaded(); err != nil {
		gen.Close()
		return nil, &GenerationFailedError{Stage: StageLoad, Cause: err}
	}

	d := &Driver{gen: gen, cfg: cfg}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Config returns the generator configuration the driver was built with.
func (d *Driver) Config() GeneratorConfig {
	return d.cfg
}

// Run drives the denoising loop: each step is forced with Generator.Eval before
// it is reported, and the latents of the last step are returned.
//
// A nil params.Seed is replaced by a random seed, reported in Result.Seed.
// Cancellation of ctx is checked between steps.
//
// Errors:
//   - invalid params: ErrInvalidParams, ErrInvalidPrompt or *ShapeMismatchError
//   - iterator yields nothing: ErrGenerationIncomplete
//   - engine failure or cancellation: *GenerationFailedError with the failing step
func (d *Driver) Run(ctx context.Context, params GenerationParameters) (*Result, error) {
	if err := ValidateParams(params); err != nil {
		return nil, err
	}

	seed := ResolveSeed(params.Seed)
	params.Seed = &seed

	denoiser, err := NewDenoiser(d.gen, params)
	if err != nil {
		return nil, &GenerationFailedError{Stage: StageDenoise, Step: 0, Cause: err}
	}

	var last Tensor
	step := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, &GenerationFailedError{Stage: StageDenoise, Step: step + 1, Cause: err}
		}

		latents, ok, err := denoiser.Next()
		if err != nil {
			return nil, &GenerationFailedError{Stage: StageDenoise, Step: step + 1, Cause: err}
		}
		if !ok {
			break
		}
		step++

		if err := d.gen.Eval(latents); err != nil {
			return nil, &GenerationFailedError{Stage: StageDenoise, Step: step, Cause: err}
		}
		last = latents

		if d.observer != nil {
			d.observer(StepEvent{Step: step, Total: params.Steps, Kind: denoiser.Kind})
		}
	}

	if step == 0 {
		return nil, ErrGenerationIncomplete
	}

	return &Result{Latents: last, Steps: step, Seed: seed, Kind: denoiser.Kind}, nil
}

// Decode unpacks final latents in the generator's layout, decodes them and
// converts the result to an 8-bit image.
func (d *Driver) Decode(latents Tensor, height, width int) (*image.RGBA, error) {
	unpacked, err := UnpackLatents(latents, height, width, d.gen.LatentLayout())
	if err != nil {
		return nil, fmt.Errorf("unpack latents: %w", err)
	}

	decoded, err := d.gen.Decode(unpacked)
	if err != nil {
		return nil, &GenerationFailedError{Stage: StageDecode, Cause: err}
	}

	img, err := ToRGBA(decoded)
	if err != nil {
		return nil, &GenerationFailedError{Stage: StageDecode, Cause: err}
	}
	return img, nil
}

// Close releases the generator.
func (d *Driver) Close() error {
	return d.gen.Close()
}
