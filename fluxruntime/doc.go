// Package fluxruntime drives flux-style flow-matching image generation.
//
// The neural network lives behind the Engine interface. This package owns
// everything around it: parameter validation, the step loop, latent unpacking
// and conversion of decoded tensors to images.
//
// # Public API
//
//   - NewDriver(engine Engine, cfg GeneratorConfig, opts ...DriverOption) (*Driver, error)
//   - (*Driver) Run(ctx context.Context, params GenerationParameters) (*Result, error)
//   - (*Driver) Decode(latents Tensor, height, width int) (*image.RGBA, error)
//   - (*Driver) Close() error
//
// # Quick Start
//
//	engine := fluxruntime.NewReferenceEngine()
//	driver, err := fluxruntime.NewDriver(engine, fluxruntime.GeneratorConfig{
//	    Variant:    core.VariantBase,
//	    WeightsDir: weightsDir,
//	}, fluxruntime.WithStepObserver(func(ev fluxruntime.StepEvent) {
//	    fmt.Printf("step %d/%d\n", ev.Step, ev.Total)
//	}))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer driver.Close()
//
//	params := fluxruntime.GenerationParameters{
//	    Prompt: "a lighthouse at dusk",
//	    Width:  512,
//	    Height: 512,
//	    Steps:  4,
//	}
//	result, err := driver.Run(ctx, params)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	img, err := driver.Decode(result.Latents, params.Height, params.Width)
//
// # Latent Layout
//
// Iterators yield packed latents of shape (1, (H/16)*(W/16), 64): one token per
// 16x16 pixel patch, each holding 16 channels of a 2x2 latent cell. UnpackLatents
// restores the (H/8)x(W/8) grid in the layout the generator's decoder expects
// (ChannelLast or ChannelFirst).
//
// # Configuration
//
// LoadDefaults reads generation defaults from environment variables:
//
//	FLUX_PROMPT="A cat is sitting on a tree"
//	FLUX_WIDTH=512            # multiple of 16
//	FLUX_HEIGHT=512           # multiple of 16
//	FLUX_STEPS=4              # 1-1000
//	FLUX_GUIDANCE=3.5
//	FLUX_MODEL=schnell        # schnell, dev or kontext
//	FLUX_OUTPUT=output_image.png
//
// # Error Handling
//
//   - ErrInvalidParams, ErrInvalidPrompt: rejected parameters
//   - ErrGenerationFailed: engine failure, as *GenerationFailedError with stage and step
//   - ErrGenerationIncomplete: the iterator yielded no steps
//   - ErrShapeMismatch: tensor shape does not fit, as *ShapeMismatchError
//   - ErrWeightsNotFound: the generator's weights are missing on disk
//
// Use errors.Is and errors.As to check for specific error types:
//
//	var genErr *fluxruntime.GenerationFailedError
//	if errors.As(err, &genErr) {
//	    log.Printf("failed at step %d", genErr.Step)
//	}
//
// # Thread Safety
//
// A Driver and its Generator are used from a single goroutine.
package fluxruntime
