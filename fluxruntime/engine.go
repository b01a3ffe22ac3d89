package fluxruntime

import (
	"fmt"

	"flux_cli/core"
)

// Engine creates generators for a model variant. It is the boundary to the
// neural network implementation.
type Engine interface {
	// NewGenerator prepares a generator for cfg. Errors surface here, before
	// any denoising step runs.
	NewGenerator(cfg GeneratorConfig) (Generator, error)
}

// GeneratorConfig selects the weights a Generator is built from.
type GeneratorConfig struct {
	Variant    core.Variant
	WeightsDir string // Local directory holding the variant weights
	LoRAPath   string // Local LoRA weights file; empty when unused
	Float16    bool
	Quantize   bool
}

// Generator produces step iterators and decodes latents for one variant.
// A Generator is not safe for concurrent use.
type Generator interface {
	// EnsureLoaded loads weights; it is idempotent.
	EnsureLoaded() error

	// Latents starts text-to-image denoising.
	Latents(params GenerationParameters) (StepIterator, error)

	// ConditionedLatents starts denoising conditioned on a normalized input image
	// of shape (1, Height, Width, 3) with values in [-1, 1].
	ConditionedLatents(image Tensor, params GenerationParameters) (StepIterator, error)

	// Eval forces materialization of a step's latents.
	Eval(t Tensor) error

	// Decode maps unpacked latents, in LatentLayout order, to an image tensor of
	// shape (1, Height, Width, 3) with values in [0, 1].
	Decode(latents Tensor) (Tensor, error)

	// LatentLayout is where Decode expects the latent channel axis.
	LatentLayout() ChannelLayout

	Close() error
}

// StepIterator yields packed latents of shape (1, (H/16)*(W/16), 64), one per
// denoising step. Next returns ok=false once exhausted and must not be called again.
type StepIterator interface {
	Next() (latents Tensor, ok bool, err error)
	// Step is the number of steps yielded so far.
	Step() int
}

// DenoiserKind tags which iterator a Denoiser wraps.
type DenoiserKind int

const (
	TextToImage DenoiserKind = iota + 1
	ConditionedImage
)

func (k DenoiserKind) String() string {
	switch k {
	case TextToImage:
		return "text-to-image"
	case ConditionedImage:
		return "image-to-image"
	default:
		return fmt.Sprintf("DenoiserKind(%d)", int(k))
	}
}

// Denoiser is the step iterator of one run, tagged with its kind.
// The kind is chosen once when the run starts.
type Denoiser struct {
	Kind DenoiserKind
	StepIterator
}

// NewDenoiser starts the iterator matching params: ConditionedLatents when
// params carries conditioning, Latents otherwise.
func NewDenoiser(gen Generator, params GenerationParameters) (Denoiser, error) {
	if params.HasConditioning() {
		it, err := gen.ConditionedLatents(params.Conditioning, params)
		if err != nil {
			return Denoiser{}, err
		}
		return Denoiser{Kind: ConditionedImage, StepIterator: it}, nil
	}

	it, err := gen.Latents(params)
	if err != nil {
		return Denoiser{}, err
	}
	return Denoiser{Kind: TextToImage, StepIterator: it}, nil
}
