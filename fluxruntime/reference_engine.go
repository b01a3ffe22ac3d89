package fluxruntime

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"os"

	"flux_cli/core"
)

// ReferenceEngine is a deterministic in-process Engine. It runs the full
// flow-matching step loop over packed latents without a neural network: the
// velocity field pulls the initial noise toward a target derived from the prompt,
// the seed and, for image-conditioned runs, the input image.
//
// Output depends only on its inputs, which makes it suitable for tests and for
// exercising the pipeline on machines without accelerator libraries.
type ReferenceEngine struct {
	layout         ChannelLayout
	requireWeights bool
}

// ReferenceOption configures a ReferenceEngine.
type ReferenceOption func(*ReferenceEngine)

// WithLatentLayout sets the channel layout the engine's decoder expects.
func WithLatentLayout(layout ChannelLayout) ReferenceOption {
	return func(e *ReferenceEngine) {
		e.layout = layout
	}
}

// WithRequireWeights makes NewGenerator fail when GeneratorConfig.WeightsDir is empty.
func WithRequireWeights(require bool) ReferenceOption {
	return func(e *ReferenceEngine) {
		e.requireWeights = require
	}
}

// NewReferenceEngine creates a ReferenceEngine with channel-last latents.
func NewReferenceEngine(opts ...ReferenceOption) *ReferenceEngine {
	e := &ReferenceEngine{layout: ChannelLast}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewGenerator validates that the configured weights exist.
func (e *ReferenceEngine) NewGenerator(cfg GeneratorConfig) (Generator, error) {
	if cfg.WeightsDir == "" && e.requireWeights {
		return nil, fmt.Errorf("%w: no weights directory for %s variant", ErrWeightsNotFound, cfg.Variant)
	}
	for _, path := range []string{cfg.WeightsDir, cfg.LoRAPath} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrWeightsNotFound, path)
		} else if err != nil {
			return nil, fmt.Errorf("unable to access %s: %w", path, err)
		}
	}

	return &referenceGenerator{
		cfg:    cfg,
		layout: e.layout,
	}, nil
}

type referenceGenerator struct {
	cfg    GeneratorConfig
	layout ChannelLayout
	loaded bool
	closed bool
	evals  int
}

func (g *referenceGenerator) EnsureLoaded() error {
	if g.closed {
		return ErrGeneratorClosed
	}
	g.loaded = true
	return nil
}

func (g *referenceGenerator) ready() error {
	if g.closed {
		return ErrGeneratorClosed
	}
	if !g.loaded {
		return ErrGeneratorNotLoaded
	}
	return nil
}

func (g *referenceGenerator) Latents(params GenerationParameters) (StepIterator, error) {
	if err := g.ready(); err != nil {
		return nil, err
	}
	return g.newIterator(params, nil)
}

func (g *referenceGenerator) ConditionedLatents(img Tensor, params GenerationParameters) (StepIterator, error) {
	if err := g.ready(); err != nil {
		return nil, err
	}
	want := []int{1, params.Height, params.Width, 3}
	if !equalShape(img.shape, want) {
		return nil, &ShapeMismatchError{Op: "conditioning", Expected: want, Actual: img.Shape()}
	}
	return g.newIterator(params, packImage(img, params.Height, params.Width))
}

func (g *referenceGenerator) newIterator(params GenerationParameters, image []float32) (*referenceIterator, error) {
	shape := PackedShape(params.Height, params.Width)
	seqLen := shape[1]
	n := product(shape)

	seed := ResolveSeed(params.Seed)
	noise := gaussian(rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15)), n)
	prompt := gaussian(rand.New(rand.NewPCG(promptHash(params.Prompt), 0)), n)

	guidance := float32(1)
	if g.cfg.Variant != core.VariantBase {
		guidance = float32(1 + params.Guidance/10)
	}

	target := make([]float32, n)
	for i := range target {
		t := 0.5*prompt[i]*guidance + 0.1*noise[i]
		if image != nil {
			t = 0.5*t + image[i]
		}
		target[i] = t
	}

	return &referenceIterator{
		shape:   shape,
		x:       noise,
		target:  target,
		sigmas:  Sigmas(params.Steps, params.ShiftSigmas, seqLen),
		float16: g.cfg.Float16,
	}, nil
}

func (g *referenceGenerator) Eval(t Tensor) error {
	if g.closed {
		return ErrGeneratorClosed
	}
	if t.Len() == 0 {
		return fmt.Errorf("%w: empty latents", ErrShapeMismatch)
	}
	g.evals++
	return nil
}

// Decode maps the first three latent channels to RGB with (tanh(x)+1)/2,
// upsampling each latent cell to an 8x8 pixel block.
func (g *referenceGenerator) Decode(latents Tensor) (Tensor, error) {
	if g.closed {
		return Tensor{}, ErrGeneratorClosed
	}
	if latents.Rank() != 4 {
		return Tensor{}, &ShapeMismatchError{Op: "decode", Expected: []int{1, 0, 0, LatentChannels}, Actual: latents.Shape()}
	}

	cl := latents
	if g.layout == ChannelFirst {
		var err error
		if cl, err = latents.Transpose(0, 2, 3, 1); err != nil {
			return Tensor{}, err
		}
	}
	if cl.shape[0] != 1 || cl.shape[3] != LatentChannels {
		return Tensor{}, &ShapeMismatchError{Op: "decode", Expected: []int{1, cl.shape[1], cl.shape[2], LatentChannels}, Actual: latents.Shape()}
	}

	lh, lw := cl.shape[1], cl.shape[2]
	h, w := lh*8, lw*8
	out := Zeros(1, h, w, 3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			base := ((y/8)*lw + x/8) * LatentChannels
			o := (y*w + x) * 3
			for c := 0; c < 3; c++ {
				v := float64(cl.data[base+c])
				out.data[o+c] = float32((math.Tanh(v) + 1) / 2)
			}
		}
	}
	return out, nil
}

func (g *referenceGenerator) LatentLayout() ChannelLayout {
	return g.layout
}

func (g *referenceGenerator) Close() error {
	g.closed = true
	return nil
}

// referenceIterator applies Euler steps of the velocity (x - target) / sigma.
type referenceIterator struct {
	shape   []int
	x       []float32
	target  []float32
	sigmas  []float64
	step    int
	float16 bool
}

func (it *referenceIterator) Next() (Tensor, bool, error) {
	if it.step >= len(it.sigmas)-1 {
		return Tensor{}, false, nil
	}

	s, next := it.sigmas[it.step], it.sigmas[it.step+1]
	ratio := float32(next / s)
	for i, v := range it.x {
		x := it.target[i] + (v-it.target[i])*ratio
		if it.float16 {
			x = roundHalf(x)
		}
		it.x[i] = x
	}
	it.step++

	out := make([]float32, len(it.x))
	copy(out, it.x)
	return Tensor{shape: cloneInts(it.shape), data: out}, true, nil
}

func (it *referenceIterator) Step() int {
	return it.step
}

// packImage averages each 16x16 pixel block of a (1, H, W, 3) tensor and spreads
// the three channel means over the 64 features of the block's token.
func packImage(img Tensor, height, width int) []float32 {
	h, w := height/16, width/16
	out := make([]float32, h*w*PackedFeatures)
	for ty := 0; ty < h; ty++ {
		for tx := 0; tx < w; tx++ {
			var sum [3]float32
			for y := ty * 16; y < ty*16+16; y++ {
				for x := tx * 16; x < tx*16+16; x++ {
					p := (y*width + x) * 3
					sum[0] += img.data[p]
					sum[1] += img.data[p+1]
					sum[2] += img.data[p+2]
				}
			}
			token := (ty*w + tx) * PackedFeatures
			for f := 0; f < PackedFeatures; f++ {
				out[token+f] = sum[(f/4)%3] / 256
			}
		}
	}
	return out
}

func gaussian(r *rand.Rand, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(r.NormFloat64())
	}
	return out
}

func promptHash(prompt string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(prompt))
	return h.Sum64()
}

// roundHalf rounds v to the nearest value representable with a 10-bit mantissa.
func roundHalf(v float32) float32 {
	bits := math.Float32bits(v)
	bits += 0x1000
	bits &^= 0x1FFF
	return math.Float32frombits(bits)
}
