package fluxruntime

import "fmt"

// ChannelLayout is where the channel axis of an unpacked latent tensor sits.
type ChannelLayout int

const (
	// ChannelLast yields (1, H/8, W/8, 16)
	ChannelLast ChannelLayout = iota
	// ChannelFirst yields (1, 16, H/8, W/8)
	ChannelFirst
)

func (l ChannelLayout) String() string {
	switch l {
	case ChannelLast:
		return "channel-last"
	case ChannelFirst:
		return "channel-first"
	default:
		return fmt.Sprintf("ChannelLayout(%d)", int(l))
	}
}

// LatentChannels is the channel count of an unpacked latent.
const LatentChannels = 16

// PackedFeatures is the feature size of a packed latent token (16 channels x 2 x 2).
const PackedFeatures = LatentChannels * 4

// UnpackLatents turns packed latents of (height/16)*(width/16) tokens of 64 features
// into a spatial latent grid of (height/8)x(width/8) with 16 channels.
//
// The tensor is reshaped to (1, h, w, 16, 2, 2) with h = height/16, w = width/16, then
//   - ChannelLast: transposed (0,1,4,2,5,3) and reshaped to (1, 2h, 2w, 16)
//   - ChannelFirst: transposed (0,3,1,4,2,5) and reshaped to (1, 16, 2h, 2w)
//
// Returns *ShapeMismatchError when the element count does not fit, and
// ErrInvalidParams when height or width is not a positive multiple of 16.
func UnpackLatents(latents Tensor, height, width int, layout ChannelLayout) (Tensor, error) {
	if height <= 0 || width <= 0 || height%ImageSizeMultiple != 0 || width%ImageSizeMultiple != 0 {
		return Tensor{}, fmt.Errorf("%w: %dx%d must be positive multiples of %d",
			ErrInvalidParams, width, height, ImageSizeMultiple)
	}

	h, w := height/16, width/16
	patches, err := latents.Reshape(1, h, w, LatentChannels, 2, 2)
	if err != nil {
		return Tensor{}, err
	}

	switch layout {
	case ChannelLast:
		t, err := patches.Transpose(0, 1, 4, 2, 5, 3)
		if err != nil {
			return Tensor{}, err
		}
		return t.Reshape(1, h*2, w*2, LatentChannels)
	case ChannelFirst:
		t, err := patches.Transpose(0, 3, 1, 4, 2, 5)
		if err != nil {
			return Tensor{}, err
		}
		return t.Reshape(1, LatentChannels, h*2, w*2)
	default:
		return Tensor{}, fmt.Errorf("%w: unknown channel layout %v", ErrInvalidParams, layout)
	}
}

// PackedShape returns the packed latent shape for an image size: (1, h*w, 64).
func PackedShape(height, width int) []int {
	return []int{1, (height / 16) * (width / 16), PackedFeatures}
}
