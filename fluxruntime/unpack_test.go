package fluxruntime

import (
	"errors"
	"testing"
)

func TestUnpackLatents_Shapes(t *testing.T) {
	tests := []struct {
		name          string
		height, width int
		layout        ChannelLayout
		want          []int
	}{
		{"square channel-last", 512, 512, ChannelLast, []int{1, 64, 64, 16}},
		{"square channel-first", 512, 512, ChannelFirst, []int{1, 16, 64, 64}},
		{"wide channel-last", 256, 768, ChannelLast, []int{1, 32, 96, 16}},
		{"tall channel-first", 768, 256, ChannelFirst, []int{1, 16, 96, 32}},
		{"minimal", 16, 16, ChannelLast, []int{1, 2, 2, 16}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			packed := Zeros(PackedShape(tt.height, tt.width)...)

			out, err := UnpackLatents(packed, tt.height, tt.width, tt.layout)
			if err != nil {
				t.Fatalf("UnpackLatents failed: %v", err)
			}
			if got := out.Shape(); !equalShape(got, tt.want) {
				t.Errorf("shape = %v, want %v", got, tt.want)
			}
			if out.Len() != packed.Len() {
				t.Errorf("element count = %d, want %d", out.Len(), packed.Len())
			}
		})
	}
}

func TestUnpackLatents_ElementPlacement(t *testing.T) {
	const height, width = 32, 48
	h, w := height/16, width/16
	packed := seqTensor(t, PackedShape(height, width)...)

	last, err := UnpackLatents(packed, height, width, ChannelLast)
	if err != nil {
		t.Fatalf("channel-last unpack failed: %v", err)
	}
	first, err := UnpackLatents(packed, height, width, ChannelFirst)
	if err != nil {
		t.Fatalf("channel-first unpack failed: %v", err)
	}

	// Token (i, j) feature c*4+a*2+b lands at latent cell (2i+a, 2j+b), channel c
	for i := 0; i < h; i++ {
		for j := 0; j < w; j++ {
			for c := 0; c < LatentChannels; c++ {
				for a := 0; a < 2; a++ {
					for b := 0; b < 2; b++ {
						want := packed.At(0, i*w+j, c*4+a*2+b)
						if got := last.At(0, 2*i+a, 2*j+b, c); got != want {
							t.Fatalf("channel-last [0,%d,%d,%d] = %v, want %v", 2*i+a, 2*j+b, c, got, want)
						}
						if got := first.At(0, c, 2*i+a, 2*j+b); got != want {
							t.Fatalf("channel-first [0,%d,%d,%d] = %v, want %v", c, 2*i+a, 2*j+b, got, want)
						}
					}
				}
			}
		}
	}
}

func TestUnpackLatents_ShapeMismatch(t *testing.T) {
	// Latents for 512x512 unpacked as 512x768
	packed := Zeros(PackedShape(512, 512)...)

	_, err := UnpackLatents(packed, 512, 768, ChannelLast)
	if !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got: %v", err)
	}
	var shapeErr *ShapeMismatchError
	if !errors.As(err, &shapeErr) {
		t.Fatalf("expected *ShapeMismatchError, got: %T", err)
	}
	if !equalShape(shapeErr.Actual, []int{1, 1024, 64}) {
		t.Errorf("Actual = %v, want [1 1024 64]", shapeErr.Actual)
	}
}

func TestUnpackLatents_InvalidDimensions(t *testing.T) {
	packed := Zeros(1, 4, 64)

	tests := []struct {
		name          string
		height, width int
	}{
		{"height not multiple of 16", 40, 32},
		{"width not multiple of 16", 32, 24},
		{"zero height", 0, 32},
		{"negative width", 32, -16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnpackLatents(packed, tt.height, tt.width, ChannelLast)
			if !errors.Is(err, ErrInvalidParams) {
				t.Errorf("expected ErrInvalidParams, got: %v", err)
			}
		})
	}
}

func TestUnpackLatents_UnknownLayout(t *testing.T) {
	packed := Zeros(PackedShape(16, 16)...)
	if _, err := UnpackLatents(packed, 16, 16, ChannelLayout(9)); !errors.Is(err, ErrInvalidParams) {
		t.Errorf("expected ErrInvalidParams for unknown layout, got: %v", err)
	}
}
