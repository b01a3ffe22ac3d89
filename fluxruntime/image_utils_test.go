package fluxruntime

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"
)

func TestNormalizeConditioning(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.RGBA{R: 0, G: 255, B: 51, A: 255})
	img.Set(1, 0, color.RGBA{R: 255, G: 0, B: 0, A: 0})

	tensor := NormalizeConditioning(img)
	if got := tensor.Shape(); !equalShape(got, []int{1, 1, 2, 3}) {
		t.Fatalf("shape = %v, want [1 1 2 3]", got)
	}

	want := []float32{-1, 1, -0.6, 1, -1, -1}
	for i, w := range want {
		if math.Abs(float64(tensor.Data()[i]-w)) > 1e-6 {
			t.Errorf("data[%d] = %v, want %v", i, tensor.Data()[i], w)
		}
	}
}

func TestNormalizeConditioning_NonRGBA(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 1, 1))
	img.SetGray(0, 0, color.Gray{Y: 255})

	tensor := NormalizeConditioning(img)
	for i, v := range tensor.Data() {
		if v != 1 {
			t.Errorf("data[%d] = %v, want 1", i, v)
		}
	}
}

func TestToRGBA(t *testing.T) {
	decoded, err := NewTensor([]float32{
		0, 0.5, 1,
		-0.2, 1.7, float32(math.NaN()),
	}, 1, 1, 2, 3)
	if err != nil {
		t.Fatal(err)
	}

	img, err := ToRGBA(decoded)
	if err != nil {
		t.Fatalf("ToRGBA failed: %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 2, 1) {
		t.Fatalf("bounds = %v, want 2x1", img.Bounds())
	}

	want := []uint8{0, 127, 255, 255, 0, 255, 0, 255}
	if !bytes.Equal(img.Pix, want) {
		t.Errorf("pixels = %v, want %v", img.Pix, want)
	}
}

func TestToRGBA_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		tensor Tensor
	}{
		{"batch of two", Zeros(2, 4, 4, 3)},
		{"rank two", Zeros(4, 4)},
		{"two channels", Zeros(1, 4, 4, 2)},
		{"empty", Zeros(1, 0, 4, 3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ToRGBA(tt.tensor); !errors.Is(err, ErrImageInvalidSize) {
				t.Errorf("expected ErrImageInvalidSize, got: %v", err)
			}
		})
	}
}

func TestEncodeToPNG(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{R: 10, G: 20, B: 30, A: 255})

	data, err := EncodeToPNG(img)
	if err != nil {
		t.Fatalf("EncodeToPNG failed: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")) {
		t.Fatal("encoded data should start with the PNG signature")
	}

	decoded, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded.Bounds() != img.Bounds() {
		t.Errorf("bounds = %v, want %v", decoded.Bounds(), img.Bounds())
	}
}

func TestEncodeToPNG_Invalid(t *testing.T) {
	if _, err := EncodeToPNG(nil); !errors.Is(err, ErrImageEmpty) {
		t.Errorf("expected ErrImageEmpty, got: %v", err)
	}
	if _, err := EncodeToPNG(image.NewRGBA(image.Rect(0, 0, 0, 0))); !errors.Is(err, ErrImageInvalidSize) {
		t.Errorf("expected ErrImageInvalidSize, got: %v", err)
	}
}
