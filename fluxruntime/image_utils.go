package fluxruntime

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
)

// Image conversion errors
var (
	ErrImageEmpty       = errors.New("fluxruntime: image data is empty")
	ErrImageEncodeFail  = errors.New("fluxruntime: failed to encode image")
	ErrImageInvalidSize = errors.New("fluxruntime: invalid image dimensions")
)

// NormalizeConditioning converts an image to a (1, H, W, 3) tensor with each
// 8-bit channel mapped by x/255*2-1. Alpha is dropped.
func NormalizeConditioning(img image.Image) Tensor {
	b := img.Bounds()
	h, w := b.Dy(), b.Dx()
	data := make([]float32, h*w*3)

	rgba, ok := img.(*image.RGBA)
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			var r, g, bl uint8
			if ok {
				off := rgba.PixOffset(x, y)
				r, g, bl = rgba.Pix[off], rgba.Pix[off+1], rgba.Pix[off+2]
			} else {
				cr, cg, cb, _ := img.At(x, y).RGBA()
				r, g, bl = uint8(cr>>8), uint8(cg>>8), uint8(cb>>8)
			}
			data[i] = normalizeChannel(r)
			data[i+1] = normalizeChannel(g)
			data[i+2] = normalizeChannel(bl)
			i += 3
		}
	}

	return Tensor{shape: []int{1, h, w, 3}, data: data}
}

func normalizeChannel(v uint8) float32 {
	return float32(v)/255*2 - 1
}

// ToRGBA converts a decoded image tensor with values in [0, 1] to an 8-bit image.
// A batch axis of size 1 is squeezed; the remainder must be (H, W, C) with C of 1, 3 or 4.
// Values are scaled by 255 and clamped to [0, 255].
func ToRGBA(decoded Tensor) (*image.RGBA, error) {
	t := decoded
	if t.Rank() == 4 {
		var err error
		if t, err = t.Squeeze(0); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrImageInvalidSize, err)
		}
	}
	if t.Rank() != 3 {
		return nil, fmt.Errorf("%w: expected (H, W, C), got %v", ErrImageInvalidSize, t.shape)
	}

	h, w, c := t.shape[0], t.shape[1], t.shape[2]
	if h <= 0 || w <= 0 {
		return nil, fmt.Errorf("%w: width=%d height=%d", ErrImageInvalidSize, w, h)
	}
	if c != 1 && c != 3 && c != 4 {
		return nil, fmt.Errorf("%w: unsupported channel count %d", ErrImageInvalidSize, c)
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for p := 0; p < h*w; p++ {
		src := t.data[p*c : p*c+c]
		dst := img.Pix[p*4 : p*4+4]
		switch c {
		case 1:
			v := toUint8(src[0])
			dst[0], dst[1], dst[2], dst[3] = v, v, v, 0xFF
		case 3:
			dst[0], dst[1], dst[2], dst[3] = toUint8(src[0]), toUint8(src[1]), toUint8(src[2]), 0xFF
		case 4:
			dst[0], dst[1], dst[2], dst[3] = toUint8(src[0]), toUint8(src[1]), toUint8(src[2]), toUint8(src[3])
		}
	}
	return img, nil
}

func toUint8(v float32) uint8 {
	s := v * 255
	switch {
	case s != s || s <= 0: // NaN or negative
		return 0
	case s >= 255:
		return 255
	default:
		return uint8(s)
	}
}

// EncodeToPNG encodes an image to PNG format.
func EncodeToPNG(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, ErrImageEmpty
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%w: width=%d height=%d", ErrImageInvalidSize, b.Dx(), b.Dy())
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageEncodeFail, err)
	}
	return buf.Bytes(), nil
}
