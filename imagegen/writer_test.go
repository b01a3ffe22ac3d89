package imagegen

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func solidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestSaveImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.png")
	want := color.RGBA{R: 200, G: 10, B: 30, A: 255}

	if err := SaveImage(solidImage(4, 3, want), path); err != nil {
		t.Fatalf("SaveImage() error = %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("saved file missing: %v", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("saved file is not a PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 4 || b.Dy() != 3 {
		t.Errorf("bounds = %v, want 4x3", b)
	}
	if got := color.RGBAModel.Convert(img.At(2, 1)).(color.RGBA); got != want {
		t.Errorf("pixel = %v, want %v", got, want)
	}
}

func TestSaveImage_RefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.png")
	if err := os.WriteFile(path, []byte("keep"), 0644); err != nil {
		t.Fatal(err)
	}

	err := SaveImage(solidImage(2, 2, color.RGBA{A: 255}), path)
	if !errors.Is(err, ErrSaveFailed) {
		t.Fatalf("SaveImage() error = %v, want ErrSaveFailed", err)
	}
	var saveErr *SaveError
	if !errors.As(err, &saveErr) || saveErr.Path != path {
		t.Errorf("error = %#v, want *SaveError for %s", err, path)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "keep" {
		t.Error("existing file was modified")
	}
}

func TestSaveImage_EmptyImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.png")

	if err := SaveImage(image.NewRGBA(image.Rect(0, 0, 0, 0)), path); !errors.Is(err, ErrSaveFailed) {
		t.Errorf("SaveImage() error = %v, want ErrSaveFailed", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("no file should be written for an empty image")
	}
}
