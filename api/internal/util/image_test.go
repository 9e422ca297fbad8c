package util

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func TestDecodeImage(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 4, 3))

	t.Run("png", func(t *testing.T) {
		img, format, err := DecodeImage(encodePNG(t, src))
		if err != nil {
			t.Fatalf("DecodeImage() error = %v", err)
		}
		if format != "png" {
			t.Fatalf("unexpected format %q", format)
		}
		if img.Bounds().Dx() != 4 || img.Bounds().Dy() != 3 {
			t.Fatalf("unexpected bounds %v", img.Bounds())
		}
	})

	t.Run("jpeg", func(t *testing.T) {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, src, nil); err != nil {
			t.Fatalf("jpeg.Encode() error = %v", err)
		}
		_, format, err := DecodeImage(buf.Bytes())
		if err != nil {
			t.Fatalf("DecodeImage() error = %v", err)
		}
		if format != "jpeg" {
			t.Fatalf("unexpected format %q", format)
		}
	})

	t.Run("empty", func(t *testing.T) {
		_, _, err := DecodeImage(nil)
		if !errors.Is(err, ErrEmptyImage) {
			t.Fatalf("expected ErrEmptyImage, got %v", err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		_, _, err := DecodeImage([]byte("definitely not an image"))
		if err == nil {
			t.Fatalf("expected decode error")
		}
	})
}

func TestToRGBDropsAlpha(t *testing.T) {
	src := image.NewNRGBA(image.Rect(2, 2, 4, 3))
	src.SetNRGBA(2, 2, color.NRGBA{R: 10, G: 20, B: 30, A: 0})
	src.SetNRGBA(3, 2, color.NRGBA{R: 200, G: 100, B: 50, A: 128})

	dst := ToRGB(src)
	if dst.Bounds() != image.Rect(0, 0, 2, 1) {
		t.Fatalf("expected bounds anchored at origin, got %v", dst.Bounds())
	}
	if got := dst.RGBAAt(0, 0); got != (color.RGBA{R: 10, G: 20, B: 30, A: 0xFF}) {
		t.Fatalf("unexpected pixel (0,0): %+v", got)
	}
	if got := dst.RGBAAt(1, 0); got != (color.RGBA{R: 200, G: 100, B: 50, A: 0xFF}) {
		t.Fatalf("unexpected pixel (1,0): %+v", got)
	}
}

func TestFitWithin(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 800, 200))

	if got := FitWithin(img, 0); got != img {
		t.Fatalf("maxSide=0 must return the same image")
	}
	if got := FitWithin(img, 1000); got != img {
		t.Fatalf("image that already fits must be returned as is")
	}
	got := FitWithin(img, 400)
	if got.Bounds().Dx() != 400 || got.Bounds().Dy() != 100 {
		t.Fatalf("unexpected scaled bounds %v", got.Bounds())
	}
}

func TestSniffMimeHTTP(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{name: "jpeg", in: []byte{0xFF, 0xD8, 0xFF, 0xE0}, want: "image/jpeg"},
		{name: "png", in: append(append([]byte{}, pngMagic...), 0, 0), want: "image/png"},
		{name: "gif", in: []byte("GIF89a......"), want: "image/gif"},
		{name: "empty", in: nil, want: "application/octet-stream"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SniffMimeHTTP(tt.in); got != tt.want {
				t.Fatalf("SniffMimeHTTP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStripHelpers(t *testing.T) {
	if got := StripCodeFences("```text\nhello world\n```"); got != "hello world" {
		t.Fatalf("StripCodeFences() = %q", got)
	}
	if got := StripQuotes(`  "forty two"  `); got != "forty two" {
		t.Fatalf("StripQuotes() = %q", got)
	}
	if got := StripQuotes(`it's`); got != "it's" {
		t.Fatalf("StripQuotes() must keep inner quotes, got %q", got)
	}
}
