package template

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
)

func samplePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 10), G: uint8(y * 10), B: 0, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"login.png", false},
		{"button ok.png", false},
		{"", true},
		{"   ", true},
		{"a/b.png", true},
		{`a\b.png`, true},
		{"what?.png", true},
		{"x*.png", true},
		{"<x>.png", true},
	}

	for _, tt := range tests {
		err := ValidateName(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateName(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
	if !errors.Is(ValidateName(""), ErrEmptyName) {
		t.Error("expected ErrEmptyName")
	}
}

func TestCrop_ReversedCorners(t *testing.T) {
	out, err := Crop(samplePNG(t, 4, 4), Rect{X1: 3, Y1: 3, X2: 1, Y2: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 2 || b.Dy() != 2 {
		t.Fatalf("expected 2x2, got %dx%d", b.Dx(), b.Dy())
	}

	// Top-left of the crop is source pixel (1,1).
	r, g, _, _ := img.At(0, 0).RGBA()
	if r>>8 != 10 || g>>8 != 10 {
		t.Errorf("unexpected pixel: r=%d g=%d", r>>8, g>>8)
	}
}

func TestCrop_ClampsToBounds(t *testing.T) {
	out, err := Crop(samplePNG(t, 4, 4), Rect{X1: 2, Y1: 2, X2: 100, Y2: 100})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	img, _ := png.Decode(bytes.NewReader(out))
	if b := img.Bounds(); b.Dx() != 2 || b.Dy() != 2 {
		t.Errorf("expected 2x2, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestCrop_EmptySelection(t *testing.T) {
	data := samplePNG(t, 4, 4)

	for _, rect := range []Rect{{1, 1, 1, 3}, {10, 10, 20, 20}} {
		if _, err := Crop(data, rect); !errors.Is(err, ErrEmptyRect) {
			t.Errorf("rect %v: expected ErrEmptyRect, got %v", rect, err)
		}
	}
}

func TestCrop_NotPNG(t *testing.T) {
	if _, err := Crop([]byte("not an image"), Rect{0, 0, 1, 1}); err == nil {
		t.Error("expected decode error")
	}
}

func TestCheckPNG(t *testing.T) {
	size, err := CheckPNG(samplePNG(t, 5, 3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if size != image.Pt(5, 3) {
		t.Errorf("size = %v, want (5,3)", size)
	}

	for _, data := range [][]byte{nil, []byte("GIF89a..."), []byte("\x89PNG\r\n\x1a\n")} {
		if _, err := CheckPNG(data); err == nil {
			t.Errorf("CheckPNG(%q) accepted a non-PNG", data)
		}
	}
}

func TestParseRect(t *testing.T) {
	r, err := ParseRect("10, 20,30,40")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r != (Rect{10, 20, 30, 40}) {
		t.Errorf("unexpected rect %v", r)
	}

	for _, bad := range []string{"1,2,3", "a,b,c,d", ""} {
		if _, err := ParseRect(bad); err == nil {
			t.Errorf("ParseRect(%q) should fail", bad)
		}
	}
}

func TestDataURI(t *testing.T) {
	uri := DataURI([]byte{1, 2, 3})
	if !strings.HasPrefix(uri, "data:image/png;base64,") {
		t.Fatalf("unexpected prefix: %s", uri)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, "data:image/png;base64,"))
	if err != nil || !bytes.Equal(raw, []byte{1, 2, 3}) {
		t.Errorf("round trip failed: %v %v", raw, err)
	}
}
