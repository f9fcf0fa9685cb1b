// Package template prepares template images for the execution service:
// it validates template names, crops screenshots to a selected region and
// encodes the result for upload.
package template

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"strconv"
	"strings"
)

// invalidNameChars are rejected in template file names.
const invalidNameChars = `<>:"/\|?*`

var (
	// ErrEmptyName is returned for a blank template name.
	ErrEmptyName = errors.New("template name is empty")
	// ErrEmptyRect is returned when a selection has no area.
	ErrEmptyRect = errors.New("selection is empty")
)

// ValidateName checks a template file name.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	if i := strings.IndexAny(name, invalidNameChars); i >= 0 {
		return fmt.Errorf("template name %q contains invalid character %q", name, name[i])
	}
	return nil
}

// Rect is a selection in image pixels. The two corners may be given in
// any order.
type Rect struct {
	X1, Y1, X2, Y2 int
}

// Normalize returns the rectangle spanned by both corners.
func (r Rect) Normalize() image.Rectangle {
	return image.Rect(r.X1, r.Y1, r.X2, r.Y2)
}

// ParseRect parses "x1,y1,x2,y2".
func ParseRect(s string) (Rect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Rect{}, fmt.Errorf("invalid rect %q: want x1,y1,x2,y2", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Rect{}, fmt.Errorf("invalid rect %q: %w", s, err)
		}
		v[i] = n
	}
	return Rect{X1: v[0], Y1: v[1], X2: v[2], Y2: v[3]}, nil
}

// CheckPNG reads only the PNG header and returns the image size.
func CheckPNG(data []byte) (image.Point, error) {
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return image.Point{}, fmt.Errorf("not a PNG image: %w", err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return image.Point{}, ErrEmptyRect
	}
	return image.Pt(cfg.Width, cfg.Height), nil
}

// Crop decodes a PNG, cuts out rect clamped to the image bounds and
// returns the region re-encoded as PNG.
func Crop(data []byte, rect Rect) ([]byte, error) {
	src, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}

	r := rect.Normalize().Intersect(src.Bounds())
	if r.Empty() {
		return nil, ErrEmptyRect
	}

	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), src, r.Min, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode template: %w", err)
	}
	return buf.Bytes(), nil
}

// DataURI encodes PNG bytes the way the save endpoint expects them.
func DataURI(data []byte) string {
	return fmt.Sprintf("data:image/png;base64,%s", base64.StdEncoding.EncodeToString(data))
}
