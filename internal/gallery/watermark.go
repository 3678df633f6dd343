package gallery

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

const (
	watermarkRightMargin  = 40
	watermarkBottomMargin = 30
	shadowOffset          = 2
)

var (
	watermarkShadowColor = color.NRGBA{R: 0, G: 0, B: 0, A: 100}
	watermarkTextColor   = color.NRGBA{R: 255, G: 255, B: 255, A: 220}
)

// Watermarker composites a fixed text mark into the bottom-right corner of
// decoded images. It is stateless per image and safe to share across uploads
// once constructed.
type Watermarker struct {
	text string
	face font.Face
}

// NewWatermarker loads the first available font from fontPaths (falling back
// to a built-in face) and returns a ready compositor.
func NewWatermarker(text string, fontSize float64, fontPaths []string) *Watermarker {
	return &Watermarker{
		text: text,
		face: loadFace(fontPaths, fontSize),
	}
}

// Apply returns a copy of src with the text mark composited in. The output
// always has exactly the source dimensions. The mark is drawn twice on a
// transparent overlay, a translucent black drop shadow offset by (+2,+2) and
// the translucent white text at the true position, right-aligned with fixed
// margins computed from the measured text bounds. The overlay is then merged
// source-over.
func (w *Watermarker) Apply(src image.Image) image.Image {
	bounds := src.Bounds()

	base := image.NewRGBA(bounds)
	draw.Draw(base, bounds, src, bounds.Min, draw.Src)

	overlay := image.NewRGBA(bounds)

	textBounds, _ := font.BoundString(w.face, w.text)
	textWidth := (textBounds.Max.X - textBounds.Min.X).Ceil()
	textHeight := (textBounds.Max.Y - textBounds.Min.Y).Ceil()

	// Top-left corner of the text box in image coordinates.
	x := bounds.Min.X + bounds.Dx() - textWidth - watermarkRightMargin
	y := bounds.Min.Y + bounds.Dy() - textHeight - watermarkBottomMargin

	w.drawText(overlay, x+shadowOffset, y+shadowOffset, textBounds, watermarkShadowColor)
	w.drawText(overlay, x, y, textBounds, watermarkTextColor)

	draw.Draw(base, bounds, overlay, bounds.Min, draw.Over)
	return base
}

// drawText renders the mark with its bounding box anchored at (x, y). The
// drawer positions text by baseline dot, so the measured bounds translate the
// corner into a dot.
func (w *Watermarker) drawText(dst draw.Image, x, y int, textBounds fixed.Rectangle26_6, fill color.Color) {
	drawer := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(fill),
		Face: w.face,
		Dot: fixed.Point26_6{
			X: fixed.I(x) - textBounds.Min.X,
			Y: fixed.I(y) - textBounds.Min.Y,
		},
	}
	drawer.DrawString(w.text)
}
