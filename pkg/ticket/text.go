package ticket

import (
	"image"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
)

// outlineWidth is the white stroke around the name, 5% of the font size.
func outlineWidth(fontSize int) int {
	return int(float64(fontSize) * 0.05)
}

// drawName draws s in black with its top-left corner at pt, surrounded by a
// white outline w pixels wide. pt.Y is the ascender line, so the baseline
// sits one ascent below it. The outline is built by stamping the text in
// white at every offset within the stroke radius.
func drawName(dst *image.RGBA, face font.Face, s string, pt image.Point, w int) {
	dc := gg.NewContextForRGBA(dst)
	dc.SetFontFace(face)

	x, y := float64(pt.X), float64(pt.Y)+baselineOffset(face)
	if w > 0 {
		dc.SetRGB(1, 1, 1)
		for dy := -w; dy <= w; dy++ {
			for dx := -w; dx <= w; dx++ {
				if (dx == 0 && dy == 0) || dx*dx+dy*dy > w*w {
					continue
				}
				dc.DrawString(s, x+float64(dx), y+float64(dy))
			}
		}
	}
	dc.SetRGB(0, 0, 0)
	dc.DrawString(s, x, y)
}

// baselineOffset is the distance from the top of the text to its baseline.
func baselineOffset(face font.Face) float64 {
	return float64(face.Metrics().Ascent) / 64
}
