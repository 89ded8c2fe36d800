// Package scan reads QR payloads back out of rendered tickets.
//
// It is the inverse of the compositor's QR step and backs the verify
// command: a ticket is considered valid when its QR code decodes to the
// expected payload.
package scan

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/makiuchi-d/gozxing"
	zxqr "github.com/makiuchi-d/gozxing/qrcode"

	"github.com/matzehuels/ticketblaster/pkg/errors"
)

// Decode finds and decodes a QR code anywhere in img.
func Decode(img image.Image) (string, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeQRDecode, err, "cannot binarize image")
	}
	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	}
	result, err := zxqr.NewQRCodeReader().Decode(bmp, hints)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeQRDecode, err, "no QR code found")
	}
	return result.GetText(), nil
}

// DecodeRegion decodes the QR code inside rect. The region is copied onto a
// white canvas with a quiet zone a fifth of its width on every side, since
// tickets paste the code without one.
func DecodeRegion(img image.Image, rect image.Rectangle) (string, error) {
	rect = rect.Intersect(img.Bounds())
	if rect.Empty() {
		return "", errors.New(errors.ErrCodeQRDecode, "QR region lies outside the image")
	}
	pad := rect.Dx() / 5
	if pad < 8 {
		pad = 8
	}
	canvas := image.NewRGBA(image.Rect(0, 0, rect.Dx()+2*pad, rect.Dy()+2*pad))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(canvas, rect.Sub(rect.Min).Add(image.Pt(pad, pad)), img, rect.Min, draw.Over)
	return Decode(canvas)
}
