package ticket

import (
	"image"
	"image/color"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
	"github.com/disintegration/imaging"

	"github.com/matzehuels/ticketblaster/pkg/errors"
)

// modulePixels is the render scale before resampling to the target size.
const modulePixels = 10

// renderQR encodes payload without a quiet zone and resamples it to a
// size x size image. A non-positive size yields nil.
func renderQR(payload string, size int) (*image.NRGBA, error) {
	if size <= 0 {
		return nil, nil
	}
	code, err := qr.Encode(payload, qr.M, qr.Auto)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQREncode, err, "cannot encode QR payload")
	}
	dim := code.Bounds().Dx()
	scaled, err := barcode.Scale(code, dim*modulePixels, dim*modulePixels)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQREncode, err, "cannot scale QR code")
	}
	return imaging.Resize(scaled, size, size, imaging.Lanczos), nil
}

// luminanceMask turns a black-on-white image into black with alpha equal to
// the inverted luminance: dark modules opaque, white modules transparent.
func luminanceMask(src *image.NRGBA) *image.NRGBA {
	b := src.Bounds()
	dst := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			g := color.GrayModel.Convert(src.NRGBAAt(x, y)).(color.Gray)
			dst.SetNRGBA(x, y, color.NRGBA{A: 255 - g.Y})
		}
	}
	return dst
}
