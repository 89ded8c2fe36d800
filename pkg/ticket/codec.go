package ticket

import (
	"bytes"
	"image"

	"github.com/disintegration/imaging"

	"github.com/matzehuels/ticketblaster/pkg/errors"
)

// EncodePNG serializes img as a lossless PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, errors.Wrap(errors.ErrCodeImageEncode, err, "cannot encode PNG")
	}
	return buf.Bytes(), nil
}

// DecodePNG parses PNG bytes produced by EncodePNG.
func DecodePNG(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeImageDecode, err, "cannot decode PNG")
	}
	return img, nil
}
