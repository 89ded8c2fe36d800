package scan

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"

	"github.com/matzehuels/ticketblaster/pkg/errors"
)

// qrImage renders payload at 8 px per module without a quiet zone.
func qrImage(t *testing.T, payload string) image.Image {
	t.Helper()
	code, err := qr.Encode(payload, qr.M, qr.Auto)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	dim := code.Bounds().Dx()
	scaled, err := barcode.Scale(code, dim*8, dim*8)
	if err != nil {
		t.Fatalf("scale: %v", err)
	}
	return scaled
}

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

func TestDecodeRegion(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		at      image.Point
	}{
		{"ticket id", "TICKET-001", image.Pt(40, 30)},
		{"default payload", "VALID ADMISSION 2025", image.Pt(0, 0)},
		{"url", "https://example.com/t?id=42", image.Pt(100, 100)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := qrImage(t, tt.payload)
			canvas := solid(600, 600, color.NRGBA{R: 210, G: 180, B: 140, A: 255})
			r := code.Bounds().Sub(code.Bounds().Min).Add(tt.at)
			draw.Draw(canvas, r, code, code.Bounds().Min, draw.Src)

			got, err := DecodeRegion(canvas, r)
			if err != nil {
				t.Fatalf("DecodeRegion: %v", err)
			}
			if got != tt.payload {
				t.Errorf("payload = %q, want %q", got, tt.payload)
			}
		})
	}
}

func TestDecodeWithQuietZone(t *testing.T) {
	code := qrImage(t, "HELLO")
	canvas := solid(400, 400, color.White)
	draw.Draw(canvas, code.Bounds().Add(image.Pt(80, 80)), code, code.Bounds().Min, draw.Src)

	got, err := Decode(canvas)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != "HELLO" {
		t.Errorf("payload = %q, want HELLO", got)
	}
}

func TestDecodeNoCode(t *testing.T) {
	_, err := Decode(solid(200, 200, color.White))
	if !errors.Is(err, errors.ErrCodeQRDecode) {
		t.Errorf("err = %v, want QR_DECODE", err)
	}
}

func TestDecodeRegionOutside(t *testing.T) {
	_, err := DecodeRegion(solid(100, 100, color.White), image.Rect(200, 200, 300, 300))
	if !errors.Is(err, errors.ErrCodeQRDecode) {
		t.Errorf("err = %v, want QR_DECODE", err)
	}
}
