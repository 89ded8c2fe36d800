package ticket

import (
	"bytes"
	"context"
	stderrors "errors"
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/disintegration/imaging"

	"github.com/matzehuels/ticketblaster/pkg/cache"
	"github.com/matzehuels/ticketblaster/pkg/errors"
	"github.com/matzehuels/ticketblaster/pkg/fonts"
	"github.com/matzehuels/ticketblaster/pkg/observability"
	"github.com/matzehuels/ticketblaster/pkg/scan"
)

var tan = color.NRGBA{R: 210, G: 180, B: 140, A: 255}

// writeBackground saves a solid w x h image under a temp dir.
func writeBackground(t *testing.T, name string, w, h int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := imaging.Save(imaging.New(w, h, tan), path); err != nil {
		t.Fatalf("save background: %v", err)
	}
	return path
}

// newTestCompositor pins the embedded face so results do not depend on
// the fonts installed on the machine.
func newTestCompositor(opts ...Option) *Compositor {
	opts = append([]Option{WithFonts(fonts.NewResolver([]string{}))}, opts...)
	return NewCompositor(opts...)
}

func e2eRequest(bg string) Request {
	return Request{
		Background: bg,
		Payload:    "TICKET-001",
		Name:       "Jane Doe",
		QR:         Placement{X: 50, Y: 50, Size: 200},
		NameAt:     image.Pt(60, 270),
		FontSize:   24,
	}
}

func TestComposeEndToEnd(t *testing.T) {
	bg := writeBackground(t, "bg.png", 800, 600)

	img, err := newTestCompositor().Compose(context.Background(), e2eRequest(bg))
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if got := img.Bounds().Size(); got != image.Pt(800, 600) {
		t.Fatalf("size = %v, want 800x600", got)
	}

	payload, err := scan.DecodeRegion(img, image.Rect(50, 50, 250, 250))
	if err != nil {
		t.Fatalf("DecodeRegion: %v", err)
	}
	if payload != "TICKET-001" {
		t.Errorf("payload = %q, want %q", payload, "TICKET-001")
	}

	var dark, light int
	region := image.Rect(55, 265, 260, 310)
	for y := region.Min.Y; y < region.Max.Y; y++ {
		for x := region.Min.X; x < region.Max.X; x++ {
			c := img.RGBAAt(x, y)
			if c.R < 60 && c.G < 60 && c.B < 60 {
				dark++
			}
			if c.R > 200 && c.G > 200 && c.B > 200 {
				light++
			}
		}
	}
	if dark == 0 {
		t.Error("name region has no dark glyph pixels")
	}
	if light == 0 {
		t.Error("name region has no light outline pixels")
	}
}

func TestComposeDeterministic(t *testing.T) {
	bg := writeBackground(t, "bg.png", 400, 400)
	req := e2eRequest(bg)
	req.NameAt = image.Pt(20, 300)

	c := newTestCompositor()
	a, err := c.Compose(context.Background(), req)
	if err != nil {
		t.Fatalf("first Compose: %v", err)
	}
	b, err := c.Compose(context.Background(), req)
	if err != nil {
		t.Fatalf("second Compose: %v", err)
	}
	if !bytes.Equal(a.Pix, b.Pix) {
		t.Error("identical requests produced different pixels")
	}
}

func TestComposeBackgroundErrors(t *testing.T) {
	dir := t.TempDir()
	junk := filepath.Join(dir, "junk.png")
	if err := os.WriteFile(junk, []byte("definitely not a png"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
		code errors.Code
	}{
		{"missing", filepath.Join(dir, "nope.png"), errors.ErrCodeMissingBackground},
		{"undecodable", junk, errors.ErrCodeImageDecode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := newTestCompositor().Compose(context.Background(), e2eRequest(tt.path))
			if err == nil {
				t.Fatal("Compose succeeded, want error")
			}
			if img != nil {
				t.Error("Compose returned an image alongside an error")
			}
			if !errors.Is(err, tt.code) {
				t.Errorf("code = %v, want %v", errors.GetCode(err), tt.code)
			}
		})
	}
}

func TestComposeJPEGBackground(t *testing.T) {
	bg := writeBackground(t, "bg.jpg", 320, 240)
	req := e2eRequest(bg)
	req.QR = Placement{X: 10, Y: 10, Size: 120}

	img, err := newTestCompositor().Compose(context.Background(), req)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if got := img.Bounds().Size(); got != image.Pt(320, 240) {
		t.Errorf("size = %v, want 320x240", got)
	}
}

func TestComposeEmptyPayloadAndName(t *testing.T) {
	bg := writeBackground(t, "bg.png", 300, 300)
	req := Request{
		Background: bg,
		QR:         Placement{X: 20, Y: 20, Size: 100},
		NameAt:     image.Pt(20, 200),
		FontSize:   24,
	}

	img, err := newTestCompositor().Compose(context.Background(), req)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	if countDark(img, image.Rect(20, 20, 120, 120)) == 0 {
		t.Error("empty payload should still render a QR code")
	}
	if !isUniform(img, image.Rect(0, 150, 300, 300)) {
		t.Error("empty name should leave the background untouched")
	}
}

func TestComposeOutOfRangeDoesNotPanic(t *testing.T) {
	bg := writeBackground(t, "bg.png", 200, 100)

	tests := []struct {
		name string
		qr   Placement
		at   image.Point
		font int
	}{
		{"qr past edge", Placement{X: 150, Y: 50, Size: 300}, image.Pt(0, 0), 24},
		{"negative offsets", Placement{X: -50, Y: -50, Size: 100}, image.Pt(-30, -10), 24},
		{"name off canvas", Placement{X: 0, Y: 0, Size: 50}, image.Pt(5000, 5000), 24},
		{"zero size", Placement{X: 0, Y: 0, Size: 0}, image.Pt(0, 0), 0},
		{"negative size", Placement{X: 0, Y: 0, Size: -10}, image.Pt(0, 0), -5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := Request{Background: bg, Payload: "X", Name: "Jane", QR: tt.qr, NameAt: tt.at, FontSize: tt.font}
			img, err := newTestCompositor().Compose(context.Background(), req)
			if err != nil {
				t.Fatalf("Compose: %v", err)
			}
			if got := img.Bounds().Size(); got != image.Pt(200, 100) {
				t.Errorf("size = %v, want 200x100", got)
			}
		})
	}
}

func TestComposeZeroSizeSkipsQR(t *testing.T) {
	bg := writeBackground(t, "bg.png", 100, 100)
	req := Request{Background: bg, Payload: "X", QR: Placement{Size: 0}}

	img, err := newTestCompositor().Compose(context.Background(), req)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if !isUniform(img, img.Bounds()) {
		t.Error("zero-size QR should not touch the canvas")
	}
}

func TestComposeQRMask(t *testing.T) {
	bg := writeBackground(t, "bg.png", 200, 200)
	req := Request{Background: bg, Payload: "TICKET-001", QR: Placement{X: 0, Y: 0, Size: 200}}
	region := image.Rect(0, 0, 200, 200)

	masked, err := newTestCompositor().Compose(context.Background(), req)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if n := countWhite(masked, region); n != 0 {
		t.Errorf("masked paste produced %d white pixels, want 0", n)
	}

	opaque, err := newTestCompositor(WithOpaqueQR(true)).Compose(context.Background(), req)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if countWhite(opaque, region) == 0 {
		t.Error("opaque paste should show white modules")
	}
}

func TestComposeCache(t *testing.T) {
	bg := writeBackground(t, "bg.png", 300, 300)
	req := e2eRequest(bg)
	mem := &countingCache{Memory: cache.NewMemory(4)}
	c := newTestCompositor(WithCache(mem))

	first, err := c.Compose(context.Background(), req)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if mem.hits != 0 || mem.Len() != 2 {
		t.Fatalf("cold compose: hits=%d len=%d, want 0 and 2", mem.hits, mem.Len())
	}

	second, err := c.Compose(context.Background(), req)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if mem.hits != 2 {
		t.Errorf("warm compose: hits = %d, want 2", mem.hits)
	}
	uncached, err := newTestCompositor().Compose(context.Background(), req)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if !bytes.Equal(first.Pix, second.Pix) || !bytes.Equal(first.Pix, uncached.Pix) {
		t.Error("cached compose differs from uncached output")
	}

	// A rewritten background gets a new key.
	if err := imaging.Save(imaging.New(300, 300, color.NRGBA{B: 255, A: 255}), bg); err != nil {
		t.Fatal(err)
	}
	later := time.Now().Add(time.Hour)
	if err := os.Chtimes(bg, later, later); err != nil {
		t.Fatal(err)
	}
	third, err := c.Compose(context.Background(), req)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if got := third.RGBAAt(290, 290); got.B != 255 || got.R != 0 {
		t.Errorf("corner pixel = %v, want the new blue background", got)
	}
}

type countingCache struct {
	*cache.Memory
	hits int
}

func (c *countingCache) Get(key string) (*image.NRGBA, bool) {
	img, ok := c.Memory.Get(key)
	if ok {
		c.hits++
	}
	return img, ok
}

func TestComposeHooks(t *testing.T) {
	observability.Reset()
	defer observability.Reset()

	h := &recordingHooks{}
	observability.SetComposeHooks(h)

	bg := writeBackground(t, "bg.png", 100, 100)
	c := newTestCompositor()
	if _, err := c.Compose(context.Background(), Request{Background: bg}); err != nil {
		t.Fatalf("Compose: %v", err)
	}
	_, _ = c.Compose(context.Background(), Request{Background: filepath.Join(t.TempDir(), "missing.png")})

	if h.starts != 2 {
		t.Errorf("starts = %d, want 2", h.starts)
	}
	if len(h.errs) != 2 || h.errs[0] != nil || h.errs[1] == nil {
		t.Errorf("completion errors = %v, want [nil, error]", h.errs)
	}
}

type recordingHooks struct {
	starts int
	errs   []error
}

func (h *recordingHooks) OnComposeStart(context.Context, string) { h.starts++ }
func (h *recordingHooks) OnComposeComplete(_ context.Context, _ string, _ time.Duration, err error) {
	h.errs = append(h.errs, err)
}

func TestParseLayout(t *testing.T) {
	valid := LayoutFields{QRX: "220", QRY: "1110", QRSize: "1150", NameX: "400", NameY: "925", FontSize: "150"}

	tests := []struct {
		name       string
		mutate     func(*LayoutFields)
		want       Layout
		incomplete bool
		badField   string
	}{
		{name: "valid", mutate: func(*LayoutFields) {}, want: DefaultLayout()},
		{name: "padded", mutate: func(f *LayoutFields) { f.QRX = " 220 " }, want: DefaultLayout()},
		{name: "negative", mutate: func(f *LayoutFields) { f.NameX = "-4" }, want: Layout{220, 1110, 1150, -4, 925, 150}},
		{name: "blank", mutate: func(f *LayoutFields) { f.QRSize = "" }, incomplete: true},
		{name: "whitespace only", mutate: func(f *LayoutFields) { f.FontSize = "  " }, incomplete: true},
		{name: "blank wins over invalid", mutate: func(f *LayoutFields) { f.QRX = "abc"; f.NameY = "" }, incomplete: true},
		{name: "letters", mutate: func(f *LayoutFields) { f.QRY = "11o0" }, badField: "qr y"},
		{name: "float", mutate: func(f *LayoutFields) { f.FontSize = "12.5" }, badField: "font size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := valid
			tt.mutate(&f)
			got, err := ParseLayout(f)

			switch {
			case tt.incomplete:
				if !stderrors.Is(err, ErrIncompleteLayout) {
					t.Errorf("err = %v, want ErrIncompleteLayout", err)
				}
			case tt.badField != "":
				if !errors.Is(err, errors.ErrCodeInvalidNumber) {
					t.Fatalf("err = %v, want INVALID_NUMBER", err)
				}
				if stderrors.Is(err, ErrIncompleteLayout) {
					t.Error("non-integer input reported as incomplete")
				}
				if !strings.Contains(errors.UserMessage(err), tt.badField) {
					t.Errorf("message %q does not name field %q", errors.UserMessage(err), tt.badField)
				}
			default:
				if err != nil {
					t.Fatalf("ParseLayout: %v", err)
				}
				if got != tt.want {
					t.Errorf("ParseLayout = %+v, want %+v", got, tt.want)
				}
			}
		})
	}
}

func TestIncompleteLayoutIsInvalidNumber(t *testing.T) {
	if !errors.Is(ErrIncompleteLayout, errors.ErrCodeInvalidNumber) {
		t.Error("ErrIncompleteLayout should carry INVALID_NUMBER")
	}
}

func TestLayoutFieldsRoundTrip(t *testing.T) {
	l := Layout{QRX: 1, QRY: 2, QRSize: 3, NameX: 4, NameY: 5, FontSize: 6}
	got, err := ParseLayout(l.Fields())
	if err != nil {
		t.Fatalf("ParseLayout: %v", err)
	}
	if got != l {
		t.Errorf("round trip = %+v, want %+v", got, l)
	}
}

func TestLayoutRequest(t *testing.T) {
	req := DefaultLayout().Request("bg.png", "P", "N")
	want := Request{
		Background: "bg.png",
		Payload:    "P",
		Name:       "N",
		QR:         Placement{X: 220, Y: 1110, Size: 1150},
		NameAt:     image.Pt(400, 925),
		FontSize:   150,
	}
	if req != want {
		t.Errorf("Request = %+v, want %+v", req, want)
	}
}

func TestEncodePNG(t *testing.T) {
	bg := writeBackground(t, "bg.png", 800, 600)
	img, err := newTestCompositor().Compose(context.Background(), e2eRequest(bg))
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	data, err := EncodePNG(img)
	if err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")) {
		t.Fatal("output is not a PNG")
	}

	decoded, err := DecodePNG(data)
	if err != nil {
		t.Fatalf("DecodePNG: %v", err)
	}
	if decoded.Bounds().Size() != img.Bounds().Size() {
		t.Errorf("decoded size = %v, want %v", decoded.Bounds().Size(), img.Bounds().Size())
	}
	c := color.RGBAModel.Convert(decoded.At(400, 500)).(color.RGBA)
	if c != img.RGBAAt(400, 500) {
		t.Errorf("pixel changed after round trip: %v vs %v", c, img.RGBAAt(400, 500))
	}
}

func TestDecodePNGInvalid(t *testing.T) {
	if _, err := DecodePNG([]byte("nope")); !errors.Is(err, errors.ErrCodeImageDecode) {
		t.Errorf("err = %v, want IMAGE_DECODE", err)
	}
}

func TestOutlineWidth(t *testing.T) {
	tests := []struct{ size, want int }{
		{150, 7},
		{24, 1},
		{20, 1},
		{19, 0},
		{0, 0},
	}
	for _, tt := range tests {
		if got := outlineWidth(tt.size); got != tt.want {
			t.Errorf("outlineWidth(%d) = %d, want %d", tt.size, got, tt.want)
		}
	}
}

func TestDrawNameAnchorsAtAscender(t *testing.T) {
	face := fonts.NewResolver([]string{}).Face(60)
	ascent := face.Metrics().Ascent.Ceil()

	dst := image.NewRGBA(image.Rect(0, 0, 200, 200))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	drawName(dst, face, "H", image.Pt(20, 20), 0)

	top, bottom := -1, -1
	for y := 0; y < 200; y++ {
		if countDark(dst, image.Rect(0, y, 200, y+1)) > 0 {
			if top < 0 {
				top = y
			}
			bottom = y
		}
	}
	if top < 0 {
		t.Fatal("nothing drawn")
	}
	if top < 20 {
		t.Errorf("glyph top = %d, above the anchor row 20", top)
	}
	// "H" has no descender, so it ends on the baseline.
	if bottom > 20+ascent {
		t.Errorf("glyph bottom = %d, want at most %d (anchor + ascent)", bottom, 20+ascent)
	}
}

func countDark(img *image.RGBA, r image.Rectangle) int {
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			c := img.RGBAAt(x, y)
			if c.R < 60 && c.G < 60 && c.B < 60 {
				n++
			}
		}
	}
	return n
}

func countWhite(img *image.RGBA, r image.Rectangle) int {
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			c := img.RGBAAt(x, y)
			if c.R > 250 && c.G > 250 && c.B > 250 {
				n++
			}
		}
	}
	return n
}

func isUniform(img *image.RGBA, r image.Rectangle) bool {
	first := img.RGBAAt(r.Min.X, r.Min.Y)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if img.RGBAAt(x, y) != first {
				return false
			}
		}
	}
	return true
}
