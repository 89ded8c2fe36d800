package ticket

import (
	"context"
	"image"
	"image/draw"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"

	"github.com/matzehuels/ticketblaster/pkg/cache"
	"github.com/matzehuels/ticketblaster/pkg/errors"
	"github.com/matzehuels/ticketblaster/pkg/fonts"
	"github.com/matzehuels/ticketblaster/pkg/observability"
)

// Option configures a Compositor.
type Option func(*Compositor)

// WithFonts sets the font resolver used for the name.
func WithFonts(r *fonts.Resolver) Option {
	return func(c *Compositor) { c.fonts = r }
}

// WithOpaqueQR pastes the QR code at full opacity, so its white modules
// cover the background instead of letting it show through.
func WithOpaqueQR(opaque bool) Option {
	return func(c *Compositor) { c.opaqueQR = opaque }
}

// WithLogger sets the logger for debug output.
func WithLogger(l *log.Logger) Option {
	return func(c *Compositor) { c.logger = l }
}

// WithCache keeps decoded backgrounds and resampled QR codes in c between
// renders.
func WithCache(c cache.Cache) Option {
	return func(comp *Compositor) { comp.cache = c }
}

// Compositor renders tickets. It is safe for concurrent use.
type Compositor struct {
	fonts    *fonts.Resolver
	cache    cache.Cache
	opaqueQR bool
	logger   *log.Logger
}

// NewCompositor creates a compositor. Without WithFonts it resolves fonts
// from fonts.DefaultCandidates.
func NewCompositor(opts ...Option) *Compositor {
	c := &Compositor{}
	for _, opt := range opts {
		opt(c)
	}
	if c.fonts == nil {
		c.fonts = fonts.NewResolver(nil)
	}
	if c.logger == nil {
		c.logger = log.New(io.Discard)
	}
	if c.cache == nil {
		c.cache = cache.Null{}
	}
	return c
}

// Compose loads the background, pastes the QR code and draws the name.
// On error no image is returned.
func (c *Compositor) Compose(ctx context.Context, req Request) (img *image.RGBA, err error) {
	hooks := observability.Compose()
	hooks.OnComposeStart(ctx, req.Background)
	start := time.Now()
	defer func() {
		hooks.OnComposeComplete(ctx, req.Background, time.Since(start), err)
	}()

	bg, err := c.background(req.Background)
	if err != nil {
		return nil, err
	}

	qr, err := c.qr(req.Payload, req.QR.Size)
	if err != nil {
		return nil, err
	}
	if qr != nil {
		pt := image.Pt(req.QR.X, req.QR.Y)
		if c.opaqueQR {
			bg = imaging.Paste(bg, qr, pt)
		} else {
			bg = imaging.Overlay(bg, qr, pt, 1.0)
		}
	}

	out := toRGBA(bg)
	if req.Name != "" && req.FontSize > 0 {
		c.logger.Debug("drawing name", "font", c.fonts.Source(), "size", req.FontSize)
		drawName(out, c.fonts.Face(float64(req.FontSize)), req.Name, req.NameAt, outlineWidth(req.FontSize))
	}
	return out, nil
}

// background loads path through the cache. The key includes the file's size
// and modification time, so an edited background is decoded again.
func (c *Compositor) background(path string) (*image.NRGBA, error) {
	info, err := statBackground(path)
	if err != nil {
		return nil, err
	}
	key := cache.Key("bg", path, info.ModTime().UnixNano(), info.Size())
	if img, ok := c.cache.Get(key); ok {
		return img, nil
	}
	img, err := decodeBackground(path)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, img)
	return img, nil
}

// qr renders the paste-ready QR code through the cache: opaque, or as a
// luminance mask.
func (c *Compositor) qr(payload string, size int) (*image.NRGBA, error) {
	if size <= 0 {
		return nil, nil
	}
	key := cache.Key("qr", payload, size, c.opaqueQR)
	if img, ok := c.cache.Get(key); ok {
		return img, nil
	}
	img, err := renderQR(payload, size)
	if err != nil {
		return nil, err
	}
	if !c.opaqueQR {
		img = luminanceMask(img)
	}
	c.cache.Set(key, img)
	return img, nil
}

// LoadBackground opens and decodes the background raster.
func LoadBackground(path string) (*image.NRGBA, error) {
	if _, err := statBackground(path); err != nil {
		return nil, err
	}
	return decodeBackground(path)
}

func statBackground(path string) (os.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrCodeMissingBackground, "background image not found: %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeImageDecode, err, "cannot read background %s", path)
	}
	return info, nil
}

func decodeBackground(path string) (*image.NRGBA, error) {
	src, err := imaging.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeImageDecode, err, "cannot decode background %s", path)
	}
	return imaging.Clone(src), nil
}

func toRGBA(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}
