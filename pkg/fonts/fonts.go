// Package fonts resolves the typeface used to draw recipient names on tickets.
//
// Resolution walks an ordered list of font file names, locating each one in
// the platform font directories with go-findfont. The first file that parses
// as TrueType wins. When none is installed the embedded Go Bold face is used,
// and as a last resort the fixed 7x13 bitmap face from x/image.
//
// Parsed fonts are cached; faces are created per call because a truetype face
// carries a glyph cache that is not safe for concurrent use.
package fonts

import (
	"os"
	"sync"

	"github.com/flopp/go-findfont"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
)

// DefaultCandidates is the preferred font order: bold sans faces commonly
// installed on Windows, Linux and BSD desktops.
var DefaultCandidates = []string{
	"arialbd.ttf",
	"arial.ttf",
	"DejaVuSans-Bold.ttf",
	"FreeSansBold.ttf",
}

// Sources reported by Resolver.Source for the built-in fallbacks.
const (
	SourceEmbedded = "embedded:gobold"
	SourceBitmap   = "bitmap:7x13"
)

// findFont is swapped in tests.
var findFont = findfont.Find

// Resolver picks a font once and hands out faces at any size.
type Resolver struct {
	// Candidates are font file names (or absolute paths) tried in order.
	// A nil slice means DefaultCandidates.
	Candidates []string

	// DisableEmbedded skips the embedded face so the bitmap fallback is used
	// when no candidate is installed.
	DisableEmbedded bool

	once   sync.Once
	parsed *truetype.Font
	source string
}

// NewResolver creates a resolver for the given candidates.
func NewResolver(candidates []string) *Resolver {
	return &Resolver{Candidates: candidates}
}

func (r *Resolver) resolve() {
	r.once.Do(func() {
		candidates := r.Candidates
		if candidates == nil {
			candidates = DefaultCandidates
		}
		for _, name := range candidates {
			path, err := findFont(name)
			if err != nil {
				continue
			}
			data, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			f, err := truetype.Parse(data)
			if err != nil {
				continue
			}
			r.parsed, r.source = f, path
			return
		}
		if !r.DisableEmbedded {
			if f, err := truetype.Parse(gobold.TTF); err == nil {
				r.parsed, r.source = f, SourceEmbedded
				return
			}
		}
		r.source = SourceBitmap
	})
}

// Face returns a face for the resolved font at size pixels. The bitmap
// fallback ignores size.
func (r *Resolver) Face(size float64) font.Face {
	r.resolve()
	if r.parsed == nil {
		return basicfont.Face7x13
	}
	return truetype.NewFace(r.parsed, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
}

// Source describes the resolved font: a file path, SourceEmbedded or
// SourceBitmap.
func (r *Resolver) Source() string {
	r.resolve()
	return r.source
}
