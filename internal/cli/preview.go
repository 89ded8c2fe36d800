package cli

import (
	"fmt"
	"image"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/disintegration/imaging"
)

// halfBlocks draws img into a cols x rows terminal area. Each cell shows two
// vertically stacked pixels: the upper half block takes the top pixel as
// foreground and the bottom pixel as background. Aspect ratio is kept.
func halfBlocks(img image.Image, cols, rows int) string {
	if img == nil || cols <= 0 || rows <= 0 {
		return ""
	}
	scaled := imaging.Fit(img, cols, rows*2, imaging.Linear)
	b := scaled.Bounds()

	var sb strings.Builder
	for y := b.Min.Y; y < b.Max.Y; y += 2 {
		if y > b.Min.Y {
			sb.WriteByte('\n')
		}
		for x := b.Min.X; x < b.Max.X; x++ {
			style := lipgloss.NewStyle().Foreground(hexColor(scaled, x, y))
			if y+1 < b.Max.Y {
				style = style.Background(hexColor(scaled, x, y+1))
			}
			sb.WriteString(style.Render("▀"))
		}
	}
	return sb.String()
}

func hexColor(img *image.NRGBA, x, y int) lipgloss.Color {
	c := img.NRGBAAt(x, y)
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B))
}

// =============================================================================
// Preview Holder
// =============================================================================

// previewHolder keeps the latest full-resolution composite as PNG for the
// preview server. The shell writes, HTTP handlers read.
type previewHolder struct {
	mu      sync.RWMutex
	png     []byte
	updated time.Time
}

// Set replaces the held preview with PNG data.
func (h *previewHolder) Set(data []byte) {
	h.mu.Lock()
	h.png = data
	h.updated = time.Now()
	h.mu.Unlock()
}

// Get returns the held PNG and when it was stored. ok is false before the
// first Set.
func (h *previewHolder) Get() (data []byte, updated time.Time, ok bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.png, h.updated, h.png != nil
}
