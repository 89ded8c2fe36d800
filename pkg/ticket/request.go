package ticket

import (
	"image"
	"strconv"
	"strings"

	"github.com/matzehuels/ticketblaster/pkg/errors"
)

// Placement positions the square QR code on the canvas.
type Placement struct {
	X, Y int
	Size int // edge length in pixels
}

// Request describes a single ticket.
type Request struct {
	Background string // path to a PNG or JPEG
	Payload    string // QR content, may be empty
	Name       string // recipient name, may be empty
	QR         Placement
	NameAt     image.Point // top-left corner of the name
	FontSize   int
}

// Layout holds the six numeric layout parameters.
type Layout struct {
	QRX      int `toml:"qr_x"`
	QRY      int `toml:"qr_y"`
	QRSize   int `toml:"qr_size"`
	NameX    int `toml:"name_x"`
	NameY    int `toml:"name_y"`
	FontSize int `toml:"font_size"`
}

// DefaultLayout matches the stock 2480x3508 ticket artwork.
func DefaultLayout() Layout {
	return Layout{
		QRX:      220,
		QRY:      1110,
		QRSize:   1150,
		NameX:    400,
		NameY:    925,
		FontSize: 150,
	}
}

// Request builds a ticket request using this layout.
func (l Layout) Request(background, payload, name string) Request {
	return Request{
		Background: background,
		Payload:    payload,
		Name:       name,
		QR:         Placement{X: l.QRX, Y: l.QRY, Size: l.QRSize},
		NameAt:     image.Pt(l.NameX, l.NameY),
		FontSize:   l.FontSize,
	}
}

// LayoutFields is the unparsed, user-typed form of a Layout.
type LayoutFields struct {
	QRX, QRY, QRSize string
	NameX, NameY     string
	FontSize         string
}

// Fields formats l back into its text form.
func (l Layout) Fields() LayoutFields {
	return LayoutFields{
		QRX:      strconv.Itoa(l.QRX),
		QRY:      strconv.Itoa(l.QRY),
		QRSize:   strconv.Itoa(l.QRSize),
		NameX:    strconv.Itoa(l.NameX),
		NameY:    strconv.Itoa(l.NameY),
		FontSize: strconv.Itoa(l.FontSize),
	}
}

// ErrIncompleteLayout is returned by ParseLayout when any field is blank.
// It carries the INVALID_NUMBER code so callers that do not special-case it
// still report a numeric input problem.
var ErrIncompleteLayout = errors.New(errors.ErrCodeInvalidNumber, "layout is incomplete")

// ParseLayout converts the six text fields into a Layout.
func ParseLayout(f LayoutFields) (Layout, error) {
	raw := []string{f.QRX, f.QRY, f.QRSize, f.NameX, f.NameY, f.FontSize}
	for _, v := range raw {
		if strings.TrimSpace(v) == "" {
			return Layout{}, ErrIncompleteLayout
		}
	}

	var l Layout
	fields := []struct {
		name string
		dst  *int
	}{
		{"qr x", &l.QRX},
		{"qr y", &l.QRY},
		{"qr size", &l.QRSize},
		{"name x", &l.NameX},
		{"name y", &l.NameY},
		{"font size", &l.FontSize},
	}
	for i, fd := range fields {
		n, err := errors.ParseInt(fd.name, raw[i])
		if err != nil {
			return Layout{}, err
		}
		*fd.dst = n
	}
	return l, nil
}
