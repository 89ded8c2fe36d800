package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/ticketblaster/pkg/config"
)

// ticketFlags are the ticket inputs shared by render and send. Flags only
// override the config when set explicitly.
type ticketFlags struct {
	background string
	payload    string
	name       string
	qrX, qrY   int
	qrSize     int
	nameX      int
	nameY      int
	fontSize   int
	opaqueQR   bool
}

func (f *ticketFlags) register(cmd *cobra.Command) {
	d := config.Default()
	fl := cmd.Flags()
	fl.StringVarP(&f.background, "background", "b", d.Ticket.Background, "background image (PNG or JPEG)")
	fl.StringVarP(&f.payload, "payload", "p", d.Ticket.Payload, "QR code content")
	fl.StringVarP(&f.name, "name", "n", d.Ticket.Name, "recipient name printed on the ticket")
	fl.IntVar(&f.qrX, "qr-x", d.Layout.QRX, "QR code left offset in pixels")
	fl.IntVar(&f.qrY, "qr-y", d.Layout.QRY, "QR code top offset in pixels")
	fl.IntVar(&f.qrSize, "qr-size", d.Layout.QRSize, "QR code edge length in pixels")
	fl.IntVar(&f.nameX, "name-x", d.Layout.NameX, "name left offset in pixels")
	fl.IntVar(&f.nameY, "name-y", d.Layout.NameY, "name top offset in pixels")
	fl.IntVar(&f.fontSize, "font-size", d.Layout.FontSize, "name font size in pixels")
	fl.BoolVar(&f.opaqueQR, "opaque-qr", d.Ticket.OpaqueQR, "paste the QR code with an opaque white background")
}

func (f *ticketFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	fl := cmd.Flags()
	set := func(name string, apply func()) {
		if fl.Changed(name) {
			apply()
		}
	}
	set("background", func() { cfg.Ticket.Background = f.background })
	set("payload", func() { cfg.Ticket.Payload = f.payload })
	set("name", func() { cfg.Ticket.Name = f.name })
	set("qr-x", func() { cfg.Layout.QRX = f.qrX })
	set("qr-y", func() { cfg.Layout.QRY = f.qrY })
	set("qr-size", func() { cfg.Layout.QRSize = f.qrSize })
	set("name-x", func() { cfg.Layout.NameX = f.nameX })
	set("name-y", func() { cfg.Layout.NameY = f.nameY })
	set("font-size", func() { cfg.Layout.FontSize = f.fontSize })
	set("opaque-qr", func() { cfg.Ticket.OpaqueQR = f.opaqueQR })
}

// splitList splits a comma-separated list, dropping blank entries.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// expandNewlines turns the two-character sequence \n into a line break so
// multi-line bodies can be typed on one line.
func expandNewlines(s string) string {
	return strings.ReplaceAll(s, `\n`, "\n")
}
