package cli

import (
	"fmt"
	"image"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/ticketblaster/pkg/errors"
	"github.com/matzehuels/ticketblaster/pkg/scan"
	"github.com/matzehuels/ticketblaster/pkg/ticket"
)

// renderCommand creates the render command, which writes a ticket PNG.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		tf     ticketFlags
		output string
		check  bool
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a ticket to a PNG file",
		Long: `Render composes the QR code and name onto the background and writes the
result as PNG. Flags override the [ticket] and [layout] config sections.`,
		Example: `  ticketblaster render -b artwork.png -p TICKET-001 -n "Jane Doe" -o jane.png`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			tf.apply(cmd, &cfg)
			req := cfg.Layout.Request(cfg.Ticket.Background, cfg.Ticket.Payload, cfg.Ticket.Name)

			prog := newProgress(c.Logger)
			img, err := c.newCompositor(cfg).Compose(cmd.Context(), req)
			if err != nil {
				return err
			}
			data, err := ticket.EncodePNG(img)
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return errors.Wrap(errors.ErrCodeImageEncode, err, "cannot write %s", output)
			}
			prog.done("Rendered ticket")

			size := img.Bounds().Size()
			printSuccess("Rendered %dx%d ticket", size.X, size.Y)
			printFile(output)

			if check {
				rect := image.Rect(req.QR.X, req.QR.Y, req.QR.X+req.QR.Size, req.QR.Y+req.QR.Size)
				got, err := scan.DecodeRegion(img, rect)
				if err != nil {
					return err
				}
				if got != req.Payload {
					return errors.New(errors.ErrCodeQRDecode, "QR decodes to %q, want %q", got, req.Payload)
				}
				printDetail("QR verified: %q", got)
			}

			printNextStep("Send it", fmt.Sprintf("%s send --to someone@example.com", appName))
			return nil
		},
	}

	tf.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "ticket.png", "output PNG path")
	cmd.Flags().BoolVar(&check, "check", false, "decode the QR code after rendering and compare with the payload")

	return cmd
}
