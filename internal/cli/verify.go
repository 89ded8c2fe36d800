package cli

import (
	"image"

	"github.com/spf13/cobra"

	"github.com/matzehuels/ticketblaster/pkg/errors"
	"github.com/matzehuels/ticketblaster/pkg/scan"
	"github.com/matzehuels/ticketblaster/pkg/ticket"
)

// verifyCommand creates the verify command, which reads a ticket's QR code.
func (c *CLI) verifyCommand() *cobra.Command {
	var (
		expect string
		qrX    int
		qrY    int
		qrSize int
	)

	cmd := &cobra.Command{
		Use:   "verify <ticket.png>",
		Short: "Decode the QR code on a rendered ticket",
		Long: `Verify decodes the QR code on a ticket image and prints its payload.
With --qr-size the search is limited to that square, which is faster and
works on busy artwork. With --expect a mismatch is an error.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := ticket.LoadBackground(args[0])
			if err != nil {
				return err
			}

			var payload string
			if qrSize > 0 {
				payload, err = scan.DecodeRegion(img, image.Rect(qrX, qrY, qrX+qrSize, qrY+qrSize))
			} else {
				payload, err = scan.Decode(img)
			}
			if err != nil {
				return err
			}
			c.Logger.Debug("decoded ticket", "path", args[0], "bytes", len(payload))

			printKeyValue("payload", payload)
			if expect != "" && payload != expect {
				return errors.New(errors.ErrCodeQRDecode, "payload mismatch: got %q, want %q", payload, expect)
			}
			if expect != "" {
				printSuccess("Ticket is valid")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&expect, "expect", "", "fail unless the payload equals this value")
	cmd.Flags().IntVar(&qrX, "qr-x", 0, "QR code left offset")
	cmd.Flags().IntVar(&qrY, "qr-y", 0, "QR code top offset")
	cmd.Flags().IntVar(&qrSize, "qr-size", 0, "QR code edge length (0 searches the whole image)")

	return cmd
}
