package mailer

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/ticketblaster/pkg/ticket"
)

// SendTicket renders req, embeds it in msg and delivers it. msg.Ticket is
// replaced with the rendered PNG.
func SendTicket(ctx context.Context, c *ticket.Compositor, t Transport, req ticket.Request, msg Message, logger *log.Logger) error {
	img, err := c.Compose(ctx, req)
	if err != nil {
		return err
	}
	png, err := ticket.EncodePNG(img)
	if err != nil {
		return err
	}
	msg.Ticket = png

	m, _, err := Assemble(ctx, msg, logger)
	if err != nil {
		return err
	}
	return t.Send(ctx, m)
}
