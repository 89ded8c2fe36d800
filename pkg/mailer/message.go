package mailer

import (
	"context"
	"html"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"gopkg.in/gomail.v2"

	"github.com/matzehuels/ticketblaster/pkg/errors"
	"github.com/matzehuels/ticketblaster/pkg/observability"
)

const (
	// TicketFilename is the name of the inline ticket image.
	TicketFilename = "ticket.png"

	// contentIDDomain qualifies generated content identifiers.
	contentIDDomain = "ticket.local"
)

// Message is one outbound ticket email.
type Message struct {
	From        string
	To          []string
	Subject     string
	Body        string   // plain text; newlines become line breaks
	Ticket      []byte   // PNG
	Attachments []string // file paths
}

// Assemble builds the MIME message: an HTML body that references the ticket
// by content ID, the ticket as an inline image, and one part per attachment.
// Attachment paths that are not regular files are skipped with a warning.
// It returns the message and the ticket's content ID (without brackets).
func Assemble(ctx context.Context, msg Message, logger *log.Logger) (*gomail.Message, string, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if err := errors.ValidateAddress(msg.From); err != nil {
		return nil, "", errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid sender")
	}
	if len(msg.To) == 0 {
		return nil, "", errors.New(errors.ErrCodeInvalidInput, "no recipients given")
	}
	for _, to := range msg.To {
		if err := errors.ValidateAddress(to); err != nil {
			return nil, "", err
		}
	}

	cid := uuid.NewString() + "@" + contentIDDomain

	m := gomail.NewMessage()
	m.SetHeader("From", msg.From)
	m.SetHeader("To", msg.To...)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", htmlBody(msg.Body, cid))

	ticket := msg.Ticket
	m.Embed(TicketFilename,
		gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(ticket)
			return err
		}),
		gomail.SetHeader(map[string][]string{
			"Content-ID": {"<" + cid + ">"},
		}),
	)

	attached := 0
	for _, path := range msg.Attachments {
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			logger.Warn("skipping attachment", "path", path, "reason", skipReason(err))
			continue
		}
		m.Attach(path)
		attached++
	}

	observability.Mail().OnAssemble(ctx, len(msg.To), attached)
	logger.Debug("assembled message", "to", len(msg.To), "attachments", attached, "cid", cid)
	return m, cid, nil
}

func skipReason(err error) string {
	if err != nil {
		return err.Error()
	}
	return "not a regular file"
}

// htmlBody renders the plain text body as a single paragraph followed by
// the inline ticket image.
func htmlBody(body, cid string) string {
	text := strings.ReplaceAll(html.EscapeString(body), "\n", "<br>")
	return "<html><body><p>" + text + "</p><br>" +
		`<img src="cid:` + cid + `" alt="Ticket" style="max-width:100%; height:auto;">` +
		"</body></html>"
}
