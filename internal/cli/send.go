package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/ticketblaster/pkg/config"
	"github.com/matzehuels/ticketblaster/pkg/errors"
	"github.com/matzehuels/ticketblaster/pkg/mailer"
	"github.com/matzehuels/ticketblaster/pkg/ticket"
)

// sendOpts holds the mail flags for the send command.
type sendOpts struct {
	to          string
	from        string
	subject     string
	body        string
	attachments []string
	eml         string // write the message here instead of sending
}

// sendCommand creates the send command, which renders and mails one ticket.
func (c *CLI) sendCommand() *cobra.Command {
	var (
		tf   ticketFlags
		opts sendOpts
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Render a ticket and email it",
		Long: `Send renders a ticket and mails it as an inline image, with optional
attachments. The SMTP password comes from TICKETBLASTER_SMTP_PASSWORD or the
OS keyring (see 'ticketblaster credentials set').`,
		Example: `  ticketblaster send --to jane@example.com -n "Jane Doe" -p TICKET-001
  ticketblaster send --to a@example.com,b@example.com --attach schedule.pdf
  ticketblaster send --to jane@example.com --eml preview.eml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			tf.apply(cmd, &cfg)
			if cmd.Flags().Changed("from") {
				cfg.SMTP.Sender = opts.from
			}
			if cmd.Flags().Changed("subject") {
				cfg.Mail.Subject = opts.subject
			}
			if cmd.Flags().Changed("body") {
				cfg.Mail.Body = opts.body
			}
			return c.runSend(cmd, cfg, opts)
		},
	}

	tf.register(cmd)
	d := config.Default()
	cmd.Flags().StringVarP(&opts.to, "to", "t", "", "comma-separated recipients (required)")
	cmd.Flags().StringVar(&opts.from, "from", "", "sender address (default smtp.sender)")
	cmd.Flags().StringVarP(&opts.subject, "subject", "s", d.Mail.Subject, "mail subject")
	cmd.Flags().StringVar(&opts.body, "body", d.Mail.Body, `mail body; \n starts a new line`)
	cmd.Flags().StringSliceVarP(&opts.attachments, "attach", "a", nil, "file to attach (repeatable)")
	cmd.Flags().StringVar(&opts.eml, "eml", "", "write the assembled message to this file instead of sending")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func (c *CLI) runSend(cmd *cobra.Command, cfg config.Config, opts sendOpts) error {
	ctx := cmd.Context()

	recipients, err := errors.ParseRecipients(opts.to)
	if err != nil {
		return err
	}
	sender := strings.TrimSpace(cfg.SMTP.Sender)
	if sender == "" {
		return errors.New(errors.ErrCodeInvalidInput, "no sender address: set smtp.sender, %s or --from", config.EnvSender)
	}

	req := cfg.Layout.Request(cfg.Ticket.Background, cfg.Ticket.Payload, cfg.Ticket.Name)
	msg := mailer.Message{
		From:        sender,
		To:          recipients,
		Subject:     cfg.Mail.Subject,
		Body:        expandNewlines(cfg.Mail.Body),
		Attachments: opts.attachments,
	}
	compositor := c.newCompositor(cfg)

	if opts.eml != "" {
		return c.writeEML(cmd, compositor, req, msg, opts.eml)
	}

	password, source, err := config.ResolvePassword(sender, c.store)
	if err != nil {
		return err
	}
	c.Logger.Debug("credentials resolved", "account", sender, "source", source)

	transport := c.newTransport(cfg.SMTP, config.Credentials{Username: sender, Password: password}, c.Logger)
	prog := newProgress(c.Logger)
	err = spin(ctx,
		fmt.Sprintf("Sending ticket via %s:%d...", cfg.SMTP.Host, cfg.SMTP.Port),
		fmt.Sprintf("Ticket sent to %s", strings.Join(recipients, ", ")),
		func() error {
			return mailer.SendTicket(ctx, compositor, transport, req, msg, c.Logger)
		})
	if err != nil {
		return err
	}
	prog.done("Send complete")
	return nil
}

// writeEML renders and assembles the message, then writes it as RFC 5322
// text without contacting the relay.
func (c *CLI) writeEML(cmd *cobra.Command, compositor *ticket.Compositor, req ticket.Request, msg mailer.Message, path string) error {
	img, err := compositor.Compose(cmd.Context(), req)
	if err != nil {
		return err
	}
	if msg.Ticket, err = ticket.EncodePNG(img); err != nil {
		return err
	}
	m, cid, err := mailer.Assemble(cmd.Context(), msg, c.Logger)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "cannot create %s", path)
	}
	defer f.Close()
	if _, err := m.WriteTo(f); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "cannot write %s", path)
	}

	printSuccess("Wrote message for %d recipient(s)", len(msg.To))
	printInfo("Dry run, nothing was sent")
	printFile(path)
	printDetail("Content-ID: <%s>", cid)
	return nil
}
