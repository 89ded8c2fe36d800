package cli

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/ticketblaster/pkg/cache"
	"github.com/matzehuels/ticketblaster/pkg/config"
	"github.com/matzehuels/ticketblaster/pkg/errors"
	"github.com/matzehuels/ticketblaster/pkg/mailer"
	"github.com/matzehuels/ticketblaster/pkg/ticket"
)

// previewCacheSize bounds the decoded backgrounds and QR codes the shell
// keeps between renders.
const previewCacheSize = 6

// session is the state shared by the shell model and its background work.
type session struct {
	ctx        context.Context
	cfg        config.Config
	compositor *ticket.Compositor
	dispatcher *mailer.Dispatcher
	results    chan mailer.Result
	logger     *log.Logger

	newTransport func(config.SMTP, config.Credentials, *log.Logger) mailer.Transport

	holder    *previewHolder // nil unless the preview server runs
	serverURL string
}

// shellOpts holds the shell command flags.
type shellOpts struct {
	serve   string
	logFile string
}

// shellCommand creates the interactive shell command.
func (c *CLI) shellCommand() *cobra.Command {
	var opts shellOpts

	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Edit, preview and send a ticket interactively",
		Long: `Shell opens a form with the mail and ticket fields next to a live preview.
The preview re-renders shortly after each edit; ctrl+s sends the ticket.

Logs are discarded while the shell runs unless --log-file is given.`,
		Example: `  ticketblaster shell
  ticketblaster shell --serve 127.0.0.1:8088 --log-file shell.log`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runShell(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.serve, "serve", "", "also serve the preview over HTTP on this address")
	cmd.Flags().StringVar(&opts.logFile, "log-file", "", "write logs to this file")

	return cmd
}

func (c *CLI) runShell(ctx context.Context, opts shellOpts) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	closeLog, err := redirectLog(c.Logger, opts.logFile)
	if err != nil {
		return err
	}
	defer func() {
		closeLog()
		c.Logger.SetOutput(c.logOut)
	}()

	s := c.newSession(ctx, cfg)
	defer s.dispatcher.Close()

	if opts.serve != "" {
		s.holder = &previewHolder{}
		srv, err := startPreviewServer(opts.serve, s.holder, c.Logger)
		if err != nil {
			return err
		}
		defer srv.Stop()
		s.serverURL = srv.URL()
	}

	password, source, err := config.ResolvePassword(cfg.SMTP.Sender, c.store)
	if err != nil {
		c.Logger.Debug("no stored password", "err", err)
	} else {
		c.Logger.Debug("credentials resolved", "source", source)
	}

	p := tea.NewProgram(newShellModel(s, password), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.Wrap(errors.ErrCodeInternal, err, "shell failed")
	}
	return nil
}

// newSession wires the compositor and the send dispatcher for cfg.
func (c *CLI) newSession(ctx context.Context, cfg config.Config) *session {
	return &session{
		ctx:          ctx,
		cfg:          cfg,
		compositor:   c.newCompositor(cfg, ticket.WithCache(cache.NewMemory(previewCacheSize))),
		dispatcher:   mailer.NewDispatcher(ctx, c.Logger),
		results:      make(chan mailer.Result, 1),
		logger:       c.Logger,
		newTransport: c.newTransport,
	}
}
