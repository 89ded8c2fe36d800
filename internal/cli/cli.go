// Package cli implements the ticketblaster command-line interface.
package cli

import (
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/ticketblaster/pkg/buildinfo"
	"github.com/matzehuels/ticketblaster/pkg/config"
	"github.com/matzehuels/ticketblaster/pkg/fonts"
	"github.com/matzehuels/ticketblaster/pkg/mailer"
	"github.com/matzehuels/ticketblaster/pkg/ticket"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for display and the keyring service.
const appName = config.AppName

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	logOut     io.Writer
	configPath string
	store      config.SecretStore

	// newTransport is swapped in tests.
	newTransport func(config.SMTP, config.Credentials, *log.Logger) mailer.Transport
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		logOut: w,
		store:  config.NewKeyring(),
		newTransport: func(cfg config.SMTP, creds config.Credentials, l *log.Logger) mailer.Transport {
			return mailer.NewSMTPTransport(cfg, creds, l)
		},
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Ticketblaster composes QR event tickets and emails them",
		Long:         `Ticketblaster stamps a QR code and a recipient name onto ticket artwork, previews the result live in the terminal, and sends it as an inline image over SMTP.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	registerLogHooks(c.Logger)
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/ticketblaster/config.toml)")

	root.AddCommand(c.shellCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.sendCommand())
	root.AddCommand(c.verifyCommand())
	root.AddCommand(c.credentialsCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Shared Helpers
// =============================================================================

// loadConfig reads the config selected by --config.
func (c *CLI) loadConfig() (config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return cfg, err
	}
	c.Logger.Debug("config loaded", "path", c.configPath, "smtp", cfg.SMTP.Host)
	return cfg, nil
}

// newCompositor builds a compositor from the font and ticket settings.
func (c *CLI) newCompositor(cfg config.Config, opts ...ticket.Option) *ticket.Compositor {
	resolver := &fonts.Resolver{
		Candidates:      cfg.Fonts.Candidates,
		DisableEmbedded: cfg.Fonts.DisableEmbedded,
	}
	c.Logger.Debug("font resolved", "source", resolver.Source())
	return ticket.NewCompositor(append([]ticket.Option{
		ticket.WithFonts(resolver),
		ticket.WithOpaqueQR(cfg.Ticket.OpaqueQR),
		ticket.WithLogger(c.Logger),
	}, opts...)...)
}
