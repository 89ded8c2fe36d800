package cli

import (
	"bufio"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/ticketblaster/pkg/config"
	"github.com/matzehuels/ticketblaster/pkg/errors"
)

// credentialsCommand creates the credentials management command.
func (c *CLI) credentialsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage the SMTP password in the OS keyring",
	}

	var sender string
	cmd.PersistentFlags().StringVar(&sender, "sender", "", "account to manage (default smtp.sender)")

	cmd.AddCommand(c.credentialsSetCommand(&sender))
	cmd.AddCommand(c.credentialsDeleteCommand(&sender))
	cmd.AddCommand(c.credentialsStatusCommand(&sender))

	return cmd
}

// account returns the --sender flag or the configured sender.
func (c *CLI) account(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	cfg, err := c.loadConfig()
	if err != nil {
		return "", err
	}
	if cfg.SMTP.Sender == "" {
		return "", errors.New(errors.ErrCodeCredentials, "no sender address: pass --sender or set smtp.sender")
	}
	return cfg.SMTP.Sender, nil
}

// credentialsSetCommand creates the "credentials set" subcommand.
func (c *CLI) credentialsSetCommand(sender *string) *cobra.Command {
	var fromStdin bool

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store the SMTP password for the sender",
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := c.account(*sender)
			if err != nil {
				return err
			}

			var password string
			if fromStdin {
				password, err = readLine(cmd.InOrStdin())
			} else {
				password, err = promptPassword(cmd, account)
			}
			if err != nil {
				return err
			}
			if password == "" {
				return errors.New(errors.ErrCodeCredentials, "empty password, nothing stored")
			}

			if err := c.store.Set(account, password); err != nil {
				return err
			}
			printSuccess("Stored password for %s", account)
			return nil
		},
	}

	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "read the password from standard input")
	return cmd
}

// credentialsDeleteCommand creates the "credentials delete" subcommand.
func (c *CLI) credentialsDeleteCommand(sender *string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Remove the stored SMTP password",
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := c.account(*sender)
			if err != nil {
				return err
			}
			if err := c.store.Delete(account); err != nil {
				return err
			}
			printSuccess("Removed password for %s", account)
			return nil
		},
	}
}

// credentialsStatusCommand creates the "credentials status" subcommand.
func (c *CLI) credentialsStatusCommand(sender *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show where the SMTP password would come from",
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := c.account(*sender)
			if err != nil {
				return err
			}
			printKeyValue("account", account)
			_, source, err := config.ResolvePassword(account, c.store)
			if err != nil {
				printWarning("no password found")
				printNextStep("Store one", appName+" credentials set")
				return nil
			}
			printKeyValue("source", string(source))
			return nil
		},
	}
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", errors.Wrap(errors.ErrCodeCredentials, err, "cannot read password")
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// =============================================================================
// Password Prompt
// =============================================================================

// passwordPrompt is a one-field bubbletea model with a masked input.
type passwordPrompt struct {
	account   string
	input     textinput.Model
	submitted bool
}

func newPasswordPrompt(account string) passwordPrompt {
	in := textinput.New()
	in.Prompt = "> "
	in.EchoMode = textinput.EchoPassword
	in.Placeholder = "app password"
	in.Focus()
	return passwordPrompt{account: account, input: in}
}

func (m passwordPrompt) Init() tea.Cmd {
	return textinput.Blink
}

func (m passwordPrompt) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			m.submitted = true
			return m, tea.Quit
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m passwordPrompt) View() string {
	if m.submitted {
		return ""
	}
	return StyleTitle.Render("SMTP password for "+m.account) + "\n" +
		m.input.View() + "\n" +
		StyleDim.Render("enter: save  esc: cancel") + "\n"
}

func promptPassword(cmd *cobra.Command, account string) (string, error) {
	p := tea.NewProgram(newPasswordPrompt(account),
		tea.WithContext(cmd.Context()),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.ErrOrStderr()),
	)
	final, err := p.Run()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeCredentials, err, "password prompt failed")
	}
	m := final.(passwordPrompt)
	if !m.submitted {
		return "", errors.New(errors.ErrCodeCredentials, "cancelled")
	}
	return m.input.Value(), nil
}
