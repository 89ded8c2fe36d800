package cli

import (
	"context"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/ticketblaster/pkg/config"
	"github.com/matzehuels/ticketblaster/pkg/errors"
	"github.com/matzehuels/ticketblaster/pkg/mailer"
	"github.com/matzehuels/ticketblaster/pkg/ticket"
)

// previewDelay is how long the shell waits after the last edit before
// re-rendering the preview.
const previewDelay = 500 * time.Millisecond

// Form fields, in focus order.
const (
	fieldSender = iota
	fieldPassword
	fieldTo
	fieldSubject
	fieldBody
	fieldAttachments
	fieldBackground
	fieldPayload
	fieldName
	fieldQRX
	fieldQRY
	fieldQRSize
	fieldNameX
	fieldNameY
	fieldFontSize
	fieldCount
)

// Edits to fields from fieldBackground on change the composite.
const firstPreviewField = fieldBackground

var fieldLabels = [fieldCount]string{
	"Sender", "Password", "To", "Subject", "Body", "Attach",
	"Background", "Payload", "Name",
	"QR x", "QR y", "QR size", "Name x", "Name y", "Font size",
}

// formWidth is the width of the label plus input column.
const formWidth = 46

// =============================================================================
// Messages
// =============================================================================

// previewTickMsg fires when the debounce delay for edit seq has elapsed.
type previewTickMsg struct{ seq int }

// previewMsg carries a finished composite for edit seq. png is the encoded
// composite when the preview server runs.
type previewMsg struct {
	seq int
	img image.Image
	png []byte
	err error
}

// sendResultMsg reports the outcome of a dispatched send.
type sendResultMsg struct{ result mailer.Result }

// =============================================================================
// Model
// =============================================================================

// shellModel is the bubbletea model of the interactive shell.
type shellModel struct {
	s      *session
	inputs []textinput.Model
	focus  int
	delay  time.Duration

	// seq identifies the latest edit; ticks and renders for older edits are
	// dropped.
	seq int

	composite image.Image // full resolution, kept for resizes
	preview   string      // composite scaled to the current pane

	width, height int

	status        string
	statusIsError bool
	previewFailed bool
	sending       bool
}

func newShellModel(s *session, password string) shellModel {
	cfg := s.cfg
	layout := cfg.Layout.Fields()
	values := [fieldCount]string{
		fieldSender:     cfg.SMTP.Sender,
		fieldPassword:   password,
		fieldSubject:    cfg.Mail.Subject,
		fieldBody:       cfg.Mail.Body,
		fieldBackground: cfg.Ticket.Background,
		fieldPayload:    cfg.Ticket.Payload,
		fieldName:       cfg.Ticket.Name,
		fieldQRX:        layout.QRX,
		fieldQRY:        layout.QRY,
		fieldQRSize:     layout.QRSize,
		fieldNameX:      layout.NameX,
		fieldNameY:      layout.NameY,
		fieldFontSize:   layout.FontSize,
	}

	inputs := make([]textinput.Model, fieldCount)
	for i := range inputs {
		in := textinput.New()
		in.Prompt = ""
		in.Width = formWidth - 14
		in.SetValue(values[i])
		inputs[i] = in
	}
	inputs[fieldPassword].EchoMode = textinput.EchoPassword
	inputs[fieldTo].Placeholder = "a@example.com, b@example.com"
	inputs[fieldAttachments].Placeholder = "comma-separated paths"
	inputs[fieldBody].Placeholder = `use \n for line breaks`

	m := shellModel{s: s, inputs: inputs, delay: previewDelay}
	m.focusField(fieldTo)
	if password == "" {
		m.setStatus("No SMTP password found; type it into the Password field", false)
	}
	return m
}

func (m shellModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.renderNow())
}

func (m shellModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.rescale()
		return m, nil

	case previewTickMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		return m, m.renderNow()

	case previewMsg:
		m.applyPreview(msg)
		return m, nil

	case sendResultMsg:
		m.sending = false
		if err := msg.result.Err; err != nil {
			m.setStatus("Send failed: "+errors.UserMessage(err), true)
		} else {
			m.setStatus(fmt.Sprintf("Ticket sent (%s)", msg.result.Duration.Round(time.Millisecond)), false)
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "ctrl+s":
			return m, m.send()
		case "ctrl+r":
			m.seq++
			return m, m.renderNow()
		case "tab", "down", "enter":
			m.focusField((m.focus + 1) % fieldCount)
			return m, nil
		case "shift+tab", "up":
			m.focusField((m.focus + fieldCount - 1) % fieldCount)
			return m, nil
		}
		return m, m.updateFocused(msg)
	}

	return m, m.updateFocused(msg)
}

// updateFocused forwards msg to the focused input and schedules a preview
// when a ticket field changed.
func (m *shellModel) updateFocused(msg tea.Msg) tea.Cmd {
	before := m.inputs[m.focus].Value()
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	if m.focus >= firstPreviewField && m.inputs[m.focus].Value() != before {
		return tea.Batch(cmd, m.schedulePreview())
	}
	return cmd
}

func (m *shellModel) focusField(i int) {
	m.inputs[m.focus].Blur()
	m.focus = i
	m.inputs[m.focus].Focus()
}

// schedulePreview starts a new debounce window. Any tick from an earlier
// window no longer matches seq and is ignored.
func (m *shellModel) schedulePreview() tea.Cmd {
	m.seq++
	seq := m.seq
	return tea.Tick(m.delay, func(time.Time) tea.Msg {
		return previewTickMsg{seq: seq}
	})
}

// renderNow composes the ticket for the current seq. Incomplete or
// non-numeric layout fields skip the render without a message.
func (m *shellModel) renderNow() tea.Cmd {
	layout, err := ticket.ParseLayout(m.layoutFields())
	if err != nil {
		m.s.logger.Debug("preview skipped", "reason", errors.UserMessage(err))
		return nil
	}
	req := layout.Request(m.value(fieldBackground), m.value(fieldPayload), m.value(fieldName))
	seq, s := m.seq, m.s
	return func() tea.Msg {
		img, err := s.compositor.Compose(s.ctx, req)
		if err != nil {
			return previewMsg{seq: seq, err: err}
		}
		msg := previewMsg{seq: seq, img: img}
		if s.holder != nil {
			if msg.png, err = ticket.EncodePNG(img); err != nil {
				s.logger.Warn("preview encoding failed", "err", err)
			}
		}
		return msg
	}
}

func (m *shellModel) applyPreview(msg previewMsg) {
	if msg.seq != m.seq {
		return
	}
	if msg.err != nil {
		if errors.Is(msg.err, errors.ErrCodeInvalidNumber) {
			return
		}
		m.previewFailed = true
		m.setStatus(errors.UserMessage(msg.err), true)
		return
	}

	m.composite = msg.img
	m.rescale()
	if m.previewFailed {
		m.previewFailed = false
		m.setStatus("", false)
	}
	if m.s.holder != nil && msg.png != nil {
		m.s.holder.Set(msg.png)
	}
}

// rescale fits the cached composite to the preview pane.
func (m *shellModel) rescale() {
	cols, rows := m.paneSize()
	m.preview = halfBlocks(m.composite, cols, rows)
}

// paneSize is the preview area inside the pane border.
func (m *shellModel) paneSize() (cols, rows int) {
	return m.width - formWidth - 4, m.height - 4
}

// send validates the form and hands the job to the dispatcher.
func (m *shellModel) send() tea.Cmd {
	if m.sending {
		m.setStatus(errors.UserMessage(errBusy), true)
		return nil
	}

	job, err := m.buildSend()
	if err != nil {
		m.setStatus(errors.UserMessage(err), true)
		return nil
	}

	results := m.s.results
	_, err = m.s.dispatcher.Submit(job, func(r mailer.Result) { results <- r })
	if err != nil {
		m.setStatus(errors.UserMessage(err), true)
		return nil
	}

	m.sending = true
	m.setStatus("Sending...", false)
	return waitForResult(results)
}

var errBusy = errors.New(errors.ErrCodeBusy, "a send is already in progress")

// buildSend turns the form into a dispatchable job.
func (m *shellModel) buildSend() (func(context.Context) error, error) {
	layout, err := ticket.ParseLayout(m.layoutFields())
	if err != nil {
		return nil, err
	}
	recipients, err := errors.ParseRecipients(m.value(fieldTo))
	if err != nil {
		return nil, err
	}
	sender := strings.TrimSpace(m.value(fieldSender))
	if err := errors.ValidateAddress(sender); err != nil {
		return nil, err
	}
	password := m.inputs[fieldPassword].Value()
	if password == "" {
		return nil, errors.New(errors.ErrCodeCredentials, "password is empty")
	}

	s := m.s
	req := layout.Request(m.value(fieldBackground), m.value(fieldPayload), m.value(fieldName))
	msg := mailer.Message{
		From:        sender,
		To:          recipients,
		Subject:     m.inputs[fieldSubject].Value(),
		Body:        expandNewlines(m.inputs[fieldBody].Value()),
		Attachments: splitList(m.value(fieldAttachments)),
	}
	transport := s.newTransport(s.cfg.SMTP, config.Credentials{Username: sender, Password: password}, s.logger)

	return func(ctx context.Context) error {
		return mailer.SendTicket(ctx, s.compositor, transport, req, msg, s.logger)
	}, nil
}

func waitForResult(results <-chan mailer.Result) tea.Cmd {
	return func() tea.Msg {
		return sendResultMsg{result: <-results}
	}
}

func (m *shellModel) value(field int) string {
	return strings.TrimSpace(m.inputs[field].Value())
}

func (m *shellModel) layoutFields() ticket.LayoutFields {
	return ticket.LayoutFields{
		QRX:      m.inputs[fieldQRX].Value(),
		QRY:      m.inputs[fieldQRY].Value(),
		QRSize:   m.inputs[fieldQRSize].Value(),
		NameX:    m.inputs[fieldNameX].Value(),
		NameY:    m.inputs[fieldNameY].Value(),
		FontSize: m.inputs[fieldFontSize].Value(),
	}
}

func (m *shellModel) setStatus(s string, isError bool) {
	m.status = s
	m.statusIsError = isError
}

// =============================================================================
// View
// =============================================================================

func (m shellModel) View() string {
	var form strings.Builder
	form.WriteString(StyleTitle.Render(appName))
	for i := range m.inputs {
		switch i {
		case fieldSender:
			form.WriteString("\n" + styleSection.Render("Mail") + "\n")
		case fieldBackground:
			form.WriteString("\n" + styleSection.Render("Ticket") + "\n")
		case fieldQRX:
			form.WriteString("\n" + styleSection.Render("Layout") + "\n")
		}
		label := styleLabel
		if i == m.focus {
			label = styleLabelFocused
		}
		form.WriteString(label.Render(fieldLabels[i]) + " " + m.inputs[i].View() + "\n")
	}

	left := lipgloss.NewStyle().Width(formWidth).Render(form.String())
	body := left
	if cols, rows := m.paneSize(); cols > 0 && rows > 0 {
		pane := m.preview
		if pane == "" {
			pane = StyleDim.Render("no preview")
		}
		body = lipgloss.JoinHorizontal(lipgloss.Top, left,
			stylePane.Width(cols).Height(rows).Render(pane))
	}

	status := StyleDim.Render("ready")
	switch {
	case m.status != "" && m.statusIsError:
		status = StyleError.Render(iconError + " " + m.status)
	case m.status != "":
		status = StyleValue.Render(m.status)
	}
	if m.s.holder != nil && m.s.serverURL != "" {
		status += "  " + StyleLink.Render(m.s.serverURL)
	}

	help := StyleDim.Render("tab/↑/↓ move  ctrl+s send  ctrl+r re-render  esc quit")
	return body + "\n" + status + "\n" + help
}
