package cli

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/ticketblaster/pkg/errors"
	"github.com/matzehuels/ticketblaster/pkg/observability"
)

// newLogger creates a new logger with timestamp formatting.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// redirectLog points the logger at path, or discards output when path is
// empty. The shell uses it so log lines never land on the TUI.
func redirectLog(l *log.Logger, path string) (closeFn func(), err error) {
	if path == "" {
		l.SetOutput(io.Discard)
		return func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfig, err, "cannot open log file %s", path)
	}
	l.SetOutput(f)
	return func() { _ = f.Close() }, nil
}

// progress tracks the start time of an operation and logs completion with elapsed duration.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time, e.g. "Rendered ticket (412ms)".
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

// =============================================================================
// Observability Hooks
// =============================================================================

// logHooks reports compose and mail events at debug level.
type logHooks struct {
	logger *log.Logger
}

// registerLogHooks installs logHooks as the global observability hooks.
func registerLogHooks(l *log.Logger) {
	h := logHooks{logger: l}
	observability.SetComposeHooks(h)
	observability.SetMailHooks(h)
}

func (h logHooks) OnComposeStart(_ context.Context, background string) {
	h.logger.Debug("compose started", "background", background)
}

func (h logHooks) OnComposeComplete(_ context.Context, background string, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("compose failed", "background", background, "err", err)
		return
	}
	h.logger.Debug("compose complete", "background", background, "took", d.Round(time.Millisecond))
}

func (h logHooks) OnAssemble(_ context.Context, recipients, attachments int) {
	h.logger.Debug("message assembled", "recipients", recipients, "attachments", attachments)
}

func (h logHooks) OnSendStart(_ context.Context, host string, recipients int) {
	h.logger.Debug("smtp send started", "host", host, "recipients", recipients)
}

func (h logHooks) OnSendComplete(_ context.Context, host string, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("smtp send failed", "host", host, "err", err)
		return
	}
	h.logger.Debug("smtp send complete", "host", host, "took", d.Round(time.Millisecond))
}
