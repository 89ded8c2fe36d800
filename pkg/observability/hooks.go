// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers register hooks at startup to
// receive events about ticket composition and mail delivery.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetComposeHooks(&myComposeHooks{})
//	    observability.SetMailHooks(&myMailHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Compose().OnComposeStart(ctx, background)
//	// ... composite ...
//	observability.Compose().OnComposeComplete(ctx, background, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Compose Hooks
// =============================================================================

// ComposeHooks receives events from the ticket compositor.
type ComposeHooks interface {
	OnComposeStart(ctx context.Context, background string)
	OnComposeComplete(ctx context.Context, background string, duration time.Duration, err error)
}

// =============================================================================
// Mail Hooks
// =============================================================================

// MailHooks receives events from message assembly and delivery.
type MailHooks interface {
	// OnAssemble records a fully assembled message and its attachment count.
	OnAssemble(ctx context.Context, recipients, attachments int)

	// OnSendStart records the start of an SMTP session.
	OnSendStart(ctx context.Context, host string, recipients int)

	// OnSendComplete records the outcome of an SMTP session.
	OnSendComplete(ctx context.Context, host string, duration time.Duration, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopComposeHooks is a no-op implementation of ComposeHooks.
type NoopComposeHooks struct{}

func (NoopComposeHooks) OnComposeStart(context.Context, string)                          {}
func (NoopComposeHooks) OnComposeComplete(context.Context, string, time.Duration, error) {}

// NoopMailHooks is a no-op implementation of MailHooks.
type NoopMailHooks struct{}

func (NoopMailHooks) OnAssemble(context.Context, int, int)                         {}
func (NoopMailHooks) OnSendStart(context.Context, string, int)                     {}
func (NoopMailHooks) OnSendComplete(context.Context, string, time.Duration, error) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	composeHooks ComposeHooks = NoopComposeHooks{}
	mailHooks    MailHooks    = NoopMailHooks{}
	hooksMu      sync.RWMutex
)

// SetComposeHooks registers custom compose hooks.
// This should be called once at application startup before any composition.
func SetComposeHooks(h ComposeHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		composeHooks = h
	}
}

// SetMailHooks registers custom mail hooks.
func SetMailHooks(h MailHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		mailHooks = h
	}
}

// Compose returns the registered compose hooks.
func Compose() ComposeHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return composeHooks
}

// Mail returns the registered mail hooks.
func Mail() MailHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return mailHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	composeHooks = NoopComposeHooks{}
	mailHooks = NoopMailHooks{}
}
