// Package ticket composites an event ticket from a background image, a QR code
// and a recipient name.
//
// # Overview
//
// A [Request] names a background raster, the QR payload, the recipient name
// and where each element goes. [Compositor.Compose] produces an *image.RGBA:
//
//	c := ticket.NewCompositor(ticket.WithFonts(fonts.NewResolver(nil)))
//	img, err := c.Compose(ctx, req)
//	png, err := ticket.EncodePNG(img)
//
// # Layout
//
// Layout values are usually typed by a person, so [ParseLayout] accepts six
// free-text fields. A blank field yields [ErrIncompleteLayout] (the live
// preview treats that as "still typing"); anything else that is not an
// integer yields an INVALID_NUMBER error naming the field.
//
// Offsets and sizes are not range checked. Values outside the canvas clip
// the QR code or the name; they never panic.
//
// # Caching
//
// [WithCache] keeps the decoded background and the paste-ready QR code
// between renders. Keys cover the background's path, size and modification
// time and the QR payload, size and paste mode, so cached output is
// identical to uncached output.
//
// # Determinism
//
// Composition has no hidden inputs: the same request and font resolver
// always produce pixel-identical output.
package ticket
