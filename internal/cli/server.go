package cli

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/ticketblaster/pkg/errors"
)

const previewPage = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>ticketblaster preview</title>
<style>body{margin:0;background:#222;text-align:center}img{max-width:100%%;max-height:100vh}</style>
</head>
<body>
<img id="ticket" src="/preview.png" alt="Ticket preview">
<script>
setInterval(function () {
  document.getElementById("ticket").src = "/preview.png?t=" + Date.now();
}, %d);
</script>
</body>
</html>
`

// newPreviewRouter serves the latest composite held by h.
func newPreviewRouter(h *previewHolder, refresh time.Duration) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, previewPage, refresh.Milliseconds())
	})

	r.Get("/preview.png", func(w http.ResponseWriter, r *http.Request) {
		data, updated, ok := h.Get()
		if !ok {
			http.Error(w, "no preview rendered yet", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		http.ServeContent(w, r, "preview.png", updated, bytes.NewReader(data))
	})

	return r
}

// previewServer is a running preview HTTP server.
type previewServer struct {
	addr string
	srv  *http.Server
}

// startPreviewServer listens on addr and serves h until Stop.
func startPreviewServer(addr string, h *previewHolder, logger *log.Logger) (*previewServer, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfig, err, "cannot listen on %s", addr)
	}
	srv := &http.Server{
		Handler:           newPreviewRouter(h, time.Second),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Error("preview server stopped", "err", err)
		}
	}()
	logger.Info("preview server listening", "addr", ln.Addr().String())
	return &previewServer{addr: ln.Addr().String(), srv: srv}, nil
}

// URL returns the page address.
func (p *previewServer) URL() string {
	return "http://" + p.addr + "/"
}

// Stop shuts the server down, waiting briefly for in-flight requests.
func (p *previewServer) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = p.srv.Shutdown(ctx)
}
