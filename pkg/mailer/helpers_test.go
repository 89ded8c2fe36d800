package mailer

import (
	"bufio"
	"bytes"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"net/textproto"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

// part is a decoded leaf of a MIME tree.
type part struct {
	header    textproto.MIMEHeader
	mediaType string
	params    map[string]string
	body      []byte
}

// parseMessage serializes m and returns its headers and leaf parts in order.
func parseMessage(t *testing.T, m *gomail.Message) (mail.Header, []part) {
	t.Helper()
	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	require.NoError(t, err)

	msg, err := mail.ReadMessage(&buf)
	require.NoError(t, err)
	return msg.Header, collectParts(t, textproto.MIMEHeader(msg.Header), msg.Body)
}

func collectParts(t *testing.T, h textproto.MIMEHeader, body io.Reader) []part {
	t.Helper()
	mediaType, params, err := mime.ParseMediaType(h.Get("Content-Type"))
	require.NoError(t, err)

	if strings.HasPrefix(mediaType, "multipart/") {
		var out []part
		mr := multipart.NewReader(body, params["boundary"])
		for {
			p, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			require.NoError(t, err)
			out = append(out, collectParts(t, p.Header, p)...)
		}
		return out
	}

	var r io.Reader = body
	switch strings.ToLower(h.Get("Content-Transfer-Encoding")) {
	case "base64":
		r = base64.NewDecoder(base64.StdEncoding, body)
	case "quoted-printable":
		r = quotedprintable.NewReader(body)
	}
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	return []part{{header: h, mediaType: mediaType, params: params, body: data}}
}

func findPart(parts []part, mediaType string) (part, bool) {
	for _, p := range parts {
		if p.mediaType == mediaType {
			return p, true
		}
	}
	return part{}, false
}

// smtpSession is what the fake server saw during one delivery.
type smtpSession struct {
	From string
	To   []string
	Data string
}

// startTestSMTPServer starts a minimal plaintext SMTP server on a random
// port that accepts one message. It advertises neither STARTTLS nor AUTH.
func startTestSMTPServer(t *testing.T) (host string, port int, sessions <-chan smtpSession, stop func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	return serveSMTP(ln)
}

// startTLSSMTPServer is startTestSMTPServer behind implicit TLS, using the
// self-signed certificate of an httptest server.
func startTLSSMTPServer(t *testing.T) (host string, port int, sessions <-chan smtpSession, stop func()) {
	t.Helper()
	hs := httptest.NewTLSServer(http.NotFoundHandler())
	cert := hs.TLS.Certificates[0]
	hs.Close()

	ln, err := tls.Listen("tcp", "127.0.0.1:0", &tls.Config{Certificates: []tls.Certificate{cert}})
	require.NoError(t, err)
	return serveSMTP(ln)
}

func serveSMTP(ln net.Listener) (host string, port int, sessions <-chan smtpSession, stop func()) {
	out := make(chan smtpSession, 1)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		var s smtpSession
		r := bufio.NewReader(conn)
		fmt.Fprintf(conn, "220 localhost Test SMTP Service Ready\r\n")
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			line = strings.TrimSpace(line)
			upper := strings.ToUpper(line)
			switch {
			case strings.HasPrefix(upper, "EHLO"), strings.HasPrefix(upper, "HELO"):
				fmt.Fprintf(conn, "250-localhost Hello\r\n250 OK\r\n")
			case strings.HasPrefix(upper, "MAIL FROM:"):
				s.From = addrArg(line)
				fmt.Fprintf(conn, "250 OK\r\n")
			case strings.HasPrefix(upper, "RCPT TO:"):
				s.To = append(s.To, addrArg(line))
				fmt.Fprintf(conn, "250 OK\r\n")
			case strings.HasPrefix(upper, "DATA"):
				fmt.Fprintf(conn, "354 End data with <CR><LF>.<CR><LF>\r\n")
				var data strings.Builder
				for {
					dline, derr := r.ReadString('\n')
					if derr != nil {
						return
					}
					if strings.TrimRight(dline, "\r\n") == "." {
						break
					}
					data.WriteString(dline)
				}
				s.Data = data.String()
				fmt.Fprintf(conn, "250 OK: queued as 12345\r\n")
				out <- s
			case strings.HasPrefix(upper, "QUIT"):
				fmt.Fprintf(conn, "221 Bye\r\n")
				return
			default:
				fmt.Fprintf(conn, "250 OK\r\n")
			}
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return "127.0.0.1", addr.Port, out, func() {
		ln.Close()
		wg.Wait()
	}
}

// startSilentServer accepts connections and never answers.
func startSilentServer(t *testing.T) (host string, port int, stop func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var mu sync.Mutex
	var conns []net.Conn
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()
		}
	}()

	return "127.0.0.1", ln.Addr().(*net.TCPAddr).Port, func() {
		ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			c.Close()
		}
	}
}

// closedPort returns a port nothing listens on.
func closedPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return port
}

func addrArg(line string) string {
	i := strings.Index(line, "<")
	j := strings.LastIndex(line, ">")
	if i < 0 || j <= i {
		return ""
	}
	return line[i+1 : j]
}
