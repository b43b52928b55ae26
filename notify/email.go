package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"mime"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Email sends events as multipart mail: the markdown body as text/plain
// and its goldmark rendering as text/html.
type Email struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string

	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
	md   goldmark.Markdown
}

func NewEmail(host string, port int, username, password, from string, to []string) *Email {
	return &Email{
		Host:     host,
		Port:     port,
		Username: username,
		Password: password,
		From:     from,
		To:       to,
		send:     smtp.SendMail,
		md:       goldmark.New(goldmark.WithExtensions(extension.Table, extension.Strikethrough)),
	}
}

func (m *Email) Notify(ctx context.Context, e Event) error {
	if len(m.To) == 0 {
		return errors.New("email: no recipients")
	}
	msg, err := m.message(e)
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if m.Username != "" {
		auth = smtp.PlainAuth("", m.Username, m.Password, m.Host)
	}
	addr := net.JoinHostPort(m.Host, strconv.Itoa(m.Port))

	// net/smtp has no context support; run it aside and stop waiting on ctx
	done := make(chan error, 1)
	go func() { done <- m.send(addr, auth, m.From, m.To, msg) }()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("email to %s: %w", strings.Join(m.To, ","), err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Email) message(e Event) ([]byte, error) {
	var rendered bytes.Buffer
	if err := m.md.Convert([]byte(e.Body), &rendered); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}

	at := e.Time
	if at.IsZero() {
		at = time.Now()
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", m.From)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(m.To, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", e.Title))
	fmt.Fprintf(&msg, "Date: %s\r\n", at.Format(time.RFC1123Z))
	msg.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", mw.Boundary())

	parts := []struct {
		ctype string
		data  []byte
	}{
		{"text/plain; charset=utf-8", []byte(e.Body)},
		{"text/html; charset=utf-8", wrapHTML(e.Title, rendered.Bytes())},
	}
	for _, p := range parts {
		w, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {p.ctype},
			"Content-Transfer-Encoding": {"8bit"},
		})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(p.data); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	msg.Write(body.Bytes())
	return msg.Bytes(), nil
}

func wrapHTML(title string, body []byte) []byte {
	var b bytes.Buffer
	b.WriteString("<!DOCTYPE html><html><head><meta charset=\"utf-8\"><title>")
	b.WriteString(html.EscapeString(title))
	b.WriteString("</title></head><body style=\"font-family:sans-serif\">\n")
	b.Write(body)
	b.WriteString("</body></html>\n")
	return b.Bytes()
}
