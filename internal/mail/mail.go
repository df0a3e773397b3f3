// Package mail renders and delivers outbound email: welcome messages and
// meeting invitations with an iCalendar attachment.
package mail

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/textproto"
	netmail "net/mail"
	"strings"
	"time"
)

// ErrInvalidAddress is returned for recipients that do not parse as an address.
var ErrInvalidAddress = errors.New("invalid email address")

// Sender delivers a rendered message over some transport.
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// Attachment is a file carried by a message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is a single-recipient email.
type Message struct {
	FromName    string
	FromEmail   string
	To          string
	Subject     string
	HTML        string
	Attachments []Attachment
}

// ParseAddress validates a bare address and returns it trimmed. Display
// names are rejected so the stored value is always the address itself.
func ParseAddress(s string) (string, error) {
	s = strings.TrimSpace(s)
	addr, err := netmail.ParseAddress(s)
	if err != nil || addr.Name != "" || addr.Address != s {
		return "", ErrInvalidAddress
	}
	return addr.Address, nil
}

// From renders the From header value.
func (m *Message) From() string {
	return (&netmail.Address{Name: m.FromName, Address: m.FromEmail}).String()
}

// Bytes renders the message as RFC 5322 text with a MIME body. Messages
// without attachments are a single text/html part.
func (m *Message) Bytes(now time.Time) ([]byte, error) {
	var buf bytes.Buffer

	writeHeader(&buf, "From", m.From())
	writeHeader(&buf, "To", m.To)
	writeHeader(&buf, "Subject", mime.QEncoding.Encode("utf-8", m.Subject))
	writeHeader(&buf, "Date", now.Format(time.RFC1123Z))
	writeHeader(&buf, "MIME-Version", "1.0")

	if len(m.Attachments) == 0 {
		writeHeader(&buf, "Content-Type", `text/html; charset="UTF-8"`)
		writeHeader(&buf, "Content-Transfer-Encoding", "base64")
		buf.WriteString("\r\n")
		writeBase64(&buf, []byte(m.HTML))
		return buf.Bytes(), nil
	}

	mw := multipart.NewWriter(&buf)
	writeHeader(&buf, "Content-Type", "multipart/mixed; boundary="+mw.Boundary())
	buf.WriteString("\r\n")

	htmlPart, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {`text/html; charset="UTF-8"`},
		"Content-Transfer-Encoding": {"base64"},
	})
	if err != nil {
		return nil, fmt.Errorf("create html part: %w", err)
	}
	writeBase64(htmlPart, []byte(m.HTML))

	for _, a := range m.Attachments {
		part, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {a.ContentType},
			"Content-Transfer-Encoding": {"base64"},
			"Content-Disposition":       {mime.FormatMediaType("attachment", map[string]string{"filename": a.Filename})},
		})
		if err != nil {
			return nil, fmt.Errorf("create attachment part: %w", err)
		}
		writeBase64(part, a.Data)
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}
	return buf.Bytes(), nil
}

func writeHeader(buf *bytes.Buffer, key, value string) {
	buf.WriteString(key)
	buf.WriteString(": ")
	buf.WriteString(value)
	buf.WriteString("\r\n")
}

// writeBase64 wraps encoded output at 76 columns as RFC 2045 requires.
func writeBase64(w interface{ Write([]byte) (int, error) }, data []byte) {
	enc := base64.StdEncoding.EncodeToString(data)
	for len(enc) > 76 {
		_, _ = w.Write([]byte(enc[:76] + "\r\n"))
		enc = enc[76:]
	}
	_, _ = w.Write([]byte(enc + "\r\n"))
}
