package mailer

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"
)

// buildMessage renders env as an RFC 5322 message with a
// multipart/alternative body (text first, HTML second).
func buildMessage(env Envelope, now time.Time) ([]byte, error) {
	from, err := mail.ParseAddress(env.From)
	if err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	to, err := mail.ParseAddress(env.To)
	if err != nil {
		return nil, fmt.Errorf("invalid to address: %w", err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	domain := "localhost"
	if _, d, ok := strings.Cut(from.Address, "@"); ok {
		domain = d
	}

	var head bytes.Buffer
	writeHeader(&head, "From", from.String())
	writeHeader(&head, "To", to.String())
	if env.ReplyTo != "" {
		writeHeader(&head, "Reply-To", (&mail.Address{Address: sanitizeHeader(env.ReplyTo)}).String())
	}
	writeHeader(&head, "Subject", mime.QEncoding.Encode("utf-8", sanitizeHeader(env.Subject)))
	writeHeader(&head, "Date", now.Format(time.RFC1123Z))
	writeHeader(&head, "Message-ID", fmt.Sprintf("<%s@%s>", uuid.NewString(), domain))
	writeHeader(&head, "MIME-Version", "1.0")
	writeHeader(&head, "Content-Type", fmt.Sprintf("multipart/alternative; boundary=%q", mw.Boundary()))
	head.WriteString("\r\n")

	if err := writePart(mw, "text/plain; charset=utf-8", env.TextBody); err != nil {
		return nil, err
	}
	if err := writePart(mw, "text/html; charset=utf-8", env.HTMLBody); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	return append(head.Bytes(), buf.Bytes()...), nil
}

func writeHeader(buf *bytes.Buffer, key, value string) {
	fmt.Fprintf(buf, "%s: %s\r\n", key, value)
}

func writePart(mw *multipart.Writer, contentType, body string) error {
	part, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {contentType},
		"Content-Transfer-Encoding": {"quoted-printable"},
	})
	if err != nil {
		return err
	}

	qp := quotedprintable.NewWriter(part)
	if _, err := io.WriteString(qp, toCRLF(body)); err != nil {
		return err
	}
	return qp.Close()
}

func toCRLF(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\n", "\r\n")
}

// envelopeAddress extracts the bare address used in MAIL FROM / RCPT TO.
func envelopeAddress(addr string) (string, error) {
	parsed, err := mail.ParseAddress(addr)
	if err != nil {
		return "", err
	}
	return parsed.Address, nil
}
