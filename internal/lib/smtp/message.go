package smtp

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"mime"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/magabrotheeeer/audit-coordinator/internal/models"
)

// BuildMessage собирает MIME-письмо: текст или HTML и необязательное вложение в base64.
func BuildMessage(from string, msg models.MailMessage) ([]byte, error) {
	const op = "smtp.BuildMessage"
	var buf bytes.Buffer

	header := func(k, v string) { fmt.Fprintf(&buf, "%s: %s\r\n", k, v) }
	header("From", from)
	header("To", msg.To)
	header("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	header("MIME-Version", "1.0")

	bodyType, body := "text/plain", msg.Text
	if msg.HTML != "" {
		bodyType, body = "text/html", msg.HTML
	}

	if msg.Attachment == nil {
		header("Content-Type", bodyType+"; charset=\"UTF-8\"")
		buf.WriteString("\r\n")
		buf.WriteString(body)
		return buf.Bytes(), nil
	}

	if _, err := base64.StdEncoding.DecodeString(msg.Attachment.Base64); err != nil {
		return nil, fmt.Errorf("%s: invalid attachment: %w", op, err)
	}

	mw := multipart.NewWriter(&buf)
	header("Content-Type", "multipart/mixed; boundary="+mw.Boundary())
	buf.WriteString("\r\n")

	part, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {bodyType + "; charset=\"UTF-8\""}})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if _, err = part.Write([]byte(body)); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	contentType := msg.Attachment.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	part, err = mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {contentType},
		"Content-Transfer-Encoding": {"base64"},
		"Content-Disposition":       {mime.FormatMediaType("attachment", map[string]string{"filename": msg.Attachment.Filename})},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if _, err = part.Write([]byte(wrap(msg.Attachment.Base64, 76))); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = mw.Close(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return buf.Bytes(), nil
}

func wrap(s string, width int) string {
	var b strings.Builder
	for len(s) > width {
		b.WriteString(s[:width])
		b.WriteString("\r\n")
		s = s[width:]
	}
	b.WriteString(s)
	return b.String()
}
