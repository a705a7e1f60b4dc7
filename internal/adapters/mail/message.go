package mail

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"mime"
	"strings"
	"time"

	"github.com/google/uuid"

	"invoicedesk/internal/domain"
)

// newMessageID builds an RFC 5322 Message-ID scoped to the sender's domain.
func newMessageID(from string) string {
	host := "localhost"
	if i := strings.LastIndex(from, "@"); i >= 0 && i < len(from)-1 {
		host = from[i+1:]
	}
	return fmt.Sprintf("<%s@%s>", uuid.NewString(), host)
}

func randomBoundary(prefix string) string {
	var b [12]byte
	if _, err := rand.Read(b[:]); err != nil {
		return prefix + "-" + uuid.NewString()
	}
	return prefix + "-" + hex.EncodeToString(b[:])
}

// buildMIME renders the message as a wire-ready MIME document: plain text
// when there are no attachments, multipart/mixed with base64 parts otherwise.
func buildMIME(msg *domain.Message, messageID string) []byte {
	var buf bytes.Buffer
	boundary := randomBoundary("mixed")

	from := msg.From
	if msg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", msg.FromName), msg.From)
	}
	writeHeader(&buf, "Date", time.Now().Format(time.RFC1123Z))
	writeHeader(&buf, "From", from)
	writeHeader(&buf, "To", msg.To)
	if len(msg.CC) > 0 {
		writeHeader(&buf, "Cc", strings.Join(msg.CC, ", "))
	}
	writeHeader(&buf, "Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	writeHeader(&buf, "Message-ID", messageID)
	writeHeader(&buf, "MIME-Version", "1.0")

	if len(msg.Attachments) == 0 {
		writeHeader(&buf, "Content-Type", `text/plain; charset="utf-8"`)
		buf.WriteString("\r\n")
		buf.WriteString(msg.Body)
		buf.WriteString("\r\n")
		return buf.Bytes()
	}

	writeHeader(&buf, "Content-Type", fmt.Sprintf("multipart/mixed; boundary=%q", boundary))
	buf.WriteString("\r\n")

	fmt.Fprintf(&buf, "--%s\r\n", boundary)
	buf.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	buf.WriteString(msg.Body)
	buf.WriteString("\r\n")

	for _, att := range msg.Attachments {
		fmt.Fprintf(&buf, "--%s\r\n", boundary)
		fmt.Fprintf(&buf, "Content-Type: %s; name=%q\r\n", att.ContentType, att.Filename)
		fmt.Fprintf(&buf, "Content-Disposition: attachment; filename=%q\r\n", att.Filename)
		buf.WriteString("Content-Transfer-Encoding: base64\r\n\r\n")
		writeBase64(&buf, att.Content)
	}
	fmt.Fprintf(&buf, "--%s--\r\n", boundary)
	return buf.Bytes()
}

func writeHeader(buf *bytes.Buffer, key, value string) {
	fmt.Fprintf(buf, "%s: %s\r\n", key, value)
}

// writeBase64 encodes content in 76-character lines per RFC 2045.
func writeBase64(buf *bytes.Buffer, content []byte) {
	encoded := base64.StdEncoding.EncodeToString(content)
	for i := 0; i < len(encoded); i += 76 {
		end := i + 76
		if end > len(encoded) {
			end = len(encoded)
		}
		buf.WriteString(encoded[i:end])
		buf.WriteString("\r\n")
	}
}
