package mail

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"invoicedesk/internal/domain"
)

func TestNewMessageID(t *testing.T) {
	id := newMessageID("billing@me.test")
	assert.Regexp(t, `^<[0-9a-f-]+@me\.test>$`, id)

	assert.Regexp(t, `@localhost>$`, newMessageID("not-an-address"))
	assert.NotEqual(t, newMessageID("a@b.c"), newMessageID("a@b.c"))
}

func TestBuildMIMEPlainText(t *testing.T) {
	msg := &domain.Message{
		From:    "billing@me.test",
		To:      "ap@acme.test",
		Subject: "Invoice 2025-007",
		Body:    "Dear Acme",
	}
	out := string(buildMIME(msg, "<id-1@me.test>"))

	assert.Contains(t, out, "From: billing@me.test\r\n")
	assert.Contains(t, out, `Content-Type: text/plain; charset="utf-8"`)
	assert.NotContains(t, out, "multipart/mixed")
	assert.NotContains(t, out, "Cc:")
	assert.True(t, strings.HasSuffix(out, "Dear Acme\r\n"))
}

func TestBuildMIMEEncodesDisplayNames(t *testing.T) {
	msg := &domain.Message{
		From:     "billing@me.test",
		FromName: "Fälligkeit GmbH",
		To:       "ap@acme.test",
		Subject:  "Rechnung März",
		Body:     "x",
	}
	out := string(buildMIME(msg, "<id-1@me.test>"))

	// Non-ASCII header words must be RFC 2047 encoded.
	assert.Contains(t, out, "=?utf-8?q?")
	assert.NotContains(t, out, "Subject: Rechnung März")
	assert.Contains(t, out, "<billing@me.test>")
}

func TestWriteBase64LineLength(t *testing.T) {
	msg := &domain.Message{
		From: "a@b.c", To: "d@e.f", Subject: "s", Body: "b",
		Attachments: []domain.Attachment{
			{Filename: "big.pdf", Content: make([]byte, 1000), ContentType: "application/pdf"},
		},
	}
	out := string(buildMIME(msg, "<id@b.c>"))
	for _, line := range strings.Split(out, "\r\n") {
		assert.LessOrEqual(t, len(line), 78, "line exceeds SMTP limit: %q", line)
	}
}
