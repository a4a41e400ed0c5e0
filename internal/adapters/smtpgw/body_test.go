package smtpgw

import (
	"net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseMessage(t *testing.T, raw string) *mail.Message {
	t.Helper()
	msg, err := mail.ReadMessage(strings.NewReader(raw))
	require.NoError(t, err)
	return msg
}

func TestExtractTextFromPlainMessage(t *testing.T) {
	msg := parseMessage(t, "From: a@example.com\r\n"+
		"Subject: hi\r\n"+
		"\r\n"+
		"just a plain body\r\n")

	text, err := extractTextFromMessage(msg)
	require.NoError(t, err)
	assert.Contains(t, text, "just a plain body")
}

func TestExtractTextFromMultipartMessage(t *testing.T) {
	raw := "From: a@example.com\r\n" +
		"Content-Type: multipart/alternative; boundary=xyz\r\n" +
		"\r\n" +
		"--xyz\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"the plain text part\r\n" +
		"--xyz\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<b>the html part</b>\r\n" +
		"--xyz--\r\n"

	text, err := extractTextFromMessage(parseMessage(t, raw))
	require.NoError(t, err)
	assert.Contains(t, text, "the plain text part")
	assert.NotContains(t, text, "html part")
}

func TestExtractTextMultipartWithoutPlainPart(t *testing.T) {
	raw := "From: a@example.com\r\n" +
		"Content-Type: multipart/alternative; boundary=xyz\r\n" +
		"\r\n" +
		"--xyz\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<b>only html here</b>\r\n" +
		"--xyz--\r\n"

	text, err := extractTextFromMessage(parseMessage(t, raw))
	require.NoError(t, err)
	assert.Contains(t, text, "No text content")
}

func TestDecodeEncodedHeader(t *testing.T) {
	decoded, err := decodeEncodedHeader("=?utf-8?q?caf=C3=A9_order?=")
	require.NoError(t, err)
	assert.Equal(t, "café order", decoded)
}

func TestOriginalBodySplitsOnHeaderSeparator(t *testing.T) {
	raw := []byte("From: a@example.com\r\nSubject: hi\r\n\r\nbody text here")
	assert.Equal(t, []byte("body text here"), originalBody(raw))

	rawLF := []byte("From: a@example.com\n\nbody text here")
	assert.Equal(t, []byte("body text here"), originalBody(rawLF))

	assert.Nil(t, originalBody([]byte("no separator at all")))
}
