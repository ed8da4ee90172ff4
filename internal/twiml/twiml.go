// Package twiml renders the single-message reply document the carrier webhook
// expects.
package twiml

import (
	"bytes"
	"encoding/xml"
	"net/http"
)

const (
	ContentType = "text/xml"

	header = `<?xml version="1.0" encoding="UTF-8"?>`
)

// Reply renders one message as a complete TwiML document.
func Reply(text string) string {
	var buf bytes.Buffer
	buf.WriteString(header)
	buf.WriteString("<Response><Message>")
	_ = xml.EscapeText(&buf, []byte(text))
	buf.WriteString("</Message></Response>")
	return buf.String()
}

// Write emits a reply document on the response writer with the carrier's
// expected content type.
func Write(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(Reply(text)))
}
