package webhook

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// Inbound is one carrier-delivered message. MediaURLs always has exactly
// NumMedia entries, including any the carrier left blank, so the batch
// completion count matches what the message declared.
type Inbound struct {
	From      string
	Body      string
	MediaURLs []string
}

// ParseInbound reads the carrier's webhook fields from either the query string
// (GET) or the form body (POST).
func ParseInbound(r *http.Request) (Inbound, error) {
	if err := r.ParseForm(); err != nil {
		return Inbound{}, fmt.Errorf("parse form: %w", err)
	}

	from := strings.TrimSpace(r.FormValue("From"))
	if from == "" {
		return Inbound{}, fmt.Errorf("missing From")
	}

	numMedia := 0
	if raw := strings.TrimSpace(r.FormValue("NumMedia")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err == nil && n > 0 {
			numMedia = n
		}
	}

	var urls []string
	if numMedia > 0 {
		urls = make([]string, numMedia)
		for i := 0; i < numMedia; i++ {
			urls[i] = strings.TrimSpace(r.FormValue(fmt.Sprintf("MediaUrl%d", i)))
		}
	}

	return Inbound{
		From:      from,
		Body:      r.FormValue("Body"),
		MediaURLs: urls,
	}, nil
}
