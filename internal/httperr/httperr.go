// Package httperr summarizes non-2xx responses from the upstream APIs.
package httperr

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/cyverse/ckan-migrator/internal/redact"
)

// Error is a sanitized summary of a non-2xx API response.
//
// Raw response bodies never appear here; only a redacted, truncated snippet.
type Error struct {
	Service    string
	Op         string
	StatusCode int
	Status     string
	Snippet    string
}

func (e *Error) Error() string {
	if e == nil {
		return "http error"
	}
	msg := fmt.Sprintf("%s api error: op=%s status=%s", e.Service, strings.TrimSpace(e.Op), strings.TrimSpace(e.Status))
	if e.Snippet != "" {
		msg += " body=" + e.Snippet
	}
	return msg
}

// New builds an Error from a response and its already-read body.
func New(service, op string, resp *http.Response, body []byte) *Error {
	e := &Error{Service: service, Op: op}
	if resp != nil {
		e.StatusCode = resp.StatusCode
		e.Status = resp.Status
	}
	e.Snippet = redactAndTruncate(body)
	return e
}

func redactAndTruncate(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	const max = 256
	b := body
	if len(b) > max {
		b = b[:max]
	}
	s := redact.Secrets(string(b))
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if len(body) > max {
		return s + "..."
	}
	return s
}
