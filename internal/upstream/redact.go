package upstream

import (
	"net/url"
	"strings"
)

// minSecretLen is the shortest credential value worth scrubbing; shorter
// values match too much ordinary text.
const minSecretLen = 4

// Redactor replaces known credential values with [REDACTED:NAME]
// placeholders. Both raw and URL-encoded forms are replaced.
type Redactor struct {
	replacements map[string]string // credential value -> placeholder
}

// NewRedactor builds a Redactor from name -> value pairs. Empty and very
// short values are skipped.
func NewRedactor(secrets map[string]string) *Redactor {
	r := &Redactor{replacements: make(map[string]string)}
	for name, value := range secrets {
		r.Add(name, value)
	}
	return r
}

// Add registers one more credential.
func (r *Redactor) Add(name, value string) {
	if len(value) < minSecretLen {
		return
	}
	r.replacements[value] = "[REDACTED:" + name + "]"
	if encoded := url.QueryEscape(value); encoded != value {
		r.replacements[encoded] = "[REDACTED:" + name + ":urlencoded]"
	}
}

// Redact returns s with every registered credential replaced.
func (r *Redactor) Redact(s string) string {
	if r == nil || len(r.replacements) == 0 {
		return s
	}
	for value, placeholder := range r.replacements {
		s = strings.ReplaceAll(s, value, placeholder)
	}
	return s
}

// RedactError returns err with a scrubbed message, or err itself when
// nothing needed replacing. err stays reachable through Unwrap.
func (r *Redactor) RedactError(err error) error {
	if err == nil {
		return nil
	}
	msg := r.Redact(err.Error())
	if msg == err.Error() {
		return err
	}
	return &redactedError{msg: msg, err: err}
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }

func (e *redactedError) Unwrap() error { return e.err }
