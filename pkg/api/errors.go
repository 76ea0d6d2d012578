package api

import (
	"fmt"
	"net/url"
)

// ErrorKind classifies why a Client call failed.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindValidation
	KindTransport
	KindParse
	KindDecode
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindTransport:
		return "transport"
	case KindParse:
		return "parse"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// RequestError is returned by every Client method. The cause is available
// through errors.As / errors.Is.
type RequestError struct {
	Endpoint string
	Kind     ErrorKind
	Err      error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s: %s error: %v", e.Endpoint, e.Kind, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// ValidationError reports a request that violates its declared constraints.
// It is raised before anything is sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// TransportError is returned by a Transport for non-2xx responses and I/O
// failures.
type TransportError struct {
	URL        string
	StatusCode int
	Status     string
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("%s: the API call was unsuccessful (%s)", e.URL, e.Status)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ParseError reports free text the decoder could not interpret.
type ParseError struct {
	Text    string
	Context string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("could not parse %s: %q", e.Context, e.Text)
}

// redactURL drops the API key from a URL before it ends up in an error.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	if q.Has(paramAPIKey) {
		q.Set(paramAPIKey, "xxxxx")
		u.RawQuery = q.Encode()
	}
	return u.Redacted()
}
