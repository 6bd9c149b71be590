package siwe

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

// Security check names reported by SecurityViolation.Check.
const (
	CheckDomain         = "domain"
	CheckURI            = "uri"
	CheckVersion        = "version"
	CheckExpirationTime = "expiration_time"
	CheckNotBefore      = "not_before"
	CheckIssuedAt       = "issued_at"
	CheckRequestID      = "request_id"
)

// IssuedAtSkew is how far in the future Issued At may be.
const IssuedAtSkew = 5 * time.Minute

// MaxRequestIDLength bounds the Request ID field, in characters.
const MaxRequestIDLength = 256

// SecurityViolation reports which check a message failed. Callers should log
// Check but never echo it to clients.
type SecurityViolation struct {
	Check  string
	Detail string
}

func (v *SecurityViolation) Error() string {
	if v.Detail == "" {
		return "security check failed: " + v.Check
	}
	return "security check failed: " + v.Check + ": " + v.Detail
}

func violation(check, format string, args ...any) *SecurityViolation {
	return &SecurityViolation{Check: check, Detail: fmt.Sprintf(format, args...)}
}

// Expectation is the server identity a message must be bound to.
type Expectation struct {
	host   string
	port   string
	origin string
}

// NewExpectation builds an Expectation from a bare domain (host or host:port)
// and a full URI with http or https scheme.
func NewExpectation(domain, uri string) (Expectation, error) {
	domain = strings.TrimSpace(domain)
	if domain == "" || strings.Contains(domain, "://") {
		return Expectation{}, fmt.Errorf("domain must be a bare host, got %q", domain)
	}
	host, port, err := splitDomain(domain)
	if err != nil || host == "" {
		return Expectation{}, fmt.Errorf("invalid domain %q", domain)
	}
	uri = strings.TrimSpace(uri)
	if !strings.HasPrefix(uri, "http://") && !strings.HasPrefix(uri, "https://") {
		return Expectation{}, fmt.Errorf("uri must start with http:// or https://, got %q", uri)
	}
	origin, err := Origin(uri)
	if err != nil {
		return Expectation{}, err
	}
	return Expectation{host: host, port: port, origin: origin}, nil
}

// Host returns the configured hostname.
func (e Expectation) Host() string { return e.host }

// Origin returns the configured origin.
func (e Expectation) Origin() string { return e.origin }

// Validate checks msg against the expected server identity and the current time.
// The first failing check is returned as a *SecurityViolation.
func Validate(msg *Message, expect Expectation, now time.Time) error {
	if msg == nil {
		return violation(CheckDomain, "empty message")
	}

	// A message without a port matches on hostname alone. Some producers drop
	// the port, so this is kept for compatibility.
	host, port, err := splitDomain(strings.TrimSpace(msg.Domain))
	if err != nil || !strings.EqualFold(host, expect.host) {
		return violation(CheckDomain, "got %q", msg.Domain)
	}
	if port != "" && port != expect.port {
		return violation(CheckDomain, "port %q", port)
	}

	origin, err := Origin(msg.URI)
	if err != nil || origin != expect.origin {
		return violation(CheckURI, "got %q", msg.URI)
	}

	if msg.Version != nil && *msg.Version != "1" {
		return violation(CheckVersion, "got %q", *msg.Version)
	}

	if msg.ExpirationTime != nil {
		t, err := parseTime(*msg.ExpirationTime)
		if err != nil {
			return violation(CheckExpirationTime, "unparseable")
		}
		if !t.After(now) {
			return violation(CheckExpirationTime, "expired at %s", t.Format(time.RFC3339))
		}
	}

	if msg.NotBefore != nil {
		t, err := parseTime(*msg.NotBefore)
		if err != nil {
			return violation(CheckNotBefore, "unparseable")
		}
		if t.After(now) {
			return violation(CheckNotBefore, "not valid until %s", t.Format(time.RFC3339))
		}
	}

	if msg.IssuedAt != nil {
		t, err := parseTime(*msg.IssuedAt)
		if err != nil {
			return violation(CheckIssuedAt, "unparseable")
		}
		if t.After(now.Add(IssuedAtSkew)) {
			return violation(CheckIssuedAt, "issued in the future")
		}
	}

	if msg.RequestID != nil {
		n := utf8.RuneCountInString(*msg.RequestID)
		if n == 0 || n > MaxRequestIDLength {
			return violation(CheckRequestID, "length %d", n)
		}
	}
	return nil
}

// Origin returns scheme://host[:port] for raw, lowercased, with default ports dropped.
func Origin(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("invalid uri: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	if scheme == "" || host == "" {
		return "", fmt.Errorf("invalid uri %q", raw)
	}
	port := u.Port()
	if (scheme == "https" && port == "443") || (scheme == "http" && port == "80") {
		port = ""
	}
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port != "" {
		return scheme + "://" + host + ":" + port, nil
	}
	return scheme + "://" + host, nil
}

func splitDomain(domain string) (host, port string, err error) {
	if i := strings.Index(domain, "://"); i >= 0 {
		domain = domain[i+3:]
	}
	u, err := url.Parse("//" + domain)
	if err != nil {
		return "", "", err
	}
	if u.Path != "" || u.User != nil {
		return "", "", fmt.Errorf("unexpected domain %q", domain)
	}
	return strings.ToLower(u.Hostname()), u.Port(), nil
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
}
