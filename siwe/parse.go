package siwe

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	siwego "github.com/spruceid/siwe-go"
)

// Parse reads a signed sign-in message. It first applies the strict EIP-4361
// grammar and, if that fails, extracts each field independently. The fallback
// exists for wallets that emit a non-compliant subset (commonly without
// Version or Issued At). Domain, address, URI, nonce and chain id are always
// required.
func Parse(raw string) (*Message, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrMalformedMessage
	}
	if m, err := parseStrict(raw); err == nil {
		return m, nil
	}
	return parseLenient(raw)
}

func parseStrict(raw string) (*Message, error) {
	sm, err := siwego.ParseMessage(raw)
	if err != nil {
		return nil, err
	}
	chainID := sm.GetChainID()
	if chainID <= 0 {
		return nil, ErrMalformedMessage
	}
	uri := sm.GetURI()
	version := fmt.Sprint(sm.GetVersion())
	issuedAt := sm.GetIssuedAt()

	m := &Message{
		Domain:         sm.GetDomain(),
		Address:        sm.GetAddress().Hex(),
		Statement:      nonEmpty(sm.GetStatement()),
		URI:            uri.String(),
		Version:        &version,
		ChainID:        uint64(chainID),
		Nonce:          sm.GetNonce(),
		IssuedAt:       &issuedAt,
		ExpirationTime: sm.GetExpirationTime(),
		NotBefore:      sm.GetNotBefore(),
		RequestID:      sm.GetRequestID(),
	}
	for _, r := range sm.GetResources() {
		m.Resources = append(m.Resources, r.String())
	}
	return m, nil
}

var (
	reDomain    = regexp.MustCompile(`^(?:https?://)?(\S+) wants you to sign in`)
	reAddress   = regexp.MustCompile(`account:\n(0x[a-fA-F0-9]{40})`)
	reStatement = regexp.MustCompile(`0x[a-fA-F0-9]{40}\n\n([\s\S]+?)\n\nURI:`)
	reURI       = regexp.MustCompile(`(?m)^URI: ([^\n]+)`)
	reVersion   = regexp.MustCompile(`(?m)^Version: (\d+)`)
	reChainID   = regexp.MustCompile(`(?m)^Chain ID: (\d+)`)
	reNonce     = regexp.MustCompile(`(?m)^Nonce: ([a-zA-Z0-9]+)`)
	reIssuedAt  = regexp.MustCompile(`(?m)^Issued At: ([^\n]+)`)
	reExpires   = regexp.MustCompile(`(?m)^Expiration Time: ([^\n]+)`)
	reNotBefore = regexp.MustCompile(`(?m)^Not Before: ([^\n]+)`)
	reRequestID = regexp.MustCompile(`(?m)^Request ID: ([^\n]*)`)
)

func parseLenient(raw string) (*Message, error) {
	text := strings.ReplaceAll(raw, "\r\n", "\n")

	domain := match(reDomain, text)
	address := match(reAddress, text)
	uri := strings.TrimSpace(match(reURI, text))
	nonce := match(reNonce, text)
	chain := match(reChainID, text)
	if domain == "" || address == "" || uri == "" || nonce == "" || chain == "" {
		return nil, ErrMalformedMessage
	}
	chainID, err := strconv.ParseUint(chain, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: chain id: %v", ErrMalformedMessage, err)
	}

	m := &Message{
		Domain:         domain,
		Address:        address,
		URI:            uri,
		ChainID:        chainID,
		Nonce:          nonce,
		Version:        optMatch(reVersion, text),
		IssuedAt:       optMatch(reIssuedAt, text),
		ExpirationTime: optMatch(reExpires, text),
		NotBefore:      optMatch(reNotBefore, text),
	}
	if sm := reStatement.FindStringSubmatch(text); sm != nil {
		if st := strings.TrimSpace(sm[1]); st != "" {
			m.Statement = &st
		}
	}
	// Request ID may legitimately be present but empty; validation rejects that.
	if sm := reRequestID.FindStringSubmatch(text); sm != nil {
		id := strings.TrimSpace(sm[1])
		m.RequestID = &id
	}
	m.Resources = parseResources(text)
	return m, nil
}

func parseResources(text string) []string {
	_, after, found := strings.Cut(text, "\nResources:")
	if !found {
		return nil
	}
	var out []string
	for _, line := range strings.Split(after, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "- ") {
			break
		}
		out = append(out, strings.TrimSpace(strings.TrimPrefix(line, "- ")))
	}
	return out
}

func match(re *regexp.Regexp, s string) string {
	sm := re.FindStringSubmatch(s)
	if sm == nil {
		return ""
	}
	return sm[1]
}

func optMatch(re *regexp.Regexp, s string) *string {
	v := strings.TrimSpace(match(re, s))
	if v == "" {
		return nil
	}
	return &v
}

func nonEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}
