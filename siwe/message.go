package siwe

import (
	"strconv"
	"strings"
)

const headerSuffix = " wants you to sign in with your Ethereum account:"

// Message is the structured form of a signed sign-in message.
// Optional fields are nil when the message omits them.
type Message struct {
	Domain         string   `json:"domain"`
	Address        string   `json:"address"`
	Statement      *string  `json:"statement,omitempty"`
	URI            string   `json:"uri"`
	Version        *string  `json:"version,omitempty"`
	ChainID        uint64   `json:"chainId"`
	Nonce          string   `json:"nonce"`
	IssuedAt       *string  `json:"issuedAt,omitempty"`
	ExpirationTime *string  `json:"expirationTime,omitempty"`
	NotBefore      *string  `json:"notBefore,omitempty"`
	RequestID      *string  `json:"requestId,omitempty"`
	Resources      []string `json:"resources,omitempty"`
}

// Format renders m as EIP-4361 text. Optional lines are emitted only when set,
// so Format can also produce the reduced messages some wallets send.
func Format(m Message) string {
	var b strings.Builder
	b.WriteString(m.Domain)
	b.WriteString(headerSuffix)
	b.WriteString("\n")
	b.WriteString(m.Address)
	b.WriteString("\n\n")
	if m.Statement != nil && *m.Statement != "" {
		b.WriteString(*m.Statement)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString("URI: " + m.URI + "\n")
	if m.Version != nil {
		b.WriteString("Version: " + *m.Version + "\n")
	}
	b.WriteString("Chain ID: " + strconv.FormatUint(m.ChainID, 10) + "\n")
	b.WriteString("Nonce: " + m.Nonce)
	if m.IssuedAt != nil {
		b.WriteString("\nIssued At: " + *m.IssuedAt)
	}
	if m.ExpirationTime != nil {
		b.WriteString("\nExpiration Time: " + *m.ExpirationTime)
	}
	if m.NotBefore != nil {
		b.WriteString("\nNot Before: " + *m.NotBefore)
	}
	if m.RequestID != nil {
		b.WriteString("\nRequest ID: " + *m.RequestID)
	}
	if len(m.Resources) > 0 {
		b.WriteString("\nResources:")
		for _, r := range m.Resources {
			b.WriteString("\n- " + r)
		}
	}
	return b.String()
}
