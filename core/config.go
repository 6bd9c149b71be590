package core

import "time"

// Config is the construction-time configuration for a Service.
type Config struct {
	// Domain is the bare host (optionally host:port) messages must be bound to, e.g. "app.example".
	Domain string
	// URI is the full origin messages must reference, e.g. "https://app.example".
	URI string
	// Chains maps supported chain ids to JSON-RPC URLs. The URL is used only
	// to verify contract-wallet signatures; EOA signatures verify offline on any chain.
	Chains map[uint64]string

	// NonceExpiresIn defaults to 5 minutes.
	NonceExpiresIn time.Duration
	// Anonymous allows sign-in without an email. Defaults to true when nil.
	Anonymous *bool
	// EmailDomainName is the domain of placeholder emails ("<address>@<domain>").
	// Defaults to the host part of Domain.
	EmailDomainName string
	// NonceCleanupProbability is the chance that issuing a nonce also sweeps
	// expired ones in the background. 0 uses the default (0.25); negative disables.
	NonceCleanupProbability float64
	// RPCTimeout bounds each chain RPC call. 0 leaves the request context in charge.
	RPCTimeout time.Duration
}

const (
	defaultNonceExpiresIn          = 5 * time.Minute
	defaultNonceCleanupProbability = 0.25
	fallbackEmailDomain            = "wallet.local"
)

// Options is the validated form of Config.
type Options struct {
	Domain                  string
	URI                     string
	Chains                  map[uint64]string
	NonceExpiresIn          time.Duration
	Anonymous               bool
	EmailDomainName         string
	NonceCleanupProbability float64
	RPCTimeout              time.Duration
}
