package core

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/PaulFidika/walletauth/siwe"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/PaulFidika/walletauth/core"

// Service implements wallet sign-in: nonce issuance, message verification,
// identity resolution, and wallet linking. Persistence and session issuance
// are injected with the With* builders.
type Service struct {
	opts   Options
	expect siwe.Expectation
	store  RecordStore
	nonces NonceStore
	// separateNonces is set by WithNonceStore; WithStore then leaves nonces alone.
	separateNonces bool
	sessions       SessionIssuer
	chains         siwe.ChainResolver
	verifier       *siwe.Verifier
	names          NameLookupFunc
	logger         *zap.Logger
	authlog        AuthEventLogger
	metrics        *Metrics
	tracer         trace.Tracer
	now            func() time.Time
	chance         func() float64
}

// NewFromConfig validates cfg and returns a Service. It fails fast on a
// missing or malformed Domain, URI, or Chains.
func NewFromConfig(cfg Config) (*Service, error) {
	domain := strings.TrimSpace(cfg.Domain)
	if domain == "" {
		return nil, fmt.Errorf("walletauth: Domain is required (e.g., \"app.example\")")
	}
	if strings.Contains(domain, "://") {
		return nil, fmt.Errorf("walletauth: Domain must not include a scheme (got %q, want e.g. \"app.example\")", domain)
	}
	uri := strings.TrimRight(strings.TrimSpace(cfg.URI), "/")
	if uri == "" {
		return nil, fmt.Errorf("walletauth: URI is required (e.g., \"https://app.example\")")
	}
	if !strings.HasPrefix(uri, "http://") && !strings.HasPrefix(uri, "https://") {
		return nil, fmt.Errorf("walletauth: URI must start with http:// or https:// (got %q)", uri)
	}
	expect, err := siwe.NewExpectation(domain, uri)
	if err != nil {
		return nil, fmt.Errorf("walletauth: %w", err)
	}
	if len(cfg.Chains) == 0 {
		return nil, fmt.Errorf("walletauth: Chains is required (e.g., map[uint64]string{1: \"https://eth.llamarpc.com\"})")
	}
	chains := make(map[uint64]string, len(cfg.Chains))
	for id, rpcURL := range cfg.Chains {
		if err := siwe.ValidateChainID(id); err != nil {
			return nil, fmt.Errorf("walletauth: chain id %d out of range 1..%d", id, siwe.MaxChainID)
		}
		rpcURL = strings.TrimSpace(rpcURL)
		if rpcURL == "" {
			return nil, fmt.Errorf("walletauth: RPC URL for chain %d is empty", id)
		}
		chains[id] = rpcURL
	}

	ttl := cfg.NonceExpiresIn
	if ttl < 0 {
		return nil, fmt.Errorf("walletauth: NonceExpiresIn must be positive")
	}
	if ttl == 0 {
		ttl = defaultNonceExpiresIn
	}
	anonymous := true
	if cfg.Anonymous != nil {
		anonymous = *cfg.Anonymous
	}
	emailDomain := strings.TrimSpace(cfg.EmailDomainName)
	if emailDomain == "" {
		emailDomain = expect.Host()
	}
	if emailDomain == "" {
		emailDomain = fallbackEmailDomain
	}
	p := cfg.NonceCleanupProbability
	switch {
	case p == 0:
		p = defaultNonceCleanupProbability
	case p < 0:
		p = 0
	case p > 1:
		p = 1
	}

	opts := Options{
		Domain:                  domain,
		URI:                     uri,
		Chains:                  chains,
		NonceExpiresIn:          ttl,
		Anonymous:               anonymous,
		EmailDomainName:         strings.ToLower(emailDomain),
		NonceCleanupProbability: p,
		RPCTimeout:              cfg.RPCTimeout,
	}
	logger := zap.NewNop()
	resolver := siwe.NewEthChains(chains, cfg.RPCTimeout)
	return &Service{
		opts:     opts,
		expect:   expect,
		chains:   resolver,
		verifier: siwe.NewVerifier(resolver, logger),
		logger:   logger,
		tracer:   otel.Tracer(tracerName),
		now:      func() time.Time { return time.Now().UTC() },
		chance:   rand.Float64,
	}, nil
}

func (s *Service) Options() Options { return s.opts }

// WithStore sets the record store. It also backs nonces unless WithNonceStore
// was called, so replacing the record store moves nonces with it.
func (s *Service) WithStore(store RecordStore) *Service {
	s.store = store
	if !s.separateNonces {
		s.nonces = store
	}
	return s
}

// WithNonceStore keeps nonces in a separate store (e.g. Redis).
func (s *Service) WithNonceStore(store NonceStore) *Service {
	s.nonces = store
	s.separateNonces = store != nil
	return s
}

func (s *Service) WithSessionIssuer(si SessionIssuer) *Service { s.sessions = si; return s }

// WithChainResolver replaces the default JSON-RPC resolver built from Config.Chains.
func (s *Service) WithChainResolver(r siwe.ChainResolver) *Service {
	s.chains = r
	s.verifier = siwe.NewVerifier(r, s.logger)
	return s
}

// WithNameLookup sets the name/avatar lookup used when creating users.
func (s *Service) WithNameLookup(fn NameLookupFunc) *Service { s.names = fn; return s }

func (s *Service) WithLogger(l *zap.Logger) *Service {
	if l == nil {
		l = zap.NewNop()
	}
	s.logger = l
	s.verifier = siwe.NewVerifier(s.chains, l)
	return s
}

func (s *Service) WithAuthLogger(l AuthEventLogger) *Service { s.authlog = l; return s }

func (s *Service) WithMetrics(m *Metrics) *Service { s.metrics = m; return s }

func (s *Service) WithTracer(t trace.Tracer) *Service {
	if t != nil {
		s.tracer = t
	}
	return s
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *Service) Logger() *zap.Logger { return s.logger }

// Close releases chain RPC clients.
func (s *Service) Close() {
	if c, ok := s.chains.(interface{ Close() }); ok {
		c.Close()
	}
}

func (s *Service) ready() error {
	if s.store == nil || s.nonces == nil {
		return ErrInternal.wrap(fmt.Errorf("record store not configured"))
	}
	return nil
}

func (s *Service) placeholderEmail(address string) string {
	return strings.ToLower(address) + "@" + s.opts.EmailDomainName
}

func newID() string { return uuid.NewString() }

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) detached() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}
