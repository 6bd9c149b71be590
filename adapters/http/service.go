package authhttp

import (
	"net/http"
	"time"

	"github.com/PaulFidika/walletauth/core"
	jwtkit "github.com/PaulFidika/walletauth/jwt"
	memorystore "github.com/PaulFidika/walletauth/storage/memory"
	pgstore "github.com/PaulFidika/walletauth/storage/postgres"
	redisstore "github.com/PaulFidika/walletauth/storage/redis"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CookieConfig controls the session cookie set by the verify route.
type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

// DefaultCookie is used unless WithCookie overrides it.
func DefaultCookie() CookieConfig {
	return CookieConfig{Name: "walletauth_session", Path: "/", Secure: true, SameSite: http.SameSiteLaxMode}
}

// Service wraps core.Service with net/http mounting helpers.
type Service struct {
	svc      *core.Service
	sessions *jwtkit.Issuer
	logger   *zap.Logger
	metrics  *HTTPMetrics
	clientIP ClientIPFunc
	cookie   CookieConfig
}

// NewService constructs a core.Service and wraps it for net/http mounting.
// Sessions are issued by issuer. Records default to an in-memory store for
// dev/single-instance use.
func NewService(cfg core.Config, issuer *jwtkit.Issuer) (*Service, error) {
	coreSvc, err := core.NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	coreSvc = coreSvc.WithStore(memorystore.New())
	if issuer != nil {
		coreSvc = coreSvc.WithSessionIssuer(issuer)
	}
	return &Service{
		svc:      coreSvc,
		sessions: issuer,
		logger:   zap.NewNop(),
		clientIP: DefaultClientIP(),
		cookie:   DefaultCookie(),
	}, nil
}

// WithPostgres stores users, wallets, accounts and nonces in Postgres.
func (s *Service) WithPostgres(pg *pgxpool.Pool) *Service {
	s.svc = s.svc.WithStore(pgstore.New(pg))
	return s
}

// WithRedis moves nonces to Redis. Later WithPostgres/WithStore calls keep them there.
func (s *Service) WithRedis(rd *redis.Client) *Service {
	if rd != nil {
		s.svc = s.svc.WithNonceStore(redisstore.NewNonceStore(rd))
	}
	return s
}

// WithStore replaces the record store. Nonces follow it unless WithRedis was used.
func (s *Service) WithStore(store core.RecordStore) *Service {
	s.svc = s.svc.WithStore(store)
	return s
}

func (s *Service) WithLogger(l *zap.Logger) *Service {
	if l == nil {
		l = zap.NewNop()
	}
	s.logger = l
	s.svc = s.svc.WithLogger(l)
	return s
}

// WithMetrics registers HTTP and verification metrics on reg.
func (s *Service) WithMetrics(reg prometheus.Registerer) *Service {
	s.metrics = NewHTTPMetrics(reg)
	s.svc = s.svc.WithMetrics(core.NewMetrics(reg))
	return s
}

func (s *Service) WithClientIPFunc(fn ClientIPFunc) *Service {
	if fn == nil {
		s.clientIP = DefaultClientIP()
		return s
	}
	s.clientIP = fn
	return s
}

func (s *Service) WithCookie(c CookieConfig) *Service {
	if c.Name == "" {
		c.Name = DefaultCookie().Name
	}
	if c.Path == "" {
		c.Path = "/"
	}
	s.cookie = c
	return s
}

func (s *Service) WithAuthLogger(l core.AuthEventLogger) *Service {
	s.svc = s.svc.WithAuthLogger(l)
	return s
}

func (s *Service) WithNameLookup(fn core.NameLookupFunc) *Service {
	s.svc = s.svc.WithNameLookup(fn)
	return s
}

func (s *Service) Core() *core.Service { return s.svc }

func (s *Service) setSessionCookie(w http.ResponseWriter, sess core.Session) {
	maxAge := int(time.Until(sess.ExpiresAt).Seconds())
	if maxAge <= 0 {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookie.Name,
		Value:    sess.Token,
		Path:     s.cookie.Path,
		Domain:   s.cookie.Domain,
		Expires:  sess.ExpiresAt,
		MaxAge:   maxAge,
		Secure:   s.cookie.Secure,
		HttpOnly: true,
		SameSite: s.cookie.SameSite,
	})
}
