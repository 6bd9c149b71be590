package authhttp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
	"time"

	"github.com/PaulFidika/walletauth/core"
	jwtkit "github.com/PaulFidika/walletauth/jwt"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func issue(t *testing.T, iss *jwtkit.Issuer) core.Session {
	t.Helper()
	sess, err := iss.IssueSession(context.Background(),
		&core.User{ID: "user-1", Name: "alice", Email: "a@example.com"},
		&core.WalletAddress{Address: "0x0000000000000000000000000000000000000001", ChainID: 8453})
	require.NoError(t, err)
	return sess
}

func claimsEcho(t *testing.T, got *Claims) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cl, err := getClaims(r.Context())
		require.NoError(t, err)
		*got = cl
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequired_Bearer(t *testing.T) {
	iss := newTestIssuer(t)
	sess := issue(t, iss)

	var got Claims
	protected := Required(iss, "sid")(claimsEcho(t, &got))
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "bearer "+sess.Token)
	protected.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, Claims{
		UserID:    "user-1",
		Address:   "0x0000000000000000000000000000000000000001",
		ChainID:   8453,
		SessionID: sess.ID,
	}, got)
}

func TestRequired_Cookie(t *testing.T) {
	iss := newTestIssuer(t)
	sess := issue(t, iss)

	var got Claims
	protected := Required(iss, "sid")(claimsEcho(t, &got))
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: "sid", Value: sess.Token})
	protected.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "user-1", got.UserID)
}

func TestRequired_Rejects(t *testing.T) {
	iss := newTestIssuer(t)
	signer := iss.Signer()

	stale := jwtkit.NewIssuer(signer, "https://app.example", "app", time.Hour).
		WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) })
	otherAud := jwtkit.NewIssuer(signer, "https://app.example", "other", time.Hour)
	otherKey := newTestIssuer(t)

	tests := []struct {
		name  string
		token string
	}{
		{name: "missing", token: ""},
		{name: "garbage", token: "not.a.jwt"},
		{name: "expired", token: issue(t, stale).Token},
		{name: "wrong audience", token: issue(t, otherAud).Token},
		{name: "wrong key", token: issue(t, otherKey).Token},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			protected := Required(iss, "sid")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler must not run")
			}))
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.token != "" {
				r.Header.Set("Authorization", "Bearer "+tt.token)
			}
			protected.ServeHTTP(w, r)
			require.Equal(t, http.StatusUnauthorized, w.Code)
			require.JSONEq(t, `{"error":"unauthorized","message":"unauthorized"}`, w.Body.String())
		})
	}
}

func TestRequired_NilVerifier(t *testing.T) {
	protected := Required(nil, "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer x")
	protected.ServeHTTP(w, r)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestClientIPFromForwardedHeaders(t *testing.T) {
	fn := ClientIPFromForwardedHeaders([]netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")})

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.1.2.3:5555"
	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.1.2.3")
	require.Equal(t, "203.0.113.9", fn(r))

	r.Header.Set("CF-Connecting-IP", "198.51.100.7")
	require.Equal(t, "198.51.100.7", fn(r))

	// Headers from an untrusted peer are ignored.
	r.RemoteAddr = "192.0.2.1:4444"
	require.Equal(t, "192.0.2.1", fn(r))

	require.Equal(t, "192.0.2.1", DefaultClientIP()(r))
}

func TestRequestLogger(t *testing.T) {
	observed, logs := observer.New(zapcore.InfoLevel)
	h := RequestLogger(zap.New(observed))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/fail" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		if r.URL.Path == "/bad" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/ok", nil)
	r.Header.Set(requestIDHeader, "req-1")
	h.ServeHTTP(w, r)
	require.Equal(t, "req-1", w.Header().Get(requestIDHeader))

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bad", nil))
	require.NotEmpty(t, w.Header().Get(requestIDHeader))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fail", nil))

	entries := logs.All()
	require.Len(t, entries, 3)
	require.Equal(t, zapcore.InfoLevel, entries[0].Level)
	require.Equal(t, "req-1", entries[0].ContextMap()["request_id"])
	require.Equal(t, zapcore.WarnLevel, entries[1].Level)
	require.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	require.EqualValues(t, 500, entries[2].ContextMap()["status"])
}

func TestHTTPMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := newTestService(t).WithMetrics(reg)
	h := s.APIHandler()

	for i := 0; i < 2; i++ {
		w := do(h, http.MethodGet, "/siwe-wallet-agnostic/nonce", "")
		require.Equal(t, http.StatusOK, w.Code)
	}
	do(h, http.MethodGet, "/siwe-wallet-agnostic/wallets", "")
	do(h, http.MethodGet, "/nope", "")

	require.Equal(t, 2.0, testutil.ToFloat64(s.metrics.requests.WithLabelValues("GET /siwe-wallet-agnostic/nonce", "200")))
	require.Equal(t, 1.0, testutil.ToFloat64(s.metrics.requests.WithLabelValues("GET /siwe-wallet-agnostic/wallets", "401")))
	require.Equal(t, 1.0, testutil.ToFloat64(s.metrics.requests.WithLabelValues("unmatched", "404")))
	require.Equal(t, 3, testutil.CollectAndCount(s.metrics.duration))
}
