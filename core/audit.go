package core

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// AuthEventType identifies a wallet authentication event.
type AuthEventType string

const (
	EventWalletLogin    AuthEventType = "wallet_login"
	EventWalletLinked   AuthEventType = "wallet_linked"
	EventWalletUnlinked AuthEventType = "wallet_unlinked"
	EventLoginFailed    AuthEventType = "wallet_login_failed"
)

// AuthEvent is a best-effort, append-only record intended for external sinks.
type AuthEvent struct {
	OccurredAt time.Time
	Event      AuthEventType
	UserID     string
	SessionID  string
	Address    string
	ChainID    uint64
	Method     *string // verification path: "eoa" or "contract"
	Reason     *string
	IPAddr     *string
	UserAgent  *string
}

// AuthEventLogger records authentication events. Implementations should be
// non-blocking and best-effort.
type AuthEventLogger interface {
	LogAuthEvent(ctx context.Context, e AuthEvent) error
}

// ZapAuthEventLogger writes auth events as structured log lines.
type ZapAuthEventLogger struct {
	l *zap.Logger
}

func NewZapAuthEventLogger(l *zap.Logger) *ZapAuthEventLogger {
	if l == nil {
		l = zap.NewNop()
	}
	return &ZapAuthEventLogger{l: l.Named("auth_events")}
}

func (z *ZapAuthEventLogger) LogAuthEvent(_ context.Context, e AuthEvent) error {
	fields := []zap.Field{
		zap.String("event", string(e.Event)),
		zap.Time("occurred_at", e.OccurredAt),
		zap.String("user_id", e.UserID),
		zap.String("address", e.Address),
		zap.Uint64("chain_id", e.ChainID),
	}
	if e.SessionID != "" {
		fields = append(fields, zap.String("session_id", e.SessionID))
	}
	if e.Method != nil {
		fields = append(fields, zap.String("method", *e.Method))
	}
	if e.Reason != nil {
		fields = append(fields, zap.String("reason", *e.Reason))
	}
	if e.IPAddr != nil {
		fields = append(fields, zap.String("ip", *e.IPAddr))
	}
	if e.UserAgent != nil {
		fields = append(fields, zap.String("user_agent", *e.UserAgent))
	}
	z.l.Info("auth event", fields...)
	return nil
}

func (s *Service) logAuthEvent(ctx context.Context, e AuthEvent) {
	if s.authlog == nil {
		return
	}
	e.OccurredAt = s.now()
	e.IPAddr, e.UserAgent = requestMetaFromContext(ctx)
	if err := s.authlog.LogAuthEvent(ctx, e); err != nil {
		s.logger.Debug("auth event logger failed", zap.Error(err))
	}
}
