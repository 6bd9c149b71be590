package core

import "context"

type authCtxKey string

const (
	authCtxKeyIP        authCtxKey = "walletauth.ip"
	authCtxKeyUserAgent authCtxKey = "walletauth.user_agent"
)

// WithRequestMeta annotates ctx with the caller's IP and user agent so auth
// events can record them.
func WithRequestMeta(ctx context.Context, ip, userAgent string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if ip != "" {
		ctx = context.WithValue(ctx, authCtxKeyIP, ip)
	}
	if userAgent != "" {
		ctx = context.WithValue(ctx, authCtxKeyUserAgent, userAgent)
	}
	return ctx
}

func requestMetaFromContext(ctx context.Context) (ip, userAgent *string) {
	if ctx == nil {
		return nil, nil
	}
	if v, ok := ctx.Value(authCtxKeyIP).(string); ok && v != "" {
		ip = &v
	}
	if v, ok := ctx.Value(authCtxKeyUserAgent).(string); ok && v != "" {
		userAgent = &v
	}
	return ip, userAgent
}
