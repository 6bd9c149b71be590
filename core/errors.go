package core

import "errors"

// Kind classifies an error for callers that map errors onto transport responses.
type Kind int

const (
	KindInternal Kind = iota
	KindBadRequest
	KindUnauthorized
	KindConflict
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindUnauthorized:
		return "unauthorized"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// Error is the typed error returned by Service operations. Code and Message
// are safe to show to clients; Err carries the underlying cause for logs.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Err.Error()
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Code so a wrapped error still compares equal to its sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func (e *Error) wrap(cause error) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: e.Message, Err: cause}
}

var (
	ErrInvalidRequest         = &Error{Kind: KindBadRequest, Code: "invalid_request", Message: "invalid request"}
	ErrInvalidMessage         = &Error{Kind: KindBadRequest, Code: "invalid_message", Message: "invalid message"}
	ErrInvalidAddress         = &Error{Kind: KindBadRequest, Code: "invalid_address", Message: "invalid wallet address"}
	ErrInvalidSignatureFormat = &Error{Kind: KindBadRequest, Code: "invalid_signature_format", Message: "invalid signature format"}
	ErrInvalidChainID         = &Error{Kind: KindBadRequest, Code: "invalid_chain_id", Message: "invalid chain id"}
	ErrUnconfiguredChain      = &Error{Kind: KindBadRequest, Code: "unconfigured_chain", Message: "chain is not supported"}
	ErrEmailRequired          = &Error{Kind: KindBadRequest, Code: "email_required", Message: "email is required"}
	ErrPrimaryWallet          = &Error{Kind: KindBadRequest, Code: "primary_wallet", Message: "cannot unlink primary wallet"}

	// Security-check failures share one response so the failing check is not revealed.
	ErrUnauthorized     = &Error{Kind: KindUnauthorized, Code: "unauthorized", Message: "unauthorized"}
	ErrInvalidNonce     = &Error{Kind: KindUnauthorized, Code: "invalid_nonce", Message: "invalid or expired nonce"}
	ErrInvalidSignature = &Error{Kind: KindUnauthorized, Code: "invalid_signature", Message: "invalid signature"}

	ErrWalletConflict = &Error{Kind: KindConflict, Code: "unable_to_link_wallet", Message: "unable to link wallet"}
	ErrWalletNotFound = &Error{Kind: KindNotFound, Code: "wallet_not_found", Message: "wallet not found"}

	ErrInternal = &Error{Kind: KindInternal, Code: "server_error", Message: "internal error"}
)

// Storage sentinels. RecordStore implementations return (or wrap) these.
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// KindOf reports the Kind of err. Errors that are not *Error are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// AsError returns err as *Error, mapping anything untyped to ErrInternal.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return ErrInternal.wrap(err)
}

func internal(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return ErrInternal.wrap(err)
}
