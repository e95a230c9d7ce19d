package domain

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindInvalidArgument  ErrorKind = "InvalidArgument"
	KindMalformedRequest ErrorKind = "MalformedRequest"
	KindDuplicateAuction ErrorKind = "DuplicateAuction"
	KindAuctionNotFound  ErrorKind = "AuctionNotFound"
	KindAuctionClosed    ErrorKind = "AuctionClosed"
	KindChannelClosed    ErrorKind = "ChannelClosed"
	KindRetryExhausted   ErrorKind = "RetryExhausted"
	KindPeerUnreachable  ErrorKind = "PeerUnreachable"
)

// Error is the error type crossing component boundaries. The Kind travels
// over the wire so a remote caller sees the same taxonomy a local one does.
type Error struct {
	Kind    ErrorKind
	Message string
	cause   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

func NewError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError keeps the underlying cause reachable through errors.Unwrap
// while classifying it under the given kind.
func WrapError(kind ErrorKind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), cause: cause}
}

// KindOf returns the kind of err, or "" for errors outside the taxonomy.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
