package protocol

import "errors"

var (
	ErrConnectTimeout    = errors.New("protocol: connect timeout")
	ErrConnectError      = errors.New("protocol: connect failed")
	ErrNotConnected      = errors.New("protocol: not connected")
	ErrNotAuthenticated  = errors.New("protocol: not authenticated")
	ErrReadTimeout       = errors.New("protocol: read timeout")
	ErrSocketClosed      = errors.New("protocol: socket closed")
	ErrSocketError       = errors.New("protocol: socket error")
	ErrMalformedDocument = errors.New("protocol: malformed document")
	ErrProtocolRejected  = errors.New("protocol: command rejected")
	ErrPaginationFailure = errors.New("protocol: pagination failure")
	ErrInvalidCommand    = errors.New("protocol: invalid command")
)
