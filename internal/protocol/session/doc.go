// Package session owns the client transport to the manager.
//
// Ownership boundary:
// - transport config and connect targets (tcp, unix socket, optional tls)
// - socket lifecycle and the receive buffer
// - single-flight command gate and in-flight tracking
//
// The wire has no request ids. A response is matched to its command only by
// its root tag and by there being exactly one command on the wire, so every
// exchange goes through Conn.SendRaw and its Channel.
package session
