// Package protocol owns the XML wire contract shared by the transport and the
// session layer.
//
// Ownership boundary:
// - error kinds for transport and protocol faults
// - response parsing, well-formedness validation and the Node tree
// - status interpretation of response root elements
// - command construction and value escaping
//
// Document framing lives in protocol/frame; resource kinds in protocol/schema.
package protocol
