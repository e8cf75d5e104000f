package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// ResponseSuffix ends the root tag of every well-behaved response.
const ResponseSuffix = "_response"

// Status is the status block carried on a response root element.
type Status struct {
	// Code is valid only when HasCode is set.
	Code    int
	HasCode bool
	// RawCode is the status value as sent, "" when absent.
	RawCode string
	Text    string
}

// ReadStatus reads status and status_text from root, as attributes or, for
// older servers, as child elements.
func ReadStatus(root *Node) Status {
	var s Status
	s.RawCode = readAttrOrChild(root, "status")
	s.Text = readAttrOrChild(root, "status_text")
	if raw := strings.TrimSpace(s.RawCode); raw != "" {
		if code, err := strconv.Atoi(raw); err == nil {
			s.Code = code
			s.HasCode = true
		}
	}
	return s
}

func readAttrOrChild(root *Node, name string) string {
	if v, ok := root.Attr(name); ok {
		return v
	}
	v, _ := root.Lookup(P(name))
	return v
}

// IsSuccess reports whether code is in [200, 300).
func IsSuccess(code int) bool {
	return code >= 200 && code < 300
}

// Success reports a present status code in the success range.
func (s Status) Success() bool {
	return s.HasCode && IsSuccess(s.Code)
}

// Accepted is the verdict for a response: a success status code, or no status
// code at all on a root tag that ends in ResponseSuffix.
func Accepted(s Status, rootTag string) bool {
	if s.HasCode {
		return IsSuccess(s.Code)
	}
	return strings.HasSuffix(rootTag, ResponseSuffix)
}

// FailureMessage is the human-readable reason a response was not accepted.
func FailureMessage(s Status, rootTag string) string {
	if text := strings.TrimSpace(s.Text); text != "" {
		return text
	}
	return fmt.Sprintf("command failed with root response tag %q and no status text", rootTag)
}

var resourceIDAttrs = []string{
	"id",
	"task_id",
	"report_id",
	"credential_id",
	"target_id",
	"port_list_id",
	"result_id",
}

// ResourceID returns the first non-empty id-like attribute on a response root.
func ResourceID(root *Node) (string, bool) {
	for _, key := range resourceIDAttrs {
		if v, ok := root.Attr(key); ok && v != "" {
			return v, true
		}
	}
	return "", false
}
