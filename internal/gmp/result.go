package gmp

import (
	"fmt"

	"github.com/danmuck/gmpctl/internal/protocol"
)

// CommandResult is one interpreted response.
type CommandResult struct {
	OK       bool
	Status   protocol.Status
	Document string
	Tree     *protocol.Document
	RootTag  string
	Root     *protocol.Node
}

func newCommandResult(doc *protocol.Document) *CommandResult {
	root := doc.RootTag()
	status := protocol.ReadStatus(doc.Root)
	return &CommandResult{
		OK:       protocol.Accepted(status, root),
		Status:   status,
		Document: doc.Raw,
		Tree:     doc,
		RootTag:  root,
		Root:     doc.Root,
	}
}

// Err is nil for an accepted response and wraps protocol.ErrProtocolRejected
// otherwise.
func (r *CommandResult) Err() error {
	if r.OK {
		return nil
	}
	return fmt.Errorf("%w: %s", protocol.ErrProtocolRejected, protocol.FailureMessage(r.Status, r.RootTag))
}

// OperationResult summarizes a create, modify, delete or task action.
type OperationResult struct {
	Success    bool   `yaml:"success"`
	StatusCode int    `yaml:"status_code,omitempty"`
	StatusText string `yaml:"status_text,omitempty"`
	ResourceID string `yaml:"resource_id,omitempty"`
	Raw        string `yaml:"-"`
}

func newOperationResult(r *CommandResult) OperationResult {
	out := OperationResult{
		Success:    r.OK,
		StatusText: r.Status.Text,
		Raw:        r.Document,
	}
	if r.Status.HasCode {
		out.StatusCode = r.Status.Code
	}
	out.ResourceID, _ = protocol.ResourceID(r.Root)
	return out
}
