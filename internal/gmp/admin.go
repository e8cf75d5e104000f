package gmp

import (
	"context"
	"fmt"

	"github.com/danmuck/gmpctl/internal/protocol"
)

type PortListSpec struct {
	Name string
	// PortRange uses the manager syntax, e.g. "T:1-1024,U:53".
	PortRange string
	Comment   string
}

type PortListUpdate struct {
	PortListID string
	Name       string
	Comment    string
}

type CredentialSpec struct {
	Name          string
	Login         string
	Password      string
	Comment       string
	AllowInsecure *bool
}

func (s *Session) CreatePortList(ctx context.Context, spec PortListSpec) (OperationResult, error) {
	if spec.Name == "" || spec.PortRange == "" {
		return OperationResult{}, fmt.Errorf("%w: port list needs name and port range", protocol.ErrInvalidCommand)
	}
	cmd := protocol.NewCommand("create_port_list").
		Leaf("name", spec.Name).
		Leaf("port_range", spec.PortRange)
	if spec.Comment != "" {
		cmd.Leaf("comment", spec.Comment)
	}
	return s.operation(ctx, cmd)
}

func (s *Session) ModifyPortList(ctx context.Context, u PortListUpdate) (OperationResult, error) {
	if err := requireID("port list", u.PortListID); err != nil {
		return OperationResult{}, err
	}
	cmd := protocol.NewCommand("modify_port_list").Attr("port_list_id", u.PortListID)
	if u.Name != "" {
		cmd.Leaf("name", u.Name)
	}
	if u.Comment != "" {
		cmd.Leaf("comment", u.Comment)
	}
	return s.operation(ctx, cmd)
}

func (s *Session) DeletePortList(ctx context.Context, portListID string, ultimate bool) (OperationResult, error) {
	if err := requireID("port list", portListID); err != nil {
		return OperationResult{}, err
	}
	cmd := protocol.NewCommand("delete_port_list").
		Attr("port_list_id", portListID).
		Attr("ultimate", boolFlag(ultimate))
	return s.operation(ctx, cmd)
}

func (s *Session) CreateCredential(ctx context.Context, spec CredentialSpec) (OperationResult, error) {
	if spec.Name == "" || spec.Login == "" {
		return OperationResult{}, fmt.Errorf("%w: credential needs name and login", protocol.ErrInvalidCommand)
	}
	cmd := protocol.NewCommand("create_credential").
		Leaf("name", spec.Name).
		Leaf("login", spec.Login).
		Leaf("password", spec.Password)
	if spec.Comment != "" {
		cmd.Leaf("comment", spec.Comment)
	}
	if spec.AllowInsecure != nil {
		cmd.Leaf("allow_insecure", boolFlag(*spec.AllowInsecure))
	}
	return s.operation(ctx, cmd)
}

func (s *Session) DeleteCredential(ctx context.Context, credentialID string, ultimate bool) (OperationResult, error) {
	if err := requireID("credential", credentialID); err != nil {
		return OperationResult{}, err
	}
	cmd := protocol.NewCommand("delete_credential").
		Attr("credential_id", credentialID).
		Attr("ultimate", boolFlag(ultimate))
	return s.operation(ctx, cmd)
}
