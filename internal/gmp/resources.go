package gmp

import (
	"context"
	"strings"

	"github.com/danmuck/gmpctl/internal/protocol"
	"github.com/danmuck/gmpctl/internal/protocol/schema"
)

// Resource binds a listable kind to its row mapper.
type Resource[T any] struct {
	Kind schema.Kind
	Map  func(*protocol.Node) T
}

func newResource[T any](name string, m func(*protocol.Node) T) Resource[T] {
	return Resource[T]{Kind: schema.MustLookup(name), Map: m}
}

// All fetches every row with the bulk strategy.
func (r Resource[T]) All(ctx context.Context, s *Session) ([]T, error) {
	return FetchAll(ctx, s, r.Kind, r.rows)
}

// Search issues one get call narrowed by p. A refused filter is returned as
// protocol.ErrProtocolRejected, not as an empty row set.
func (r Resource[T]) Search(ctx context.Context, s *Session, p SearchParams) ([]T, error) {
	res, err := s.execute(ctx, p.apply(protocol.NewCommand(r.Kind.Command)))
	if err != nil {
		return nil, err
	}
	if err := res.Err(); err != nil {
		return nil, err
	}
	return r.rows(res), nil
}

func (r Resource[T]) rows(res *CommandResult) []T {
	nodes := res.Root.Entities(r.Kind.Entity)
	out := make([]T, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, r.Map(n))
	}
	return out
}

type User struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	Comment string `yaml:"comment,omitempty"`
	Role    string `yaml:"role,omitempty"`
}

type Task struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Comment     string `yaml:"comment,omitempty"`
	Status      string `yaml:"status,omitempty"`
	Progress    *int   `yaml:"progress,omitempty"`
	ReportCount *int   `yaml:"report_count,omitempty"`
}

type PortList struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	Comment   string `yaml:"comment,omitempty"`
	PortCount *int   `yaml:"port_count,omitempty"`
}

type Credential struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	Comment string `yaml:"comment,omitempty"`
	Login   string `yaml:"login,omitempty"`
}

type Target struct {
	ID         string   `yaml:"id"`
	Name       string   `yaml:"name"`
	Comment    string   `yaml:"comment,omitempty"`
	Hosts      []string `yaml:"hosts"`
	PortListID string   `yaml:"port_list_id,omitempty"`
}

type ScanConfig struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Comment     string `yaml:"comment,omitempty"`
	UsageType   string `yaml:"usage_type,omitempty"`
	FamilyCount *int   `yaml:"family_count,omitempty"`
	NVTCount    *int   `yaml:"nvt_count,omitempty"`
}

type Scanner struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	Comment string `yaml:"comment,omitempty"`
	Host    string `yaml:"host,omitempty"`
	Port    *int   `yaml:"port,omitempty"`
	Type    string `yaml:"type,omitempty"`
}

type Schedule struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Comment  string `yaml:"comment,omitempty"`
	Timezone string `yaml:"timezone,omitempty"`
	NextTime string `yaml:"next_time,omitempty"`
}

type ReportFormat struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Extension   string `yaml:"extension,omitempty"`
	ContentType string `yaml:"content_type,omitempty"`
	Active      *bool  `yaml:"active,omitempty"`
}

type Alert struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	Comment   string `yaml:"comment,omitempty"`
	Event     string `yaml:"event,omitempty"`
	Condition string `yaml:"condition,omitempty"`
	Method    string `yaml:"method,omitempty"`
}

var (
	Users = newResource(schema.KindUsers, func(n *protocol.Node) User {
		return User{
			ID:      id(n),
			Name:    text(n, "name"),
			Comment: text(n, "comment"),
			Role:    n.StringOr("", protocol.P("role", "name"), protocol.P("role")),
		}
	})

	Tasks = newResource(schema.KindTasks, func(n *protocol.Node) Task {
		return Task{
			ID:          id(n),
			Name:        text(n, "name"),
			Comment:     text(n, "comment"),
			Status:      n.StringOr("", protocol.P("status"), protocol.P("scan_run_status")),
			Progress:    optInt(n, protocol.P("progress")),
			ReportCount: optInt(n, protocol.P("report_count"), protocol.P("reports", "count"), protocol.P("result_count")),
		}
	})

	PortLists = newResource(schema.KindPortLists, func(n *protocol.Node) PortList {
		return PortList{
			ID:        id(n),
			Name:      text(n, "name"),
			Comment:   text(n, "comment"),
			PortCount: optInt(n, protocol.P("port_count"), protocol.P("port_count", "all"), protocol.P("ports", "count"), protocol.P("count")),
		}
	})

	Credentials = newResource(schema.KindCredentials, func(n *protocol.Node) Credential {
		return Credential{
			ID:      id(n),
			Name:    text(n, "name"),
			Comment: text(n, "comment"),
			Login:   n.StringOr("", protocol.P("login"), protocol.P("credential_login"), protocol.P("auth", "login")),
		}
	})

	Targets = newResource(schema.KindTargets, func(n *protocol.Node) Target {
		return Target{
			ID:         id(n),
			Name:       text(n, "name"),
			Comment:    text(n, "comment"),
			Hosts:      splitHosts(n.StringOr("", protocol.P("hosts"), protocol.P("host"))),
			PortListID: n.StringOr("", protocol.P("port_list", "@id"), protocol.P("port_list", "port_list", "@id")),
		}
	})

	ScanConfigs = newResource(schema.KindConfigs, func(n *protocol.Node) ScanConfig {
		return ScanConfig{
			ID:          id(n),
			Name:        text(n, "name"),
			Comment:     text(n, "comment"),
			UsageType:   n.StringOr("", protocol.P("usage_type"), protocol.P("type")),
			FamilyCount: optInt(n, protocol.P("families", "count"), protocol.P("family_count")),
			NVTCount:    optInt(n, protocol.P("nvts", "count"), protocol.P("nvt_count")),
		}
	})

	Scanners = newResource(schema.KindScanners, func(n *protocol.Node) Scanner {
		return Scanner{
			ID:      id(n),
			Name:    text(n, "name"),
			Comment: text(n, "comment"),
			Host:    n.StringOr("", protocol.P("host"), protocol.P("scanner_host")),
			Port:    optInt(n, protocol.P("port"), protocol.P("scanner_port")),
			Type:    n.StringOr("", protocol.P("type"), protocol.P("scanner_type")),
		}
	})

	Schedules = newResource(schema.KindSchedules, func(n *protocol.Node) Schedule {
		return Schedule{
			ID:       id(n),
			Name:     text(n, "name"),
			Comment:  text(n, "comment"),
			Timezone: text(n, "timezone"),
			NextTime: n.StringOr("", protocol.P("next_time"), protocol.P("next_run")),
		}
	})

	ReportFormats = newResource(schema.KindReportFormats, func(n *protocol.Node) ReportFormat {
		var active *bool
		if v, ok := n.Bool(protocol.P("active")); ok {
			active = &v
		}
		return ReportFormat{
			ID:          id(n),
			Name:        text(n, "name"),
			Extension:   text(n, "extension"),
			ContentType: text(n, "content_type"),
			Active:      active,
		}
	})

	Alerts = newResource(schema.KindAlerts, func(n *protocol.Node) Alert {
		return Alert{
			ID:        id(n),
			Name:      text(n, "name"),
			Comment:   text(n, "comment"),
			Event:     n.StringOr("", protocol.P("event", "name"), protocol.P("event")),
			Condition: n.StringOr("", protocol.P("condition", "name"), protocol.P("condition")),
			Method:    n.StringOr("", protocol.P("method", "name"), protocol.P("method")),
		}
	})
)

func id(n *protocol.Node) string {
	v, _ := n.Attr("id")
	return v
}

func text(n *protocol.Node, tag string) string {
	return n.StringOr("", protocol.P(tag))
}

func optInt(n *protocol.Node, candidates ...protocol.Path) *int {
	v, ok := n.Int(candidates...)
	if !ok {
		return nil
	}
	return &v
}

func splitHosts(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}
	}
	var out []string
	for _, host := range strings.Split(raw, ",") {
		if host = strings.TrimSpace(host); host != "" {
			out = append(out, host)
		}
	}
	return out
}
