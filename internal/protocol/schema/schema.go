package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/danmuck/gmpctl/internal/protocol"
)

// Kind describes one listable resource: the get command, its response root
// tag and the element name of one row.
type Kind struct {
	Name        string
	Command     string
	ResponseTag string
	Entity      string
}

// Kind names.
const (
	KindUsers         = "users"
	KindTasks         = "tasks"
	KindPortLists     = "port_lists"
	KindCredentials   = "credentials"
	KindTargets       = "targets"
	KindConfigs       = "configs"
	KindScanners      = "scanners"
	KindSchedules     = "schedules"
	KindReportFormats = "report_formats"
	KindAlerts        = "alerts"
)

type ValidationError struct {
	Kind   string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("schema: %s", e.Reason)
	}
	return fmt.Sprintf("schema: kind=%q: %s", e.Kind, e.Reason)
}

var kinds = map[string]Kind{
	KindUsers:         newKind(KindUsers, "get_users", "user"),
	KindTasks:         newKind(KindTasks, "get_tasks", "task"),
	KindPortLists:     newKind(KindPortLists, "get_port_lists", "port_list"),
	KindCredentials:   newKind(KindCredentials, "get_credentials", "credential"),
	KindTargets:       newKind(KindTargets, "get_targets", "target"),
	KindConfigs:       newKind(KindConfigs, "get_configs", "config"),
	KindScanners:      newKind(KindScanners, "get_scanners", "scanner"),
	KindSchedules:     newKind(KindSchedules, "get_schedules", "schedule"),
	KindReportFormats: newKind(KindReportFormats, "get_report_formats", "report_format"),
	KindAlerts:        newKind(KindAlerts, "get_alerts", "alert"),
}

func newKind(name, command, entity string) Kind {
	return Kind{
		Name:        name,
		Command:     command,
		ResponseTag: command + protocol.ResponseSuffix,
		Entity:      entity,
	}
}

// Lookup resolves a kind by name. Dashes and case are normalized.
func Lookup(name string) (Kind, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
	if key == "" {
		return Kind{}, ValidationError{Reason: "empty kind"}
	}
	k, ok := kinds[key]
	if !ok {
		return Kind{}, ValidationError{Kind: name, Reason: "unknown kind"}
	}
	return k, nil
}

// MustLookup is Lookup for the package's own constants.
func MustLookup(name string) Kind {
	k, err := Lookup(name)
	if err != nil {
		panic(err)
	}
	return k
}

// Names returns every kind name in sorted order.
func Names() []string {
	out := make([]string, 0, len(kinds))
	for name := range kinds {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Validate checks a caller-built kind before it is used for retrieval.
func (k Kind) Validate() error {
	if strings.TrimSpace(k.Command) == "" {
		return ValidationError{Kind: k.Name, Reason: "missing command"}
	}
	if strings.TrimSpace(k.ResponseTag) == "" {
		return ValidationError{Kind: k.Name, Reason: "missing response tag"}
	}
	if strings.TrimSpace(k.Entity) == "" {
		return ValidationError{Kind: k.Name, Reason: "missing entity"}
	}
	return nil
}
