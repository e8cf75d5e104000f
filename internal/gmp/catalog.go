package gmp

import (
	"context"

	"github.com/danmuck/gmpctl/internal/protocol/schema"
)

// Listing is the mapped rows of one kind, typed as []User, []Task and so on.
type Listing struct {
	Kind  string `yaml:"kind"`
	Count int    `yaml:"count"`
	Rows  any    `yaml:"rows"`
}

type lister interface {
	list(ctx context.Context, s *Session, p *SearchParams) (Listing, error)
}

func (r Resource[T]) list(ctx context.Context, s *Session, p *SearchParams) (Listing, error) {
	var (
		rows []T
		err  error
	)
	if p == nil {
		rows, err = r.All(ctx, s)
	} else {
		rows, err = r.Search(ctx, s, *p)
	}
	if err != nil {
		return Listing{}, err
	}
	return Listing{Kind: r.Kind.Name, Count: len(rows), Rows: rows}, nil
}

var catalog = map[string]lister{
	schema.KindUsers:         Users,
	schema.KindTasks:         Tasks,
	schema.KindPortLists:     PortLists,
	schema.KindCredentials:   Credentials,
	schema.KindTargets:       Targets,
	schema.KindConfigs:       ScanConfigs,
	schema.KindScanners:      Scanners,
	schema.KindSchedules:     Schedules,
	schema.KindReportFormats: ReportFormats,
	schema.KindAlerts:        Alerts,
}

// List fetches every row of the named kind.
func (s *Session) List(ctx context.Context, kind string) (Listing, error) {
	l, err := lookupLister(kind)
	if err != nil {
		return Listing{}, err
	}
	return l.list(ctx, s, nil)
}

// Search runs one narrowed get call for the named kind. Rejections surface
// as protocol.ErrProtocolRejected.
func (s *Session) Search(ctx context.Context, kind string, p SearchParams) (Listing, error) {
	l, err := lookupLister(kind)
	if err != nil {
		return Listing{}, err
	}
	return l.list(ctx, s, &p)
}

func lookupLister(name string) (lister, error) {
	kind, err := schema.Lookup(name)
	if err != nil {
		return nil, err
	}
	l, ok := catalog[kind.Name]
	if !ok {
		return nil, schema.ValidationError{Kind: name, Reason: "no mapper registered"}
	}
	return l, nil
}
