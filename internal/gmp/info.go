package gmp

import (
	"context"

	"github.com/danmuck/gmpctl/internal/protocol"
	"golang.org/x/sync/errgroup"
)

type VersionInfo struct {
	Version string         `yaml:"version,omitempty"`
	Result  *CommandResult `yaml:"-"`
}

// Diagnostics is a cheap health summary of a manager.
type Diagnostics struct {
	Version           string `yaml:"version,omitempty"`
	ScannerCount      int    `yaml:"scanners"`
	ConfigCount       int    `yaml:"configs"`
	TargetCount       int    `yaml:"targets"`
	ScheduleCount     int    `yaml:"schedules"`
	ReportFormatCount int    `yaml:"report_formats"`
	AlertCount        int    `yaml:"alerts"`
}

func (s *Session) GetVersion(ctx context.Context) (*VersionInfo, error) {
	res, err := s.execute(ctx, protocol.NewCommand("get_version"))
	if err != nil {
		return nil, err
	}
	return &VersionInfo{
		Version: res.Root.StringOr("", protocol.P("version"), protocol.P("gvmd_version")),
		Result:  res,
	}, nil
}

// GetDiagnostics queues the version and per-kind retrievals together; the
// transport still runs them one at a time.
func (s *Session) GetDiagnostics(ctx context.Context) (Diagnostics, error) {
	var d Diagnostics
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := s.GetVersion(ctx)
		if err != nil {
			return err
		}
		d.Version = v.Version
		return nil
	})
	count(ctx, g, s, Scanners, &d.ScannerCount)
	count(ctx, g, s, ScanConfigs, &d.ConfigCount)
	count(ctx, g, s, Targets, &d.TargetCount)
	count(ctx, g, s, Schedules, &d.ScheduleCount)
	count(ctx, g, s, ReportFormats, &d.ReportFormatCount)
	count(ctx, g, s, Alerts, &d.AlertCount)
	if err := g.Wait(); err != nil {
		return Diagnostics{}, err
	}
	return d, nil
}

func count[T any](ctx context.Context, g *errgroup.Group, s *Session, r Resource[T], dst *int) {
	g.Go(func() error {
		rows, err := r.All(ctx, s)
		if err != nil {
			return err
		}
		*dst = len(rows)
		return nil
	})
}
