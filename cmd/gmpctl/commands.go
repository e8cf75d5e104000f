package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/danmuck/gmpctl/internal/config"
	"github.com/danmuck/gmpctl/internal/gmp"
	"github.com/danmuck/gmpctl/internal/protocol/schema"
)

func runVersion(ctx context.Context, s *gmp.Session, _ []string, out io.Writer) error {
	v, err := s.GetVersion(ctx)
	if err != nil {
		return err
	}
	if err := v.Result.Err(); err != nil {
		return err
	}
	return printYAML(out, v)
}

func runList(ctx context.Context, s *gmp.Session, args []string, out io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: list <kind>", errUsage)
	}
	listing, err := s.List(ctx, args[0])
	if err != nil {
		return err
	}
	return printYAML(out, listing)
}

func runSearch(ctx context.Context, s *gmp.Session, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var p gmp.SearchParams
	fs.StringVar(&p.Filter, "filter", "", "filter expression")
	fs.StringVar(&p.ExtraFilter, "extra", "", "appended filter terms")
	fs.IntVar(&p.First, "first", 0, "first row (1-based)")
	fs.IntVar(&p.Rows, "rows", 0, "rows per page")
	fs.StringVar(&p.SortField, "sort", "", "sort field")
	fs.BoolVar(&p.SortDesc, "desc", false, "sort descending")
	if len(args) == 0 {
		return fmt.Errorf("%w: search <kind> [flags] [query]", errUsage)
	}
	kind := args[0]
	if err := fs.Parse(args[1:]); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	p.Query = strings.Join(fs.Args(), " ")

	listing, err := s.Search(ctx, kind, p)
	if err != nil {
		return err
	}
	return printYAML(out, listing)
}

func runRaw(ctx context.Context, s *gmp.Session, args []string, out io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: raw <xml>", errUsage)
	}
	res, err := s.ExecuteRawCommand(ctx, args[0], "", 0)
	if err != nil {
		return err
	}
	printStatus(out, res.OK, res.RootTag, res.Status.Text)
	fmt.Fprintln(out, res.Document)
	return res.Err()
}

func runDiag(ctx context.Context, s *gmp.Session, _ []string, out io.Writer) error {
	d, err := s.GetDiagnostics(ctx)
	if err != nil {
		return err
	}
	return printYAML(out, d)
}

func runTask(ctx context.Context, s *gmp.Session, args []string, out io.Writer) error {
	if len(args) < 2 {
		return fmt.Errorf("%w: task <status|watch|start|stop|pause|resume|delete> <task-id>", errUsage)
	}
	action, id := args[0], args[1]

	switch action {
	case "watch":
		return watchTask(ctx, s, id, args[2:], out)
	case "status":
		st, err := s.GetTaskStatus(ctx, id)
		if err != nil {
			return err
		}
		if st == nil {
			return fmt.Errorf("task %s not found", id)
		}
		return printYAML(out, st)
	}

	ops := map[string]func(context.Context, string) (gmp.OperationResult, error){
		"start":  s.StartTask,
		"stop":   s.StopTask,
		"pause":  s.PauseTask,
		"resume": s.ResumeTask,
		"delete": func(ctx context.Context, taskID string) (gmp.OperationResult, error) {
			return s.DeleteTask(ctx, taskID, false)
		},
	}
	op, ok := ops[action]
	if !ok {
		return fmt.Errorf("%w: unknown task action %q", errUsage, action)
	}
	res, err := op(ctx, id)
	if err != nil {
		return err
	}
	printStatus(out, res.Success, "task "+action, res.StatusText)
	if err := printYAML(out, res); err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("task %s %s rejected: %s", action, id, res.StatusText)
	}
	return nil
}

func runKinds(out io.Writer) error {
	for _, name := range schema.Names() {
		fmt.Fprintln(out, name)
	}
	return nil
}

func runConfig(args []string, out io.Writer) error {
	if len(args) == 0 || args[0] != "init" {
		return fmt.Errorf("%w: config init [-kind tcp|unix|tls] [-force] <path>", errUsage)
	}
	fs := flag.NewFlagSet("config init", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	kind := fs.String("kind", "tcp", "template kind: tcp, unix or tls")
	force := fs.Bool("force", false, "overwrite an existing file")
	if err := fs.Parse(args[1:]); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	path := defaultConfigPath
	if fs.NArg() > 0 {
		path = fs.Arg(0)
	}
	if err := config.WriteTemplate(path, *kind, *force); err != nil {
		return err
	}
	printStatus(out, true, "config init", path)
	return nil
}
