package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/danmuck/gmpctl/internal/gmp"
)

// Task states after which the manager does no further work on a run.
var finishedTaskStates = map[string]bool{
	"Done":        true,
	"Stopped":     true,
	"Interrupted": true,
}

func watchTask(ctx context.Context, s *gmp.Session, taskID string, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("task watch", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	interval := fs.Duration("interval", 5*time.Second, "poll interval")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if *interval <= 0 {
		return fmt.Errorf("%w: interval must be positive", errUsage)
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	last := ""
	for {
		st, err := s.GetTaskStatus(ctx, taskID)
		if err != nil {
			return err
		}
		if st == nil {
			return fmt.Errorf("task %s not found", taskID)
		}
		line := st.Status
		if st.Progress != nil && *st.Progress >= 0 {
			line = fmt.Sprintf("%s %d%%", st.Status, *st.Progress)
		}
		if line != last {
			printStatus(out, true, st.Name, line)
			last = line
		}
		if finishedTaskStates[st.Status] {
			return printYAML(out, st)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
