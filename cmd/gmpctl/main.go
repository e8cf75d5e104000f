package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/gmpctl/internal/config"
	"github.com/danmuck/gmpctl/internal/gmp"
	"github.com/danmuck/gmpctl/internal/logging"
	"github.com/danmuck/gmpctl/internal/observability"
	"github.com/rs/zerolog/log"
)

const (
	envConfigPath     = "GMPCTL_CONFIG"
	defaultConfigPath = "gmpctl.toml"
)

var errUsage = errors.New("usage: gmpctl [-config path] [-metrics-addr addr] <version|list|search|raw|diag|task|kinds|config> [args]")

// sessionCommand runs against an authenticated session.
type sessionCommand func(ctx context.Context, s *gmp.Session, args []string, out io.Writer) error

var sessionCommands = map[string]sessionCommand{
	"version": runVersion,
	"list":    runList,
	"search":  runSearch,
	"raw":     runRaw,
	"diag":    runDiag,
	"task":    runTask,
}

func main() {
	logging.ConfigureRuntime()
	observability.RegisterMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "gmpctl: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("gmpctl", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configPath := fs.String("config", configPathFromEnv(), "client config file")
	metricsAddr := fs.String("metrics-addr", "", "serve /metrics on this address while the command runs")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	rest := fs.Args()
	if len(rest) == 0 {
		return errUsage
	}
	name, rest := rest[0], rest[1:]

	switch name {
	case "config":
		return runConfig(rest, out)
	case "kinds":
		return runKinds(out)
	}
	cmd, ok := sessionCommands[name]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", errUsage, name)
	}

	cfg, err := config.LoadClientConfig(*configPath)
	if err != nil {
		return err
	}
	if *metricsAddr != "" {
		metricsCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := observability.Serve(metricsCtx, *metricsAddr); err != nil {
				log.Warn().Err(err).Str("addr", *metricsAddr).Msg("metrics endpoint stopped")
			}
		}()
	}
	s, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Disconnect(); err != nil {
			log.Debug().Err(err).Msg("disconnect")
		}
	}()
	return cmd(ctx, s, rest, out)
}

func configPathFromEnv() string {
	if path := os.Getenv(envConfigPath); path != "" {
		return path
	}
	return defaultConfigPath
}

func connect(ctx context.Context, cfg config.ClientConfig) (*gmp.Session, error) {
	creds, err := cfg.Auth.Credentials()
	if err != nil {
		return nil, err
	}
	s := gmp.New(cfg.Transport)
	if !s.Connect(ctx, gmp.ConnectParams{Credentials: creds, Target: cfg.Target}) {
		return nil, fmt.Errorf("connect %s: %s", cfg.Target, s.LastError())
	}
	log.Info().Str("target", cfg.Target.String()).Str("user", creds.Username).Msg("session ready")
	return s, nil
}
