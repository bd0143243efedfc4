package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/HerbHall/cdndash/internal/backend"
	"github.com/HerbHall/cdndash/internal/config"
	"github.com/HerbHall/cdndash/internal/dashboard"
	"github.com/HerbHall/cdndash/internal/terminal"
	"go.uber.org/zap"
)

// Exit codes of the terminal subcommands.
const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

// cliEnv is what every terminal subcommand needs.
type cliEnv struct {
	cfg    *config.Config
	client *backend.Client
	logger *zap.Logger
	quiet  bool
}

// loadCLI registers the shared flags on fs, parses args and builds the
// backend client. Logs go to stderr at warn level unless configured lower.
func loadCLI(fs *flag.FlagSet, args []string) (*cliEnv, error) {
	configPath := fs.String("config", "", "path to configuration file")
	quiet := fs.Bool("quiet", false, "do not show a progress spinner")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %w", errUsage, err)
	}

	cfg, _, err := config.Load(*configPath)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	logCfg := cfg.Logging
	logCfg.Format = "console"
	if logCfg.Level == "" || logCfg.Level == "info" {
		logCfg.Level = "warn"
	}
	logger, err := config.NewLogger(logCfg)
	if err != nil {
		return nil, err
	}
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	return &cliEnv{cfg: cfg, client: client, logger: logger, quiet: *quiet}, nil
}

func cliContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// errUsage marks bad flags or arguments.
var errUsage = errors.New("usage")

func usage(msg string) error {
	return fmt.Errorf("%w: %s", errUsage, msg)
}

// setupError reports a failure before the subcommand did any work.
func setupError(stderr io.Writer, fs *flag.FlagSet, err error) int {
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	fmt.Fprintf(stderr, "%s: %v\n", fs.Name(), err)
	if errors.Is(err, errUsage) {
		return exitUsage
	}
	return exitFailed
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

// runList prints both lists: cdndash ls [-config file] [-quiet]
func runList(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("ls", stderr)
	env, err := loadCLI(fs, args)
	if err != nil {
		return setupError(stderr, fs, err)
	}
	defer func() { _ = env.logger.Sync() }()

	ctx, cancel := cliContext()
	defer cancel()

	dash := dashboard.New(env.client, env.logger, dashboard.WithMarkup(dashboard.TextMarkup{}))
	view := terminal.NewView(stdout, stderr, nil)

	sp := terminal.NewSpinner("Loading from "+env.client.URL(""), env.quiet)
	sp.Start(ctx)
	dash.Load(ctx, view)
	sp.Stop("Loaded")

	if err := view.Flush(dashboard.TargetServices, dashboard.TargetNodes); err != nil {
		return exitFailed
	}
	return exitOK
}

// runInvalidate requests cache invalidation: cdndash invalidate [flags] <pattern>
func runInvalidate(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("invalidate", stderr)
	env, err := loadCLI(fs, args)
	if err != nil {
		return setupError(stderr, fs, err)
	}
	defer func() { _ = env.logger.Sync() }()
	if fs.NArg() > 1 {
		return setupError(stderr, fs, usage("expected a single pattern; quote patterns containing spaces"))
	}

	ctx, cancel := cliContext()
	defer cancel()

	dash := dashboard.New(env.client, env.logger,
		dashboard.WithMarkup(dashboard.TextMarkup{}),
	)
	view := terminal.NewView(stdout, stderr, map[string]string{
		dashboard.InputPattern: fs.Arg(0),
	})

	sp := terminal.NewSpinner("Invalidating "+fs.Arg(0), env.quiet || fs.Arg(0) == "")
	sp.Start(ctx)
	res, err := dash.Invalidate(ctx, view)
	if err != nil {
		sp.Fail("Invalidation failed")
		_ = view.Flush(dashboard.OutputInvalidate)
		return exitFailed
	}
	sp.Stop("Invalidation requested")

	_ = view.Flush(dashboard.OutputInvalidate)
	if res.StatusID != "" {
		fmt.Fprintf(stdout, "Follow progress with: cdndash status %s\n", res.StatusID)
	}
	return exitOK
}

// runStatus prints the progress of an invalidation: cdndash status [flags] <id>
func runStatus(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("status", stderr)
	env, err := loadCLI(fs, args)
	if err != nil {
		return setupError(stderr, fs, err)
	}
	defer func() { _ = env.logger.Sync() }()
	if fs.NArg() != 1 {
		return setupError(stderr, fs, usage("expected an invalidation request id"))
	}

	ctx, cancel := cliContext()
	defer cancel()

	status, err := env.client.InvalidationStatus(ctx, fs.Arg(0))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailed
	}
	fmt.Fprintln(stdout, status)
	return exitOK
}
