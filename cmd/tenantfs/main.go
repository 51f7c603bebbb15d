package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/GriffinCanCode/tenantfs/internal/infrastructure/config"
	"github.com/GriffinCanCode/tenantfs/internal/infrastructure/logging"
	"github.com/GriffinCanCode/tenantfs/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/tenantfs/internal/providers/filesystem"
	"github.com/GriffinCanCode/tenantfs/internal/tenant"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

type options struct {
	tenantID    string
	tenantsFile string
	volumesDir  string
	logLevel    string
	development bool
	extract     bool
	olderThan   string
	metrics     bool
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func run(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var opts options
	flags := pflag.NewFlagSet("tenantfs", pflag.ContinueOnError)
	flags.StringVarP(&opts.tenantID, "tenant", "t", "", "tenant id (required)")
	flags.StringVar(&opts.tenantsFile, "tenants-file", cfg.Storage.TenantsFile, "YAML or TOML file mapping tenant ids to roots")
	flags.StringVar(&opts.volumesDir, "volumes-dir", cfg.Storage.VolumesDir, "directory holding one root per tenant")
	flags.StringVar(&opts.logLevel, "log-level", cfg.Logging.Level, "log level (debug, info, warn, error)")
	flags.BoolVar(&opts.development, "dev", cfg.Logging.Development, "human readable logs")
	flags.BoolVarP(&opts.extract, "extract", "x", false, "upload: extract archives into their directory")
	flags.StringVar(&opts.olderThan, "older-than", cfg.Extract.StaleAfter.String(), "sweep: minimum workspace age")
	flags.BoolVar(&opts.metrics, "metrics", false, "print collected metrics to stderr on exit")
	flags.Usage = func() { printUsage(flags) }

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return usageError{err}
	}
	if flags.NArg() == 0 {
		printUsage(flags)
		return usageError{errors.New("missing command")}
	}
	if opts.tenantID == "" {
		return usageError{errors.New("--tenant is required")}
	}

	logger := logging.New(opts.logLevel, opts.development)
	defer func() { _ = logger.Sync() }()

	resolver, err := newResolver(opts)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	svc := filesystem.NewService(filesystem.Options{
		Resolver: resolver,
		Config:   cfg,
		Logger:   logger,
		Metrics:  monitoring.NewMetrics(registry),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmdErr := dispatch(ctx, svc, opts, flags.Args())
	if opts.metrics {
		if err := dumpMetrics(registry); err != nil {
			logger.Warn("failed to write metrics", zap.Error(err))
		}
	}
	return cmdErr
}

func newResolver(opts options) (tenant.RootResolver, error) {
	if opts.tenantsFile != "" {
		return tenant.LoadDirectory(opts.tenantsFile)
	}
	if opts.volumesDir == "" {
		return nil, usageError{errors.New("one of --tenants-file or --volumes-dir is required")}
	}
	return tenant.VolumeResolver{Base: opts.volumesDir}, nil
}

func dumpMetrics(registry *prometheus.Registry) error {
	families, err := registry.Gather()
	if err != nil {
		return err
	}
	encoder := expfmt.NewEncoder(os.Stderr, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, family := range families {
		if err := encoder.Encode(family); err != nil {
			return err
		}
	}
	return nil
}

type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }

func (e usageError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var usage usageError
	switch {
	case errors.As(err, &usage):
		return 2
	case errors.Is(err, filesystem.ErrNotFound), errors.Is(err, tenant.ErrTenantNotFound):
		return 3
	default:
		return 1
	}
}

func printUsage(flags *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `tenantfs operates on sandboxed tenant file trees.

Usage:
  tenantfs --tenant ID <command> [args]

Commands:
  ls [dir]                 list a directory
  cat <path>               print a file
  write <path>             replace a file with stdin
  mkdir <path>             create a directory
  touch <path>             create an empty file
  rm <path>                delete a file or directory tree
  mv <from> <to>           rename within the tenant
  find [dir] <text>        search names (case-insensitive)
  glob [dir] <pattern>     match paths such as '**/*.yml'
  du                       total bytes used
  upload <file> <path>     store a local file (--extract for archives)
  sweep [dir]              remove stale extraction workspaces

Flags:
%s`, flags.FlagUsages())
}
