package main

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rshade/cloud-scanner-aws/internal/apperrors"
	"github.com/rshade/cloud-scanner-aws/internal/config"
	"github.com/rshade/cloud-scanner-aws/internal/impact"
	"github.com/rshade/cloud-scanner-aws/internal/inventory"
	"github.com/rshade/cloud-scanner-aws/internal/logging"
	"github.com/rshade/cloud-scanner-aws/internal/scanner"
	"github.com/rshade/cloud-scanner-aws/internal/server"
)

// pipelineBuilder builds the scanner pipeline from the resolved configuration.
type pipelineBuilder func(cfg config.Config, logger zerolog.Logger) (server.Pipeline, error)

// app holds the state shared by every command of one invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer
	getenv func(string) string

	newPipeline pipelineBuilder

	configFile  string
	boaviztaURL string
	profile     string
	logLevel    string
	logFormat   string

	cfg    config.Config
	logger zerolog.Logger

	// started is set once a command body runs, so that errors raised by
	// cobra itself (unknown commands, bad flags) map to invalid arguments.
	started bool
}

// run executes the CLI and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) int {
	return runWith(ctx, args, stdout, stderr, getenv, newScanner)
}

func runWith(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string, build pipelineBuilder) int {
	a := &app{
		stdout:      stdout,
		stderr:      stderr,
		getenv:      getenv,
		newPipeline: build,
		logger:      zerolog.New(stderr),
	}
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return apperrors.ExitSuccess
	}
	if _, ok := apperrors.KindOf(err); !ok && !a.started {
		err = apperrors.Wrap(apperrors.KindValidation, "invalid arguments", err)
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return apperrors.ExitCode(err)
}

// newScanner wires the AWS inventory and the Boavizta client into a Scanner.
func newScanner(cfg config.Config, logger zerolog.Logger) (server.Pipeline, error) {
	impacts, err := impact.NewBoaviztaClient(cfg.BoaviztaURL, logger,
		impact.WithTimeout(cfg.Timeouts.Impact),
		impact.WithConcurrency(cfg.ImpactConcurrency),
	)
	if err != nil {
		return nil, err
	}
	factory := inventory.NewAWSFactory(cfg.AWS.Profile, logger,
		inventory.WithCallTimeout(cfg.Timeouts.Vendor),
	)
	return scanner.New(factory, impacts, logger), nil
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "cloud-scanner",
		Short: "Estimate the environmental impacts of AWS resources",
		Long: `cloud-scanner lists the EC2 instances (and optionally EBS volumes) of one
AWS region, reads their recent CPU usage and asks the Boavizta API for the
manufacture and use impacts of each resource.

Examples:
  cloud-scanner inventory --region eu-west-3
  cloud-scanner estimate --region eu-west-3 --use-duration-hours 730 --summary-only
  cloud-scanner metrics --region eu-west-3 --use-duration-hours 1
  cloud-scanner serve --port 8000`,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return apperrors.Wrap(apperrors.KindValidation, "invalid flag", err)
	})

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "YAML configuration file")
	flags.StringVar(&a.boaviztaURL, "boavizta-url", "", "Boavizta API base URL (overrides "+config.EnvBoaviztaURL+")")
	flags.StringVar(&a.profile, "profile", "", "AWS shared-config profile")
	flags.StringVar(&a.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	flags.StringVar(&a.logFormat, "log-format", "", "log format (console, json)")

	root.AddCommand(
		a.inventoryCommand(),
		a.estimateCommand(),
		a.metricsCommand(),
		a.serveCommand(),
		a.versionCommand(),
	)
	return root
}

// setup resolves the configuration (defaults, file, environment, flags) and
// builds the logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	cfg.ApplyEnv(a.getenv, a.logger)

	flags := cmd.Flags()
	if flags.Changed("boavizta-url") {
		cfg.BoaviztaURL = a.boaviztaURL
	}
	if flags.Changed("profile") {
		cfg.AWS.Profile = a.profile
	}
	if flags.Changed("log-level") {
		if _, err := logging.ParseLevel(a.logLevel); err != nil {
			return apperrors.Wrap(apperrors.KindValidation, "invalid --log-level", err)
		}
		cfg.Logging.Level = a.logLevel
	}
	if flags.Changed("log-format") {
		if err := (logging.Config{Format: a.logFormat}).Validate(); err != nil {
			return apperrors.Wrap(apperrors.KindValidation, "invalid --log-format", err)
		}
		cfg.Logging.Format = a.logFormat
	}

	logger, err := logging.New(cfg.Logging, a.stderr)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

// pipeline validates the configuration and builds the scanner.
func (a *app) pipeline() (server.Pipeline, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}
	return a.newPipeline(a.cfg, a.logger)
}

// region returns the flag value or the configured default.
func (a *app) region(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if a.cfg.AWS.Region != "" {
		return a.cfg.AWS.Region, nil
	}
	return "", apperrors.New(apperrors.KindValidation, "--region is required (or set aws.region / "+config.EnvAWSRegion+")")
}
