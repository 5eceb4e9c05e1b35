package main

import (
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rshade/cloud-scanner-aws/internal/apperrors"
	"github.com/rshade/cloud-scanner-aws/internal/config"
	"github.com/rshade/cloud-scanner-aws/internal/exporter"
	"github.com/rshade/cloud-scanner-aws/internal/location"
	"github.com/rshade/cloud-scanner-aws/internal/scanner"
	"github.com/rshade/cloud-scanner-aws/internal/server"
	"github.com/rshade/cloud-scanner-aws/internal/summary"
)

// Output formats of the estimate command.
const (
	formatJSON  = "json"
	formatTable = "table"
)

// scanFlags are shared by inventory, estimate and metrics.
type scanFlags struct {
	region              string
	filterTags          []string
	includeBlockStorage bool
}

func (f *scanFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.region, "region", "r", "", "AWS region to scan (one of "+fmt.Sprint(location.KnownRegions())+")")
	cmd.Flags().StringArrayVarP(&f.filterTags, "filter-tag", "t", nil, "only keep resources carrying this key=value tag (repeatable)")
	cmd.Flags().BoolVarP(&f.includeBlockStorage, "include-block-storage", "b", false, "also inventory EBS volumes")
}

// noArgs rejects positional arguments with a validation error.
func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return apperrors.Newf(apperrors.KindValidation, "unexpected argument %q for %q", args[0], cmd.CommandPath())
	}
	return nil
}

func (a *app) inventoryCommand() *cobra.Command {
	var flags scanFlags
	cmd := &cobra.Command{
		Use:   "inventory",
		Short: "List the resources of a region as JSON",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.started = true
			region, err := a.region(flags.region)
			if err != nil {
				return err
			}
			p, err := a.pipeline()
			if err != nil {
				return err
			}
			inv, err := p.Inventory(cmd.Context(), region, flags.filterTags, flags.includeBlockStorage)
			if err != nil {
				return err
			}
			return exporter.WriteJSON(a.stdout, inv, false)
		},
	}
	flags.register(cmd)
	return cmd
}

func (a *app) estimateCommand() *cobra.Command {
	var (
		flags       scanFlags
		hours       float64
		verbose     bool
		summaryOnly bool
		format      string
	)
	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate the impacts of the resources of a region",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.started = true
			if format != formatJSON && format != formatTable {
				return apperrors.Newf(apperrors.KindValidation, "invalid --format %q: expected json or table", format)
			}
			region, err := a.region(flags.region)
			if err != nil {
				return err
			}
			p, err := a.pipeline()
			if err != nil {
				return err
			}
			req := scanner.EstimateRequest{
				Region:              region,
				TagFilter:           flags.filterTags,
				IncludeBlockStorage: flags.includeBlockStorage,
				UseDurationHours:    hours,
				Verbose:             verbose,
			}

			est, err := p.Estimate(cmd.Context(), req)
			if err != nil {
				return err
			}
			if summaryOnly {
				s := summary.Summarize(est, region, hours)
				if format == formatTable {
					exporter.WriteSummaryTable(a.stdout, s)
					return nil
				}
				return exporter.WriteJSON(a.stdout, s, false)
			}
			if format == formatTable {
				exporter.WriteEstimatedTable(a.stdout, est)
				return nil
			}
			return exporter.WriteJSON(a.stdout, est, false)
		},
	}
	flags.register(cmd)
	cmd.Flags().Float64VarP(&hours, "use-duration-hours", "u", 0, "duration of use to estimate impacts for, in hours")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "request verbose output from the impact service")
	cmd.Flags().BoolVarP(&summaryOnly, "summary-only", "s", false, "print the region summary instead of every resource")
	cmd.Flags().StringVarP(&format, "format", "f", formatJSON, "output format (json, table)")
	_ = cmd.MarkFlagRequired("use-duration-hours")
	return cmd
}

func (a *app) metricsCommand() *cobra.Command {
	var (
		flags scanFlags
		hours float64
	)
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Print the region summary as Prometheus metrics",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.started = true
			region, err := a.region(flags.region)
			if err != nil {
				return err
			}
			p, err := a.pipeline()
			if err != nil {
				return err
			}
			s, err := p.Summary(cmd.Context(), scanner.EstimateRequest{
				Region:              region,
				TagFilter:           flags.filterTags,
				IncludeBlockStorage: flags.includeBlockStorage,
				UseDurationHours:    hours,
			})
			if err != nil {
				return err
			}
			return exporter.WriteMetrics(a.stdout, s)
		},
	}
	flags.register(cmd)
	cmd.Flags().Float64VarP(&hours, "use-duration-hours", "u", 0, "duration of use to estimate impacts for, in hours")
	_ = cmd.MarkFlagRequired("use-duration-hours")
	return cmd
}

func (a *app) serveCommand() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve inventories, impacts and metrics over HTTP",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.started = true
			if cmd.Flags().Changed("port") {
				if !config.ValidPort(port) {
					return apperrors.Newf(apperrors.KindValidation, "invalid --port %d", port)
				}
				a.cfg.Port = port
			}
			p, err := a.pipeline()
			if err != nil {
				return err
			}
			srv := server.New(p, version, a.cfg.BoaviztaURL, a.logger)
			return srv.Run(cmd.Context(), net.JoinHostPort("", strconv.Itoa(a.cfg.Port)))
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "HTTP port (default from config or "+config.EnvPort+", else 8000)")
	return cmd
}

func (a *app) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  noArgs,
		RunE: func(*cobra.Command, []string) error {
			a.started = true
			_, err := fmt.Fprintf(a.stdout, "cloud-scanner %s\n", version)
			return err
		},
	}
}
