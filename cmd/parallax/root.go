package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rafabd1/Parallax/internal/config"
	"github.com/rafabd1/Parallax/internal/core"
	"github.com/rafabd1/Parallax/internal/input"
	"github.com/rafabd1/Parallax/internal/mutation"
	"github.com/rafabd1/Parallax/internal/networking"
	"github.com/rafabd1/Parallax/internal/output"
	"github.com/rafabd1/Parallax/internal/report"
	"github.com/rafabd1/Parallax/internal/utils"
)

var rootCmd = &cobra.Command{
	Use:   "parallax [request-file]",
	Short: "Probe an HTTP endpoint with combinations of request ambiguities",
	Long: `Parallax sends a raw base request to a target many times, each time with a
different combination of mutations applied (duplicated headers, odd separators,
bare line feeds, version rewrites...), and reports how the target answered.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, args)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return err
		}
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid configuration: %v\n", err)
			return err
		}
		return runCampaign(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file")
	addConfigFlags(rootCmd.Flags())
}

// loadCatalogue returns the mutations selected by cfg.
func loadCatalogue(cfg *config.Config) ([]core.Mutation, error) {
	all := mutation.Defaults()
	if cfg.CatalogueFile != "" {
		var err error
		all, err = mutation.LoadFile(cfg.CatalogueFile)
		if err != nil {
			return nil, err
		}
	}
	return mutation.Select(all, cfg.Mutations)
}

func runCampaign(parent context.Context, cfg *config.Config) error {
	logger := utils.NewDefaultLogger(utils.StringToLogLevel(cfg.Verbosity), cfg.NoColor, cfg.Silent)
	logger.Debugf("Configuration: %s", cfg)

	proxies, err := utils.ParseProxyInput(cfg.ProxyInput, logger)
	if err != nil {
		logger.Errorf("Invalid proxy input: %v", err)
		return err
	}
	cfg.ParsedProxies = proxies

	base, err := input.NewReader(logger).LoadBaseRequest(cfg.RequestFile, cfg.Target)
	if err != nil {
		logger.Errorf("Could not load base request: %v", err)
		return err
	}
	mutations, err := loadCatalogue(cfg)
	if err != nil {
		logger.Errorf("Could not load mutations: %v", err)
		return err
	}
	logger.Infof("Probing %s with %d mutation(s), up to %d per combination, %d sample(s) each.",
		base.Target, len(mutations), cfg.MaxCombinationSize, cfg.SampleCount)

	client, err := networking.NewClient(cfg, logger)
	if err != nil {
		logger.Errorf("Error creating client: %v", err)
		return err
	}
	domainManager := networking.NewDomainManager(cfg, logger)

	sinks := output.MultiSink{output.NewLogSink(logger, utils.LevelDebug)}
	var progress *output.ProgressBar
	if !cfg.NoProgress && !cfg.Silent && output.GetTerminalController().IsTerminal() {
		progress = output.NewProgressBar(0, 40)
		progress.SetPrefix("Probing: ")
		sinks = append(sinks, progress)
	}

	runner, err := core.NewRunner(core.OptionsFromConfig(cfg), client, sinks, logger, core.WithPacer(domainManager))
	if err != nil {
		logger.Errorf("Error creating runner: %v", err)
		return err
	}
	defer runner.Shutdown()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if progress != nil {
		progress.Start()
	}
	res, err := runner.RunAll(ctx, base, mutations)
	if progress != nil {
		progress.Stop()
	}
	if err != nil {
		logger.Errorf("Campaign failed: %v", err)
		return err
	}
	if ctx.Err() != nil {
		logger.Warnf("Interrupted, reporting %d partial result(s).", len(res.Results))
	}
	logger.Infof("Campaign finished in %s: %d/%d combination(s) answered, %d cancelled.",
		res.Duration.Round(time.Millisecond), len(res.Results), res.Total, res.Cancelled)

	if err := report.NewReporter(cfg, logger).GenerateReport(res, cfg.OutputFile, cfg.OutputFormat); err != nil {
		logger.Errorf("Error generating report: %v", err)
		return err
	}
	return nil
}
