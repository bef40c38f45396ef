package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fortunestack/capacity-planner/internal/aws"
	"github.com/fortunestack/capacity-planner/internal/cache"
	"github.com/fortunestack/capacity-planner/internal/config"
	"github.com/fortunestack/capacity-planner/internal/deploy"
	"github.com/fortunestack/capacity-planner/internal/handler"
	"github.com/fortunestack/capacity-planner/internal/metrics"
	"github.com/fortunestack/capacity-planner/internal/model"
	"github.com/fortunestack/capacity-planner/internal/selector"
	"github.com/fortunestack/capacity-planner/internal/store"
)

var (
	configPath   string
	checkRegions []string
	checkJSON    bool
	paramsRegion string
	paramsOut    string
)

var rootCmd = &cobra.Command{
	Use:   "planner",
	Short: "Checks regional quota headroom and plans deployments",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "planner.yaml", "Path to configuration file")

	checkCmd.Flags().StringSliceVar(&checkRegions, "regions", nil, "Candidate regions (defaults to configured regions)")
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "Emit the report as JSON")

	paramsCmd.Flags().StringVar(&paramsRegion, "region", "", "Target deployment region")
	paramsCmd.Flags().StringVar(&paramsOut, "out", "infra/main.parameters.json", "Output path for the parameters file")
	_ = paramsCmd.MarkFlagRequired("region")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(paramsCmd)
}

func newSelector(cfg *config.Config, logger *logrus.Logger) *selector.Selector {
	fetcher := metrics.InstrumentFetcher(aws.NewFetcher(aws.NewClient()))
	return selector.New(fetcher,
		selector.WithMaxConcurrency(cfg.MaxConcurrency),
		selector.WithFetchTimeout(cfg.GetFetchTimeout()),
		selector.WithLogger(logger),
	)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check which regions have quota headroom for the configured requirements",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := logrus.New()

		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		regions := cfg.Regions
		if len(checkRegions) > 0 {
			regions = checkRegions
		}

		sel := newSelector(cfg, logger)
		report, err := sel.Select(context.Background(), cfg.RequirementSet(), regions)
		if err != nil {
			return err
		}

		if checkJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
		} else {
			printReport(os.Stdout, report)
		}

		// Exit nonzero when nothing fits so CI gates can key off it.
		if len(report.Feasible) == 0 {
			cmd.SilenceUsage = true
			return fmt.Errorf("no region satisfies the requirements")
		}
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the capacity report and fortune API over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
		logger.SetLevel(logrus.InfoLevel)

		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		c := cache.New(cfg.GetCacheTTL())
		defer c.Stop()

		client := aws.NewClient()
		fetcher := aws.NewFetcher(client)
		sel := selector.New(metrics.InstrumentFetcher(fetcher),
			selector.WithMaxConcurrency(cfg.MaxConcurrency),
			selector.WithFetchTimeout(cfg.GetFetchTimeout()),
			selector.WithLogger(logger),
		)

		var fortunes handler.FortuneSource
		if dsn := cfg.DSN(); dsn != "" {
			fortuneStore, err := store.Open(dsn)
			if err != nil {
				logger.Warnf("Failed to open fortune store: %v", err)
			} else {
				defer fortuneStore.Close()
				fortunes = fortuneStore
				logger.Info("Fortune store initialized")
			}
		}

		h := handler.New(sel, fetcher, fortunes, c, cfg.RequirementSet(), cfg.Regions, logger)

		gin.SetMode(gin.ReleaseMode)
		r := gin.New()
		r.Use(gin.Recovery())
		h.Register(r)

		port := cfg.GetPort()
		logger.Infof("Starting server on :%s", port)
		return r.Run(":" + port)
	},
}

var paramsCmd = &cobra.Command{
	Use:   "params",
	Short: "Generate the deployment parameters file for a region",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		params, err := deploy.Generate(cfg, paramsRegion)
		if err != nil {
			cmd.SilenceUsage = true
			return err
		}

		if err := deploy.Write(paramsOut, params); err != nil {
			return err
		}

		fmt.Printf("Wrote deployment parameters for region %s to %s\n", paramsRegion, paramsOut)
		return nil
	},
}

func printReport(out *os.File, report *model.Report) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	fmt.Fprintln(w, "REGION\tSERVICE\tUSAGE/LIMIT\tREQUIRED\tHEADROOM\tSTATUS")
	printResults(w, report.Feasible, "feasible")
	printResults(w, report.Diagnostics, "")
	w.Flush()

	if len(report.Feasible) == 0 {
		fmt.Fprintln(out, "\nNo regions have sufficient quota for deployment.")
		fmt.Fprintln(out, "Request a quota increase or retry regions marked unknown.")
		return
	}

	fmt.Fprintln(out, "\nRegions available for deployment:")
	for _, region := range report.FeasibleRegions() {
		fmt.Fprintf(out, "  - %s\n", region)
	}
}

func printResults(w *tabwriter.Writer, results []model.FeasibilityResult, status string) {
	for _, result := range results {
		st := status
		if st == "" {
			st = "infeasible"
			if result.Unknown() {
				st = "unknown"
			}
		}
		for _, res := range result.Resources {
			usage := fmt.Sprintf("%d/%d", res.Usage, res.Limit)
			headroom := fmt.Sprintf("%d", res.Headroom)
			if !res.Known {
				usage = "-"
				headroom = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
				result.Region, res.Service, usage, res.Required, headroom, strings.ToUpper(st))
		}
	}
}
