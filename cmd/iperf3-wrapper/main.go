// Command iperf3-wrapper runs iperf3 and ping together against a server and
// reports throughput, latency under load and bufferbloat grades.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/m-lab/go/prometheusx"
	"github.com/m-lab/go/rtx"
	"github.com/m-lab/iperf3-wrapper/internal/config"
	"github.com/m-lab/iperf3-wrapper/internal/emitter"
	"github.com/m-lab/iperf3-wrapper/internal/probe"
	"github.com/m-lab/iperf3-wrapper/internal/scenario"
	"github.com/m-lab/iperf3-wrapper/internal/summary"
	"github.com/m-lab/iperf3-wrapper/internal/supervisor"
	"github.com/m-lab/iperf3-wrapper/pkg/version"
	"github.com/spf13/cobra"
)

var (
	cfg = config.Default()

	flagConfig  string
	flagDebug   bool
	flagNoLog   bool
	flagMetrics bool
)

var rootCmd = &cobra.Command{
	Use:   "iperf3-wrapper",
	Short: "Measure throughput and latency under load with iperf3 and ping",
	Long: `iperf3-wrapper runs ping alongside one or more iperf3 tests, aligns their
per-second samples and reports throughput, RTT and bufferbloat grades.`,
	Version:           version.Version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE:              runMode(scenario.ModeUnidirectional),
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", config.DefaultFile(), "configuration file with option defaults")
	pf.BoolVar(&flagDebug, "debug", false, "enable debug logging")
	pf.BoolVar(&flagNoLog, "nl", false, "only log fatal errors")
	pf.BoolVar(&flagMetrics, "metrics", false, "serve Prometheus metrics")
	cfg.RegisterFlags(pf)
	pf.AddGoFlagSet(flag.CommandLine)

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "bufferbloat",
			Short: "Run download and upload concurrently and grade the latency increase",
			RunE:  runMode(scenario.ModeBufferbloat),
		},
		&cobra.Command{
			Use:   "all",
			Short: "Run download, upload and bufferbloat tests",
			RunE:  runMode(scenario.ModeAll),
		},
		&cobra.Command{
			Use:   "probe",
			Short: "Estimate throughput limits from the RTT of an upload test",
			RunE:  runMode(scenario.ModeProbe),
		},
		&cobra.Command{
			Use:   "bdp",
			Short: "Estimate throughput limits from ping RTT and TCP buffer sizes",
			RunE:  runMode(scenario.ModeBDP),
		},
	)
}

// setup initializes logging and fills unset options from the environment
// and the configuration file.
func setup(cmd *cobra.Command, _ []string) error {
	log.SetReportTimestamp(true)
	log.SetTimeFormat(summary.TimestampLayout)
	switch {
	case flagNoLog:
		log.SetLevel(log.FatalLevel)
	case flagDebug:
		log.SetReportCaller(true)
		log.SetLevel(log.DebugLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}

	file, err := config.ReadFile(config.ExpandHome(flagConfig))
	if err != nil {
		return err
	}
	return config.Apply(cmd.Flags(), file)
}

func runMode(mode scenario.Mode) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate(); err != nil {
			if errors.Is(err, config.ErrNoHost) {
				log.Warn("no host given, nothing to do")
				return nil
			}
			return err
		}
		if flagMetrics {
			promSrv := prometheusx.MustServeMetrics()
			defer promSrv.Close()
		}
		log.Debug("starting", "mode", mode, "version", version.Version, "commit", prometheusx.GitShortCommit)

		sup := supervisor.New(cfg.TimeoutDuration(), cfg.DryRun)
		prober := probe.New(probe.ExecRunner{}, cfg.ProbeCacheTTL)
		em := &emitter.HumanReadable{Out: cmd.OutOrStdout(), Quiet: cfg.Quiet}
		o := scenario.New(&cfg, sup, prober, em)

		start := time.Now()
		_, err := o.Run(cmd.Context(), mode)
		if err != nil {
			return err
		}
		log.Info("done", "mode", mode, "elapsed", time.Since(start).Round(time.Millisecond))
		return nil
	}
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := rootCmd.ExecuteContext(ctx)
	if errors.Is(err, probe.ErrInsufficientPorts) {
		log.Error("not enough free server ports", "error", err)
		os.Exit(1)
	}
	rtx.Must(err, "iperf3-wrapper failed")
}
