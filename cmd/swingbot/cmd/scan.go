package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tradewheel/swingbot/config"
	"github.com/tradewheel/swingbot/engine"
	"github.com/tradewheel/swingbot/metrics"
	"github.com/tradewheel/swingbot/signals"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one scan pass: consume signals and place entry orders",
	Long: `Scan reads the signal file produced by the strategy scanner, applies risk
sizing and the daily order ceiling, and places entry orders through the
configured broker mode. Exits non-zero if the trade store reports a
transaction failure.

Example:
  swingbot scan -f swingbot.yaml --signals signals.json`,
	RunE: runScan,
}

var scanSignalsPath string

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVarP(&scanSignalsPath, "signals", "s", "", "path to scanner signal file (JSON) (required)")
	scanCmd.MarkFlagRequired("signals")
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	creds := config.CredentialsFromEnv()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.CloseDB()

	b, err := newBroker(cfg, creds)
	if err != nil {
		return err
	}
	sink := newSink(cfg, creds)

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	defer cancel()

	sigs, err := signals.FileSource{Path: scanSignalsPath}.Signals(ctx)
	if err != nil {
		return err
	}

	eng := engine.New(st, b, cfg.RiskParams(), sink, nil)
	sum, err := eng.Run(ctx, sigs)

	metrics.Push(cfg.Metrics.PushGateway, cfg.Metrics.Job)

	if err != nil {
		return fmt.Errorf("scan aborted: %w", err)
	}

	fmt.Printf("Scan complete (%s mode)\n", cfg.Mode)
	fmt.Printf("  Signals:   %d\n", sum.Received)
	fmt.Printf("  Placed:    %d\n", sum.Placed)
	fmt.Printf("  Rejected:  %d\n", sum.Rejected)
	fmt.Printf("  Failed:    %d\n", sum.Failed)
	return nil
}
