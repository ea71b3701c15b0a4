package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tradewheel/swingbot/alert"
	"github.com/tradewheel/swingbot/broker"
	"github.com/tradewheel/swingbot/config"
	"github.com/tradewheel/swingbot/monitor"
	"github.com/tradewheel/swingbot/store"
)

var rootCmd = &cobra.Command{
	Use:   "swingbot",
	Short: "Rule-based equity swing trading: scan, execute and monitor",
	Long: `Swingbot converts strategy signals into tracked positions and drives them
through their lifecycle. It runs as two independent scheduled processes:

  swingbot scan     - consume scanner signals, size and place entry orders
  swingbot monitor  - re-evaluate open positions and close the ones that
                      hit their stop, target or holding limit

Both share one SQLite trade store and exit after a single bounded pass, so
an external scheduler (cron or similar) supplies the cadence.`,
}

var cfgPath string

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "f", "swingbot.yaml", "path to config file")
}

func openStore(cfg *config.Config) (*store.Store, error) {
	s, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open trade store: %w", err)
	}
	return s, nil
}

func newBroker(cfg *config.Config, creds config.Credentials) (broker.Broker, error) {
	switch cfg.Mode {
	case config.ModeDryRun:
		return broker.NewDryRun(), nil
	case config.ModeSandbox, config.ModeLive:
		if creds.BrokerClientID == "" || creds.BrokerAccessToken == "" {
			return nil, fmt.Errorf("%s mode requires BROKER_CLIENT_ID and BROKER_ACCESS_TOKEN", cfg.Mode)
		}
		return broker.NewClient(creds.BrokerClientID, creds.BrokerAccessToken,
			cfg.Mode == config.ModeSandbox), nil
	default:
		return nil, fmt.Errorf("unknown mode %q", cfg.Mode)
	}
}

// newPriceFeed prefers the brokerage data endpoint even in dry-run mode, so
// paper positions are monitored against real prices when credentials exist.
func newPriceFeed(cfg *config.Config, creds config.Credentials, b broker.Broker) monitor.PriceFeed {
	if cfg.Mode == config.ModeDryRun && creds.BrokerClientID != "" && creds.BrokerAccessToken != "" {
		return broker.NewClient(creds.BrokerClientID, creds.BrokerAccessToken, false)
	}
	return b
}

// seedDryRunQuotes marks open paper positions at their entry price when the
// dry-run broker is also the price feed, whose quote book starts empty each
// invocation. Holding-period exits still fire this way; stop and target exits
// need broker credentials for a real data feed.
func seedDryRunQuotes(ctx context.Context, st *store.Store, feed monitor.PriceFeed) error {
	d, ok := feed.(*broker.DryRun)
	if !ok {
		return nil
	}

	open, err := st.OpenPositions(ctx)
	if err != nil {
		return err
	}
	for _, p := range open {
		d.SetQuote(p.Symbol, p.EntryPrice)
	}
	return nil
}

func newSink(cfg *config.Config, creds config.Credentials) *alert.Sink {
	backoff, err := cfg.Alerts.ParseBackoff()
	if err != nil || backoff <= 0 {
		backoff = 2 * time.Second
	}

	var transport alert.Transport = alert.LogTransport{}
	if cfg.Alerts.TelegramEnabled && creds.TelegramBotToken != "" && creds.TelegramChatID != "" {
		transport = alert.NewTelegram(creds.TelegramBotToken, creds.TelegramChatID)
	}
	return alert.NewSink(transport, cfg.Alerts.Retries, backoff)
}
