package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/tradewheel/swingbot/config"
	"github.com/tradewheel/swingbot/store"
	"github.com/tradewheel/swingbot/trade"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query the trade store",
	Long: `Query and display position records from the trade store.

Subcommands:
  open      - list open and pending positions
  today     - list positions closed today
  day       - list positions closed on a specific day
  position  - show one position by ID

Examples:
  swingbot journal open
  swingbot journal today
  swingbot journal day 2026-08-28
  swingbot journal position 01J5XQ...`,
}

var journalOpenCmd = &cobra.Command{
	Use:   "open",
	Short: "List open and pending positions",
	Args:  cobra.NoArgs,
	RunE:  runJournalOpen,
}

var journalTodayCmd = &cobra.Command{
	Use:   "today",
	Short: "List positions closed today",
	Args:  cobra.NoArgs,
	RunE:  runJournalToday,
}

var journalDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "List positions closed on a specific day",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalDay,
}

var journalPositionCmd = &cobra.Command{
	Use:   "position <id>",
	Short: "Show one position",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalPosition,
}

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalOpenCmd)
	journalCmd.AddCommand(journalTodayCmd)
	journalCmd.AddCommand(journalDayCmd)
	journalCmd.AddCommand(journalPositionCmd)
}

func journalStore() (*store.Store, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return openStore(cfg)
}

func runJournalOpen(cmd *cobra.Command, args []string) error {
	st, err := journalStore()
	if err != nil {
		return err
	}
	defer st.CloseDB()

	ctx := cmd.Context()
	open, err := st.ListByStatus(ctx, trade.StatusOpen)
	if err != nil {
		return err
	}
	pending, err := st.ListByStatus(ctx, trade.StatusPending)
	if err != nil {
		return err
	}

	renderPositions(append(open, pending...))
	return nil
}

func runJournalToday(cmd *cobra.Command, args []string) error {
	loc := time.Local
	return listClosed(cmd, time.Now().In(loc).Format("2006-01-02"))
}

func runJournalDay(cmd *cobra.Command, args []string) error {
	return listClosed(cmd, args[0])
}

func listClosed(cmd *cobra.Command, day string) error {
	st, err := journalStore()
	if err != nil {
		return err
	}
	defer st.CloseDB()

	start, end, err := dayBounds(time.Local, day)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}

	recs, err := st.ListClosedBetween(cmd.Context(), start, end)
	if err != nil {
		return err
	}

	renderPositions(recs)
	return nil
}

func runJournalPosition(cmd *cobra.Command, args []string) error {
	st, err := journalStore()
	if err != nil {
		return err
	}
	defer st.CloseDB()

	pos, err := st.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	renderPositions([]trade.Position{pos})
	return nil
}

func renderPositions(positions []trade.Position) {
	if len(positions) == 0 {
		fmt.Println("No positions.")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{
		"ID", "Symbol", "Strategy", "Dir", "Status", "Qty",
		"Entry", "Stop", "Target", "Exit", "PnL", "Reason", "Opened", "Closed",
	})

	for _, p := range positions {
		exit, closed, pnl := "", "", ""
		if p.Status == trade.StatusClosed {
			exit = p.ExitPrice.StringFixed(2)
			closed = p.ClosedAt.Format("2006-01-02 15:04")
			pnl = p.PnL.StringFixed(2)
		}
		reason := string(p.ExitReason)
		if p.FailReason != "" {
			reason = p.FailReason
		}
		t.AppendRow(table.Row{
			p.ID, p.Symbol, p.Strategy, p.Direction, p.Status, p.Quantity,
			p.EntryPrice.StringFixed(2), p.StopLoss.StringFixed(2), p.Target.StringFixed(2),
			exit, pnl, reason, p.OpenedAt.Format("2006-01-02 15:04"), closed,
		})
	}
	t.Render()
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return start, start.Add(24 * time.Hour), nil
}
