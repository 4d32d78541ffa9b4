package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/driftwatch/driftwatch/internal/config"
	"github.com/driftwatch/driftwatch/internal/state"
	"github.com/hako/durafmt"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show per-target state and recent events",
	Long: `Prints the recorded state of every configured target (last value, when
it was checked, when the last healthcheck went out) and the most recent
tick events.`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store, err := state.New(cfg.State)
	if err != nil {
		return fmt.Errorf("opening state store: %w", err)
	}
	defer store.Close()

	fmt.Println(headerStyle.Render("Targets"))
	if len(cfg.Targets) == 0 {
		fmt.Println(dimStyle.Render("  none configured — run 'driftwatch init' or add targets to the config"))
	} else {
		fmt.Printf("  %-20s %-15s %-26s %-18s %s\n", "ID", "KIND", "VALUE", "CHECKED", "HEALTHCHECK")
		for _, t := range cfg.Targets {
			st, err := store.Load(ctx, t.ID)
			if err != nil {
				fmt.Printf("  %-20s %-15s %s\n", t.ID, t.Kind, warnStyle.Render("state unreadable: "+err.Error()))
				continue
			}
			if st == nil || !st.Initialized {
				fmt.Printf("  %-20s %-15s %s\n", t.ID, t.Kind, dimStyle.Render("never run"))
				continue
			}
			fmt.Printf("  %-20s %-15s %-26s %-18s %s\n",
				t.ID, t.Kind, clip(st.LastValue, 26),
				humanAge(st.LastCheckedAt), humanAge(st.LastHealthcheckAt))
		}
	}

	events, err := store.RecentEvents(ctx, 10)
	if err != nil {
		return fmt.Errorf("reading event history: %w", err)
	}

	fmt.Println()
	fmt.Println(headerStyle.Render("Recent events"))
	if len(events) == 0 {
		fmt.Println(dimStyle.Render("  none recorded yet"))
		return nil
	}
	for _, e := range events {
		when := e.CreatedAt
		if ts := e.Time(); !ts.IsZero() {
			when = humanAge(ts)
		}
		fmt.Printf("  %-16s %-13s %-20s %s\n", when, e.Kind, e.TargetID, e.Message)
	}
	return nil
}

// humanAge renders a timestamp as a coarse "2 weeks 3 days ago".
func humanAge(ts time.Time) string {
	if ts.IsZero() {
		return "never"
	}
	d := time.Since(ts)
	if d < 0 {
		d = 0
	}
	return durafmt.Parse(d.Round(time.Second)).LimitFirstN(2).String() + " ago"
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
