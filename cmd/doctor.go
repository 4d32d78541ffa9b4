package cmd

import (
	"context"
	"fmt"

	"github.com/driftwatch/driftwatch/internal/config"
	"github.com/driftwatch/driftwatch/internal/fetch"
	"github.com/driftwatch/driftwatch/internal/notify"
	"github.com/driftwatch/driftwatch/internal/state"
	"github.com/spf13/cobra"
)

var doctorProbe bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Verify configuration, credentials, and target health",
	Long: `Checks that the config is readable, the state store is reachable, at
least one notification channel is configured, and every target can be
turned into a fetcher.

Use --probe to also fetch each target live and show the current value.`,
	RunE: runDoctor,
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorProbe, "probe", false,
		"Fetch every target once and show the observed value")
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	allOK := true

	fmt.Println("=== driftwatch doctor ===")
	fmt.Println()

	// Check config
	fmt.Print("Config ................... ")
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Printf("FAIL (%s)\n", err)
		fmt.Println()
		fmt.Println(warnStyle.Render("Cannot continue without a readable config — run 'driftwatch init'."))
		return nil
	}
	cfgPath, _ := config.ConfigPath(cfgFile)
	fmt.Printf("OK (%s)\n", cfgPath)

	// Check state store
	fmt.Print("State store .............. ")
	store, err := state.New(cfg.State)
	if err != nil {
		fmt.Printf("FAIL (%s)\n", err)
		allOK = false
	} else {
		if err := store.Ping(ctx); err != nil {
			fmt.Printf("FAIL (%s)\n", err)
			allOK = false
		} else {
			fmt.Printf("OK (%s)\n", store.Driver())
		}
		store.Close()
	}

	// Check git tokens (optional: public targets work without them)
	fmt.Print("GitHub token ............. ")
	if cfg.Git.GitHub.Token == "" {
		fmt.Println("not set (optional — needed for private repos and rate limits)")
	} else {
		fmt.Println("OK")
	}
	fmt.Print("GitLab token ............. ")
	if cfg.Git.GitLab.Token == "" {
		fmt.Println("not set (optional — needed for private projects)")
	} else {
		fmt.Println("OK")
	}

	// Check notification channels
	fmt.Println()
	fmt.Println("Notification channels:")
	configured := 0
	for _, ch := range notify.Channels(cfg.Notify) {
		fmt.Printf("  %-14s ... ", ch.Name())
		if !ch.IsConfigured() {
			fmt.Println("not configured")
			continue
		}
		configured++
		if ch.Fallback() {
			fmt.Println("OK (fallback)")
		} else {
			fmt.Println("OK (primary)")
		}
	}
	if configured == 0 {
		fmt.Println(warnStyle.Render("  no channel configured — notifications cannot be delivered"))
		allOK = false
	}

	// Check targets
	fmt.Println()
	fmt.Println("Targets:")
	if len(cfg.Targets) == 0 {
		fmt.Println(warnStyle.Render("  none configured — run 'driftwatch init' or add targets to the config"))
		allOK = false
	}
	for _, t := range cfg.Targets {
		fmt.Printf("  %-20s ... ", t.ID)
		f, err := fetch.New(t, cfg)
		if err != nil {
			fmt.Printf("FAIL (%s)\n", err)
			allOK = false
			continue
		}
		if !doctorProbe {
			fmt.Printf("OK (%s)\n", f.Describe())
			continue
		}
		probeCtx, cancel := context.WithTimeout(ctx, cfg.Monitor.FetchTimeout())
		obs, err := f.Fetch(probeCtx)
		cancel()
		if err != nil {
			fmt.Printf("FAIL (%s)\n", err)
			allOK = false
			continue
		}
		fmt.Printf("OK (%s)\n", clip(obs.Value, 40))
	}

	fmt.Println()
	if allOK {
		fmt.Println(successStyle.Render("All checks passed — driftwatch is ready!"))
	} else {
		fmt.Println(warnStyle.Render("Some checks failed — run 'driftwatch init' to fix."))
	}

	return nil
}
